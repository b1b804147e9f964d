// Package validation decides whether a generated record may run.
package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/ports"
)

// Rejection reasons.
const (
	ReasonInvalidPrefix = "invalid model output: "
	ReasonDangerous     = "command flagged as dangerous by internal policy"
	ReasonLowConfidence = "model confidence below threshold"
)

// Validator implements ports.OutputValidator. It holds a snapshot of the
// threshold so Validate is a pure function of its input.
type Validator struct {
	classifier    ports.RiskClassifier
	minConfidence float64
}

// New builds a validator for the given classifier and auto-run threshold.
func New(classifier ports.RiskClassifier, minConfidence float64) *Validator {
	return &Validator{classifier: classifier, minConfidence: minConfidence}
}

// MinConfidence returns the threshold this validator was built with.
func (v *Validator) MinConfidence() float64 {
	return v.minConfidence
}

// Validate checks the schema, then danger, then confidence. need_confirmation
// is computed independently of the accept decision.
func (v *Validator) Validate(record domain.GeneratedRecord) domain.DecisionRecord {
	if problems := schemaProblems(record); len(problems) > 0 {
		return domain.DecisionRecord{
			OK:               false,
			Reason:           ReasonInvalidPrefix + strings.Join(problems, "; "),
			Command:          record.Command,
			Confidence:       clampConfidence(record.Confidence),
			Risk:             domain.RiskNone,
			NeedConfirmation: true,
			Raw:              record,
		}
	}

	confidence := record.ConfidenceOr(domain.DefaultRecordConfidence)
	normalized := record
	normalized.Confidence = domain.Float64(confidence)
	if normalized.RiskTags == nil {
		normalized.RiskTags = []string{}
	}

	assessment := v.classifier.Evaluate(record.Command)
	lowConfidence := confidence < v.minConfidence

	decision := domain.DecisionRecord{
		OK:               true,
		Command:          record.Command,
		Confidence:       confidence,
		Risk:             assessment.Level,
		NeedConfirmation: assessment.RequiresConfirmation() || lowConfidence,
		Raw:              normalized,
	}
	switch {
	case assessment.IsDangerous():
		decision.OK = false
		decision.Reason = ReasonDangerous
	case lowConfidence:
		decision.OK = false
		decision.Reason = ReasonLowConfidence
	}
	return decision
}

func schemaProblems(record domain.GeneratedRecord) []string {
	problems := append([]string(nil), record.SchemaProblems...)
	if strings.TrimSpace(record.Command) == "" && !mentions(problems, "command") {
		problems = append(problems, "command must be a non-empty string")
	}
	if strings.TrimSpace(record.Explanation) == "" && !mentions(problems, "explanation") {
		problems = append(problems, "explanation must be a non-empty string")
	}
	if c := record.Confidence; c != nil && (math.IsNaN(*c) || *c < 0 || *c > 1) {
		problems = append(problems, fmt.Sprintf("confidence must be within [0,1], got %v", *c))
	}
	return problems
}

func mentions(problems []string, field string) bool {
	for _, problem := range problems {
		if strings.HasPrefix(problem, field+" ") {
			return true
		}
	}
	return false
}

func clampConfidence(c *float64) float64 {
	if c == nil || math.IsNaN(*c) {
		return 0
	}
	return math.Min(1, math.Max(0, *c))
}

var _ ports.OutputValidator = (*Validator)(nil)
