package domain

// GeneratedRecord is the structured candidate extracted from backend text.
//
// Confidence is a pointer so that "absent" stays distinguishable from 0.
// SchemaProblems collects type mismatches found while decoding; the parser
// never fails on them, the validator reports them.
type GeneratedRecord struct {
	Command        string   `json:"command"`
	Explanation    string   `json:"explanation"`
	Confidence     *float64 `json:"confidence,omitempty"`
	RiskTags       []string `json:"risk_tags"`
	SchemaProblems []string `json:"-"`
}

// ConfidenceOr returns the asserted confidence or def when absent.
func (r GeneratedRecord) ConfidenceOr(def float64) float64 {
	if r.Confidence == nil {
		return def
	}
	return *r.Confidence
}

// Float64 is a helper for building records with explicit confidence.
func Float64(v float64) *float64 {
	return &v
}

// DecisionRecord is the output of the generation pipeline.
//
// OK=false means the command must not be auto-executed. NeedConfirmation=true
// means execution needs a separate explicit authorization even when OK is true.
type DecisionRecord struct {
	OK               bool            `json:"ok"`
	Reason           string          `json:"reason,omitempty"`
	Command          string          `json:"command"`
	Confidence       float64         `json:"confidence"`
	Risk             RiskLevel       `json:"risk"`
	NeedConfirmation bool            `json:"need_confirmation"`
	Raw              GeneratedRecord `json:"raw"`
	ModelRaw         string          `json:"model_raw"`
}

// Unattended reports whether the decision is eligible for execution without
// interactive confirmation. This is the only such state.
func (d DecisionRecord) Unattended() bool {
	return d.OK && !d.NeedConfirmation
}

// Explanation returns the explanation carried by the raw record.
func (d DecisionRecord) Explanation() string {
	return d.Raw.Explanation
}
