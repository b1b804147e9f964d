package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/gensh/assets"
	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/pkg/filesystem"
	"github.com/doeshing/gensh/internal/ports"
)

// Guardrail implements the RiskClassifier port with regex rules.
// It is safe for concurrent use once constructed.
type Guardrail struct {
	patterns []compiledPattern
	source   string
}

type compiledPattern struct {
	re   *regexp.Regexp
	rule DangerPattern
}

// DangerPattern describes a regex-based guardrail rule.
type DangerPattern struct {
	Pattern string `yaml:"pattern"`
	Level   string `yaml:"level"`
	Message string `yaml:"message"`
}

// RulesFile is the YAML schema root.
type RulesFile struct {
	Rules struct {
		DangerPatterns []DangerPattern `yaml:"danger_patterns"`
	} `yaml:"rules"`
}

// SourceEmbedded is reported by Source when the built-in rules are in use.
const SourceEmbedded = "embedded defaults"

// NewGuardrail loads guardrail rules from path. A missing file, or one that
// declares no rules, falls back to the embedded defaults. Unparseable YAML and
// invalid patterns are errors.
func NewGuardrail(path string) (*Guardrail, error) {
	rules, source, err := loadRules(path)
	if err != nil {
		return nil, err
	}
	return compile(rules, source)
}

// NewDefaultGuardrail builds a guardrail from the embedded rule set only.
func NewDefaultGuardrail() (*Guardrail, error) {
	rules, err := parseRules(assets.DefaultGuardrailYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded guardrail rules: %w", err)
	}
	return compile(rules, SourceEmbedded)
}

func compile(rules RulesFile, source string) (*Guardrail, error) {
	compiled := make([]compiledPattern, 0, len(rules.Rules.DangerPatterns))
	for i, pattern := range rules.Rules.DangerPatterns {
		re, err := regexp.Compile(pattern.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i+1, pattern.Message, err)
		}
		compiled = append(compiled, compiledPattern{re: re, rule: pattern})
	}
	return &Guardrail{patterns: compiled, source: source}, nil
}

// Evaluate classifies command. Empty input is none, unmatched input is low,
// otherwise the most severe matching rule wins and every match contributes a reason.
func (g *Guardrail) Evaluate(command string) domain.RiskAssessment {
	assessment := domain.RiskAssessment{Command: command, Level: domain.RiskNone}
	if strings.TrimSpace(command) == "" {
		return assessment
	}
	assessment.Level = domain.RiskLow
	if g == nil {
		return assessment
	}
	for _, pattern := range g.patterns {
		if !pattern.re.MatchString(command) {
			continue
		}
		ruleLevel := domain.ParseRiskLevel(pattern.rule.Level)
		if ruleLevel.MoreSevere(assessment.Level) {
			assessment.Level = ruleLevel
		}
		assessment.Reasons = append(assessment.Reasons, pattern.rule.Message)
		assessment.MatchedRules = append(assessment.MatchedRules, pattern.rule.Pattern)
	}
	return assessment
}

// RiskLevel returns the classification level for command.
func (g *Guardrail) RiskLevel(command string) domain.RiskLevel {
	return g.Evaluate(command).Level
}

// RequiresConfirmation reports whether command needs explicit authorization.
func (g *Guardrail) RequiresConfirmation(command string) bool {
	return g.Evaluate(command).RequiresConfirmation()
}

// IsDangerous reports whether command must be refused without an override.
func (g *Guardrail) IsDangerous(command string) bool {
	return g.Evaluate(command).IsDangerous()
}

// RuleCount returns the number of compiled rules.
func (g *Guardrail) RuleCount() int {
	if g == nil {
		return 0
	}
	return len(g.patterns)
}

// Source describes where the active rules came from.
func (g *Guardrail) Source() string {
	if g == nil {
		return ""
	}
	return g.source
}

func loadRules(path string) (RulesFile, string, error) {
	path = filesystem.ExpandPath(path)
	if path == "" {
		rules, err := parseRules(assets.DefaultGuardrailYAML)
		return rules, SourceEmbedded, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		rules, err := parseRules(assets.DefaultGuardrailYAML)
		return rules, SourceEmbedded, err
	}
	if err != nil {
		return RulesFile{}, "", fmt.Errorf("read guardrail rules: %w", err)
	}
	rules, err := parseRules(data)
	if err != nil {
		return RulesFile{}, "", fmt.Errorf("parse guardrail rules %s: %w", path, err)
	}
	if len(rules.Rules.DangerPatterns) == 0 {
		rules, err = parseRules(assets.DefaultGuardrailYAML)
		return rules, SourceEmbedded, err
	}
	return rules, path, nil
}

func parseRules(data []byte) (RulesFile, error) {
	var rules RulesFile
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return RulesFile{}, err
	}
	return rules, nil
}

var _ ports.RiskClassifier = (*Guardrail)(nil)
