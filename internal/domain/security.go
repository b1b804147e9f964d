package domain

import "strings"

// RiskLevel enumerates classifier outcomes.
type RiskLevel string

const (
	RiskNone     RiskLevel = "none"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskOrder = map[RiskLevel]int{
	RiskNone:     0,
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// ParseRiskLevel maps rule-file text to a RiskLevel. Unknown values map to low.
func ParseRiskLevel(value string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none":
		return RiskNone
	case "medium":
		return RiskMedium
	case "high":
		return RiskHigh
	case "critical":
		return RiskCritical
	default:
		return RiskLow
	}
}

// MoreSevere reports whether l ranks above other.
func (l RiskLevel) MoreSevere(other RiskLevel) bool {
	return riskOrder[l] > riskOrder[other]
}

// AtLeast reports whether l ranks at or above floor.
func (l RiskLevel) AtLeast(floor RiskLevel) bool {
	return riskOrder[l] >= riskOrder[floor]
}

// RiskAssessment pairs a command with its classification.
// It is always computed from Command and never reused for another command.
type RiskAssessment struct {
	Command      string
	Level        RiskLevel
	Reasons      []string
	MatchedRules []string
}

// RequiresConfirmation is true from medium upwards.
func (a RiskAssessment) RequiresConfirmation() bool {
	return a.Level.AtLeast(RiskMedium)
}

// IsDangerous is true from high upwards.
func (a RiskAssessment) IsDangerous() bool {
	return a.Level.AtLeast(RiskHigh)
}
