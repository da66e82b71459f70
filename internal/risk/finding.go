package risk

import "strings"

// Severity ranks how serious a detected contract issue is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity from least to most serious.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Penalty is the number of points a finding of this severity removes from a score.
func (s Severity) Penalty() int {
	switch s {
	case SeverityCritical:
		return 20
	case SeverityHigh:
		return 10
	case SeverityMedium:
		return 5
	case SeverityLow:
		return 2
	default:
		return 0
	}
}

// ParseSeverity normalizes a free-form severity label, returning fallback when
// the label is empty or unknown.
func ParseSeverity(value string, fallback Severity) Severity {
	s := Severity(strings.ToLower(strings.TrimSpace(value)))
	if s.Valid() {
		return s
	}
	return fallback
}

// Source tells whether a finding came from a deterministic rule or a language model.
type Source string

const (
	SourceRule Source = "rule"
	SourceAI   Source = "ai"
)

// Clause is the excerpt of the contract a finding points at. Start and End are
// character offsets; both are zero when the detector cannot locate the excerpt.
type Clause struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Finding is a single detected contract risk.
type Finding struct {
	ID             string   `json:"id"`
	RuleID         string   `json:"rule_id,omitempty"`
	Severity       Severity `json:"severity"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
	Clause         Clause   `json:"clause"`
	Source         Source   `json:"source"`
}
