package scoring

import "contract-risk-eval/internal/risk"

const maxScore = 100

// Details holds the per-dimension sub-scores of an analysis. They are reserved
// in the report shape and currently always zero.
type Details struct {
	Legal     int `json:"legal"`
	Financial int `json:"financial"`
	Clarity   int `json:"clarity"`
}

// Score is the overall grade of a contract.
type Score struct {
	Total   int                   `json:"total"`
	Grade   string                `json:"grade"`
	Details Details               `json:"details"`
	Counts  map[risk.Severity]int `json:"counts"`
}

// Calculate folds the findings into a 0-100 score by subtracting the penalty of
// each finding's severity, then derives the letter grade.
func Calculate(findings []risk.Finding) Score {
	counts := make(map[risk.Severity]int, len(risk.Severities))
	for _, sev := range risk.Severities {
		counts[sev] = 0
	}

	raw := maxScore
	for _, f := range findings {
		raw -= f.Severity.Penalty()
		if f.Severity.Valid() {
			counts[f.Severity]++
		}
	}

	total := clampInt(raw, 0, maxScore)
	return Score{
		Total:  total,
		Grade:  GradeFor(total),
		Counts: counts,
	}
}

// GradeFor maps a total to its letter grade. Each band includes its lower bound.
func GradeFor(total int) string {
	switch {
	case total >= 90:
		return "A"
	case total >= 80:
		return "B"
	case total >= 60:
		return "C"
	case total >= 40:
		return "D"
	default:
		return "F"
	}
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
