package analysis

import (
	"errors"
	"time"

	"contract-risk-eval/internal/match"
	"contract-risk-eval/internal/risk"
	"contract-risk-eval/internal/scoring"
)

// ReportVersion is bumped whenever the report JSON shape changes.
const ReportVersion = 1

// DefaultContractType is used when the caller does not name a category.
const DefaultContractType = "housing"

const rejectionPrefix = "Le document ne semble pas être un contrat valide. "

var (
	ErrTooShort          = errors.New("text too short")
	ErrNoLegalVocabulary = errors.New("no legal vocabulary detected")
)

// Config selects how a single text is analysed.
type Config struct {
	ContractType string
	EnableAI     bool
}

// Report is the outcome of one analysis.
type Report struct {
	Version          int            `json:"version"`
	ID               string         `json:"id"`
	ContractType     string         `json:"contract_type"`
	Score            scoring.Score  `json:"score"`
	Risks            []risk.Finding `json:"risks"`
	Summary          string         `json:"summary"`
	Recommendations  []string       `json:"recommendations"`
	AIEnabled        bool           `json:"ai_enabled"`
	ProcessedAt      time.Time      `json:"processed_at"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

// RejectionError is returned when the text does not look like a contract.
type RejectionError struct {
	Kind   string
	Reason string
}

func (e *RejectionError) Error() string {
	return rejectionPrefix + e.Reason
}

func (e *RejectionError) Unwrap() error {
	switch e.Kind {
	case match.KindTooShort:
		return ErrTooShort
	case match.KindNoLegalVocabulary:
		return ErrNoLegalVocabulary
	}
	return nil
}

func newRejection(verdict match.Relevance) *RejectionError {
	return &RejectionError{Kind: verdict.Kind, Reason: verdict.Reason}
}
