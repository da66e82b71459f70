package api

import (
	"time"

	"contract-risk-eval/internal/analysis"
	"contract-risk-eval/internal/rules"
	"contract-risk-eval/internal/store"
)

// AnalyzeRequest is the JSON body of POST /api/analyze.
type AnalyzeRequest struct {
	Text         string `json:"text"`
	ContractType string `json:"contract_type"`
	EnableAI     *bool  `json:"enable_ai"`
}

// AnalyzeResponse wraps a successful analysis.
type AnalyzeResponse struct {
	Success bool             `json:"success"`
	Data    *analysis.Report `json:"data"`
	Text    string           `json:"text"`
	Message string           `json:"message"`
}

// BatchItem is one document of a batch analysis.
type BatchItem struct {
	Name         string `json:"name"`
	Text         string `json:"text"`
	ContractType string `json:"contract_type"`
}

// BatchRequest is the JSON body of POST /api/analyze/batch.
type BatchRequest struct {
	Items    []BatchItem `json:"items"`
	EnableAI *bool       `json:"enable_ai"`
}

// BatchResult is the outcome for one batch item. Either Report or Error is set.
type BatchResult struct {
	Index  int              `json:"index"`
	Name   string           `json:"name,omitempty"`
	Report *analysis.Report `json:"report,omitempty"`
	Error  string           `json:"error,omitempty"`
	Kind   string           `json:"kind,omitempty"`
}

// BatchResponse holds batch results in request order.
type BatchResponse struct {
	JobID     string        `json:"job_id"`
	Items     []BatchResult `json:"items"`
	Succeeded int           `json:"succeeded"`
	Rejected  int           `json:"rejected"`
	ElapsedMs int64         `json:"elapsed_ms"`
}

// ReportSummaryDTO is the list representation of a stored report.
type ReportSummaryDTO struct {
	ID               string    `json:"id"`
	ContractType     string    `json:"contract_type"`
	ScoreTotal       int       `json:"score_total"`
	Grade            string    `json:"grade"`
	RiskCount        int       `json:"risk_count"`
	AIEnabled        bool      `json:"ai_enabled"`
	Summary          string    `json:"summary"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// ReportsResponse is the paginated response for stored reports.
type ReportsResponse struct {
	Items []ReportSummaryDTO `json:"items"`
	Total int64              `json:"total"`
}

// StatsResponse aggregates stored reports.
type StatsResponse struct {
	Grades []store.GradeCount `json:"grades"`
	Rules  []store.RuleStat   `json:"rules"`
}

// RuleDTO describes a catalog rule.
type RuleDTO struct {
	ID             string   `json:"id"`
	Category       string   `json:"category"`
	Severity       string   `json:"severity"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
	Patterns       []string `json:"patterns"`
}

// FromModel converts a store.ReportRecord into the DTO representation.
func FromModel(r store.ReportRecord) ReportSummaryDTO {
	return ReportSummaryDTO{
		ID:               r.ID,
		ContractType:     r.ContractType,
		ScoreTotal:       r.ScoreTotal,
		Grade:            r.Grade,
		RiskCount:        r.RiskCount,
		AIEnabled:        r.AIEnabled,
		Summary:          r.Summary,
		ProcessingTimeMs: r.ProcessingTimeMs,
		CreatedAt:        r.CreatedAt,
	}
}

// FromRule converts a catalog rule into its DTO.
func FromRule(category string, r rules.Rule) RuleDTO {
	patterns := make([]string, 0, len(r.Detectors))
	for _, d := range r.Detectors {
		patterns = append(patterns, rules.Describe(d))
	}
	return RuleDTO{
		ID:             r.ID,
		Category:       category,
		Severity:       string(r.Severity),
		Title:          r.Title,
		Description:    r.Description,
		Recommendation: r.Recommendation,
		Patterns:       patterns,
	}
}
