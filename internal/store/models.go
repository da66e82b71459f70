package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"contract-risk-eval/internal/analysis"
)

// ReportRecord is a persisted analysis report. The analysed contract text is
// never stored, only the report derived from it.
type ReportRecord struct {
	ID               string `gorm:"primaryKey;size:36"`
	ContractType     string `gorm:"size:64;index"`
	ScoreTotal       int    `gorm:"index"`
	Grade            string `gorm:"size:1;index"`
	RiskCount        int
	AIEnabled        bool
	Summary          string    `gorm:"type:text"`
	ReportJSON       string    `gorm:"type:text"`
	ProcessingTimeMs int64
	CreatedAt        time.Time `gorm:"index"`
}

// FindingRecord is one finding of a stored report, kept for aggregate queries.
type FindingRecord struct {
	ID       uint   `gorm:"primaryKey"`
	ReportID string `gorm:"size:36;index"`
	Position int
	RuleID   string `gorm:"size:128;index"`
	Severity string `gorm:"size:16;index"`
	Source   string `gorm:"size:8;index"`
	Title    string `gorm:"size:255"`
}

// RuleStat counts how often a rule fired across stored reports.
type RuleStat struct {
	RuleID   string `json:"rule_id"`
	Title    string `json:"title"`
	Severity string `json:"severity"`
	Total    int    `json:"total"`
}

// GradeCount is the number of stored reports per grade.
type GradeCount struct {
	Grade string `json:"grade"`
	Total int    `json:"total"`
}

// NewReportRecord flattens report into its row and finding rows.
func NewReportRecord(report *analysis.Report) (*ReportRecord, []FindingRecord, error) {
	if report == nil {
		return nil, nil, fmt.Errorf("report is nil")
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, nil, fmt.Errorf("encode report: %w", err)
	}
	created := report.ProcessedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	rec := &ReportRecord{
		ID:               report.ID,
		ContractType:     strings.ToLower(strings.TrimSpace(report.ContractType)),
		ScoreTotal:       report.Score.Total,
		Grade:            report.Score.Grade,
		RiskCount:        len(report.Risks),
		AIEnabled:        report.AIEnabled,
		Summary:          report.Summary,
		ReportJSON:       string(payload),
		ProcessingTimeMs: report.ProcessingTimeMs,
		CreatedAt:        created,
	}
	findings := make([]FindingRecord, 0, len(report.Risks))
	for i, f := range report.Risks {
		findings = append(findings, FindingRecord{
			ReportID: report.ID,
			Position: i,
			RuleID:   f.RuleID,
			Severity: string(f.Severity),
			Source:   string(f.Source),
			Title:    f.Title,
		})
	}
	return rec, findings, nil
}

// Report decodes the stored report.
func (r *ReportRecord) Report() (*analysis.Report, error) {
	if strings.TrimSpace(r.ReportJSON) == "" {
		return nil, fmt.Errorf("report %s has no payload", r.ID)
	}
	var out analysis.Report
	if err := json.Unmarshal([]byte(r.ReportJSON), &out); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", r.ID, err)
	}
	return &out, nil
}
