package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"contract-risk-eval/internal/match"
	"contract-risk-eval/internal/risk"
	"contract-risk-eval/internal/rules"
	"contract-risk-eval/internal/scoring"
	"contract-risk-eval/internal/util"
)

// RiskExtractor finds additional risks with a language model. Implementations
// must not fail: problems yield an empty result.
type RiskExtractor interface {
	Enabled() bool
	Extract(ctx context.Context, text, contractType string) []risk.Finding
}

// Engine runs the relevance gate, the rule catalog and the optional extractor,
// then scores the combined findings. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	Catalog   *rules.Catalog
	Extractor RiskExtractor
	Logger    logrus.FieldLogger
}

// NewEngine wires an engine. A nil catalog falls back to the built-in rules.
func NewEngine(catalog *rules.Catalog, extractor RiskExtractor, logger logrus.FieldLogger) *Engine {
	if catalog == nil {
		catalog = rules.NewCatalog()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{Catalog: catalog, Extractor: extractor, Logger: logger}
}

// AIAvailable reports whether the engine can run the extractor at all.
func (e *Engine) AIAvailable() bool {
	return e.Extractor != nil && e.Extractor.Enabled()
}

// Analyze scores text. It returns a *RejectionError when the text does not
// look like a contract; no partial report is produced in that case.
func (e *Engine) Analyze(ctx context.Context, text string, cfg Config) (*Report, error) {
	timer := util.StartTimer()
	log := e.logger()

	contractType := strings.TrimSpace(cfg.ContractType)
	if contractType == "" {
		contractType = DefaultContractType
	}

	verdict := match.CheckRelevance(text)
	if !verdict.Valid {
		log.WithFields(logrus.Fields{
			"kind":    verdict.Kind,
			"chars":   match.CharLen(text),
			"excerpt": match.Snippet(text, 60),
		}).Info("text rejected by relevance gate")
		return nil, newRejection(verdict)
	}

	catalog := e.Catalog
	if catalog == nil {
		catalog = rules.NewCatalog()
	}
	category := catalog.Resolve(contractType)
	if !catalog.Supports(category) {
		log.WithField("contract_type", category).Warn("no rules registered for contract type")
	}
	findings := catalog.Match(text, category)
	ruleCount := len(findings)

	aiEnabled := cfg.EnableAI && e.AIAvailable()
	if aiEnabled {
		findings = append(findings, e.Extractor.Extract(ctx, text, contractType)...)
	}
	if findings == nil {
		findings = []risk.Finding{}
	}

	score := scoring.Calculate(findings)
	elapsed := timer.ElapsedMs()

	report := &Report{
		Version:          ReportVersion,
		ID:               uuid.NewString(),
		ContractType:     category,
		Score:            score,
		Risks:            findings,
		Summary:          fmt.Sprintf("Analyse terminée. %d points d'attention détectés en %d ms.", len(findings), elapsed),
		Recommendations:  recommendations(findings),
		AIEnabled:        aiEnabled,
		ProcessedAt:      timer.Started().UTC(),
		ProcessingTimeMs: elapsed,
	}

	log.WithFields(logrus.Fields{
		"report_id":     report.ID,
		"contract_type": category,
		"rule_findings": ruleCount,
		"ai_findings":   len(findings) - ruleCount,
		"score":         score.Total,
		"grade":         score.Grade,
		"elapsed_ms":    elapsed,
	}).Info("analysis completed")
	return report, nil
}

func (e *Engine) logger() logrus.FieldLogger {
	if e.Logger == nil {
		return logrus.StandardLogger()
	}
	return e.Logger
}

// recommendations lists the distinct non-empty advice of findings in the order
// first seen.
func recommendations(findings []risk.Finding) []string {
	seen := make(map[string]struct{}, len(findings))
	out := make([]string, 0)
	for _, f := range findings {
		rec := strings.TrimSpace(f.Recommendation)
		if rec == "" {
			continue
		}
		if _, ok := seen[rec]; ok {
			continue
		}
		seen[rec] = struct{}{}
		out = append(out, rec)
	}
	return out
}
