package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"contract-risk-eval/internal/match"
	"contract-risk-eval/internal/risk"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxChars = 6000

	defaultTitle = "Risque détecté par IA"
	defaultQuote = "Contexte global"
)

// Extractor asks a Completer for additional contract risks and maps the reply
// to findings. It never fails: any problem is logged and yields no findings.
type Extractor struct {
	completer Completer
	timeout   time.Duration
	maxChars  int
	logger    logrus.FieldLogger
	newID     func() string
}

// ExtractorOption customises an Extractor.
type ExtractorOption func(*Extractor)

func WithTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithMaxChars(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.maxChars = n
		}
	}
}

func WithLogger(logger logrus.FieldLogger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor wraps completer. A nil completer produces a disabled extractor.
func NewExtractor(completer Completer, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		completer: completer,
		timeout:   DefaultTimeout,
		maxChars:  DefaultMaxChars,
		logger:    logrus.StandardLogger(),
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enabled reports whether Extract will call out to a model.
func (e *Extractor) Enabled() bool {
	return e != nil && e.completer != nil && e.completer.Enabled()
}

// Timeout returns the per-call deadline.
func (e *Extractor) Timeout() time.Duration {
	if e == nil {
		return 0
	}
	return e.timeout
}

// Extract returns the risks the model reports for text, or nil on any failure.
func (e *Extractor) Extract(ctx context.Context, text, contractType string) []risk.Finding {
	if !e.Enabled() {
		return nil
	}
	log := e.logger.WithField("contract_type", contractType)

	prompt := BuildPrompt(match.Truncate(text, e.maxChars), contractType)
	content, err := e.complete(ctx, prompt)
	if err != nil {
		log.WithError(err).Warn("ai risk extraction failed")
		return nil
	}

	raw, err := ParseRisks(content)
	if err != nil {
		log.WithError(err).Warn("ai reply is not a risk list")
		return nil
	}
	findings := e.toFindings(raw)
	log.WithField("risks", len(findings)).Debug("ai risk extraction completed")
	return findings
}

// complete races the completer against the deadline so a completer that
// ignores ctx cannot hold the analysis past the timeout.
func (e *Extractor) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type result struct {
		content string
		err     error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("completer panic: %v", r)}
			}
		}()
		content, err := e.completer.Complete(ctx, prompt)
		done <- result{content: content, err: err}
	}()

	select {
	case r := <-done:
		return r.content, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
		}
		return "", ctx.Err()
	}
}

func (e *Extractor) toFindings(raw []RawRisk) []risk.Finding {
	findings := make([]risk.Finding, 0, len(raw))
	for i, item := range raw {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = defaultTitle
		}
		quote := strings.TrimSpace(item.Quote)
		if quote == "" {
			quote = defaultQuote
		}
		findings = append(findings, risk.Finding{
			ID:             fmt.Sprintf("ai-risk-%d-%s", i, e.newID()),
			Severity:       risk.ParseSeverity(item.Severity, risk.SeverityMedium),
			Title:          title,
			Description:    strings.TrimSpace(item.Description),
			Recommendation: strings.TrimSpace(item.Recommendation),
			Clause:         risk.Clause{Text: quote},
			Source:         risk.SourceAI,
		})
	}
	return findings
}

// ParseRisks decodes a model reply into raw risks. Markdown fences and any text
// around the outermost JSON array are ignored. An empty reply is an empty list.
func ParseRisks(content string) ([]RawRisk, error) {
	cleaned := normalizeJSONBlock(content)
	if cleaned == "" {
		return nil, nil
	}
	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start == -1 || end < start {
		return nil, errors.New("no json array in reply")
	}
	var raw []RawRisk
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode risks: %w", err)
	}
	return raw, nil
}

func normalizeJSONBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.ReplaceAll(trimmed, "```json", "")
	trimmed = strings.ReplaceAll(trimmed, "```", "")
	return strings.TrimSpace(trimmed)
}
