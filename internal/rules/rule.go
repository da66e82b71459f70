package rules

import (
	"fmt"
	"regexp"

	"contract-risk-eval/internal/risk"
)

// Span is a byte range of the analysed text matched by a detector.
type Span struct {
	Start int
	End   int
}

// Detector is a pure predicate over contract text returning zero or more spans.
type Detector interface {
	Find(text string) []Span
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(text string) []Span

// Find calls f(text).
func (f DetectorFunc) Find(text string) []Span {
	return f(text)
}

// Rule is a static, pattern-based detector for one kind of contract issue.
type Rule struct {
	ID             string
	Severity       risk.Severity
	Title          string
	Description    string
	Recommendation string
	Detectors      []Detector
}

type patternDetector struct {
	re *regexp.Regexp
}

// Pattern compiles expr case-insensitively into a detector reporting the first
// match only.
func Pattern(expr string) (Detector, error) {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", expr, err)
	}
	return patternDetector{re: re}, nil
}

// MustPattern is like Pattern but panics on an invalid expression. It is meant
// for built-in rule tables.
func MustPattern(expr string) Detector {
	d, err := Pattern(expr)
	if err != nil {
		panic(err)
	}
	return d
}

func (p patternDetector) Find(text string) []Span {
	loc := p.re.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	return []Span{{Start: loc[0], End: loc[1]}}
}

func (p patternDetector) String() string {
	return p.re.String()
}

// Describe returns a printable form of d: the expression for pattern
// detectors, "custom" otherwise.
func Describe(d Detector) string {
	if s, ok := d.(fmt.Stringer); ok {
		return s.String()
	}
	return "custom"
}

func (r Rule) validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("rule %s: invalid severity %q", r.ID, r.Severity)
	}
	if r.Title == "" {
		return fmt.Errorf("rule %s: title is required", r.ID)
	}
	if len(r.Detectors) == 0 {
		return fmt.Errorf("rule %s: at least one pattern is required", r.ID)
	}
	return nil
}
