package rules

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"contract-risk-eval/internal/match"
	"contract-risk-eval/internal/risk"
)

// Catalog maps contract categories to their ordered rule sets.
type Catalog struct {
	mu      sync.RWMutex
	rules   map[string][]Rule
	aliases map[string]string
}

// NewCatalog returns a catalog holding the built-in rule sets.
func NewCatalog() *Catalog {
	c := NewEmptyCatalog()
	if err := c.Register(Housing, HousingRules()...); err != nil {
		panic(err)
	}
	c.Alias("baux", Housing)
	return c
}

// NewEmptyCatalog returns a catalog without any rules.
func NewEmptyCatalog() *Catalog {
	return &Catalog{
		rules:   make(map[string][]Rule),
		aliases: make(map[string]string),
	}
}

// Register appends rules to category, after any rules it already holds.
func (c *Catalog) Register(category string, rules ...Rule) error {
	key := normalizeCategory(category)
	if key == "" {
		return fmt.Errorf("category is required")
	}
	for _, r := range rules {
		if err := r.validate(); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules[key] = append(c.rules[key], rules...)
	return nil
}

// Alias makes alias resolve to category.
func (c *Catalog) Alias(alias, category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliases[normalizeCategory(alias)] = normalizeCategory(category)
}

// Resolve returns the canonical category name for the supplied label.
func (c *Catalog) Resolve(category string) string {
	key := normalizeCategory(category)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if target, ok := c.aliases[key]; ok {
		return target
	}
	return key
}

// Rules returns a copy of the rules registered for category. Unknown
// categories have no rules.
func (c *Catalog) Rules(category string) []Rule {
	key := c.Resolve(category)
	c.mu.RLock()
	defer c.mu.RUnlock()
	rules := c.rules[key]
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Categories lists the canonical categories holding at least one rule.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.rules))
	for name, rules := range c.rules {
		if len(rules) > 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Supports reports whether category resolves to a rule set.
func (c *Catalog) Supports(category string) bool {
	return len(c.Rules(category)) > 0
}

// Match runs every rule of the category against text. Rules are evaluated in
// catalog order and detectors in declared order; each matching detector yields
// its own finding, so a rule with several matching patterns reports several.
func (c *Catalog) Match(text, category string) []risk.Finding {
	var findings []risk.Finding
	for _, rule := range c.Rules(category) {
		for _, detector := range rule.Detectors {
			for _, span := range detector.Find(text) {
				if span.Start < 0 || span.End > len(text) || span.Start > span.End {
					continue
				}
				findings = append(findings, risk.Finding{
					ID:             rule.ID,
					RuleID:         rule.ID,
					Severity:       rule.Severity,
					Title:          rule.Title,
					Description:    rule.Description,
					Recommendation: rule.Recommendation,
					Clause: risk.Clause{
						Text:  text[span.Start:span.End],
						Start: match.RuneOffset(text, span.Start),
						End:   match.RuneOffset(text, span.End),
					},
					Source: risk.SourceRule,
				})
			}
		}
	}
	return findings
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
