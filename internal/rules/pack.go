package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"contract-risk-eval/internal/risk"
)

type packFile struct {
	Categories []packCategory `yaml:"categories"`
}

type packCategory struct {
	Name    string     `yaml:"name"`
	Aliases []string   `yaml:"aliases"`
	Rules   []packRule `yaml:"rules"`
}

type packRule struct {
	ID             string   `yaml:"id"`
	Severity       string   `yaml:"severity"` // low|medium|high|critical
	Title          string   `yaml:"title"`
	Description    string   `yaml:"description"`
	Recommendation string   `yaml:"recommendation"`
	Patterns       []string `yaml:"patterns"` // regex, matched case-insensitively
}

// LoadPack reads a YAML rule pack and registers its rules. It returns the
// number of rules added. A pack is validated entirely before anything is
// registered.
func (c *Catalog) LoadPack(path string) (int, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return 0, fmt.Errorf("read rule pack: %w", err)
	}
	return c.LoadPackData(data)
}

// LoadPackData is LoadPack over an in-memory YAML document.
func (c *Catalog) LoadPackData(data []byte) (int, error) {
	var pack packFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return 0, fmt.Errorf("parse rule pack: %w", err)
	}

	compiled := make(map[string][]Rule, len(pack.Categories))
	order := make([]string, 0, len(pack.Categories))
	for _, cat := range pack.Categories {
		name := normalizeCategory(cat.Name)
		if name == "" {
			return 0, fmt.Errorf("rule pack category without name")
		}
		for _, pr := range cat.Rules {
			rule, err := compileRule(pr)
			if err != nil {
				return 0, fmt.Errorf("category %s: %w", name, err)
			}
			compiled[name] = append(compiled[name], rule)
		}
		if _, seen := compiled[name]; seen && !contains(order, name) {
			order = append(order, name)
		}
	}

	var added int
	for _, name := range order {
		if err := c.Register(name, compiled[name]...); err != nil {
			return added, err
		}
		added += len(compiled[name])
	}
	for _, cat := range pack.Categories {
		for _, alias := range cat.Aliases {
			if strings.TrimSpace(alias) != "" {
				c.Alias(alias, cat.Name)
			}
		}
	}
	return added, nil
}

func compileRule(pr packRule) (Rule, error) {
	if strings.TrimSpace(pr.ID) == "" {
		return Rule{}, fmt.Errorf("rule without id")
	}
	sev := risk.Severity(strings.ToLower(strings.TrimSpace(pr.Severity)))
	if !sev.Valid() {
		return Rule{}, fmt.Errorf("rule %s: invalid severity %q", pr.ID, pr.Severity)
	}
	if len(pr.Patterns) == 0 {
		return Rule{}, fmt.Errorf("rule %s: no patterns", pr.ID)
	}
	rule := Rule{
		ID:             strings.TrimSpace(pr.ID),
		Severity:       sev,
		Title:          strings.TrimSpace(pr.Title),
		Description:    strings.TrimSpace(pr.Description),
		Recommendation: strings.TrimSpace(pr.Recommendation),
	}
	for _, expr := range pr.Patterns {
		d, err := Pattern(expr)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %s: %w", pr.ID, err)
		}
		rule.Detectors = append(rule.Detectors, d)
	}
	if err := rule.validate(); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
