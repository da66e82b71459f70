package rules

import (
	"path/filepath"
	"strings"
	"testing"

	"contract-risk-eval/internal/risk"
)

func TestLoadPack(t *testing.T) {
	catalog := NewCatalog()
	added, err := catalog.LoadPack(filepath.Join("testdata", "employment.yaml"))
	if err != nil {
		t.Fatalf("load pack: %v", err)
	}
	if added != 2 {
		t.Fatalf("expected 2 rules added got %d", added)
	}

	text := "Contrat de travail. La période d'essai est fixée à 6 mois. Clause de non-concurrence sans aucune contrepartie."
	findings := catalog.Match(text, "travail")
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings got %d: %+v", len(findings), findings)
	}
	if findings[0].ID != "employment-non-compete-unpaid" || findings[0].Severity != risk.SeverityHigh {
		t.Fatalf("unexpected first finding %+v", findings[0])
	}
	if findings[1].ID != "employment-long-trial" {
		t.Fatalf("unexpected second finding %+v", findings[1])
	}

	if got := catalog.Categories(); strings.Join(got, ",") != "employment,housing" {
		t.Fatalf("unexpected categories %v", got)
	}
}

func TestLoadPackErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "categories: [", "parse rule pack"},
		{"missing name", "categories:\n  - rules: []\n", "without name"},
		{"bad severity", "categories:\n  - name: x\n    rules:\n      - id: r\n        severity: severe\n        title: t\n        patterns: [a]\n", "invalid severity"},
		{"bad regex", "categories:\n  - name: x\n    rules:\n      - id: r\n        severity: low\n        title: t\n        patterns: ['(']\n", "compile pattern"},
		{"no patterns", "categories:\n  - name: x\n    rules:\n      - id: r\n        severity: low\n        title: t\n", "no patterns"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			catalog := NewEmptyCatalog()
			_, err := catalog.LoadPackData([]byte(tc.yaml))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
			if len(catalog.Categories()) != 0 {
				t.Fatalf("failed pack must not register rules")
			}
		})
	}
}

func TestLoadPackMissingFile(t *testing.T) {
	if _, err := NewCatalog().LoadPack(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}
