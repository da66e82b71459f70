package rules

import (
	"reflect"
	"strings"
	"testing"

	"contract-risk-eval/internal/risk"
)

func TestHousingMatch(t *testing.T) {
	catalog := NewCatalog()

	tests := []struct {
		name     string
		text     string
		category string
		expected []string
	}{
		{
			name:     "refund delay in months",
			text:     "Bail d'habitation. Article 3: remboursement de la caution sous 5 mois.",
			category: "housing",
			expected: []string{"housing-refund-delay"},
		},
		{
			name:     "refund delay in days",
			text:     "Le remboursement de la caution interviendra sous 90 jours.",
			category: "housing",
			expected: []string{"housing-refund-delay"},
		},
		{
			name:     "illegal fees both patterns",
			text:     "Des frais de dossier pour la rédaction du bail et un chèque de réservation sont demandés.",
			category: "housing",
			expected: []string{"housing-illegal-fees", "housing-illegal-fees"},
		},
		{
			name:     "renewal",
			text:     "Le bail est renouvelé par tacite reconduction pour 3 ans.",
			category: "HOUSING",
			expected: []string{"housing-automatic-renewal"},
		},
		{
			name:     "alias baux",
			text:     "La restitution du dépôt de garantie se fera dans un délai de 4 mois.",
			category: "baux",
			expected: []string{"housing-refund-delay"},
		},
		{
			name:     "unknown category",
			text:     "La restitution du dépôt de garantie se fera dans un délai de 4 mois.",
			category: "work",
			expected: nil,
		},
		{
			name:     "clean lease",
			text:     "Le dépôt de garantie est restitué dans un délai d'un mois.",
			category: "housing",
			expected: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			findings := catalog.Match(tc.text, tc.category)
			var ids []string
			for _, f := range findings {
				ids = append(ids, f.ID)
				if f.Source != risk.SourceRule {
					t.Fatalf("expected rule source got %s", f.Source)
				}
				if !f.Severity.Valid() {
					t.Fatalf("invalid severity %q", f.Severity)
				}
			}
			if !reflect.DeepEqual(ids, tc.expected) {
				t.Fatalf("expected %v got %v", tc.expected, ids)
			}
		})
	}
}

func TestMatchClauseOffsets(t *testing.T) {
	text := "Préambule. Le remboursement de la caution sous 5 mois."
	findings := NewCatalog().Match(text, Housing)
	if len(findings) != 1 {
		t.Fatalf("expected one finding got %d", len(findings))
	}
	clause := findings[0].Clause
	runes := []rune(text)
	if string(runes[clause.Start:clause.End]) != clause.Text {
		t.Fatalf("offsets %d..%d do not select %q", clause.Start, clause.End, clause.Text)
	}
	if !strings.HasPrefix(clause.Text, "remboursement") {
		t.Fatalf("unexpected clause %q", clause.Text)
	}
	if findings[0].Severity != risk.SeverityHigh {
		t.Fatalf("expected high got %s", findings[0].Severity)
	}
}

func TestMatchDeterministic(t *testing.T) {
	catalog := NewCatalog()
	text := "Frais de dossier pour visite. Tacite reconduction de 6 ans. Restitution du dépôt de garantie sous 3 mois."
	first := catalog.Match(text, Housing)
	second := catalog.Match(text, Housing)
	if len(first) == 0 {
		t.Fatalf("expected findings")
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("matcher is not deterministic:\n%v\n%v", first, second)
	}
	if first[0].ID != "housing-refund-delay" {
		t.Fatalf("expected catalog order, got %s first", first[0].ID)
	}
}

func TestRegisterCustomDetector(t *testing.T) {
	catalog := NewEmptyCatalog()
	err := catalog.Register("sale", Rule{
		ID:       "sale-price-missing",
		Severity: risk.SeverityLow,
		Title:    "Prix absent",
		Detectors: []Detector{DetectorFunc(func(text string) []Span {
			if strings.Contains(strings.ToLower(text), "prix") {
				return nil
			}
			return []Span{{Start: 0, End: 0}}
		})},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := catalog.Match("Vente d'un véhicule d'occasion.", "sale"); len(got) != 1 {
		t.Fatalf("expected 1 finding got %d", len(got))
	}
	if got := catalog.Match("Le prix est fixé à 1000 euros.", "sale"); len(got) != 0 {
		t.Fatalf("expected no finding got %d", len(got))
	}
}

func TestRegisterRejectsInvalidRule(t *testing.T) {
	catalog := NewEmptyCatalog()
	if err := catalog.Register("x", Rule{ID: "bad", Severity: "extreme", Title: "t", Detectors: []Detector{MustPattern("a")}}); err == nil {
		t.Fatalf("expected severity error")
	}
	if err := catalog.Register("x", Rule{ID: "bad", Severity: risk.SeverityLow, Title: "t"}); err == nil {
		t.Fatalf("expected missing pattern error")
	}
	if err := catalog.Register(" ", Rule{}); err == nil {
		t.Fatalf("expected missing category error")
	}
}

func TestCategories(t *testing.T) {
	catalog := NewCatalog()
	if got := catalog.Categories(); !reflect.DeepEqual(got, []string{"housing"}) {
		t.Fatalf("unexpected categories %v", got)
	}
	if !catalog.Supports("Baux") {
		t.Fatalf("expected alias to be supported")
	}
}
