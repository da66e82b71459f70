package match

import "strings"

// MinTextLength is the shortest text, in characters, worth analysing.
const MinTextLength = 50

// MinLegalTerms is how many distinct legal terms a text needs to pass as a contract.
const MinLegalTerms = 2

// Rejection kinds.
const (
	KindTooShort          = "too_short"
	KindNoLegalVocabulary = "no_legal_vocabulary"
)

const (
	reasonTooShort          = "Le texte est trop court pour être analysé."
	reasonNoLegalVocabulary = "Aucun vocabulaire juridique détecté."
)

// legalVocabulary holds the terms that signal a legal document. Each entry is
// counted once, under its first spelling, whichever spelling appears. Matching
// is a plain substring check on lower-cased text, not a word-boundary match.
var legalVocabulary = [][]string{
	{"contrat", "contract"},
	{"bail"},
	{"convention"},
	{"accord"},
	{"article"},
	{"parties"},
	{"signature"},
	{"loi"},
	{"code civil"},
	{"conditions générales"},
	{"loyer"},
	{"prix"},
	{"durée"},
	{"résiliation"},
	{"objet"},
	{"entre les soussignés"},
}

// Relevance is the verdict of the contract relevance gate.
type Relevance struct {
	Valid   bool     `json:"valid"`
	Kind    string   `json:"kind,omitempty"`
	Reason  string   `json:"reason,omitempty"`
	Matched []string `json:"matched,omitempty"`
}

// CheckRelevance decides whether text looks enough like a legal contract to be
// scored. It is a cheap keyword heuristic meant to skip obviously unrelated
// input before any model call.
func CheckRelevance(text string) Relevance {
	matched := LegalTerms(text)

	if CharLen(text) < MinTextLength {
		return Relevance{Valid: false, Kind: KindTooShort, Reason: reasonTooShort, Matched: matched}
	}
	if len(matched) < MinLegalTerms {
		return Relevance{Valid: false, Kind: KindNoLegalVocabulary, Reason: reasonNoLegalVocabulary, Matched: matched}
	}
	return Relevance{Valid: true, Matched: matched}
}

// LegalTerms returns the distinct legal vocabulary terms present in text, in
// vocabulary order.
func LegalTerms(text string) []string {
	lower := Lower(text)
	var found []string
	for _, spellings := range legalVocabulary {
		for _, spelling := range spellings {
			if strings.Contains(lower, spelling) {
				found = append(found, spellings[0])
				break
			}
		}
	}
	return found
}
