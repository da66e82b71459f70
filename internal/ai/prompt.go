package ai

import (
	"fmt"
	"strings"
)

const promptTemplate = `Tu es un avocat expert en droit des contrats français.
Analyse la clause ou le contrat suivant (Type: %s).
Identifie les risques juridiques majeurs, les clauses abusives ou les ambiguïtés.

Texte du contrat :
"""
%s
"""

Format de réponse attendu (JSON uniquement, sans markdown) :
[
  {
    "title": "Titre court du risque",
    "description": "Explication du problème juridique",
    "severity": "high" | "medium" | "low",
    "recommendation": "Conseil pour corriger ou négocier",
    "quote": "Extrait exact du texte concerné"
  }
]
Si aucun risque n'est trouvé, renvoie [].
Réponds uniquement avec le JSON valide.`

// BuildPrompt renders the French risk-extraction prompt for text.
func BuildPrompt(text, contractType string) string {
	contractType = strings.TrimSpace(contractType)
	if contractType == "" {
		contractType = "auto"
	}
	return fmt.Sprintf(promptTemplate, contractType, text)
}
