package rules

import "contract-risk-eval/internal/risk"

// Housing is the category of residential leases.
const Housing = "housing"

// HousingRules returns the built-in rules for residential leases.
func HousingRules() []Rule {
	return []Rule{
		{
			ID:       "housing-refund-delay",
			Severity: risk.SeverityHigh,
			Title:    "Délai de restitution du dépôt de garantie excessif",
			Description: "Le contrat mentionne un délai de restitution du dépôt de garantie supérieur à la légalité " +
				"(maximum 1 mois si l'état des lieux est conforme, 2 mois sinon).",
			Recommendation: "Exigez de ramener le délai à 1 mois conformément à la loi ALUR de 2014.",
			Detectors: []Detector{
				MustPattern(`restitution.*dépôt.*garantie.*(3|4|5|6).*mois`),
				MustPattern(`remboursement.*caution.*(60|90).*jours`),
				MustPattern(`remboursement.*caution.*\b([3-6])\s*mois`),
			},
		},
		{
			ID:       "housing-illegal-fees",
			Severity: risk.SeverityCritical,
			Title:    "Frais potentiellement illégaux",
			Description: "Certains frais de dossier ou de réservation exigés avant la signature ou hors agence " +
				"sont strictement interdits.",
			Recommendation: "Ne payez aucun frais avant la signature du bail. Vérifiez le barème légal des honoraires d'agence.",
			Detectors: []Detector{
				MustPattern(`frais.*dossier.*(rédaction|visite|état des lieux)`),
				MustPattern(`chèque.*réservation`),
			},
		},
		{
			ID:       "housing-automatic-renewal",
			Severity: risk.SeverityMedium,
			Title:    "Durée de tacite reconduction à vérifier",
			Description: "La tacite reconduction est standard, mais vérifiez les conditions de préavis pour le " +
				"locataire (1 mois en zone tendue).",
			Recommendation: "Assurez-vous que le préavis de départ est bien mentionné (1 ou 3 mois).",
			Detectors: []Detector{
				MustPattern(`tacite.*reconduction.*(3|6|9|12).*ans`),
			},
		},
	}
}
