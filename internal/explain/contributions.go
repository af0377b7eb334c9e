package explain

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Breeganzo/RMD-Agent-Demo/internal/screening"
)

// Direction of a factor's influence on the risk assessment.
type Direction string

const (
	IncreasesRisk Direction = "increases_risk"
	DecreasesRisk Direction = "decreases_risk"
)

// FeatureContribution attributes a share of the risk decision to one input
// factor, with both a clinical and a plain-language rendering.
type FeatureContribution struct {
	FeatureName          string
	FeatureValue         string
	ContributionScore    float64
	Direction            Direction
	ClinicalSignificance string
	PlainLanguage        string
}

type symptomWeight struct {
	baseScore float64
	clinical  string
	plain     string
}

var symptomWeights = map[string]symptomWeight{
	screening.SymptomJointPain: {
		0.15,
		"Joint pain is the primary presenting symptom in RMDs",
		"Joint pain is something we take seriously and want to investigate",
	},
	screening.SymptomMultipleJoints: {
		0.25,
		"Polyarticular involvement suggests inflammatory arthritis (RA, PsA)",
		"Having pain in several joints at once can be a sign of certain conditions",
	},
	screening.SymptomMorningStiffness: {
		0.20,
		"Morning stiffness >30min is characteristic of inflammatory arthritis",
		"Stiffness in the morning that takes time to improve is something we look out for",
	},
	screening.SymptomJointSwelling: {
		0.22,
		"Synovitis (joint swelling) indicates active inflammation",
		"Swelling in your joints shows there may be inflammation we need to address",
	},
	screening.SymptomJointRedness: {
		0.18,
		"Erythema suggests acute inflammatory process",
		"Redness around joints can indicate inflammation",
	},
	screening.SymptomFatigue: {
		0.10,
		"Constitutional symptoms suggest systemic inflammatory disease",
		"Feeling very tired can sometimes be linked to inflammation in the body",
	},
	screening.SymptomFever: {
		0.15,
		"Fever with joint symptoms requires urgent evaluation",
		"A fever along with joint problems needs quick attention",
	},
	screening.SymptomSkinRash: {
		0.18,
		"Skin involvement suggests PsA, SLE, or dermatomyositis",
		"Skin changes can sometimes be connected to joint conditions",
	},
	screening.SymptomWeightLoss: {
		0.12,
		"Unexplained weight loss suggests systemic disease",
		"Losing weight without trying can be a sign your body is dealing with something",
	},
}

// Contributions calculates rule-based feature attributions for a screening,
// sorted by absolute contribution.
func Contributions(p *screening.PatientScreening) []FeatureContribution {
	var contributions []FeatureContribution

	if p.Age >= 50 {
		contributions = append(contributions, FeatureContribution{
			FeatureName:          "Age",
			FeatureValue:         fmt.Sprintf("%d years", p.Age),
			ContributionScore:    0.10,
			Direction:            IncreasesRisk,
			ClinicalSignificance: "Age >=50 increases risk of inflammatory conditions like PMR",
			PlainLanguage:        "Your age means we want to be extra careful to check for certain conditions",
		})
	} else if p.Age < 40 {
		contributions = append(contributions, FeatureContribution{
			FeatureName:          "Age",
			FeatureValue:         fmt.Sprintf("%d years", p.Age),
			ContributionScore:    -0.05,
			Direction:            DecreasesRisk,
			ClinicalSignificance: "Younger age reduces risk of degenerative conditions",
			PlainLanguage:        "Your age is a positive factor in this assessment",
		})
	}

	if p.Sex == screening.SexFemale {
		contributions = append(contributions, FeatureContribution{
			FeatureName:          "Sex",
			FeatureValue:         p.Sex,
			ContributionScore:    0.08,
			Direction:            IncreasesRisk,
			ClinicalSignificance: "Female sex increases RA risk (3:1 female:male ratio)",
			PlainLanguage:        "Some conditions are slightly more common in women",
		})
	}

	for _, s := range p.Symptoms {
		weight, ok := symptomWeights[strings.ToLower(s.Name)]
		if !ok || !s.Present {
			continue
		}

		score := weight.baseScore
		if s.Severity != nil && *s.Severity >= 7 {
			score *= 1.3
		}
		if s.DurationDays != nil && *s.DurationDays > 30 {
			score *= 1.2
		}
		if s.DurationMinutes != nil && *s.DurationMinutes > 30 {
			score *= 1.2
		}

		valueParts := []string{"Present"}
		if s.Severity != nil {
			valueParts = append(valueParts, fmt.Sprintf("Severity: %d/10", *s.Severity))
		}
		if s.DurationDays != nil {
			valueParts = append(valueParts, fmt.Sprintf("Duration: %d days", *s.DurationDays))
		}
		if s.DurationMinutes != nil {
			valueParts = append(valueParts, fmt.Sprintf("Duration: %d minutes", *s.DurationMinutes))
		}

		contributions = append(contributions, FeatureContribution{
			FeatureName:          titleCase(s.Name),
			FeatureValue:         strings.Join(valueParts, ", "),
			ContributionScore:    math.Round(math.Min(score, 0.35)*100) / 100,
			Direction:            IncreasesRisk,
			ClinicalSignificance: weight.clinical,
			PlainLanguage:        weight.plain,
		})
	}

	sort.SliceStable(contributions, func(i, j int) bool {
		return math.Abs(contributions[i].ContributionScore) > math.Abs(contributions[j].ContributionScore)
	})
	return contributions
}

// Counterfactuals describe what would need to change for a different outcome.
func Counterfactuals(level screening.RiskLevel, contributions []FeatureContribution) []string {
	switch level {
	case screening.RiskHigh:
		var top []FeatureContribution
		for _, c := range contributions {
			if c.ContributionScore > 0.15 {
				top = append(top, c)
			}
		}
		var lines []string
		if len(top) > 0 {
			lines = append(lines, fmt.Sprintf(
				"The risk level would be MODERATE if %s was not present or less severe.",
				strings.ToLower(top[0].FeatureName)))
		}
		if len(top) >= 2 {
			lines = append(lines, fmt.Sprintf(
				"If both %s and %s were absent, the assessment would likely be LOW risk.",
				strings.ToLower(top[0].FeatureName), strings.ToLower(top[1].FeatureName)))
		}
		return lines
	case screening.RiskModerate:
		return []string{
			"The risk would be HIGH if additional inflammatory signs were present.",
			"The risk would be LOW if morning stiffness resolved within 15 minutes.",
		}
	default:
		return []string{
			"If symptoms persist beyond 6 weeks, the assessment may change to MODERATE.",
		}
	}
}

func titleCase(name string) string {
	words := strings.Split(strings.ReplaceAll(name, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
