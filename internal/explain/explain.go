// Package explain renders an assessment as role-specific text. Each view is
// a pure function of the same immutable assessment values: the clinician
// sees raw identifiers and weights, the patient sees plain language only,
// the auditor sees a reproducible log with content hashes.
package explain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Breeganzo/RMD-Agent-Demo/internal/screening"
)

// Role is the audience for a rendered explanation.
type Role int

const (
	RolePatient Role = iota
	RoleClinician
	RoleAuditor
)

func (r Role) String() string {
	switch r {
	case RolePatient:
		return "patient"
	case RoleClinician:
		return "clinician"
	case RoleAuditor:
		return "auditor"
	}
	return "unknown"
}

// ParseRole maps a request tag onto a Role. Unknown tags are a caller error.
func ParseRole(tag string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "patient":
		return RolePatient, nil
	case "clinician":
		return RoleClinician, nil
	case "auditor":
		return RoleAuditor, nil
	}
	return 0, fmt.Errorf("invalid role %q: must be patient, clinician, or auditor", tag)
}

// Render produces the explanation text for one role.
func Render(a *screening.Assessment, p *screening.PatientScreening, role Role) string {
	contributions := Contributions(p)
	switch role {
	case RoleClinician:
		return renderClinician(a, contributions)
	case RoleAuditor:
		return renderAuditor(a, p, contributions)
	default:
		return renderPatient(a, contributions)
	}
}

// AssessmentHash returns a short SHA-256 digest of the serialized assessment
// so auditors can verify the rendered view matches the stored values.
func AssessmentHash(a *screening.Assessment) string {
	serialized, _ := json.Marshal(a)
	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:])[:16]
}

func renderClinician(a *screening.Assessment, contributions []FeatureContribution) string {
	var b strings.Builder
	b.WriteString("## Clinical Assessment Summary\n")
	fmt.Fprintf(&b, "**Risk Classification:** %s\n", a.RiskLevel)
	fmt.Fprintf(&b, "**Model Confidence:** %.0f%% (%s)\n\n", a.ConfidenceScore*100, a.ConfidenceLabel())

	b.WriteString("### Key Clinical Findings\n")
	for i, c := range contributions {
		if i >= 5 {
			break
		}
		arrow := "+"
		if c.Direction == DecreasesRisk {
			arrow = "-"
		}
		fmt.Fprintf(&b, "- **%s** (%s): %s%.2f %s\n",
			c.FeatureName, c.FeatureValue, arrow, absScore(c.ContributionScore), c.ClinicalSignificance)
	}
	b.WriteString("\n")

	if len(a.LikelyConditions) > 0 {
		b.WriteString("### Differential Considerations\n")
		for i, condition := range a.LikelyConditions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, condition)
		}
		b.WriteString("\n")
	}

	if len(a.RedFlagsIdentified) > 0 {
		b.WriteString("### Red Flags Identified\n")
		for _, flag := range a.RedFlagsIdentified {
			fmt.Fprintf(&b, "- %s\n", flag)
		}
		b.WriteString("\n")
	}

	b.WriteString("### Assessment Reasoning\n")
	b.WriteString(a.Reasoning)
	b.WriteString("\n\n### Recommended Action\n")
	b.WriteString(a.RecommendedNextStep)
	b.WriteString("\n\n### Evidence Base\n")
	b.WriteString("- NICE NG100: Rheumatoid arthritis in adults\n")
	b.WriteString("- NICE CG79: Early referral of suspected inflammatory arthritis\n")
	b.WriteString("- BSR Guidelines for RMD management\n")
	return b.String()
}

func renderPatient(a *screening.Assessment, contributions []FeatureContribution) string {
	var b strings.Builder
	b.WriteString("## Your Joint Health Check Results\n\n")

	switch a.RiskLevel {
	case screening.RiskHigh:
		b.WriteString("### We'd like a specialist to see you soon\n\n")
		b.WriteString("Based on your symptoms, we think it would be helpful for you to see a " +
			"joint specialist (called a rheumatologist). This doesn't mean anything is definitely " +
			"wrong - it just means we want to make sure you get the right care.\n")
	case screening.RiskModerate:
		b.WriteString("### We'd like to learn more\n\n")
		b.WriteString("Your symptoms suggest we should look into this further. Your GP can help " +
			"arrange some tests or a follow-up appointment to better understand what's happening.\n")
	default:
		b.WriteString("### Things look okay for now\n\n")
		b.WriteString("Based on what you've told us, your symptoms don't suggest anything serious " +
			"right now. However, if things change or get worse, please don't hesitate to speak to your GP.\n")
	}

	b.WriteString("\n### What we looked at:\n")
	for i, c := range contributions {
		if i >= 4 {
			break
		}
		fmt.Fprintf(&b, "- %s\n", c.PlainLanguage)
	}

	b.WriteString("\n### What happens next?\n")
	fmt.Fprintf(&b, "**%s**\n", a.RecommendedNextStep)

	b.WriteString("\n### Remember:\n")
	b.WriteString("- This check is a helpful first step, not a diagnosis\n")
	b.WriteString("- Many joint conditions can be managed very well with proper care\n")
	b.WriteString("- Early attention often leads to better outcomes\n")
	b.WriteString("- Your GP and healthcare team are here to support you\n\n")
	b.WriteString("*If you have any questions, please discuss them with your GP or healthcare provider.*\n")
	return b.String()
}

func renderAuditor(a *screening.Assessment, p *screening.PatientScreening, contributions []FeatureContribution) string {
	var b strings.Builder
	b.WriteString("# AUDIT LOG\n")
	fmt.Fprintf(&b, "**Assessment ID:** %s\n", a.ID)
	fmt.Fprintf(&b, "**Generated:** %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Assessment Hash:** SHA256:%s\n", AssessmentHash(a))
	fmt.Fprintf(&b, "**Patient Pseudonym:** %s\n\n", p.Pseudonym())

	b.WriteString("## Assessment Record\n")
	b.WriteString("| Property | Value |\n|----------|-------|\n")
	fmt.Fprintf(&b, "| Risk Level | %s |\n", a.RiskLevel)
	fmt.Fprintf(&b, "| Confidence | %.2f |\n", a.ConfidenceScore)
	fmt.Fprintf(&b, "| Rule-Based Fallback Used | %t |\n", a.FallbackUsed)
	fmt.Fprintf(&b, "| Assessed At | %s |\n\n", a.CreatedAt.Format(time.RFC3339))

	b.WriteString("## Decision Factors\n")
	b.WriteString("| Factor | Value | Contribution | Direction |\n")
	b.WriteString("|--------|-------|--------------|-----------|\n")
	for _, c := range contributions {
		fmt.Fprintf(&b, "| %s | %s | %+.2f | %s |\n",
			c.FeatureName, c.FeatureValue, c.ContributionScore, c.Direction)
	}
	b.WriteString("\n")

	if len(a.RedFlagsIdentified) > 0 {
		b.WriteString("## Red Flags\n")
		for _, flag := range a.RedFlagsIdentified {
			fmt.Fprintf(&b, "- %s\n", flag)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Counterfactuals\n")
	for _, line := range Counterfactuals(a.RiskLevel, contributions) {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	b.WriteString("\n")

	b.WriteString("## Regulatory Compliance Notes\n")
	b.WriteString("- This system is a demonstration prototype only\n")
	b.WriteString("- Not certified for clinical use under MHRA/MDR regulations\n")
	b.WriteString("- Audit trails maintained for transparency demonstration\n")
	b.WriteString("- All rule-based explanations are deterministic and reproducible\n")
	return b.String()
}

func absScore(score float64) float64 {
	if score < 0 {
		return -score
	}
	return score
}
