package screening

import (
	"fmt"
	"strings"
)

// Red flag identifiers raised by the pattern analyzer.
const (
	FlagPolyarticular      = "Multiple joint involvement"
	FlagProlongedStiffness = "Prolonged morning stiffness"
	FlagSwellingRedness    = "Joint swelling with redness"
	FlagSystemicSymptoms   = "Multiple systemic symptoms"
	FlagFever              = "Fever with joint symptoms"
	FlagSkinRash           = "Skin rash with joint symptoms"
)

// Morning stiffness lasting longer than this suggests inflammatory arthritis.
const stiffnessFlagMinutes = 30

// JointPattern classifies how many joints are involved.
type JointPattern string

const (
	JointPatternNone          JointPattern = "none"
	JointPatternMonoarticular JointPattern = "monoarticular"
	JointPatternPolyarticular JointPattern = "polyarticular"
)

// Findings is the structured output of Analyze.
type Findings struct {
	JointPattern  JointPattern
	Inflammatory  bool
	SystemicCount int
	RedFlags      []string
	Patterns      []string
}

// Summary renders the findings as the tool output embedded in the LLM prompt.
func (f Findings) Summary() string {
	if len(f.Patterns) == 0 {
		return "No specific RMD patterns identified. Symptoms appear non-specific or mechanical in nature."
	}
	lines := []string{"PATTERN ANALYSIS RESULTS:", strings.Repeat("=", 40)}
	lines = append(lines, f.Patterns...)
	if len(f.RedFlags) > 0 {
		lines = append(lines, "", "RED FLAGS IDENTIFIED:")
		for _, flag := range f.RedFlags {
			lines = append(lines, "  [!] "+flag)
		}
	}
	return strings.Join(lines, "\n")
}

// Analyze runs the deterministic pattern rules over a screening. It is pure
// and total: absent data yields fewer findings, never an error.
func Analyze(p *PatientScreening) Findings {
	var f Findings

	f.JointPattern = JointPatternNone
	if p.HasSymptom(SymptomJointPain) {
		f.JointPattern = JointPatternMonoarticular
	}
	if p.HasSymptom(SymptomMultipleJoints) {
		f.JointPattern = JointPatternPolyarticular
		f.Patterns = append(f.Patterns, "POLYARTICULAR: Multiple joints affected - concerning for inflammatory arthritis")
		f.RedFlags = append(f.RedFlags, FlagPolyarticular)
	}

	if stiffness := p.GetSymptom(SymptomMorningStiffness); stiffness != nil && stiffness.Present {
		switch {
		case stiffness.DurationMinutes != nil && *stiffness.DurationMinutes > stiffnessFlagMinutes:
			f.Inflammatory = true
			f.Patterns = append(f.Patterns, fmt.Sprintf(
				"MORNING STIFFNESS: Present for %d minutes - significant (>%d min suggests inflammatory)",
				*stiffness.DurationMinutes, stiffnessFlagMinutes))
			f.RedFlags = append(f.RedFlags, FlagProlongedStiffness)
		case stiffness.Severity != nil && *stiffness.Severity >= 5:
			f.Patterns = append(f.Patterns, fmt.Sprintf(
				"MORNING STIFFNESS: Severity %d/10 - moderate to severe", *stiffness.Severity))
		}
	}

	swelling := p.HasSymptom(SymptomJointSwelling)
	redness := p.HasSymptom(SymptomJointRedness)
	if swelling {
		f.Inflammatory = true
		if redness {
			f.Patterns = append(f.Patterns, "INFLAMMATORY SIGNS: Both swelling and redness present - active inflammation likely")
			f.RedFlags = append(f.RedFlags, FlagSwellingRedness)
		} else {
			f.Patterns = append(f.Patterns, "JOINT SWELLING: Present - possible inflammatory component")
		}
	}

	fever := p.HasSymptom(SymptomFever)
	for _, name := range []string{SymptomFever, SymptomWeightLoss, SymptomFatigue} {
		if p.HasSymptom(name) {
			f.SystemicCount++
		}
	}
	if f.SystemicCount >= 2 {
		f.Patterns = append(f.Patterns, fmt.Sprintf(
			"SYSTEMIC: %d systemic symptoms present - concerning for systemic inflammatory disease", f.SystemicCount))
		f.RedFlags = append(f.RedFlags, FlagSystemicSymptoms)
	} else if fever {
		f.Patterns = append(f.Patterns, "FEVER: Present - consider infectious or inflammatory cause")
		f.RedFlags = append(f.RedFlags, FlagFever)
	}

	stiffnessPresent := p.HasSymptom(SymptomMorningStiffness)
	if p.Age < 40 && p.HasSymptom(SymptomJointPain) {
		f.Patterns = append(f.Patterns, fmt.Sprintf(
			"YOUNG ADULT (%dy): Consider inflammatory spondyloarthropathy, RA, or reactive arthritis", p.Age))
	} else if p.Age >= 50 && p.HasSymptom(SymptomFatigue) && (swelling || stiffnessPresent) {
		f.Patterns = append(f.Patterns, fmt.Sprintf(
			"OLDER ADULT (%dy): Consider PMR, late-onset RA, or OA with inflammatory overlay", p.Age))
	}

	if p.HasSymptom(SymptomSkinRash) {
		f.Patterns = append(f.Patterns, "SKIN INVOLVEMENT: Rash present - consider psoriatic arthritis, SLE, or reactive arthritis")
		f.RedFlags = append(f.RedFlags, FlagSkinRash)
	}

	return f
}
