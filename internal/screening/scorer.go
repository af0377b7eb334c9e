package screening

import (
	"math"
	"strings"
)

// Next-step wording keyed by risk level.
const (
	NextStepMonitor  = "Continue monitoring symptoms; consult GP if symptoms persist or worsen"
	NextStepGP       = "Schedule GP consultation for further evaluation"
	NextStepReferral = "Urgent rheumatology referral recommended"
)

// ScoreConfig holds the scoring design parameters. The thresholds and
// confidence bounds are heuristics, not calibrated clinical values, so they
// stay configurable rather than baked into the rules.
type ScoreConfig struct {
	ModerateThreshold int     // points at or above which risk is MODERATE
	HighThreshold     int     // points at or above which risk is HIGH
	ConfidenceBase    float64 // confidence with no optional data supplied
	ConfidenceSpan    float64 // added at full data completeness
	ConfidenceFloor   float64
	ConfidenceCeil    float64
}

func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		ModerateThreshold: 4,
		HighThreshold:     8,
		ConfidenceBase:    0.40,
		ConfidenceSpan:    0.55,
		ConfidenceFloor:   0.30,
		ConfidenceCeil:    0.95,
	}
}

// ScoreResult is the deterministic assessment produced without the LLM.
type ScoreResult struct {
	RiskLevel        RiskLevel
	ConfidenceScore  float64
	LikelyConditions []string
	TotalPoints      int
}

// Scorer turns analyzer findings into a risk level with a confidence score
// derived from data completeness.
type Scorer struct {
	cfg ScoreConfig
}

func NewScorer(cfg ScoreConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score never errors and always returns a complete result. A screening with
// no red flags is capped at LOW regardless of accumulated points.
func (sc *Scorer) Score(p *PatientScreening, f Findings) ScoreResult {
	points, supplied, possible := sc.tally(p)

	confidence := sc.cfg.ConfidenceBase
	if possible > 0 {
		confidence += (float64(supplied) / float64(possible)) * sc.cfg.ConfidenceSpan
	}

	// More reported symptoms give a clearer picture.
	switch count := p.PresentCount(); {
	case count >= 5:
		confidence = math.Min(sc.cfg.ConfidenceCeil, confidence+0.10)
	case count >= 3:
		confidence = math.Min(0.90, confidence+0.05)
	case count == 0:
		confidence = math.Max(sc.cfg.ConfidenceFloor, confidence-0.15)
	}
	confidence = math.Round(confidence*100) / 100

	level := RiskLow
	switch {
	case points >= sc.cfg.HighThreshold:
		level = RiskHigh
	case points >= sc.cfg.ModerateThreshold:
		level = RiskModerate
	}
	if len(f.RedFlags) == 0 {
		level = RiskLow
	}

	return ScoreResult{
		RiskLevel:        level,
		ConfidenceScore:  confidence,
		LikelyConditions: likelyConditions(p),
		TotalPoints:      points,
	}
}

// NextStep maps a risk level onto the recommended action.
func NextStep(level RiskLevel) string {
	switch level {
	case RiskHigh:
		return NextStepReferral
	case RiskModerate:
		return NextStepGP
	default:
		return NextStepMonitor
	}
}

// tally accumulates risk points and tracks how many optional data points were
// supplied out of those the reported symptoms could carry.
func (sc *Scorer) tally(p *PatientScreening) (points, supplied, possible int) {
	if jointPain := p.GetSymptom(SymptomJointPain); jointPain != nil {
		possible += 2 // presence + severity
		if jointPain.Present {
			points++
			supplied++
			if jointPain.Severity != nil {
				supplied++
				if *jointPain.Severity >= 7 {
					points++
				}
			}
		}
	}

	if multi := p.GetSymptom(SymptomMultipleJoints); multi != nil {
		possible++
		if multi.Present {
			points += 2
			supplied++
		}
	}

	if stiffness := p.GetSymptom(SymptomMorningStiffness); stiffness != nil {
		possible += 2 // presence + duration
		if stiffness.Present {
			points += 2
			supplied++
			if stiffness.DurationMinutes != nil {
				supplied++
				switch {
				case *stiffness.DurationMinutes > 60:
					points += 3
				case *stiffness.DurationMinutes > 30:
					points += 2
				}
			}
		}
	}

	for _, w := range []struct {
		name   string
		points int
	}{
		{SymptomJointSwelling, 2},
		{SymptomJointRedness, 1},
		{SymptomFever, 2},
		{SymptomWeightLoss, 1},
		{SymptomSkinRash, 2},
	} {
		if s := p.GetSymptom(w.name); s != nil {
			possible++
			if s.Present {
				points += w.points
				supplied++
			}
		}
	}

	if fatigue := p.GetSymptom(SymptomFatigue); fatigue != nil {
		possible += 2 // presence + severity
		if fatigue.Present {
			points++
			supplied++
			if fatigue.Severity != nil {
				supplied++
				if *fatigue.Severity >= 7 {
					points++
				}
			}
		}
	}

	possible++
	if len(strings.TrimSpace(p.MedicalHistory)) > 10 {
		supplied++
	}

	return points, supplied, possible
}

// likelyConditions looks up candidate conditions from the fixed mapping.
func likelyConditions(p *PatientScreening) []string {
	var conditions []string
	if p.HasSymptom(SymptomMultipleJoints) {
		conditions = append(conditions, "Rheumatoid Arthritis")
	}
	if p.HasSymptom(SymptomMorningStiffness) {
		conditions = append(conditions, "Inflammatory Arthritis (general)")
	}
	if p.HasSymptom(SymptomSkinRash) {
		conditions = append(conditions, "Psoriatic Arthritis")
	}
	if p.Age >= 50 && p.HasSymptom(SymptomFatigue) {
		conditions = append(conditions, "Polymyalgia Rheumatica")
	}
	if len(conditions) == 0 {
		conditions = []string{"Osteoarthritis", "Mechanical Joint Pain"}
	}
	return conditions
}
