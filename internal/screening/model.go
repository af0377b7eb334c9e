package screening

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RiskLevel is the qualitative outcome of an assessment.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskModerate, RiskHigh:
		return true
	}
	return false
}

// Sex values accepted on a screening form.
const (
	SexMale        = "Male"
	SexFemale      = "Female"
	SexOther       = "Other"
	SexUndisclosed = "Prefer not to say"
)

// Symptom vocabulary collected by the screening form.
const (
	SymptomJointPain        = "joint_pain"
	SymptomMultipleJoints   = "multiple_joints_affected"
	SymptomMorningStiffness = "morning_stiffness"
	SymptomJointSwelling    = "joint_swelling"
	SymptomJointRedness     = "joint_redness"
	SymptomFatigue          = "fatigue"
	SymptomReducedMobility  = "reduced_mobility"
	SymptomFever            = "fever"
	SymptomWeightLoss       = "weight_loss"
	SymptomSkinRash         = "skin_rash"
)

// StandardSymptoms is the fixed vocabulary in form order.
var StandardSymptoms = []string{
	SymptomJointPain,
	SymptomMultipleJoints,
	SymptomMorningStiffness,
	SymptomJointSwelling,
	SymptomJointRedness,
	SymptomFatigue,
	SymptomReducedMobility,
	SymptomFever,
	SymptomWeightLoss,
	SymptomSkinRash,
}

// Symptom is a single clinical observation from the form.
// Severity and duration are only meaningful when Present is true.
type Symptom struct {
	Name            string `json:"name"`
	Present         bool   `json:"present"`
	Severity        *int   `json:"severity,omitempty"`         // 0-10
	DurationDays    *int   `json:"duration_days,omitempty"`    // symptom duration
	DurationMinutes *int   `json:"duration_minutes,omitempty"` // morning stiffness duration
	Notes           string `json:"notes,omitempty"`
}

func (s Symptom) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("symptom name is required")
	}
	if s.Severity != nil && (*s.Severity < 0 || *s.Severity > 10) {
		return fmt.Errorf("symptom %q: severity %d out of range 0-10", s.Name, *s.Severity)
	}
	if s.DurationDays != nil && *s.DurationDays < 0 {
		return fmt.Errorf("symptom %q: duration_days must not be negative", s.Name)
	}
	if s.DurationMinutes != nil && *s.DurationMinutes < 0 {
		return fmt.Errorf("symptom %q: duration_minutes must not be negative", s.Name)
	}
	return nil
}

// PatientScreening is one assessment request. It is immutable once built
// through NewPatientScreening.
type PatientScreening struct {
	PatientRef     string    `json:"patient_ref"`
	Age            int       `json:"age"`
	Sex            string    `json:"sex"`
	Symptoms       []Symptom `json:"symptoms"`
	MedicalHistory string    `json:"medical_history,omitempty"`
	ScreeningDate  time.Time `json:"screening_date"`
}

// NewPatientScreening validates form input and builds a screening.
// Invalid input is a caller error and has no safe default.
func NewPatientScreening(patientRef string, age int, sex string, symptoms []Symptom, medicalHistory string) (*PatientScreening, error) {
	if age < 0 || age > 120 {
		return nil, fmt.Errorf("age %d out of range 0-120", age)
	}
	switch sex {
	case SexMale, SexFemale, SexOther, SexUndisclosed:
	default:
		return nil, fmt.Errorf("invalid sex %q", sex)
	}
	seen := make(map[string]bool, len(symptoms))
	for _, s := range symptoms {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(s.Name)
		if seen[key] {
			return nil, fmt.Errorf("duplicate symptom %q", s.Name)
		}
		seen[key] = true
	}
	if patientRef == "" {
		patientRef = strings.ToUpper(uuid.NewString()[:8])
	}
	return &PatientScreening{
		PatientRef:     patientRef,
		Age:            age,
		Sex:            sex,
		Symptoms:       symptoms,
		MedicalHistory: medicalHistory,
		ScreeningDate:  time.Now(),
	}, nil
}

// GetSymptom returns the named symptom, or nil if it was not reported.
func (p *PatientScreening) GetSymptom(name string) *Symptom {
	for i := range p.Symptoms {
		if strings.EqualFold(p.Symptoms[i].Name, name) {
			return &p.Symptoms[i]
		}
	}
	return nil
}

// HasSymptom reports whether the named symptom was reported as present.
func (p *PatientScreening) HasSymptom(name string) bool {
	s := p.GetSymptom(name)
	return s != nil && s.Present
}

// PresentCount returns the number of symptoms marked present.
func (p *PatientScreening) PresentCount() int {
	n := 0
	for _, s := range p.Symptoms {
		if s.Present {
			n++
		}
	}
	return n
}

// ClinicalSummary renders the screening as plain text for prompt embedding.
func (p *PatientScreening) ClinicalSummary() string {
	lines := []string{
		fmt.Sprintf("Patient ID: %s", p.PatientRef),
		fmt.Sprintf("Age: %d years", p.Age),
		fmt.Sprintf("Sex: %s", p.Sex),
		fmt.Sprintf("Screening Date: %s", p.ScreeningDate.Format("2006-01-02 15:04")),
		"",
		"SYMPTOMS:",
	}
	for _, s := range p.Symptoms {
		if !s.Present {
			lines = append(lines, fmt.Sprintf("  - %s: Not present", s.Name))
			continue
		}
		entry := fmt.Sprintf("  - %s: Present", s.Name)
		if s.Severity != nil {
			entry += fmt.Sprintf(" (severity: %d/10)", *s.Severity)
		}
		if s.DurationDays != nil {
			entry += fmt.Sprintf(" for %d days", *s.DurationDays)
		}
		if s.DurationMinutes != nil {
			entry += fmt.Sprintf(", lasting %d minutes", *s.DurationMinutes)
		}
		lines = append(lines, entry)
	}
	if p.MedicalHistory != "" {
		lines = append(lines, "", "MEDICAL HISTORY:", "  "+p.MedicalHistory)
	}
	return strings.Join(lines, "\n")
}

// Pseudonym derives the one-way identifier stored alongside assessment rows.
func (p *PatientScreening) Pseudonym() string {
	return Pseudonymize(p.PatientRef)
}

// Pseudonymize hashes a patient reference into a short non-reversible
// identifier, keeping direct identifiers out of exports and FHIR documents.
func Pseudonymize(ref string) string {
	sum := sha256.Sum256([]byte("RMD-" + ref))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:10])
}

// Assessment is the output of the pipeline. Produced once per screening and
// never mutated; role explanations are views over these values.
type Assessment struct {
	ID                  uuid.UUID `json:"id"`
	RiskLevel           RiskLevel `json:"risk_level"`
	LikelyConditions    []string  `json:"likely_conditions"`
	Reasoning           string    `json:"reasoning"`
	RecommendedNextStep string    `json:"recommended_next_step"`
	ConfidenceScore     float64   `json:"confidence_score"`
	RedFlagsIdentified  []string  `json:"red_flags_identified"`
	FallbackUsed        bool      `json:"fallback_used"`
	CreatedAt           time.Time `json:"created_at"`
}

// ConfidenceLabel maps the numeric score onto the wording shown to users.
func (a *Assessment) ConfidenceLabel() string {
	switch {
	case a.ConfidenceScore >= 0.8:
		return "High Confidence"
	case a.ConfidenceScore >= 0.5:
		return "Moderate Confidence"
	default:
		return "Low Confidence"
	}
}
