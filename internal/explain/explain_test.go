package explain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Breeganzo/RMD-Agent-Demo/internal/screening"
)

func intPtr(v int) *int { return &v }

func testCase(t *testing.T) (*screening.Assessment, *screening.PatientScreening) {
	t.Helper()
	p, err := screening.NewPatientScreening("P-777", 58, screening.SexFemale, []screening.Symptom{
		{Name: screening.SymptomJointPain, Present: true, Severity: intPtr(8)},
		{Name: screening.SymptomMultipleJoints, Present: true},
		{Name: screening.SymptomMorningStiffness, Present: true, DurationMinutes: intPtr(75)},
		{Name: screening.SymptomFatigue, Present: true},
	}, "")
	require.NoError(t, err)

	a := &screening.Assessment{
		ID:                  uuid.New(),
		RiskLevel:           screening.RiskHigh,
		LikelyConditions:    []string{"Rheumatoid Arthritis", "Polymyalgia Rheumatica"},
		Reasoning:           "Polyarticular inflammatory picture with prolonged morning stiffness.",
		RecommendedNextStep: screening.NextStepReferral,
		ConfidenceScore:     0.93,
		RedFlagsIdentified:  []string{screening.FlagPolyarticular, screening.FlagProlongedStiffness},
		FallbackUsed:        true,
		CreatedAt:           time.Now(),
	}
	return a, p
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		tag     string
		want    Role
		wantErr bool
	}{
		{"patient", RolePatient, false},
		{"clinician", RoleClinician, false},
		{"auditor", RoleAuditor, false},
		{"  Clinician  ", RoleClinician, false},
		{"AUDITOR", RoleAuditor, false},
		{"", 0, true},
		{"admin", 0, true},
	}
	for _, tt := range tests {
		role, err := ParseRole(tt.tag)
		if tt.wantErr {
			assert.Error(t, err, "tag %q", tt.tag)
			continue
		}
		require.NoError(t, err, "tag %q", tt.tag)
		assert.Equal(t, tt.want, role)
	}
}

func TestRender_ClinicianView(t *testing.T) {
	a, p := testCase(t)
	out := Render(a, p, RoleClinician)

	assert.Contains(t, out, "Clinical Assessment Summary")
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, screening.FlagPolyarticular)
	assert.Contains(t, out, "Rheumatoid Arthritis")
	assert.Contains(t, out, a.Reasoning)
	assert.Contains(t, out, "NICE NG100")
}

func TestRender_PatientViewUsesPlainLanguage(t *testing.T) {
	a, p := testCase(t)
	out := Render(a, p, RolePatient)

	assert.Contains(t, out, "Your Joint Health Check Results")
	assert.Contains(t, out, "specialist")
	assert.Contains(t, out, a.RecommendedNextStep)

	// The raw analyzer identifiers never reach the patient.
	for _, flag := range a.RedFlagsIdentified {
		assert.NotContains(t, out, flag)
	}
	assert.NotContains(t, out, "Polyarticular")
	assert.NotContains(t, out, "confidence")
}

func TestRender_PatientViewPerRiskLevel(t *testing.T) {
	a, p := testCase(t)

	a.RiskLevel = screening.RiskHigh
	assert.Contains(t, Render(a, p, RolePatient), "specialist")

	a.RiskLevel = screening.RiskModerate
	assert.Contains(t, Render(a, p, RolePatient), "learn more")

	a.RiskLevel = screening.RiskLow
	assert.Contains(t, Render(a, p, RolePatient), "look okay")
}

func TestRender_AuditorView(t *testing.T) {
	a, p := testCase(t)
	out := Render(a, p, RoleAuditor)

	assert.Contains(t, out, "AUDIT LOG")
	assert.Contains(t, out, a.ID.String())
	assert.Contains(t, out, p.Pseudonym())
	assert.Contains(t, out, AssessmentHash(a))
	assert.Contains(t, out, "Counterfactuals")
	assert.Contains(t, out, "Rule-Based Fallback Used | true")
}

func TestAssessmentHash_Deterministic(t *testing.T) {
	a, _ := testCase(t)

	first := AssessmentHash(a)
	assert.Len(t, first, 16)
	assert.Equal(t, first, AssessmentHash(a))

	a.ConfidenceScore = 0.50
	assert.NotEqual(t, first, AssessmentHash(a))
}

func TestContributions(t *testing.T) {
	_, p := testCase(t)
	contributions := Contributions(p)
	require.NotEmpty(t, contributions)

	// Sorted by absolute contribution, descending.
	for i := 1; i < len(contributions); i++ {
		assert.GreaterOrEqual(t,
			abs(contributions[i-1].ContributionScore),
			abs(contributions[i].ContributionScore))
	}

	// Age 58 and female sex both contribute.
	names := make(map[string]FeatureContribution)
	for _, c := range contributions {
		names[c.FeatureName] = c
	}
	require.Contains(t, names, "Age")
	assert.Equal(t, IncreasesRisk, names["Age"].Direction)
	require.Contains(t, names, "Sex")
	require.Contains(t, names, "Multiple Joints Affected")

	// Severity 7+ scales the joint pain weight (0.15 * 1.3).
	require.Contains(t, names, "Joint Pain")
	assert.InDelta(t, 0.20, names["Joint Pain"].ContributionScore, 0.001)
}

func TestContributions_YoungAgeDecreasesRisk(t *testing.T) {
	p, err := screening.NewPatientScreening("P-778", 28, screening.SexMale, []screening.Symptom{
		{Name: screening.SymptomJointPain, Present: true},
	}, "")
	require.NoError(t, err)

	for _, c := range Contributions(p) {
		if c.FeatureName == "Age" {
			assert.Equal(t, DecreasesRisk, c.Direction)
			assert.Negative(t, c.ContributionScore)
			return
		}
	}
	t.Fatal("no age contribution found")
}

func TestCounterfactuals(t *testing.T) {
	_, p := testCase(t)
	contributions := Contributions(p)

	high := Counterfactuals(screening.RiskHigh, contributions)
	require.NotEmpty(t, high)
	assert.Contains(t, high[0], "MODERATE")

	moderate := Counterfactuals(screening.RiskModerate, contributions)
	assert.Len(t, moderate, 2)

	low := Counterfactuals(screening.RiskLow, contributions)
	require.Len(t, low, 1)
	assert.Contains(t, low[0], "6 weeks")
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
