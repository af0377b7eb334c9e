package fhir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Breeganzo/RMD-Agent-Demo/internal/screening"
)

func intPtr(v int) *int { return &v }

func testScreening(t *testing.T) *screening.PatientScreening {
	t.Helper()
	p, err := screening.NewPatientScreening("P-123", 52, screening.SexFemale, []screening.Symptom{
		{Name: screening.SymptomJointPain, Present: true, Severity: intPtr(8), DurationDays: intPtr(90)},
		{Name: screening.SymptomMorningStiffness, Present: true, DurationMinutes: intPtr(75)},
		{Name: screening.SymptomFever, Present: false},
	}, "")
	require.NoError(t, err)
	return p
}

func testAssessment() *screening.Assessment {
	return &screening.Assessment{
		ID:                  uuid.New(),
		RiskLevel:           screening.RiskHigh,
		LikelyConditions:    []string{"Rheumatoid Arthritis"},
		Reasoning:           "Polyarticular inflammatory pattern with prolonged stiffness.",
		RecommendedNextStep: screening.NextStepReferral,
		ConfidenceScore:     0.93,
		RedFlagsIdentified:  []string{screening.FlagPolyarticular},
		CreatedAt:           time.Now(),
	}
}

func TestNewPatient_IsPseudonymized(t *testing.T) {
	p := testScreening(t)
	patient := NewPatient(p)

	assert.Equal(t, "Patient", patient.ResourceType)
	assert.Equal(t, p.Pseudonym(), patient.ID)
	assert.Equal(t, "female", patient.Gender)

	raw, err := json.Marshal(patient)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "P-123", "raw patient reference must not leak")

	require.Len(t, patient.Extension, 1)
	require.NotNil(t, patient.Extension[0].ValueInteger)
	assert.Equal(t, 52, *patient.Extension[0].ValueInteger)
}

func TestNewObservation(t *testing.T) {
	p := testScreening(t)
	effective := p.ScreeningDate

	obs := NewObservation(*p.GetSymptom(screening.SymptomJointPain), "ABC123", effective)
	assert.Equal(t, "Observation", obs.ResourceType)
	assert.Equal(t, "final", obs.Status)
	assert.Equal(t, "57676002", obs.Code.Coding[0].Code)
	assert.Equal(t, "Patient/ABC123", obs.Subject.Reference)
	require.NotNil(t, obs.ValueBoolean)
	assert.True(t, *obs.ValueBoolean)
	assert.Len(t, obs.Component, 2, "severity and duration components")

	absent := NewObservation(*p.GetSymptom(screening.SymptomFever), "ABC123", effective)
	require.NotNil(t, absent.ValueBoolean)
	assert.False(t, *absent.ValueBoolean)
	assert.Empty(t, absent.Component)
}

func TestNewObservation_UnknownSymptomGetsPlaceholderCode(t *testing.T) {
	obs := NewObservation(screening.Symptom{Name: "third_eye_pain", Present: true}, "X", time.Now())
	assert.Equal(t, "unknown", obs.Code.Coding[0].Code)
	assert.Equal(t, "third_eye_pain", obs.Code.Coding[0].Display)
}

func TestNewRiskAssessment(t *testing.T) {
	a := testAssessment()
	ra := NewRiskAssessment(a, "ABC123", []string{"obs-1", "obs-2"})

	assert.Equal(t, "RiskAssessment", ra.ResourceType)
	assert.Equal(t, a.ID.String(), ra.ID)
	assert.Len(t, ra.Basis, 2)
	require.Len(t, ra.Prediction, 1)
	assert.Equal(t, "69896004", ra.Prediction[0].Outcome.Coding[0].Code)
	assert.Equal(t, 0.93, ra.Prediction[0].ProbabilityDecimal)
	assert.Equal(t, screening.NextStepReferral, ra.Mitigation)
	require.Len(t, ra.Extension, 1)
	assert.Contains(t, ra.Extension[0].ValueString, screening.FlagPolyarticular)
}

func TestRiskLevelRoundTrip(t *testing.T) {
	for _, level := range []screening.RiskLevel{screening.RiskLow, screening.RiskModerate, screening.RiskHigh} {
		got, ok := RiskLevelFromCoding(riskCoding(level))
		require.True(t, ok, "level %s", level)
		assert.Equal(t, level, got)
	}

	_, ok := RiskLevelFromCoding(nil)
	assert.False(t, ok)

	_, ok = RiskLevelFromCoding(&CodeableConcept{Coding: []Coding{{System: "urn:other", Code: "high"}}})
	assert.False(t, ok, "foreign coding system is ignored")
}

func TestNewScreeningBundle(t *testing.T) {
	p := testScreening(t)
	a := testAssessment()

	bundle := NewScreeningBundle(p, a)
	assert.Equal(t, "Bundle", bundle.ResourceType)
	assert.Equal(t, "collection", bundle.Type)
	// One Patient, three Observations, one RiskAssessment.
	assert.Len(t, bundle.Entry, 5)

	ra, ok := bundle.RiskAssessmentEntry()
	require.True(t, ok)
	level, ok := RiskLevelFromCoding(ra.Prediction[0].QualitativeRisk)
	require.True(t, ok)
	assert.Equal(t, screening.RiskHigh, level)

	raw, err := json.Marshal(bundle)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), p.PatientRef, "bundle must only carry the pseudonym")
}

func TestNewScreeningBundle_SerializedRoundTrip(t *testing.T) {
	p := testScreening(t)
	a := testAssessment()

	raw, err := json.Marshal(NewScreeningBundle(p, a))
	require.NoError(t, err)

	var decoded Bundle
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Len(t, decoded.Entry, 5)

	ra, ok := decoded.RiskAssessmentEntry()
	require.True(t, ok, "decoded bundle must expose its RiskAssessment entry")
	assert.Equal(t, a.ID.String(), ra.ID)

	level, ok := RiskLevelFromCoding(ra.Prediction[0].QualitativeRisk)
	require.True(t, ok)
	assert.Equal(t, a.RiskLevel, level)
}

func TestNewScreeningBundle_WithoutAssessment(t *testing.T) {
	bundle := NewScreeningBundle(testScreening(t), nil)
	assert.Len(t, bundle.Entry, 4)

	_, ok := bundle.RiskAssessmentEntry()
	assert.False(t, ok)
}
