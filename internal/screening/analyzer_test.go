package screening

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustScreening(t *testing.T, age int, symptoms []Symptom) *PatientScreening {
	t.Helper()
	p, err := NewPatientScreening("TEST", age, SexFemale, symptoms, "")
	require.NoError(t, err)
	return p
}

func TestAnalyze_RedFlags(t *testing.T) {
	tests := []struct {
		name      string
		age       int
		symptoms  []Symptom
		wantFlags []string
	}{
		{
			name: "no symptoms yields no flags",
			age:  40,
		},
		{
			name: "multiple joints",
			age:  40,
			symptoms: []Symptom{
				{Name: SymptomMultipleJoints, Present: true},
			},
			wantFlags: []string{FlagPolyarticular},
		},
		{
			name: "prolonged morning stiffness",
			age:  40,
			symptoms: []Symptom{
				{Name: SymptomMorningStiffness, Present: true, DurationMinutes: intPtr(45)},
			},
			wantFlags: []string{FlagProlongedStiffness},
		},
		{
			name: "stiffness at exactly 30 minutes is not prolonged",
			age:  40,
			symptoms: []Symptom{
				{Name: SymptomMorningStiffness, Present: true, DurationMinutes: intPtr(30)},
			},
		},
		{
			name: "swelling with redness",
			age:  40,
			symptoms: []Symptom{
				{Name: SymptomJointSwelling, Present: true},
				{Name: SymptomJointRedness, Present: true},
			},
			wantFlags: []string{FlagSwellingRedness},
		},
		{
			name: "swelling alone is no red flag",
			age:  40,
			symptoms: []Symptom{
				{Name: SymptomJointSwelling, Present: true},
			},
		},
		{
			name: "two systemic symptoms",
			age:  40,
			symptoms: []Symptom{
				{Name: SymptomFatigue, Present: true},
				{Name: SymptomWeightLoss, Present: true},
			},
			wantFlags: []string{FlagSystemicSymptoms},
		},
		{
			name: "fever alone",
			age:  40,
			symptoms: []Symptom{
				{Name: SymptomFever, Present: true},
			},
			wantFlags: []string{FlagFever},
		},
		{
			name: "skin rash",
			age:  40,
			symptoms: []Symptom{
				{Name: SymptomSkinRash, Present: true},
			},
			wantFlags: []string{FlagSkinRash},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Analyze(mustScreening(t, tt.age, tt.symptoms))
			assert.ElementsMatch(t, tt.wantFlags, f.RedFlags)
		})
	}
}

func TestAnalyze_JointPattern(t *testing.T) {
	f := Analyze(mustScreening(t, 40, nil))
	assert.Equal(t, JointPatternNone, f.JointPattern)

	f = Analyze(mustScreening(t, 40, []Symptom{{Name: SymptomJointPain, Present: true}}))
	assert.Equal(t, JointPatternMonoarticular, f.JointPattern)

	f = Analyze(mustScreening(t, 40, []Symptom{
		{Name: SymptomJointPain, Present: true},
		{Name: SymptomMultipleJoints, Present: true},
	}))
	assert.Equal(t, JointPatternPolyarticular, f.JointPattern)
}

func TestAnalyze_Inflammatory(t *testing.T) {
	f := Analyze(mustScreening(t, 40, []Symptom{
		{Name: SymptomMorningStiffness, Present: true, DurationMinutes: intPtr(90)},
	}))
	assert.True(t, f.Inflammatory)

	f = Analyze(mustScreening(t, 40, []Symptom{
		{Name: SymptomJointSwelling, Present: true},
	}))
	assert.True(t, f.Inflammatory)

	f = Analyze(mustScreening(t, 40, []Symptom{
		{Name: SymptomJointPain, Present: true},
	}))
	assert.False(t, f.Inflammatory)
}

func TestAnalyze_AgePatterns(t *testing.T) {
	young := Analyze(mustScreening(t, 25, []Symptom{{Name: SymptomJointPain, Present: true}}))
	assert.Contains(t, young.Patterns[len(young.Patterns)-1], "YOUNG ADULT")

	older := Analyze(mustScreening(t, 62, []Symptom{
		{Name: SymptomFatigue, Present: true},
		{Name: SymptomJointSwelling, Present: true},
	}))
	found := false
	for _, pattern := range older.Patterns {
		if strings.HasPrefix(pattern, "OLDER ADULT") {
			found = true
		}
	}
	assert.True(t, found, "expected an OLDER ADULT pattern, got %v", older.Patterns)
}

func TestAnalyze_IsDeterministic(t *testing.T) {
	p := mustScreening(t, 52, []Symptom{
		{Name: SymptomJointPain, Present: true, Severity: intPtr(8)},
		{Name: SymptomMultipleJoints, Present: true},
		{Name: SymptomMorningStiffness, Present: true, DurationMinutes: intPtr(75)},
	})
	first := Analyze(p)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Analyze(p))
	}
}

func TestFindings_Summary(t *testing.T) {
	empty := Findings{}
	assert.Contains(t, empty.Summary(), "No specific RMD patterns")

	f := Analyze(mustScreening(t, 40, []Symptom{{Name: SymptomMultipleJoints, Present: true}}))
	summary := f.Summary()
	assert.Contains(t, summary, "PATTERN ANALYSIS RESULTS")
	assert.Contains(t, summary, "RED FLAGS IDENTIFIED")
	assert.Contains(t, summary, FlagPolyarticular)
}
