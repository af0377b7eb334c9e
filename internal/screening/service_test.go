package screening

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReasoner struct {
	enabled     bool
	response    string
	completeErr error
	parsed      *ReasoningResult
	parseErr    error
}

func (s *stubReasoner) Enabled() bool { return s.enabled }

func (s *stubReasoner) Complete(_ context.Context, _ *PatientScreening, _ string) (string, error) {
	return s.response, s.completeErr
}

func (s *stubReasoner) Parse(string) (*ReasoningResult, error) {
	return s.parsed, s.parseErr
}

type memRepo struct {
	assessments []*AssessmentRecord
	audit       []*AuditEvent
	saveErr     error
}

func (m *memRepo) SaveAssessment(_ context.Context, rec *AssessmentRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	rec.AssessmentNumber = len(m.assessments) + 1
	m.assessments = append(m.assessments, rec)
	return nil
}

func (m *memRepo) GetAssessment(_ context.Context, id string) (*AssessmentRecord, error) {
	for _, rec := range m.assessments {
		if rec.AssessmentID == id {
			return rec, nil
		}
	}
	return nil, ErrAssessmentNotFound
}

func (m *memRepo) ListAssessments(context.Context) ([]*AssessmentRecord, error) {
	return m.assessments, nil
}

func (m *memRepo) AppendAudit(_ context.Context, e *AuditEvent) error {
	m.audit = append(m.audit, e)
	return nil
}

func (m *memRepo) ListAudit(context.Context) ([]*AuditEvent, error) {
	return m.audit, nil
}

type recordingNotifier struct {
	alerts []string
	err    error
}

func (n *recordingNotifier) HighRiskAlert(_ context.Context, assessmentID, _ string, _ *Assessment) error {
	n.alerts = append(n.alerts, assessmentID)
	return n.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService(reasoner ReasoningClient, repo Repository, notifier Notifier) Service {
	return NewService(repo, reasoner, NewScorer(DefaultScoreConfig()), notifier, quietLogger())
}

func TestService_Assess_FallbackWhenDisabled(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(&stubReasoner{enabled: false}, repo, nil)
	p := scenarioInflammatory(t)

	a, err := svc.Assess(context.Background(), p)
	require.NoError(t, err)

	assert.True(t, a.FallbackUsed)
	assert.Equal(t, RiskHigh, a.RiskLevel)
	assert.Equal(t, NextStepReferral, a.RecommendedNextStep)
	assert.NotEmpty(t, a.RedFlagsIdentified)
	assert.Contains(t, a.Reasoning, "Rule-based analysis")
}

func TestService_Assess_FallbackMatchesScorer(t *testing.T) {
	svc := newTestService(&stubReasoner{enabled: false}, &memRepo{}, nil)
	p := scenarioInflammatory(t)

	a, err := svc.Assess(context.Background(), p)
	require.NoError(t, err)

	scored := NewScorer(DefaultScoreConfig()).Score(p, Analyze(p))
	assert.Equal(t, scored.RiskLevel, a.RiskLevel)
	assert.Equal(t, scored.ConfidenceScore, a.ConfidenceScore)
	assert.Equal(t, scored.LikelyConditions, a.LikelyConditions)
}

func TestService_Assess_FallbackOnReasoningError(t *testing.T) {
	reasoner := &stubReasoner{enabled: true, completeErr: errors.New("connection refused")}
	svc := newTestService(reasoner, &memRepo{}, nil)

	a, err := svc.Assess(context.Background(), scenarioMild(t))
	require.NoError(t, err, "external failure must not surface")
	assert.True(t, a.FallbackUsed)
}

func TestService_Assess_FallbackOnUnparseableResponse(t *testing.T) {
	reasoner := &stubReasoner{
		enabled:  true,
		response: "I think the patient is probably fine.",
		parseErr: errors.New("no JSON object found in response"),
	}
	svc := newTestService(reasoner, &memRepo{}, nil)

	a, err := svc.Assess(context.Background(), scenarioMild(t))
	require.NoError(t, err)
	assert.True(t, a.FallbackUsed)
}

func TestService_Assess_UsesReasonerResult(t *testing.T) {
	reasoner := &stubReasoner{
		enabled:  true,
		response: `{"risk_level":"MODERATE"}`,
		parsed: &ReasoningResult{
			RiskLevel:           RiskModerate,
			LikelyConditions:    []string{"Rheumatoid Arthritis"},
			Reasoning:           "Polyarticular involvement with prolonged stiffness.",
			RecommendedNextStep: NextStepGP,
			ConfidenceScore:     0.81,
		},
	}
	repo := &memRepo{}
	svc := newTestService(reasoner, repo, nil)

	a, err := svc.Assess(context.Background(), scenarioInflammatory(t))
	require.NoError(t, err)

	assert.False(t, a.FallbackUsed)
	assert.Equal(t, RiskModerate, a.RiskLevel)
	assert.Equal(t, 0.81, a.ConfidenceScore)
	require.Len(t, repo.assessments, 1)
}

func TestService_Assess_PersistsPseudonymizedSnapshot(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(&stubReasoner{}, repo, nil)
	p := scenarioInflammatory(t)

	_, err := svc.Assess(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, repo.assessments, 1)

	rec := repo.assessments[0]
	assert.Equal(t, p.Pseudonym(), rec.PatientPseudonym)
	assert.NotContains(t, rec.ScreeningJSON, p.PatientRef)

	stored, err := rec.Screening()
	require.NoError(t, err)
	assert.Equal(t, p.Pseudonym(), stored.PatientRef)
	assert.Equal(t, len(p.Symptoms), len(stored.Symptoms))

	require.Len(t, repo.audit, 1)
	assert.Equal(t, "ASSESSMENT_CREATED", repo.audit[0].EventType)
	assert.Equal(t, rec.AssessmentID, repo.audit[0].AssessmentID)
}

func TestService_Assess_HighRiskTriggersAlert(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := newTestService(&stubReasoner{}, &memRepo{}, notifier)

	a, err := svc.Assess(context.Background(), scenarioInflammatory(t))
	require.NoError(t, err)
	require.Equal(t, RiskHigh, a.RiskLevel)
	assert.Equal(t, []string{a.ID.String()}, notifier.alerts)
}

func TestService_Assess_LowRiskSendsNoAlert(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := newTestService(&stubReasoner{}, &memRepo{}, notifier)

	a, err := svc.Assess(context.Background(), scenarioMild(t))
	require.NoError(t, err)
	require.Equal(t, RiskLow, a.RiskLevel)
	assert.Empty(t, notifier.alerts)
}

func TestService_Assess_AlertFailureDoesNotFailAssessment(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("webhook unreachable")}
	svc := newTestService(&stubReasoner{}, &memRepo{}, notifier)

	_, err := svc.Assess(context.Background(), scenarioInflammatory(t))
	assert.NoError(t, err)
}

func TestService_Assess_PersistErrorSurfaces(t *testing.T) {
	repo := &memRepo{saveErr: errors.New("disk full")}
	svc := newTestService(&stubReasoner{}, repo, nil)

	_, err := svc.Assess(context.Background(), scenarioMild(t))
	assert.Error(t, err)
}
