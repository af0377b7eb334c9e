package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// State of the assessment pipeline. Every run terminates in StateDone; the
// fallback branch absorbs reasoning and validation failures.
type State string

const (
	StateAnalyzing  State = "ANALYZING"
	StateReasoning  State = "REASONING"
	StateValidating State = "VALIDATING"
	StateFallback   State = "FALLBACK"
	StateDone       State = "DONE"
)

// ReasoningResult is the validated output of the external reasoning call.
type ReasoningResult struct {
	RiskLevel           RiskLevel `json:"risk_level"`
	LikelyConditions    []string  `json:"likely_conditions"`
	Reasoning           string    `json:"reasoning"`
	RecommendedNextStep string    `json:"recommended_next_step"`
	ConfidenceScore     float64   `json:"confidence_score"`
	RedFlagsIdentified  []string  `json:"red_flags_identified"`

	fallback bool
}

// ReasoningClient is the external LLM collaborator. Complete issues the
// single reasoning request; Parse recovers a validated result from the raw
// response text.
type ReasoningClient interface {
	Enabled() bool
	Complete(ctx context.Context, p *PatientScreening, toolOutput string) (string, error)
	Parse(raw string) (*ReasoningResult, error)
}

// Notifier delivers out-of-band alerts for high-risk assessments.
type Notifier interface {
	HighRiskAlert(ctx context.Context, assessmentID, pseudonym string, a *Assessment) error
}

type Service interface {
	Assess(ctx context.Context, p *PatientScreening) (*Assessment, error)
	GetAssessment(ctx context.Context, assessmentID string) (*AssessmentRecord, error)
	ListAssessments(ctx context.Context) ([]*AssessmentRecord, error)
	ListAuditEvents(ctx context.Context) ([]*AuditEvent, error)
}

type service struct {
	repo     Repository
	reasoner ReasoningClient
	scorer   *Scorer
	notifier Notifier
	logger   *logrus.Logger
}

func NewService(repo Repository, reasoner ReasoningClient, scorer *Scorer, notifier Notifier, logger *logrus.Logger) Service {
	return &service{
		repo:     repo,
		reasoner: reasoner,
		scorer:   scorer,
		notifier: notifier,
		logger:   logger,
	}
}

// Assess runs the pipeline to completion and persists the outcome. External
// failures never propagate: the deterministic scorer substitutes for a
// failed or disabled reasoning call.
func (s *service) Assess(ctx context.Context, p *PatientScreening) (*Assessment, error) {
	state := StateAnalyzing
	var (
		findings Findings
		raw      string
		result   *ReasoningResult
	)

	for state != StateDone {
		switch state {
		case StateAnalyzing:
			findings = Analyze(p)
			state = StateReasoning

		case StateReasoning:
			if !s.reasoner.Enabled() {
				s.logger.Debug("reasoning service disabled, using rule-based fallback")
				state = StateFallback
				break
			}
			var err error
			raw, err = s.reasoner.Complete(ctx, p, findings.Summary())
			if err != nil {
				s.logger.WithError(err).Warn("reasoning call failed")
				state = StateFallback
				break
			}
			state = StateValidating

		case StateValidating:
			var err error
			result, err = s.reasoner.Parse(raw)
			if err != nil {
				s.logger.WithError(err).Warn("reasoning response rejected")
				state = StateFallback
				break
			}
			state = StateDone

		case StateFallback:
			result = s.fallback(p, findings)
			state = StateDone
		}
	}

	assessment := &Assessment{
		ID:                  uuid.New(),
		RiskLevel:           result.RiskLevel,
		LikelyConditions:    result.LikelyConditions,
		Reasoning:           result.Reasoning,
		RecommendedNextStep: result.RecommendedNextStep,
		ConfidenceScore:     result.ConfidenceScore,
		RedFlagsIdentified:  result.RedFlagsIdentified,
		FallbackUsed:        result.fallback,
		CreatedAt:           time.Now(),
	}

	if err := s.persist(ctx, p, assessment); err != nil {
		return nil, fmt.Errorf("failed to persist assessment: %w", err)
	}

	if assessment.RiskLevel == RiskHigh && s.notifier != nil {
		if err := s.notifier.HighRiskAlert(ctx, assessment.ID.String(), p.Pseudonym(), assessment); err != nil {
			s.logger.WithError(err).Warn("high-risk alert delivery failed")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"assessment_id": assessment.ID,
		"risk_level":    assessment.RiskLevel,
		"confidence":    assessment.ConfidenceScore,
		"fallback":      assessment.FallbackUsed,
	}).Info("assessment complete")

	return assessment, nil
}

// fallback builds the conservative rule-based result. Ambiguity resolves
// toward the higher risk level; a failed external call never downgrades.
func (s *service) fallback(p *PatientScreening, f Findings) *ReasoningResult {
	scored := s.scorer.Score(p, f)
	reasoning := fmt.Sprintf(
		"Rule-based analysis (external reasoning unavailable or disabled).\n\n%s\n\n"+
			"Risk level %s derived from the number and severity of symptoms present, with particular "+
			"attention to inflammatory markers and polyarticular involvement.",
		f.Summary(), scored.RiskLevel)

	return &ReasoningResult{
		RiskLevel:           scored.RiskLevel,
		LikelyConditions:    scored.LikelyConditions,
		Reasoning:           reasoning,
		RecommendedNextStep: NextStep(scored.RiskLevel),
		ConfidenceScore:     scored.ConfidenceScore,
		RedFlagsIdentified:  f.RedFlags,
		fallback:            true,
	}
}

func (s *service) persist(ctx context.Context, p *PatientScreening, a *Assessment) error {
	// The stored screening carries the pseudonym, never the raw reference.
	stored := *p
	stored.PatientRef = p.Pseudonym()
	screeningJSON, err := json.Marshal(&stored)
	if err != nil {
		return err
	}

	rec := &AssessmentRecord{
		AssessmentID:     a.ID.String(),
		PatientPseudonym: p.Pseudonym(),
		ScreeningJSON:    string(screeningJSON),
		Assessment:       *a,
	}
	if err := s.repo.SaveAssessment(ctx, rec); err != nil {
		return err
	}

	details, _ := json.Marshal(map[string]any{
		"risk_level":        a.RiskLevel,
		"confidence":        a.ConfidenceScore,
		"fallback_used":     a.FallbackUsed,
		"assessment_number": rec.AssessmentNumber,
	})
	event := &AuditEvent{
		AssessmentID:     a.ID.String(),
		PatientPseudonym: p.Pseudonym(),
		EventType:        "ASSESSMENT_CREATED",
		DetailsJSON:      string(details),
	}
	if err := s.repo.AppendAudit(ctx, event); err != nil {
		s.logger.WithError(err).Warn("audit append failed")
	}
	return nil
}

func (s *service) GetAssessment(ctx context.Context, assessmentID string) (*AssessmentRecord, error) {
	return s.repo.GetAssessment(ctx, assessmentID)
}

func (s *service) ListAssessments(ctx context.Context) ([]*AssessmentRecord, error) {
	return s.repo.ListAssessments(ctx)
}

func (s *service) ListAuditEvents(ctx context.Context) ([]*AuditEvent, error) {
	return s.repo.ListAudit(ctx)
}
