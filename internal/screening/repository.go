package screening

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrAssessmentNotFound is returned when an assessment ID has no stored row.
var ErrAssessmentNotFound = errors.New("assessment not found")

// AssessmentRecord is one stored assessment row together with the screening
// snapshot it was produced from. The snapshot carries the patient pseudonym,
// never the raw reference.
type AssessmentRecord struct {
	ID               int64      `json:"-"`
	AssessmentID     string     `json:"assessment_id"`
	PatientPseudonym string     `json:"patient_pseudonym"`
	AssessmentNumber int        `json:"assessment_number"`
	ScreeningJSON    string     `json:"-"`
	Assessment       Assessment `json:"assessment"`
}

// Screening decodes the stored screening snapshot.
func (r *AssessmentRecord) Screening() (*PatientScreening, error) {
	var p PatientScreening
	if err := json.Unmarshal([]byte(r.ScreeningJSON), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal screening snapshot: %w", err)
	}
	return &p, nil
}

// AuditEvent is one append-only processing log row.
type AuditEvent struct {
	ID               int64     `json:"-"`
	AssessmentID     string    `json:"assessment_id"`
	PatientPseudonym string    `json:"patient_pseudonym"`
	EventType        string    `json:"event_type"`
	DetailsJSON      string    `json:"details,omitempty"`
	EntryHash        string    `json:"entry_hash"`
	Timestamp        time.Time `json:"timestamp"`
}

type Repository interface {
	SaveAssessment(ctx context.Context, rec *AssessmentRecord) error
	GetAssessment(ctx context.Context, assessmentID string) (*AssessmentRecord, error)
	ListAssessments(ctx context.Context) ([]*AssessmentRecord, error)
	AppendAudit(ctx context.Context, e *AuditEvent) error
	ListAudit(ctx context.Context) ([]*AuditEvent, error)
}

type sqliteRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &sqliteRepo{db: db}
}

func (r *sqliteRepo) SaveAssessment(ctx context.Context, rec *AssessmentRecord) error {
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(assessment_number), 0) + 1 FROM assessments WHERE patient_pseudonym = ?`,
		rec.PatientPseudonym,
	).Scan(&rec.AssessmentNumber)
	if err != nil {
		return fmt.Errorf("failed to number assessment: %w", err)
	}

	conditionsJSON, err := json.Marshal(rec.Assessment.LikelyConditions)
	if err != nil {
		return err
	}
	flagsJSON, err := json.Marshal(rec.Assessment.RedFlagsIdentified)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO assessments (
			assessment_id, patient_pseudonym, assessment_number, screening_json,
			risk_level, confidence_score, likely_conditions, red_flags,
			recommended_action, reasoning, fallback_used, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.AssessmentID,
		rec.PatientPseudonym,
		rec.AssessmentNumber,
		rec.ScreeningJSON,
		string(rec.Assessment.RiskLevel),
		rec.Assessment.ConfidenceScore,
		string(conditionsJSON),
		string(flagsJSON),
		rec.Assessment.RecommendedNextStep,
		rec.Assessment.Reasoning,
		rec.Assessment.FallbackUsed,
		rec.Assessment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert assessment: %w", err)
	}
	rec.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	return nil
}

const assessmentColumns = `id, assessment_id, patient_pseudonym, assessment_number, screening_json,
	risk_level, confidence_score, likely_conditions, red_flags,
	recommended_action, reasoning, fallback_used, created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAssessment(s scanner) (*AssessmentRecord, error) {
	var (
		rec            AssessmentRecord
		riskLevel      string
		conditionsJSON string
		flagsJSON      string
		idStr          string
	)
	err := s.Scan(
		&rec.ID, &idStr, &rec.PatientPseudonym, &rec.AssessmentNumber, &rec.ScreeningJSON,
		&riskLevel, &rec.Assessment.ConfidenceScore, &conditionsJSON, &flagsJSON,
		&rec.Assessment.RecommendedNextStep, &rec.Assessment.Reasoning,
		&rec.Assessment.FallbackUsed, &rec.Assessment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.AssessmentID = idStr
	if parsed, err := uuid.Parse(idStr); err == nil {
		rec.Assessment.ID = parsed
	}
	rec.Assessment.RiskLevel = RiskLevel(riskLevel)
	if err := json.Unmarshal([]byte(conditionsJSON), &rec.Assessment.LikelyConditions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal likely_conditions: %w", err)
	}
	if err := json.Unmarshal([]byte(flagsJSON), &rec.Assessment.RedFlagsIdentified); err != nil {
		return nil, fmt.Errorf("failed to unmarshal red_flags: %w", err)
	}
	return &rec, nil
}

func (r *sqliteRepo) GetAssessment(ctx context.Context, assessmentID string) (*AssessmentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+assessmentColumns+` FROM assessments WHERE assessment_id = ?`, assessmentID)
	rec, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("assessment %s: %w", assessmentID, ErrAssessmentNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *sqliteRepo) ListAssessments(ctx context.Context) ([]*AssessmentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+assessmentColumns+` FROM assessments ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	var records []*AssessmentRecord
	for rows.Next() {
		rec, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *sqliteRepo) AppendAudit(ctx context.Context, e *AuditEvent) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.EntryHash == "" {
		sum := sha256.Sum256([]byte(e.AssessmentID + e.Timestamp.Format(time.RFC3339Nano)))
		e.EntryHash = hex.EncodeToString(sum[:])[:16]
	}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (assessment_id, patient_pseudonym, event_type, details_json, entry_hash, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.AssessmentID, e.PatientPseudonym, e.EventType, e.DetailsJSON, e.EntryHash, e.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	e.ID, err = result.LastInsertId()
	return err
}

func (r *sqliteRepo) ListAudit(ctx context.Context) ([]*AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, assessment_id, patient_pseudonym, event_type, details_json, entry_hash, timestamp
		FROM audit_logs ORDER BY timestamp DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var events []*AuditEvent
	for rows.Next() {
		var e AuditEvent
		if err := rows.Scan(&e.ID, &e.AssessmentID, &e.PatientPseudonym, &e.EventType,
			&e.DetailsJSON, &e.EntryHash, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
