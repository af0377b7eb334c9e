// Package report renders stored assessments as CSV, JSON, and PDF for
// research hand-off. Exports carry pseudonyms only.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/signintech/gopdf"

	"github.com/Breeganzo/RMD-Agent-Demo/internal/explain"
	"github.com/Breeganzo/RMD-Agent-Demo/internal/screening"
)

type Service struct {
	repo      screening.Repository
	fontPaths []string
}

func NewService(repo screening.Repository) *Service {
	return &Service{
		repo: repo,
		fontPaths: []string{
			"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		},
	}
}

var assessmentHeader = []string{
	"assessment_id",
	"patient_pseudonym",
	"assessment_number",
	"risk_level",
	"confidence_score",
	"likely_conditions",
	"red_flags",
	"recommended_next_step",
	"fallback_used",
	"created_at",
}

// AssessmentsCSV renders every stored assessment as one CSV row.
func (s *Service) AssessmentsCSV(ctx context.Context) ([]byte, error) {
	records, err := s.repo.ListAssessments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments for export: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(assessmentHeader); err != nil {
		return nil, err
	}
	for _, rec := range records {
		a := rec.Assessment
		row := []string{
			rec.AssessmentID,
			rec.PatientPseudonym,
			strconv.Itoa(rec.AssessmentNumber),
			string(a.RiskLevel),
			strconv.FormatFloat(a.ConfidenceScore, 'f', 2, 64),
			strings.Join(a.LikelyConditions, "; "),
			strings.Join(a.RedFlagsIdentified, "; "),
			a.RecommendedNextStep,
			strconv.FormatBool(a.FallbackUsed),
			a.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AssessmentsJSON renders every stored assessment, screening snapshot
// included, as an indented JSON document.
func (s *Service) AssessmentsJSON(ctx context.Context) ([]byte, error) {
	records, err := s.repo.ListAssessments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments for export: %w", err)
	}

	type exportEntry struct {
		AssessmentID     string               `json:"assessment_id"`
		PatientPseudonym string               `json:"patient_pseudonym"`
		AssessmentNumber int                  `json:"assessment_number"`
		Screening        json.RawMessage      `json:"screening"`
		Assessment       screening.Assessment `json:"assessment"`
	}
	export := struct {
		ExportedAt time.Time     `json:"exported_at"`
		Count      int           `json:"count"`
		Entries    []exportEntry `json:"entries"`
	}{
		ExportedAt: time.Now().UTC(),
		Count:      len(records),
	}
	for _, rec := range records {
		export.Entries = append(export.Entries, exportEntry{
			AssessmentID:     rec.AssessmentID,
			PatientPseudonym: rec.PatientPseudonym,
			AssessmentNumber: rec.AssessmentNumber,
			Screening:        json.RawMessage(rec.ScreeningJSON),
			Assessment:       rec.Assessment,
		})
	}
	return json.MarshalIndent(export, "", "  ")
}

var auditHeader = []string{
	"assessment_id",
	"patient_pseudonym",
	"event_type",
	"details",
	"entry_hash",
	"timestamp",
}

// AuditCSV renders the append-only audit trail as CSV.
func (s *Service) AuditCSV(ctx context.Context) ([]byte, error) {
	events, err := s.repo.ListAudit(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events for export: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(auditHeader); err != nil {
		return nil, err
	}
	for _, e := range events {
		row := []string{
			e.AssessmentID,
			e.PatientPseudonym,
			e.EventType,
			e.DetailsJSON,
			e.EntryHash,
			e.Timestamp.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AssessmentPDF renders the clinician view of one assessment as a PDF.
func (s *Service) AssessmentPDF(ctx context.Context, assessmentID string) ([]byte, error) {
	rec, err := s.repo.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	p, err := rec.Screening()
	if err != nil {
		return nil, err
	}

	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range s.fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("failed to load PDF font, install ttf-dejavu: %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 18); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "RMD Screening Report")
	pdf.Br(26)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Assessment: %s", rec.AssessmentID))
	pdf.Br(14)
	pdf.Cell(nil, fmt.Sprintf("Patient: %s (assessment #%d)", rec.PatientPseudonym, rec.AssessmentNumber))
	pdf.Br(14)
	pdf.Cell(nil, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04")))
	pdf.Br(20)

	body := explain.Render(&rec.Assessment, p, explain.RoleClinician)
	if err := pdf.SetFont("DejaVu", "", 10); err != nil {
		return nil, err
	}
	for _, paragraph := range strings.Split(body, "\n") {
		if paragraph == "" {
			pdf.Br(8)
			continue
		}
		lines, _ := pdf.SplitText(paragraph, 500)
		for _, l := range lines {
			if pdf.GetY() > 780 {
				pdf.AddPage()
				if err := pdf.SetFont("DejaVu", "", 10); err != nil {
					return nil, err
				}
			}
			pdf.Cell(nil, l)
			pdf.Br(12)
		}
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}
