// Package api exposes the screening pipeline over HTTP. It sits above the
// screening, explain, fhir, and report packages and owns request decoding
// and content negotiation.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Breeganzo/RMD-Agent-Demo/internal/explain"
	"github.com/Breeganzo/RMD-Agent-Demo/internal/fhir"
	"github.com/Breeganzo/RMD-Agent-Demo/internal/report"
	"github.com/Breeganzo/RMD-Agent-Demo/internal/screening"
)

type Handler struct {
	screenings screening.Service
	reports    *report.Service
	logger     *logrus.Logger
}

func NewHandler(screenings screening.Service, reports *report.Service, logger *logrus.Logger) *Handler {
	return &Handler{
		screenings: screenings,
		reports:    reports,
		logger:     logger,
	}
}

type ScreeningRequest struct {
	PatientRef     string              `json:"patient_ref"`
	Age            int                 `json:"age"`
	Sex            string              `json:"sex"`
	Symptoms       []screening.Symptom `json:"symptoms"`
	MedicalHistory string              `json:"medical_history"`
}

// CreateScreening runs the full assessment pipeline on one submission.
func (h *Handler) CreateScreening(w http.ResponseWriter, r *http.Request) {
	var req ScreeningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	p, err := screening.NewPatientScreening(req.PatientRef, req.Age, req.Sex, req.Symptoms, req.MedicalHistory)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	assessment, err := h.screenings.Assess(r.Context(), p)
	if err != nil {
		h.logger.WithError(err).Error("assessment failed")
		http.Error(w, "Assessment failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"assessment":        assessment,
		"patient_pseudonym": p.Pseudonym(),
	})
}

func (h *Handler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	records, err := h.screenings.ListAssessments(r.Context())
	if err != nil {
		http.Error(w, "Failed to list assessments", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(records)
}

func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadAssessment(w, r)
	if !ok {
		return
	}
	json.NewEncoder(w).Encode(rec)
}

// GetExplanation renders the stored assessment for the requested audience.
func (h *Handler) GetExplanation(w http.ResponseWriter, r *http.Request) {
	role, err := explain.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, ok := h.loadAssessment(w, r)
	if !ok {
		return
	}
	p, err := rec.Screening()
	if err != nil {
		http.Error(w, "Stored screening is unreadable", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"assessment_id": rec.AssessmentID,
		"role":          role.String(),
		"explanation":   explain.Render(&rec.Assessment, p, role),
	})
}

// GetFHIRBundle rebuilds the FHIR bundle from the stored snapshot.
func (h *Handler) GetFHIRBundle(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadAssessment(w, r)
	if !ok {
		return
	}
	p, err := rec.Screening()
	if err != nil {
		http.Error(w, "Stored screening is unreadable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/fhir+json")
	json.NewEncoder(w).Encode(fhir.NewScreeningBundle(p, &rec.Assessment))
}

func (h *Handler) GetReportPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := h.reports.AssessmentPDF(r.Context(), id)
	if err != nil {
		if errors.Is(err, screening.ErrAssessmentNotFound) {
			http.Error(w, "Assessment not found", http.StatusNotFound)
			return
		}
		h.logger.WithError(err).Error("PDF generation failed")
		http.Error(w, "Report generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="screening_report_`+id+`.pdf"`)
	w.Write(data)
}

func (h *Handler) ExportAssessmentsCSV(w http.ResponseWriter, r *http.Request) {
	data, err := h.reports.AssessmentsCSV(r.Context())
	if err != nil {
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="assessments.csv"`)
	w.Write(data)
}

func (h *Handler) ExportAssessmentsJSON(w http.ResponseWriter, r *http.Request) {
	data, err := h.reports.AssessmentsJSON(r.Context())
	if err != nil {
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="assessments.json"`)
	w.Write(data)
}

func (h *Handler) ExportAuditCSV(w http.ResponseWriter, r *http.Request) {
	data, err := h.reports.AuditCSV(r.Context())
	if err != nil {
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit_log.csv"`)
	w.Write(data)
}

func (h *Handler) loadAssessment(w http.ResponseWriter, r *http.Request) (*screening.AssessmentRecord, bool) {
	id := chi.URLParam(r, "id")
	rec, err := h.screenings.GetAssessment(r.Context(), id)
	if err != nil {
		if errors.Is(err, screening.ErrAssessmentNotFound) {
			http.Error(w, "Assessment not found", http.StatusNotFound)
			return nil, false
		}
		http.Error(w, "Failed to load assessment", http.StatusInternalServerError)
		return nil, false
	}
	return rec, true
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/screenings", h.CreateScreening)
	r.Get("/assessments", h.ListAssessments)
	r.Get("/assessments/{id}", h.GetAssessment)
	r.Get("/assessments/{id}/explanation", h.GetExplanation)
	r.Get("/assessments/{id}/fhir", h.GetFHIRBundle)
	r.Get("/assessments/{id}/report", h.GetReportPDF)
	r.Get("/export/assessments.csv", h.ExportAssessmentsCSV)
	r.Get("/export/assessments.json", h.ExportAssessmentsJSON)
	r.Get("/export/audit.csv", h.ExportAuditCSV)
}
