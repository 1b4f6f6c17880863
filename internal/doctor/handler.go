package doctor

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"symptom-triage/internal/apierr"
	"symptom-triage/internal/prediction"
	"symptom-triage/internal/user"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrDoctorNotFound):
		apierr.Write(w, apierr.NotFound("doctor_not_found", user.ErrDoctorNotFound))
	case errors.Is(err, prediction.ErrNotFound):
		apierr.Write(w, apierr.NotFound("prediction_not_found", prediction.ErrNotFound))
	case errors.Is(err, ErrAnnotationNotFound):
		apierr.Write(w, apierr.NotFound("annotation_not_found", ErrAnnotationNotFound))
	case errors.Is(err, ErrUnauthorized):
		apierr.Write(w, apierr.Forbidden("unauthorized", ErrUnauthorized))
	default:
		apierr.Write(w, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := r.Header.Get("X-Actor")
	if username == "" {
		apierr.Write(w, apierr.BadRequest("missing_actor", errors.New("X-Actor header required")))
		return "", false
	}
	return username, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		apierr.Write(w, apierr.BadRequest("invalid_id", err))
		return 0, false
	}
	return id, true
}

// ---- annotations ----

type annotationRequest struct {
	PredictionID   int64  `json:"prediction_id"`
	Notes          string `json:"notes"`
	CorrectedLabel string `json:"corrected_label"`
}

func (h *Handler) ListAnnotations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "predictionId")
	if !ok {
		return
	}
	annotations, err := h.svc.Annotations(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if annotations == nil {
		annotations = []Annotation{}
	}
	writeJSON(w, http.StatusOK, annotations)
}

func (h *Handler) CreateAnnotation(w http.ResponseWriter, r *http.Request) {
	username, ok := actor(w, r)
	if !ok {
		return
	}
	var req annotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.BadRequest("invalid_request", err))
		return
	}

	a, err := h.svc.CreateAnnotation(r.Context(), username, req.PredictionID, req.Notes, req.CorrectedLabel, r.RemoteAddr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) UpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	username, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req annotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.BadRequest("invalid_request", err))
		return
	}

	a, err := h.svc.UpdateAnnotation(r.Context(), username, id, req.Notes, req.CorrectedLabel, r.RemoteAddr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ---- issue reports ----

type issueRequest struct {
	PredictionID int64  `json:"prediction_id"`
	Description  string `json:"description"`
	CorrectLabel string `json:"correct_label"`
}

func (h *Handler) ListIssues(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "predictionId")
	if !ok {
		return
	}
	issues, err := h.svc.Issues(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if issues == nil {
		issues = []IssueReport{}
	}
	writeJSON(w, http.StatusOK, issues)
}

func (h *Handler) ReportIssue(w http.ResponseWriter, r *http.Request) {
	username, ok := actor(w, r)
	if !ok {
		return
	}
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.BadRequest("invalid_request", err))
		return
	}

	report, err := h.svc.ReportIssue(r.Context(), username, req.PredictionID, req.Description, req.CorrectLabel, r.RemoteAddr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// ---- review queue ----

func (h *Handler) LowConfidenceQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.LowConfidenceQueue(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) AllLowConfidence(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.AllLowConfidence(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) LowConfidenceReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	entry, err := h.svc.LowConfidenceReport(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) MarkReviewed(w http.ResponseWriter, r *http.Request) {
	username, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkReviewed(r.Context(), id, username, r.RemoteAddr); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkPending(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkPending(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- dashboards ----

func (h *Handler) RecentPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.svc.RecentPatients(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

func (h *Handler) AllPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.svc.AllPatients(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

func (h *Handler) PatientPredictions(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.PatientPredictions(r.Context(), chi.URLParam(r, "patientId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) PatientTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := h.svc.PatientTrends(r.Context(), chi.URLParam(r, "patientId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

func (h *Handler) AllReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.svc.AllReports(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/doctor", func(r chi.Router) {
		r.Get("/predictions/{predictionId}/annotations", h.ListAnnotations)
		r.Post("/annotations", h.CreateAnnotation)
		r.Put("/annotations/{id}", h.UpdateAnnotation)

		r.Get("/predictions/{predictionId}/issues", h.ListIssues)
		r.Post("/issues", h.ReportIssue)

		r.Get("/low-confidence", h.LowConfidenceQueue)
		r.Get("/low-confidence/all", h.AllLowConfidence)
		r.Get("/low-confidence/{id}", h.LowConfidenceReport)
		r.Post("/low-confidence/{id}/review", h.MarkReviewed)
		r.Post("/low-confidence/{id}/pending", h.MarkPending)

		r.Get("/patients/recent", h.RecentPatients)
		r.Get("/patients", h.AllPatients)
		r.Get("/patients/{patientId}/predictions", h.PatientPredictions)
		r.Get("/patients/{patientId}/trends", h.PatientTrends)

		r.Get("/reports", h.AllReports)
	})
}
