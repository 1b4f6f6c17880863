package report

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"symptom-triage/internal/apierr"
	"symptom-triage/internal/prediction"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CaseReportPDF(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		apierr.Write(w, apierr.BadRequest("invalid_id", err))
		return
	}

	data, err := h.svc.CaseReport(r.Context(), id)
	if err != nil {
		if errors.Is(err, prediction.ErrNotFound) {
			apierr.Write(w, apierr.NotFound("prediction_not_found", prediction.ErrNotFound))
			return
		}
		apierr.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="case_report_%d.pdf"`, id))
	_, _ = w.Write(data)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/doctor/reports/{id}/pdf", h.CaseReportPDF)
}
