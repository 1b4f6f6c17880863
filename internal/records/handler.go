package records

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"symptom-triage/internal/apierr"
	"symptom-triage/internal/symptom"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ListSymptoms(w http.ResponseWriter, r *http.Request) {
	symptoms, err := h.svc.ListSymptoms(r.Context(), chi.URLParam(r, "patientId"))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	if symptoms == nil {
		symptoms = []symptom.Symptom{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(symptoms)
}

func (h *Handler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	preds, err := h.svc.ListPredictions(r.Context(), chi.URLParam(r, "patientId"))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(preds)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/records/{patientId}", func(r chi.Router) {
		r.Get("/symptoms", h.ListSymptoms)
		r.Get("/predictions", h.ListPredictions)
	})
}
