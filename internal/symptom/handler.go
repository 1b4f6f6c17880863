package symptom

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"symptom-triage/internal/apierr"
	"symptom-triage/internal/oracle"
	"symptom-triage/internal/patient"
	"symptom-triage/internal/prediction"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type SubmitRequest struct {
	PatientID string   `json:"patient_id"`
	Text      string   `json:"text"`
	Tags      []string `json:"tags"`
}

type PredictionView struct {
	ID         int64            `json:"id"`
	SymptomID  int64            `json:"symptom_id"`
	Label      string           `json:"label"`
	Confidence float64          `json:"confidence"`
	Level      prediction.Level `json:"level"`
	CreatedAt  time.Time        `json:"created_at"`
}

type SubmitResponse struct {
	Symptom    *Symptom       `json:"symptom"`
	Prediction PredictionView `json:"prediction"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.BadRequest("invalid_request", err))
		return
	}
	if req.PatientID == "" || req.Text == "" {
		apierr.Write(w, apierr.BadRequest("invalid_request", errors.New("patient_id and text are required")))
		return
	}

	actor := r.Header.Get("X-Actor")
	sym, pred, err := h.svc.Submit(r.Context(), req.PatientID, req.Text, req.Tags, actor, r.RemoteAddr)
	if err != nil {
		switch {
		case errors.Is(err, patient.ErrNotFound):
			apierr.Write(w, apierr.NotFound("patient_not_found", patient.ErrNotFound))
		case errors.Is(err, oracle.ErrUnavailable):
			apierr.Write(w, apierr.Upstream("oracle_unavailable", oracle.ErrUnavailable))
		default:
			apierr.Write(w, err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(SubmitResponse{
		Symptom: sym,
		Prediction: PredictionView{
			ID:         pred.ID,
			SymptomID:  pred.SymptomID,
			Label:      pred.Label,
			Confidence: pred.Confidence,
			Level:      prediction.LevelFor(pred.Confidence),
			CreatedAt:  pred.CreatedAt,
		},
	})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/symptoms", h.Submit)
}
