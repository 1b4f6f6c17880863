package history

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"symptom-triage/internal/apierr"
)

// maxUploadBytes caps a history document upload.
const maxUploadBytes = 1 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Upload ingests a plain-text history document for a patient.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientId")

	content, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		apierr.Write(w, apierr.BadRequest("invalid_body", err))
		return
	}

	count, err := h.svc.Import(r.Context(), patientID, string(content))
	if err != nil {
		apierr.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]int{"imported": count})
}

type addRequest struct {
	Title   string `json:"title"`
	Details string `json:"details"`
}

// Add saves one manually entered history item.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.BadRequest("invalid_request", err))
		return
	}

	entry, err := h.svc.Add(r.Context(), chi.URLParam(r, "patientId"), req.Title, req.Details)
	if err != nil {
		if errors.Is(err, ErrEmptyTitle) {
			apierr.Write(w, apierr.BadRequest("title_required", ErrEmptyTitle))
			return
		}
		apierr.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(entry)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.List(r.Context(), chi.URLParam(r, "patientId"))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/history/{patientId}", func(r chi.Router) {
		r.Post("/", h.Upload)
		r.Post("/entries", h.Add)
		r.Get("/", h.List)
	})
}
