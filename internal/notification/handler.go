package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"symptom-triage/internal/apierr"
	"symptom-triage/internal/user"
)

// ActorResolver maps the gateway-authenticated username to an account.
type ActorResolver interface {
	GetByUsername(ctx context.Context, username string) (*user.User, error)
}

type Handler struct {
	svc   *Service
	users ActorResolver
}

func NewHandler(svc *Service, users ActorResolver) *Handler {
	return &Handler{svc: svc, users: users}
}

// actor resolves the X-Actor header set by the authenticating gateway.
func (h *Handler) actor(r *http.Request) (*user.User, error) {
	username := r.Header.Get("X-Actor")
	if username == "" {
		return nil, apierr.BadRequest("missing_actor", errors.New("X-Actor header required"))
	}
	u, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, apierr.NotFound("user_not_found", user.ErrNotFound)
		}
		return nil, err
	}
	return u, nil
}

func (h *Handler) ListUnread(w http.ResponseWriter, r *http.Request) {
	u, err := h.actor(r)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	notifications, err := h.svc.Unread(r.Context(), u.ID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	if notifications == nil {
		notifications = []Notification{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(notifications)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	u, err := h.actor(r)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		apierr.Write(w, apierr.BadRequest("invalid_id", err))
		return
	}

	if err := h.svc.MarkRead(r.Context(), id, u.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			apierr.Write(w, apierr.NotFound("notification_not_found", ErrNotFound))
			return
		}
		apierr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/notifications", h.ListUnread)
	r.Post("/notifications/{id}/read", h.MarkRead)
}
