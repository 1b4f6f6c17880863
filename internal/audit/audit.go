// Package audit persists a write-only trail of business events. Audit
// failures are logged and swallowed: they must never abort the operation
// that produced them.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"symptom-triage/internal/logging"
)

// Event types recorded by the review and ledger services.
const (
	EventSymptomSubmit    = "SYMPTOM_SUBMIT"
	EventCreateAnnotation = "DOCTOR_CREATE_ANNOTATION"
	EventUpdateAnnotation = "DOCTOR_UPDATE_ANNOTATION"
	EventReportIssue      = "DOCTOR_REPORT_ISSUE"
	EventReviewPrediction = "DOCTOR_REVIEW_LOW_CONFIDENCE"
)

type Event struct {
	ID        int64     `json:"id"`
	Actor     string    `json:"actor"`
	EventType string    `json:"event_type"`
	Details   string    `json:"details"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	Insert(ctx context.Context, e *Event) error
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Insert(ctx context.Context, e *Event) error {
	query := `INSERT INTO audit_log (actor, event_type, details, ip_address, created_at)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, e.Actor, e.EventType, e.Details, e.IPAddress, time.Now())
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

type Service struct {
	repo Repository
	log  *logging.Logger
}

func NewService(repo Repository, log *logging.Logger) *Service {
	return &Service{repo: repo, log: log.With("component", "audit")}
}

// Record writes an audit event. It never returns an error.
func (s *Service) Record(ctx context.Context, actor, eventType, details, ip string) {
	e := &Event{Actor: actor, EventType: eventType, Details: details, IPAddress: ip}
	if err := s.repo.Insert(ctx, e); err != nil {
		s.log.Error("audit write failed", "actor", actor, "event", eventType, "error", err)
	}
}
