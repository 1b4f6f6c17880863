package notification

import (
	"context"
	"fmt"

	"symptom-triage/internal/logging"
	"symptom-triage/internal/patient"
	"symptom-triage/internal/prediction"
	"symptom-triage/internal/user"
)

// DoctorLister enumerates the current active doctor-role users.
type DoctorLister interface {
	ListActiveByRole(ctx context.Context, role user.Role) ([]user.User, error)
}

// PatientResolver looks up the patient named in the message. Failures
// here degrade the message, never the fan-out.
type PatientResolver interface {
	GetByPatientID(ctx context.Context, patientID string) (*patient.Patient, error)
}

// Alerter is an optional out-of-band channel (Telegram chat). A nil
// Alerter disables it.
type Alerter interface {
	SendMessage(ctx context.Context, text string) error
}

type Service struct {
	repo     Repository
	users    DoctorLister
	patients PatientResolver
	alerter  Alerter
	log      *logging.Logger
}

func NewService(repo Repository, users DoctorLister, patients PatientResolver, alerter Alerter, log *logging.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		patients: patients,
		alerter:  alerter,
		log:      log.With("component", "notification"),
	}
}

var _ prediction.Notifier = (*Service)(nil)

// NotifyLowConfidence creates one unread notification per active doctor
// when the prediction's confidence falls below threshold. The operation
// itself is not idempotent; the pipeline invokes it exactly once per
// saved prediction.
func (s *Service) NotifyLowConfidence(ctx context.Context, p *prediction.Prediction, threshold float64) error {
	if p.Confidence >= threshold {
		return nil
	}

	doctors, err := s.users.ListActiveByRole(ctx, user.RoleDoctor)
	if err != nil {
		return fmt.Errorf("list doctors: %w", err)
	}

	message := s.buildMessage(ctx, p)
	for _, doc := range doctors {
		n := &Notification{
			UserID:       doc.ID,
			PredictionID: p.ID,
			Message:      message,
		}
		if err := s.repo.Create(ctx, n); err != nil {
			return fmt.Errorf("notify doctor %s: %w", doc.Username, err)
		}
	}
	s.log.Info("low-confidence fan-out", "prediction_id", p.ID, "doctors", len(doctors))

	if s.alerter != nil {
		if err := s.alerter.SendMessage(ctx, message); err != nil {
			s.log.Warn("telegram alert failed", "prediction_id", p.ID, "error", err)
		}
	}
	return nil
}

func (s *Service) buildMessage(ctx context.Context, p *prediction.Prediction) string {
	name := "Unknown Patient"
	if pat, err := s.patients.GetByPatientID(ctx, p.PatientID); err == nil {
		name = pat.FullName()
	}
	return fmt.Sprintf("Low confidence prediction for patient %s (%s)", name, p.PatientID)
}

// Unread lists the recipient's unread notifications, newest first.
func (s *Service) Unread(ctx context.Context, userID int64) ([]Notification, error) {
	return s.repo.ListUnreadByUser(ctx, userID)
}

// MarkRead marks one notification read. The recipient must own it;
// someone else's notification id yields ErrNotFound.
func (s *Service) MarkRead(ctx context.Context, id, userID int64) error {
	return s.repo.MarkRead(ctx, id, userID)
}
