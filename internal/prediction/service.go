package prediction

import (
	"context"
	"fmt"
	"time"

	"symptom-triage/internal/logging"
	"symptom-triage/internal/oracle"
)

// Notifier fans a low-confidence prediction out to doctors. Implemented
// by the notification service; declared here to avoid the dependency.
type Notifier interface {
	NotifyLowConfidence(ctx context.Context, p *Prediction, threshold float64) error
}

type Service struct {
	repo     Repository
	oracle   oracle.Client
	notifier Notifier
	log      *logging.Logger
}

func NewService(repo Repository, oc oracle.Client, notifier Notifier, log *logging.Logger) *Service {
	return &Service{
		repo:     repo,
		oracle:   oc,
		notifier: notifier,
		log:      log.With("component", "prediction"),
	}
}

// InferAndSave runs the oracle for a persisted symptom, saves the
// resulting prediction and triggers the notification fan-out exactly
// once when the confidence falls below NotifyThreshold.
//
// An oracle failure aborts before anything is persisted here; the
// already-saved symptom is left in place. A fan-out failure is logged
// and never rolls back the committed prediction.
func (s *Service) InferAndSave(ctx context.Context, patientID string, symptomID int64, description string, tags []string) (*Prediction, error) {
	result, err := s.oracle.Infer(ctx, description, tags)
	if err != nil {
		return nil, fmt.Errorf("infer symptom %d: %w", symptomID, err)
	}

	p := &Prediction{
		PatientID:  patientID,
		SymptomID:  symptomID,
		Label:      result.Label,
		Confidence: result.Confidence,
		Reviewed:   false,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("save prediction: %w", err)
	}

	if err := s.notifier.NotifyLowConfidence(ctx, p, NotifyThreshold); err != nil {
		s.log.Error("notification fan-out failed", "prediction_id", p.ID, "error", err)
	}

	return p, nil
}
