package symptom

import (
	"context"
	"fmt"
	"time"

	"symptom-triage/internal/audit"
	"symptom-triage/internal/logging"
	"symptom-triage/internal/patient"
	"symptom-triage/internal/prediction"
)

// Pipeline turns a persisted symptom into a saved prediction. Implemented
// by the prediction service.
type Pipeline interface {
	InferAndSave(ctx context.Context, patientID string, symptomID int64, description string, tags []string) (*prediction.Prediction, error)
}

// PatientResolver resolves the 8-character business identifier.
type PatientResolver interface {
	GetByPatientID(ctx context.Context, patientID string) (*patient.Patient, error)
}

// Auditor records submission events, fire-and-forget.
type Auditor interface {
	Record(ctx context.Context, actor, eventType, details, ip string)
}

type Service struct {
	repo     Repository
	patients PatientResolver
	pipeline Pipeline
	auditor  Auditor
	log      *logging.Logger
}

func NewService(repo Repository, patients PatientResolver, pipeline Pipeline, auditor Auditor, log *logging.Logger) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		pipeline: pipeline,
		auditor:  auditor,
		log:      log.With("component", "symptom"),
	}
}

// Submit runs the submission pipeline: resolve patient, persist the
// symptom, infer and persist the prediction. The ordering is mandatory;
// later steps reference ids produced by earlier ones.
//
// If the patient is unknown nothing is persisted. If the oracle fails
// the symptom stays persisted without a prediction; that degraded state
// is deliberate and not retried.
func (s *Service) Submit(ctx context.Context, patientID, text string, tags []string, actor, sourceIP string) (*Symptom, *prediction.Prediction, error) {
	p, err := s.patients.GetByPatientID(ctx, patientID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve patient: %w", err)
	}

	sym := &Symptom{
		PatientID:   p.PatientID,
		Description: text,
		Tags:        tags,
		SubmittedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, sym); err != nil {
		return nil, nil, fmt.Errorf("save symptom: %w", err)
	}

	pred, err := s.pipeline.InferAndSave(ctx, sym.PatientID, sym.ID, sym.Description, sym.Tags)
	if err != nil {
		s.log.Error("prediction failed, symptom kept", "symptom_id", sym.ID, "error", err)
		return nil, nil, err
	}

	s.auditor.Record(ctx, actor, audit.EventSymptomSubmit,
		fmt.Sprintf("symptomId=%d predictionId=%d", sym.ID, pred.ID), sourceIP)

	return sym, pred, nil
}
