// Package records is the patient-facing read surface: a patient's own
// symptoms and predictions, enriched with the latest doctor annotation.
package records

import (
	"context"
	"time"

	"symptom-triage/internal/doctor"
	"symptom-triage/internal/prediction"
	"symptom-triage/internal/symptom"
)

// listCap bounds the history views.
const listCap = 200

type SymptomStore interface {
	ListByPatient(ctx context.Context, patientID string, limit int) ([]symptom.Symptom, error)
}

type PredictionStore interface {
	ListByPatient(ctx context.Context, patientID string, limit int) ([]prediction.Prediction, error)
}

type AnnotationStore interface {
	LatestByPrediction(ctx context.Context, predictionID int64) (*doctor.Annotation, error)
}

type Service struct {
	symptoms    SymptomStore
	predictions PredictionStore
	annotations AnnotationStore
}

func NewService(symptoms SymptomStore, predictions PredictionStore, annotations AnnotationStore) *Service {
	return &Service{symptoms: symptoms, predictions: predictions, annotations: annotations}
}

func (s *Service) ListSymptoms(ctx context.Context, patientID string) ([]symptom.Symptom, error) {
	return s.symptoms.ListByPatient(ctx, patientID, listCap)
}

// AnnotatedPrediction is a prediction with its display band and the most
// recent doctor annotation, when one exists.
type AnnotatedPrediction struct {
	ID             int64            `json:"id"`
	SymptomID      int64            `json:"symptom_id"`
	Label          string           `json:"label"`
	Confidence     float64          `json:"confidence"`
	Level          prediction.Level `json:"level"`
	CreatedAt      time.Time        `json:"created_at"`
	DoctorUsername string           `json:"doctor,omitempty"`
	DoctorNotes    string           `json:"doctor_notes,omitempty"`
	CorrectedLabel string           `json:"corrected_label,omitempty"`
}

func (s *Service) ListPredictions(ctx context.Context, patientID string) ([]AnnotatedPrediction, error) {
	preds, err := s.predictions.ListByPatient(ctx, patientID, listCap)
	if err != nil {
		return nil, err
	}

	out := make([]AnnotatedPrediction, 0, len(preds))
	for _, p := range preds {
		ap := AnnotatedPrediction{
			ID:         p.ID,
			SymptomID:  p.SymptomID,
			Label:      p.Label,
			Confidence: p.Confidence,
			Level:      prediction.LevelFor(p.Confidence),
			CreatedAt:  p.CreatedAt,
		}
		latest, err := s.annotations.LatestByPrediction(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			ap.DoctorUsername = latest.DoctorUsername
			ap.DoctorNotes = latest.Notes
			ap.CorrectedLabel = latest.CorrectedLabel
		}
		out = append(out, ap)
	}
	return out, nil
}
