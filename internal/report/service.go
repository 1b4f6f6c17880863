// Package report renders a downloadable PDF case report for a single
// prediction: patient, verdict, review status and the annotation trail.
package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/signintech/gopdf"

	"symptom-triage/internal/doctor"
	"symptom-triage/internal/patient"
	"symptom-triage/internal/prediction"
	"symptom-triage/internal/symptom"
)

type PredictionStore interface {
	GetByID(ctx context.Context, id int64) (*prediction.Prediction, error)
}

type PatientResolver interface {
	GetByPatientID(ctx context.Context, patientID string) (*patient.Patient, error)
}

type SymptomStore interface {
	GetByID(ctx context.Context, id int64) (*symptom.Symptom, error)
}

type AnnotationStore interface {
	ListByPrediction(ctx context.Context, predictionID int64) ([]doctor.Annotation, error)
}

type Service struct {
	predictions PredictionStore
	patients    PatientResolver
	symptoms    SymptomStore
	annotations AnnotationStore
	fontPath    string
}

func NewService(predictions PredictionStore, patients PatientResolver, symptoms SymptomStore, annotations AnnotationStore) *Service {
	return &Service{
		predictions: predictions,
		patients:    patients,
		symptoms:    symptoms,
		annotations: annotations,
	}
}

var fontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

// CaseReport renders the PDF for a prediction. Missing patient or
// symptom records degrade individual lines, not the whole document.
func (s *Service) CaseReport(ctx context.Context, predictionID int64) ([]byte, error) {
	p, err := s.predictions.GetByID(ctx, predictionID)
	if err != nil {
		return nil, err
	}

	patientName := "Unknown Patient"
	if pat, err := s.patients.GetByPatientID(ctx, p.PatientID); err == nil {
		patientName = pat.FullName()
	}

	symptomText := "—"
	if sym, err := s.symptoms.GetByID(ctx, p.SymptomID); err == nil {
		symptomText = sym.Description
	}

	annotations, err := s.annotations.ListByPrediction(ctx, predictionID)
	if err != nil {
		return nil, err
	}

	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := s.loadFont(&pdf); err != nil {
		return nil, err
	}

	if err := pdf.SetFont("DejaVu", "", 18); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Prediction Case Report")
	pdf.Br(28)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	status := "Pending Review"
	if p.Reviewed {
		status = "Reviewed"
	}
	lines := []string{
		fmt.Sprintf("Generated: %s", time.Now().Format("02 Jan 2006 15:04")),
		fmt.Sprintf("Patient: %s (%s)", patientName, p.PatientID),
		fmt.Sprintf("Diagnosis: %s", p.Label),
		fmt.Sprintf("Confidence: %.2f (%s)", p.Confidence, prediction.LevelFor(p.Confidence)),
		fmt.Sprintf("Status: %s", status),
	}
	for _, line := range lines {
		pdf.Cell(nil, line)
		pdf.Br(15)
	}
	pdf.Br(10)

	if err := pdf.SetFont("DejaVu", "", 13); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Reported symptoms")
	pdf.Br(15)
	if err := pdf.SetFont("DejaVu", "", 10); err != nil {
		return nil, err
	}
	s.writeWrapped(&pdf, symptomText)
	pdf.Br(10)

	if err := pdf.SetFont("DejaVu", "", 13); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Doctor annotations")
	pdf.Br(15)
	if err := pdf.SetFont("DejaVu", "", 10); err != nil {
		return nil, err
	}
	if len(annotations) == 0 {
		pdf.Cell(nil, "- none -")
		pdf.Br(12)
	}
	for _, a := range annotations {
		header := fmt.Sprintf("%s, %s", a.DoctorUsername, a.CreatedAt.Format("02 Jan 2006 15:04"))
		if a.CorrectedLabel != "" {
			header += fmt.Sprintf(" (corrected label: %s)", a.CorrectedLabel)
		}
		s.writeWrapped(&pdf, header)
		s.writeWrapped(&pdf, a.Notes)
		pdf.Br(5)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) loadFont(pdf *gopdf.GoPdf) error {
	if s.fontPath != "" {
		return pdf.AddTTFFont("DejaVu", s.fontPath)
	}
	var lastErr error
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("load pdf font: %w", lastErr)
}

func (s *Service) writeWrapped(pdf *gopdf.GoPdf, text string) {
	lines, _ := pdf.SplitText(text, 500)
	for _, line := range lines {
		pdf.Cell(nil, line)
		pdf.Br(12)
	}
}
