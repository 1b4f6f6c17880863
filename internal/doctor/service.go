package doctor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"symptom-triage/internal/audit"
	"symptom-triage/internal/logging"
	"symptom-triage/internal/patient"
	"symptom-triage/internal/prediction"
	"symptom-triage/internal/symptom"
	"symptom-triage/internal/user"
)

// ErrUnauthorized is returned when a doctor tries to edit another
// doctor's annotation. Never a silent no-op.
var ErrUnauthorized = errors.New("cannot edit another doctor's annotation")

// PredictionStore is the slice of the prediction repository the doctor
// surface needs: lookups, queue views and the reviewed flag.
type PredictionStore interface {
	GetByID(ctx context.Context, id int64) (*prediction.Prediction, error)
	ListByPatient(ctx context.Context, patientID string, limit int) ([]prediction.Prediction, error)
	LatestByPatient(ctx context.Context, patientID string) (*prediction.Prediction, error)
	ListLowConfidence(ctx context.Context, threshold float64, pendingOnly bool) ([]prediction.Prediction, error)
	ListAll(ctx context.Context) ([]prediction.Prediction, error)
	SetReviewed(ctx context.Context, id int64, reviewed bool) error
}

type DoctorResolver interface {
	GetDoctor(ctx context.Context, username string) (*user.User, error)
}

type PatientStore interface {
	GetByPatientID(ctx context.Context, patientID string) (*patient.Patient, error)
	ListAll(ctx context.Context) ([]patient.Patient, error)
}

type SymptomStore interface {
	GetByID(ctx context.Context, id int64) (*symptom.Symptom, error)
	LatestByPatient(ctx context.Context, patientID string) (*symptom.Symptom, error)
}

type Auditor interface {
	Record(ctx context.Context, actor, eventType, details, ip string)
}

type Service struct {
	annotations AnnotationRepository
	issues      IssueRepository
	predictions PredictionStore
	doctors     DoctorResolver
	patients    PatientStore
	symptoms    SymptomStore
	auditor     Auditor
	log         *logging.Logger
}

func NewService(
	annotations AnnotationRepository,
	issues IssueRepository,
	predictions PredictionStore,
	doctors DoctorResolver,
	patients PatientStore,
	symptoms SymptomStore,
	auditor Auditor,
	log *logging.Logger,
) *Service {
	return &Service{
		annotations: annotations,
		issues:      issues,
		predictions: predictions,
		doctors:     doctors,
		patients:    patients,
		symptoms:    symptoms,
		auditor:     auditor,
		log:         log.With("component", "doctor"),
	}
}

// ---- annotations ----

func (s *Service) Annotations(ctx context.Context, predictionID int64) ([]Annotation, error) {
	return s.annotations.ListByPrediction(ctx, predictionID)
}

func (s *Service) CreateAnnotation(ctx context.Context, doctorUsername string, predictionID int64, notes, correctedLabel, ip string) (*Annotation, error) {
	doc, err := s.doctors.GetDoctor(ctx, doctorUsername)
	if err != nil {
		return nil, err
	}
	if _, err := s.predictions.GetByID(ctx, predictionID); err != nil {
		return nil, err
	}

	a := &Annotation{
		PredictionID:   predictionID,
		DoctorID:       doc.ID,
		DoctorUsername: doc.Username,
		Notes:          notes,
		CorrectedLabel: correctedLabel,
	}
	if err := s.annotations.Create(ctx, a); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, doctorUsername, audit.EventCreateAnnotation,
		fmt.Sprintf("predictionId=%d", predictionID), ip)
	return a, nil
}

func (s *Service) UpdateAnnotation(ctx context.Context, doctorUsername string, annotationID int64, notes, correctedLabel, ip string) (*Annotation, error) {
	a, err := s.annotations.GetByID(ctx, annotationID)
	if err != nil {
		return nil, err
	}
	if a.DoctorUsername != doctorUsername {
		return nil, ErrUnauthorized
	}

	a.Notes = notes
	a.CorrectedLabel = correctedLabel
	if err := s.annotations.Update(ctx, a); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, doctorUsername, audit.EventUpdateAnnotation,
		fmt.Sprintf("annotationId=%d", annotationID), ip)
	return a, nil
}

// ---- issue reports ----

func (s *Service) Issues(ctx context.Context, predictionID int64) ([]IssueReport, error) {
	return s.issues.ListByPrediction(ctx, predictionID)
}

func (s *Service) ReportIssue(ctx context.Context, doctorUsername string, predictionID int64, description, correctLabel, ip string) (*IssueReport, error) {
	doc, err := s.doctors.GetDoctor(ctx, doctorUsername)
	if err != nil {
		return nil, err
	}
	if _, err := s.predictions.GetByID(ctx, predictionID); err != nil {
		return nil, err
	}

	report := &IssueReport{
		PredictionID:   predictionID,
		DoctorID:       doc.ID,
		DoctorUsername: doc.Username,
		Description:    description,
		CorrectLabel:   correctLabel,
	}
	if err := s.issues.Create(ctx, report); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, doctorUsername, audit.EventReportIssue,
		fmt.Sprintf("predictionId=%d", predictionID), ip)
	return report, nil
}

// ---- review state machine ----

// MarkReviewed transitions a prediction to reviewed and records an
// audit event tagged with the acting doctor.
func (s *Service) MarkReviewed(ctx context.Context, predictionID int64, doctorUsername, ip string) error {
	if err := s.predictions.SetReviewed(ctx, predictionID, true); err != nil {
		return err
	}
	s.auditor.Record(ctx, doctorUsername, audit.EventReviewPrediction,
		fmt.Sprintf("predictionId=%d", predictionID), ip)
	return nil
}

// MarkPending re-opens a reviewed prediction. Re-opening is not
// separately audited.
func (s *Service) MarkPending(ctx context.Context, predictionID int64) error {
	return s.predictions.SetReviewed(ctx, predictionID, false)
}

// ---- review queue ----

const (
	statusReviewed = "Reviewed"
	statusPending  = "Pending Review"
)

// QueueEntry is one row of the low-confidence review queue.
type QueueEntry struct {
	PredictionID int64     `json:"prediction_id"`
	PatientName  string    `json:"patient_name"`
	PatientID    string    `json:"patient_id"`
	Label        string    `json:"label"`
	Confidence   float64   `json:"confidence"`
	CreatedAt    time.Time `json:"created_at"`
	Status       string    `json:"status"`
	SymptomText  string    `json:"symptom_text"`
}

// LowConfidenceQueue returns unreviewed predictions below the review
// threshold, the doctor's working queue.
func (s *Service) LowConfidenceQueue(ctx context.Context) ([]QueueEntry, error) {
	preds, err := s.predictions.ListLowConfidence(ctx, prediction.ReviewThreshold, true)
	if err != nil {
		return nil, err
	}
	return s.toQueueEntries(ctx, preds), nil
}

// AllLowConfidence returns every prediction below the review threshold
// regardless of reviewed state.
func (s *Service) AllLowConfidence(ctx context.Context) ([]QueueEntry, error) {
	preds, err := s.predictions.ListLowConfidence(ctx, prediction.ReviewThreshold, false)
	if err != nil {
		return nil, err
	}
	return s.toQueueEntries(ctx, preds), nil
}

func (s *Service) LowConfidenceReport(ctx context.Context, predictionID int64) (*QueueEntry, error) {
	p, err := s.predictions.GetByID(ctx, predictionID)
	if err != nil {
		return nil, err
	}
	entry := s.toQueueEntry(ctx, *p)
	return &entry, nil
}

func (s *Service) toQueueEntries(ctx context.Context, preds []prediction.Prediction) []QueueEntry {
	entries := make([]QueueEntry, 0, len(preds))
	for _, p := range preds {
		entries = append(entries, s.toQueueEntry(ctx, p))
	}
	return entries
}

func (s *Service) toQueueEntry(ctx context.Context, p prediction.Prediction) QueueEntry {
	name := "Unknown"
	if pat, err := s.patients.GetByPatientID(ctx, p.PatientID); err == nil {
		name = pat.FullName()
	}

	symptomText := "—"
	if sym, err := s.symptoms.GetByID(ctx, p.SymptomID); err == nil {
		symptomText = sym.Description
	}

	status := statusPending
	if p.Reviewed {
		status = statusReviewed
	}

	return QueueEntry{
		PredictionID: p.ID,
		PatientName:  name,
		PatientID:    p.PatientID,
		Label:        p.Label,
		Confidence:   p.Confidence,
		CreatedAt:    p.CreatedAt,
		Status:       status,
		SymptomText:  symptomText,
	}
}

// ---- dashboards ----

type RecentPatient struct {
	PatientID     string     `json:"patient_id"`
	Name          string     `json:"name"`
	Age           *int       `json:"age,omitempty"`
	LastVisit     *time.Time `json:"last_visit,omitempty"`
	LastDiagnosis string     `json:"last_diagnosis"`
	DoctorNotes   string     `json:"doctor_notes"`
}

// RecentPatients summarizes every patient, most recently seen first.
// The last visit is the later of the last symptom and last prediction.
func (s *Service) RecentPatients(ctx context.Context) ([]RecentPatient, error) {
	summaries, err := s.AllPatients(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].LastVisit, summaries[j].LastVisit
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})
	return summaries, nil
}

// AllPatients summarizes every patient in roster order.
func (s *Service) AllPatients(ctx context.Context) ([]RecentPatient, error) {
	patients, err := s.patients.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	summaries := make([]RecentPatient, 0, len(patients))
	for _, p := range patients {
		summary := RecentPatient{
			PatientID:     p.PatientID,
			Name:          p.FullName(),
			Age:           p.Age(now),
			LastDiagnosis: "No diagnosis yet",
			DoctorNotes:   "—",
		}

		lastSymptom, err := s.symptoms.LatestByPatient(ctx, p.PatientID)
		if err != nil {
			return nil, err
		}
		lastPrediction, err := s.predictions.LatestByPatient(ctx, p.PatientID)
		if err != nil {
			return nil, err
		}

		var symptomAt, predictionAt *time.Time
		if lastSymptom != nil {
			symptomAt = &lastSymptom.SubmittedAt
		}
		if lastPrediction != nil {
			predictionAt = &lastPrediction.CreatedAt
			summary.LastDiagnosis = lastPrediction.Label

			latest, err := s.annotations.LatestByPrediction(ctx, lastPrediction.ID)
			if err != nil {
				return nil, err
			}
			if latest != nil {
				summary.DoctorNotes = latest.Notes
			}
		}
		summary.LastVisit = latestTime(symptomAt, predictionAt)

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func latestTime(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.After(*b) {
		return a
	}
	return b
}

// PredictionView is a prediction plus its display band.
type PredictionView struct {
	ID         int64            `json:"id"`
	SymptomID  int64            `json:"symptom_id"`
	Label      string           `json:"label"`
	Confidence float64          `json:"confidence"`
	Level      prediction.Level `json:"level"`
	CreatedAt  time.Time        `json:"created_at"`
}

func (s *Service) PatientPredictions(ctx context.Context, patientID string) ([]PredictionView, error) {
	preds, err := s.predictions.ListByPatient(ctx, patientID, 0)
	if err != nil {
		return nil, err
	}
	views := make([]PredictionView, 0, len(preds))
	for _, p := range preds {
		views = append(views, PredictionView{
			ID:         p.ID,
			SymptomID:  p.SymptomID,
			Label:      p.Label,
			Confidence: p.Confidence,
			Level:      prediction.LevelFor(p.Confidence),
			CreatedAt:  p.CreatedAt,
		})
	}
	return views, nil
}

type TrendPoint struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// PatientTrends counts the patient's predictions per diagnosis label.
func (s *Service) PatientTrends(ctx context.Context, patientID string) ([]TrendPoint, error) {
	preds, err := s.predictions.ListByPatient(ctx, patientID, 0)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	var order []string
	for _, p := range preds {
		if _, seen := counts[p.Label]; !seen {
			order = append(order, p.Label)
		}
		counts[p.Label]++
	}

	trends := make([]TrendPoint, 0, len(order))
	for _, label := range order {
		trends = append(trends, TrendPoint{Label: label, Count: counts[label]})
	}
	return trends, nil
}

// Report is one row of the all-reports view.
type Report struct {
	PredictionID int64     `json:"prediction_id"`
	PatientName  string    `json:"patient_name"`
	PatientID    string    `json:"patient_id"`
	Label        string    `json:"label"`
	Confidence   float64   `json:"confidence"`
	CreatedAt    time.Time `json:"created_at"`
	Status       string    `json:"status"`
}

func (s *Service) AllReports(ctx context.Context) ([]Report, error) {
	preds, err := s.predictions.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(preds))
	for _, p := range preds {
		name := "Unknown"
		if pat, err := s.patients.GetByPatientID(ctx, p.PatientID); err == nil {
			name = pat.FullName()
		}
		status := statusPending
		if p.Reviewed {
			status = statusReviewed
		}
		reports = append(reports, Report{
			PredictionID: p.ID,
			PatientName:  name,
			PatientID:    p.PatientID,
			Label:        p.Label,
			Confidence:   p.Confidence,
			CreatedAt:    p.CreatedAt,
			Status:       status,
		})
	}
	return reports, nil
}
