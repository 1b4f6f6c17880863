package doctor

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"symptom-triage/internal/logging"
	"symptom-triage/internal/patient"
	"symptom-triage/internal/prediction"
	"symptom-triage/internal/symptom"
	"symptom-triage/internal/user"
)

type fakeAnnotations struct {
	byID map[int64]*Annotation
	next int64
}

func newFakeAnnotations() *fakeAnnotations {
	return &fakeAnnotations{byID: make(map[int64]*Annotation)}
}

func (f *fakeAnnotations) Create(ctx context.Context, a *Annotation) error {
	f.next++
	a.ID = f.next
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	stored := *a
	f.byID[a.ID] = &stored
	return nil
}

func (f *fakeAnnotations) GetByID(ctx context.Context, id int64) (*Annotation, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, ErrAnnotationNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAnnotations) Update(ctx context.Context, a *Annotation) error {
	stored, ok := f.byID[a.ID]
	if !ok {
		return ErrAnnotationNotFound
	}
	stored.Notes = a.Notes
	stored.CorrectedLabel = a.CorrectedLabel
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeAnnotations) ListByPrediction(ctx context.Context, predictionID int64) ([]Annotation, error) {
	var out []Annotation
	for _, a := range f.byID {
		if a.PredictionID == predictionID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeAnnotations) LatestByPrediction(ctx context.Context, predictionID int64) (*Annotation, error) {
	list, _ := f.ListByPrediction(ctx, predictionID)
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

type fakeIssues struct {
	reports []*IssueReport
}

func (f *fakeIssues) Create(ctx context.Context, r *IssueReport) error {
	r.ID = int64(len(f.reports) + 1)
	r.CreatedAt = time.Now()
	stored := *r
	f.reports = append(f.reports, &stored)
	return nil
}

func (f *fakeIssues) ListByPrediction(ctx context.Context, predictionID int64) ([]IssueReport, error) {
	var out []IssueReport
	for i := len(f.reports) - 1; i >= 0; i-- {
		if f.reports[i].PredictionID == predictionID {
			out = append(out, *f.reports[i])
		}
	}
	return out, nil
}

type fakePredictions struct {
	byID map[int64]*prediction.Prediction
}

func newFakePredictions(preds ...*prediction.Prediction) *fakePredictions {
	f := &fakePredictions{byID: make(map[int64]*prediction.Prediction)}
	for _, p := range preds {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakePredictions) GetByID(ctx context.Context, id int64) (*prediction.Prediction, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, prediction.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakePredictions) ListByPatient(ctx context.Context, patientID string, limit int) ([]prediction.Prediction, error) {
	var out []prediction.Prediction
	for _, p := range f.sorted() {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePredictions) LatestByPatient(ctx context.Context, patientID string) (*prediction.Prediction, error) {
	var latest *prediction.Prediction
	for _, p := range f.byID {
		if p.PatientID != patientID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (f *fakePredictions) ListLowConfidence(ctx context.Context, threshold float64, pendingOnly bool) ([]prediction.Prediction, error) {
	var out []prediction.Prediction
	for _, p := range f.sorted() {
		if p.Confidence >= threshold {
			continue
		}
		if pendingOnly && p.Reviewed {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePredictions) ListAll(ctx context.Context) ([]prediction.Prediction, error) {
	return f.sorted(), nil
}

func (f *fakePredictions) SetReviewed(ctx context.Context, id int64, reviewed bool) error {
	p, ok := f.byID[id]
	if !ok {
		return prediction.ErrNotFound
	}
	p.Reviewed = reviewed
	return nil
}

func (f *fakePredictions) sorted() []prediction.Prediction {
	out := make([]prediction.Prediction, 0, len(f.byID))
	for _, p := range f.byID {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeDoctors struct {
	byUsername map[string]*user.User
}

func (f *fakeDoctors) GetDoctor(ctx context.Context, username string) (*user.User, error) {
	doc, ok := f.byUsername[username]
	if !ok {
		return nil, user.ErrDoctorNotFound
	}
	return doc, nil
}

type fakePatientStore struct {
	patients []patient.Patient
}

func (f *fakePatientStore) GetByPatientID(ctx context.Context, patientID string) (*patient.Patient, error) {
	for i := range f.patients {
		if f.patients[i].PatientID == patientID {
			return &f.patients[i], nil
		}
	}
	return nil, patient.ErrNotFound
}

func (f *fakePatientStore) ListAll(ctx context.Context) ([]patient.Patient, error) {
	return f.patients, nil
}

type fakeSymptomStore struct {
	byID     map[int64]*symptom.Symptom
	latestBy map[string]*symptom.Symptom
}

func (f *fakeSymptomStore) GetByID(ctx context.Context, id int64) (*symptom.Symptom, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, symptom.ErrNotFound
	}
	return s, nil
}

func (f *fakeSymptomStore) LatestByPatient(ctx context.Context, patientID string) (*symptom.Symptom, error) {
	return f.latestBy[patientID], nil
}

type recordingAuditor struct {
	events []string
}

func (r *recordingAuditor) Record(ctx context.Context, actor, eventType, details, ip string) {
	r.events = append(r.events, eventType)
}

type serviceFixture struct {
	svc         *Service
	annotations *fakeAnnotations
	issues      *fakeIssues
	predictions *fakePredictions
	auditor     *recordingAuditor
}

func newFixture(preds ...*prediction.Prediction) *serviceFixture {
	annotations := newFakeAnnotations()
	issues := &fakeIssues{}
	predictions := newFakePredictions(preds...)
	doctors := &fakeDoctors{byUsername: map[string]*user.User{
		"house":  {ID: 1, Username: "house", Role: user.RoleDoctor, Active: true},
		"wilson": {ID: 2, Username: "wilson", Role: user.RoleDoctor, Active: true},
	}}
	patients := &fakePatientStore{patients: []patient.Patient{
		{ID: 1, PatientID: "12345678", FirstName: "Ada", LastName: "Reyes"},
	}}
	symptoms := &fakeSymptomStore{
		byID:     map[int64]*symptom.Symptom{},
		latestBy: map[string]*symptom.Symptom{},
	}
	auditor := &recordingAuditor{}
	svc := NewService(annotations, issues, predictions, doctors, patients, symptoms, auditor, logging.NewNop())
	return &serviceFixture{svc: svc, annotations: annotations, issues: issues, predictions: predictions, auditor: auditor}
}

func TestCreateAnnotation(t *testing.T) {
	t.Parallel()

	fx := newFixture(&prediction.Prediction{ID: 7, PatientID: "12345678", Confidence: 0.40})

	a, err := fx.svc.CreateAnnotation(context.Background(), "house", 7, "check thyroid", "Hypothyroidism", "10.0.0.1")
	if err != nil {
		t.Fatalf("CreateAnnotation: %v", err)
	}
	if a.DoctorUsername != "house" || a.Notes != "check thyroid" {
		t.Errorf("annotation = %+v", a)
	}
	if diff := cmp.Diff([]string{"DOCTOR_CREATE_ANNOTATION"}, fx.auditor.events); diff != "" {
		t.Errorf("audit events (-want +got):\n%s", diff)
	}
}

func TestCreateAnnotationUnknownPrediction(t *testing.T) {
	t.Parallel()

	fx := newFixture()
	_, err := fx.svc.CreateAnnotation(context.Background(), "house", 99, "notes", "", "")
	if !errors.Is(err, prediction.ErrNotFound) {
		t.Fatalf("expected prediction.ErrNotFound, got %v", err)
	}
	if len(fx.auditor.events) != 0 {
		t.Error("no audit event for a rejected annotation")
	}
}

func TestUpdateAnnotationAuthorGuard(t *testing.T) {
	t.Parallel()

	fx := newFixture(&prediction.Prediction{ID: 7, PatientID: "12345678"})
	a, err := fx.svc.CreateAnnotation(context.Background(), "house", 7, "original notes", "Flu", "")
	if err != nil {
		t.Fatal(err)
	}

	_, err = fx.svc.UpdateAnnotation(context.Background(), "wilson", a.ID, "hijacked", "Cold", "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	stored, err := fx.annotations.GetByID(context.Background(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Notes != "original notes" || stored.CorrectedLabel != "Flu" {
		t.Errorf("rejected update must leave the annotation unchanged, got %+v", stored)
	}

	updated, err := fx.svc.UpdateAnnotation(context.Background(), "house", a.ID, "revised notes", "Cold", "")
	if err != nil {
		t.Fatalf("author update: %v", err)
	}
	if updated.Notes != "revised notes" || updated.CorrectedLabel != "Cold" {
		t.Errorf("updated = %+v", updated)
	}
}

func TestReportIssueAppendOnly(t *testing.T) {
	t.Parallel()

	fx := newFixture(&prediction.Prediction{ID: 7, PatientID: "12345678"})

	for _, desc := range []string{"label looks wrong", "confidence too high"} {
		if _, err := fx.svc.ReportIssue(context.Background(), "house", 7, desc, "", ""); err != nil {
			t.Fatalf("ReportIssue: %v", err)
		}
	}

	reports, err := fx.svc.Issues(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 issue reports, got %d", len(reports))
	}
}

func TestReviewStateMachine(t *testing.T) {
	t.Parallel()

	fx := newFixture(
		&prediction.Prediction{ID: 1, PatientID: "12345678", Confidence: 0.30},
		&prediction.Prediction{ID: 2, PatientID: "12345678", Confidence: 0.52},
		&prediction.Prediction{ID: 3, PatientID: "12345678", Confidence: 0.80},
	)

	queue, err := fx.svc.LowConfidenceQueue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ids := queueIDs(queue); !cmp.Equal([]int64{1, 2}, ids) {
		t.Fatalf("initial queue = %v, want [1 2]", ids)
	}

	if err := fx.svc.MarkReviewed(context.Background(), 1, "house", "10.0.0.1"); err != nil {
		t.Fatal(err)
	}
	queue, err = fx.svc.LowConfidenceQueue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ids := queueIDs(queue); !cmp.Equal([]int64{2}, ids) {
		t.Fatalf("queue after review = %v, want [2]", ids)
	}

	all, err := fx.svc.AllLowConfidence(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ids := queueIDs(all); !cmp.Equal([]int64{1, 2}, ids) {
		t.Fatalf("reviewed predictions must stay in the full view, got %v", ids)
	}
	if all[0].Status != "Reviewed" || all[1].Status != "Pending Review" {
		t.Errorf("statuses = %q, %q", all[0].Status, all[1].Status)
	}

	if err := fx.svc.MarkPending(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	queue, err = fx.svc.LowConfidenceQueue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ids := queueIDs(queue); !cmp.Equal([]int64{1, 2}, ids) {
		t.Fatalf("queue after re-open = %v, want [1 2]", ids)
	}

	if diff := cmp.Diff([]string{"DOCTOR_REVIEW_LOW_CONFIDENCE"}, fx.auditor.events); diff != "" {
		t.Errorf("only MarkReviewed is audited (-want +got):\n%s", diff)
	}
}

func TestQueueEntryFallbacks(t *testing.T) {
	t.Parallel()

	fx := newFixture(&prediction.Prediction{ID: 1, PatientID: "99999999", SymptomID: 42, Confidence: 0.30, Label: "Flu"})

	entry, err := fx.svc.LowConfidenceReport(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if entry.PatientName != "Unknown" {
		t.Errorf("patient name = %q, want Unknown", entry.PatientName)
	}
	if entry.SymptomText != "—" {
		t.Errorf("symptom text = %q, want em dash placeholder", entry.SymptomText)
	}
}

func TestRecentPatientsOrdering(t *testing.T) {
	t.Parallel()

	now := time.Now()
	fx := newFixture(
		&prediction.Prediction{ID: 1, PatientID: "11111111", Label: "Flu", CreatedAt: now.Add(-2 * time.Hour)},
		&prediction.Prediction{ID: 2, PatientID: "22222222", Label: "Migraine", CreatedAt: now.Add(-1 * time.Hour)},
	)
	fx.svc.patients = &fakePatientStore{patients: []patient.Patient{
		{PatientID: "11111111", FirstName: "Ada", LastName: "Reyes"},
		{PatientID: "22222222", FirstName: "Ben", LastName: "Okafor"},
		{PatientID: "33333333", FirstName: "Cleo", LastName: "Nakamura"},
	}}

	recent, err := fx.svc.RecentPatients(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, 0, len(recent))
	for _, r := range recent {
		got = append(got, r.PatientID)
	}
	if diff := cmp.Diff([]string{"22222222", "11111111", "33333333"}, got); diff != "" {
		t.Errorf("ordering (-want +got):\n%s", diff)
	}
	if recent[2].LastVisit != nil {
		t.Error("a patient with no activity has no last visit")
	}
	if recent[2].LastDiagnosis != "No diagnosis yet" {
		t.Errorf("last diagnosis = %q", recent[2].LastDiagnosis)
	}
}

func TestPatientTrends(t *testing.T) {
	t.Parallel()

	fx := newFixture(
		&prediction.Prediction{ID: 1, PatientID: "12345678", Label: "Flu"},
		&prediction.Prediction{ID: 2, PatientID: "12345678", Label: "Migraine"},
		&prediction.Prediction{ID: 3, PatientID: "12345678", Label: "Flu"},
	)

	trends, err := fx.svc.PatientTrends(context.Background(), "12345678")
	if err != nil {
		t.Fatal(err)
	}
	want := []TrendPoint{{Label: "Flu", Count: 2}, {Label: "Migraine", Count: 1}}
	if diff := cmp.Diff(want, trends); diff != "" {
		t.Errorf("trends (-want +got):\n%s", diff)
	}
}

func queueIDs(entries []QueueEntry) []int64 {
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.PredictionID)
	}
	return ids
}
