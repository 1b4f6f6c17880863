package symptom

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"symptom-triage/internal/logging"
	"symptom-triage/internal/patient"
	"symptom-triage/internal/prediction"
)

type fakeSymptomRepo struct {
	Repository
	created []*Symptom
}

func (f *fakeSymptomRepo) Create(ctx context.Context, s *Symptom) error {
	s.ID = int64(len(f.created) + 1)
	f.created = append(f.created, s)
	return nil
}

type fakePatients struct {
	known map[string]*patient.Patient
}

func (f *fakePatients) GetByPatientID(ctx context.Context, patientID string) (*patient.Patient, error) {
	p, ok := f.known[patientID]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

type fakePipeline struct {
	result *prediction.Prediction
	err    error
	calls  int
}

func (f *fakePipeline) InferAndSave(ctx context.Context, patientID string, symptomID int64, description string, tags []string) (*prediction.Prediction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := *f.result
	p.PatientID = patientID
	p.SymptomID = symptomID
	return &p, nil
}

type fakeAuditor struct {
	events []string
}

func (f *fakeAuditor) Record(ctx context.Context, actor, eventType, details, ip string) {
	f.events = append(f.events, eventType)
}

func newSubmitService(patients *fakePatients, pipeline *fakePipeline) (*Service, *fakeSymptomRepo, *fakeAuditor) {
	repo := &fakeSymptomRepo{}
	auditor := &fakeAuditor{}
	svc := NewService(repo, patients, pipeline, auditor, logging.NewNop())
	return svc, repo, auditor
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	patients := &fakePatients{known: map[string]*patient.Patient{
		"12345678": {PatientID: "12345678", FirstName: "Ada", LastName: "Reyes"},
	}}
	pipeline := &fakePipeline{result: &prediction.Prediction{ID: 9, Label: "Migraine", Confidence: 0.40}}
	svc, repo, auditor := newSubmitService(patients, pipeline)

	sym, pred, err := svc.Submit(context.Background(), "12345678", "severe headache", []string{"a", "b"}, "ada", "10.0.0.1")
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if diff := cmp.Diff([]string{"a", "b"}, sym.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if sym.ID == 0 || len(repo.created) != 1 {
		t.Fatal("symptom must be persisted")
	}
	if pred.SymptomID != sym.ID {
		t.Errorf("prediction references symptom %d, want %d", pred.SymptomID, sym.ID)
	}
	if pred.PatientID != "12345678" {
		t.Errorf("prediction patient = %q", pred.PatientID)
	}
	if len(auditor.events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(auditor.events))
	}
}

func TestSubmitUnknownPatient(t *testing.T) {
	t.Parallel()

	pipeline := &fakePipeline{result: &prediction.Prediction{}}
	svc, repo, _ := newSubmitService(&fakePatients{known: map[string]*patient.Patient{}}, pipeline)

	_, _, err := svc.Submit(context.Background(), "00000000", "headache", nil, "", "")
	if !errors.Is(err, patient.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Error("no symptom may be persisted for an unknown patient")
	}
	if pipeline.calls != 0 {
		t.Error("the oracle pipeline must not run for an unknown patient")
	}
}

func TestSubmitPipelineFailureKeepsSymptom(t *testing.T) {
	t.Parallel()

	patients := &fakePatients{known: map[string]*patient.Patient{
		"12345678": {PatientID: "12345678"},
	}}
	pipeline := &fakePipeline{err: errors.New("oracle unavailable")}
	svc, repo, auditor := newSubmitService(patients, pipeline)

	_, _, err := svc.Submit(context.Background(), "12345678", "headache", nil, "", "")
	if err == nil {
		t.Fatal("expected pipeline error")
	}
	if len(repo.created) != 1 {
		t.Error("the symptom stays persisted when the prediction fails")
	}
	if len(auditor.events) != 0 {
		t.Error("no submission audit event for a failed pipeline")
	}
}
