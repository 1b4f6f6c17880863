package prediction

import "time"

// Prediction is one oracle verdict for one submitted symptom. Only the
// reviewed flag ever changes after creation.
type Prediction struct {
	ID         int64     `json:"id"`
	PatientID  string    `json:"patient_id"`
	SymptomID  int64     `json:"symptom_id"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Reviewed   bool      `json:"reviewed"`
	CreatedAt  time.Time `json:"created_at"`
}
