package symptom

import "time"

// Symptom is one free-text submission from a patient. Immutable once
// created; tag order is preserved as submitted.
type Symptom struct {
	ID          int64     `json:"id"`
	PatientID   string    `json:"patient_id"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	SubmittedAt time.Time `json:"submitted_at"`
}
