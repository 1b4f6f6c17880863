package history

import "time"

// Entry is one prior-condition line of a patient's medical history.
type Entry struct {
	ID          int64     `json:"id"`
	PatientID   string    `json:"patient_id"`
	Title       string    `json:"title"`
	Details     string    `json:"details"`
	DiagnosedAt time.Time `json:"diagnosed_at"`
}
