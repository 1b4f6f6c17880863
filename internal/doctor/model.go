package doctor

import "time"

// Annotation is a doctor's clinical note attached to a prediction,
// optionally correcting its label. Only the authoring doctor may edit it.
type Annotation struct {
	ID             int64     `json:"id"`
	PredictionID   int64     `json:"prediction_id"`
	DoctorID       int64     `json:"-"`
	DoctorUsername string    `json:"doctor"`
	Notes          string    `json:"notes"`
	CorrectedLabel string    `json:"corrected_label,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IssueReport flags a model-quality problem with a prediction. Reports
// are append-only; corrections require a new report.
type IssueReport struct {
	ID             int64     `json:"id"`
	PredictionID   int64     `json:"prediction_id"`
	DoctorID       int64     `json:"-"`
	DoctorUsername string    `json:"doctor"`
	Description    string    `json:"description"`
	CorrectLabel   string    `json:"correct_label,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
