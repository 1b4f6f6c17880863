package notification

import "time"

// Notification is one unread alert for one doctor about one prediction.
type Notification struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	PredictionID int64     `json:"prediction_id"`
	Message      string    `json:"message"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"created_at"`
}
