package patient

import "time"

// Patient is keyed by an 8-character business identifier in addition to
// its surrogate id; symptoms and predictions reference the business key.
type Patient struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	PatientID   string     `json:"patient_id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Phone       string     `json:"phone,omitempty"`
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Age returns the patient's age in whole years, or nil when the date of
// birth is unknown.
func (p *Patient) Age(now time.Time) *int {
	if p.DateOfBirth == nil {
		return nil
	}
	dob := *p.DateOfBirth
	years := now.Year() - dob.Year()
	anniversary := dob.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return &years
}
