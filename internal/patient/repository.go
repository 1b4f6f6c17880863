package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("patient not found")

type Repository interface {
	// GetByPatientID resolves the 8-character business identifier.
	GetByPatientID(ctx context.Context, patientID string) (*Patient, error)
	ListAll(ctx context.Context) ([]Patient, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

const patientColumns = `id, user_id, patient_id, first_name, last_name, date_of_birth, phone`

func (r *postgresRepo) GetByPatientID(ctx context.Context, patientID string) (*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE patient_id = $1`
	p, err := scanPatient(r.db.QueryRowContext(ctx, query, patientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get patient %s: %w", patientID, err)
	}
	return p, nil
}

func (r *postgresRepo) ListAll(ctx context.Context) ([]Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY last_name, first_name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var patients []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		patients = append(patients, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return patients, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*Patient, error) {
	var p Patient
	var dob sql.NullTime
	var phone sql.NullString
	if err := row.Scan(&p.ID, &p.UserID, &p.PatientID, &p.FirstName, &p.LastName, &dob, &phone); err != nil {
		return nil, err
	}
	if dob.Valid {
		t := dob.Time
		p.DateOfBirth = &t
	}
	p.Phone = phone.String
	return &p, nil
}
