package symptom

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var ErrNotFound = errors.New("symptom not found")

type Repository interface {
	Create(ctx context.Context, s *Symptom) error
	GetByID(ctx context.Context, id int64) (*Symptom, error)
	// ListByPatient returns symptoms newest first, capped at limit.
	ListByPatient(ctx context.Context, patientID string, limit int) ([]Symptom, error)
	// LatestByPatient returns the newest symptom, or nil when none.
	LatestByPatient(ctx context.Context, patientID string) (*Symptom, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

const symptomColumns = `id, patient_id, description, tags, submitted_at`

func (r *postgresRepo) Create(ctx context.Context, s *Symptom) error {
	query := `INSERT INTO symptoms (patient_id, description, tags, submitted_at)
	          VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		s.PatientID, s.Description, pq.Array(s.Tags), s.SubmittedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert symptom: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*Symptom, error) {
	query := `SELECT ` + symptomColumns + ` FROM symptoms WHERE id = $1`
	s, err := scanSymptom(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get symptom %d: %w", id, err)
	}
	return s, nil
}

func (r *postgresRepo) ListByPatient(ctx context.Context, patientID string, limit int) ([]Symptom, error) {
	query := `SELECT ` + symptomColumns + ` FROM symptoms
	          WHERE patient_id = $1 ORDER BY submitted_at DESC`
	args := []any{patientID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list symptoms: %w", err)
	}
	defer rows.Close()

	var symptoms []Symptom
	for rows.Next() {
		s, err := scanSymptom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symptom: %w", err)
		}
		symptoms = append(symptoms, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return symptoms, nil
}

func (r *postgresRepo) LatestByPatient(ctx context.Context, patientID string) (*Symptom, error) {
	query := `SELECT ` + symptomColumns + ` FROM symptoms
	          WHERE patient_id = $1 ORDER BY submitted_at DESC LIMIT 1`
	s, err := scanSymptom(r.db.QueryRowContext(ctx, query, patientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest symptom for %s: %w", patientID, err)
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSymptom(row rowScanner) (*Symptom, error) {
	var s Symptom
	if err := row.Scan(&s.ID, &s.PatientID, &s.Description, pq.Array(&s.Tags), &s.SubmittedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
