package prediction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("prediction not found")

type Repository interface {
	Create(ctx context.Context, p *Prediction) error
	GetByID(ctx context.Context, id int64) (*Prediction, error)
	// ListByPatient returns predictions newest first. limit <= 0 means
	// no cap.
	ListByPatient(ctx context.Context, patientID string, limit int) ([]Prediction, error)
	// LatestByPatient returns the newest prediction, or nil when the
	// patient has none.
	LatestByPatient(ctx context.Context, patientID string) (*Prediction, error)
	// ListLowConfidence returns predictions below threshold; with
	// pendingOnly set, already-reviewed ones are excluded.
	ListLowConfidence(ctx context.Context, threshold float64, pendingOnly bool) ([]Prediction, error)
	ListAll(ctx context.Context) ([]Prediction, error)
	SetReviewed(ctx context.Context, id int64, reviewed bool) error
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

const predictionColumns = `id, patient_id, symptom_id, label, confidence, reviewed, created_at`

func (r *postgresRepo) Create(ctx context.Context, p *Prediction) error {
	query := `INSERT INTO predictions (patient_id, symptom_id, label, confidence, reviewed, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		p.PatientID, p.SymptomID, p.Label, p.Confidence, p.Reviewed, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`
	p, err := scanPrediction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get prediction %d: %w", id, err)
	}
	return p, nil
}

func (r *postgresRepo) ListByPatient(ctx context.Context, patientID string, limit int) ([]Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions
	          WHERE patient_id = $1 ORDER BY created_at DESC`
	args := []any{patientID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

func (r *postgresRepo) LatestByPatient(ctx context.Context, patientID string) (*Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions
	          WHERE patient_id = $1 ORDER BY created_at DESC LIMIT 1`
	p, err := scanPrediction(r.db.QueryRowContext(ctx, query, patientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest prediction for %s: %w", patientID, err)
	}
	return p, nil
}

func (r *postgresRepo) ListLowConfidence(ctx context.Context, threshold float64, pendingOnly bool) ([]Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE confidence < $1`
	if pendingOnly {
		query += ` AND NOT reviewed`
	}
	query += ` ORDER BY created_at DESC`
	return r.list(ctx, query, threshold)
}

func (r *postgresRepo) ListAll(ctx context.Context) ([]Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *postgresRepo) SetReviewed(ctx context.Context, id int64, reviewed bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE predictions SET reviewed = $2 WHERE id = $1`, id, reviewed)
	if err != nil {
		return fmt.Errorf("set reviewed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set reviewed rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepo) list(ctx context.Context, query string, args ...any) ([]Prediction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var preds []Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		preds = append(preds, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return preds, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrediction(row rowScanner) (*Prediction, error) {
	var p Prediction
	if err := row.Scan(&p.ID, &p.PatientID, &p.SymptomID, &p.Label, &p.Confidence, &p.Reviewed, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
