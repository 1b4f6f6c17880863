package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Repository interface {
	InsertAll(ctx context.Context, entries []Entry) error
	// ListByPatient returns history entries newest first.
	ListByPatient(ctx context.Context, patientID string) ([]Entry, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) InsertAll(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history insert: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO medical_history (patient_id, title, details, diagnosed_at)
	          VALUES ($1, $2, $3, $4)`
	now := time.Now()
	for _, e := range entries {
		diagnosedAt := e.DiagnosedAt
		if diagnosedAt.IsZero() {
			diagnosedAt = now
		}
		if _, err := tx.ExecContext(ctx, query, e.PatientID, e.Title, e.Details, diagnosedAt); err != nil {
			return fmt.Errorf("insert history entry: %w", err)
		}
	}
	return tx.Commit()
}

func (r *postgresRepo) ListByPatient(ctx context.Context, patientID string) ([]Entry, error) {
	query := `SELECT id, patient_id, title, details, diagnosed_at
	          FROM medical_history
	          WHERE patient_id = $1 ORDER BY diagnosed_at DESC`
	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PatientID, &e.Title, &e.Details, &e.DiagnosedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return entries, nil
}
