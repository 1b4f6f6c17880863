package doctor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrAnnotationNotFound = errors.New("annotation not found")

type AnnotationRepository interface {
	Create(ctx context.Context, a *Annotation) error
	GetByID(ctx context.Context, id int64) (*Annotation, error)
	// Update persists notes, corrected label and updated_at. created_at
	// is immutable.
	Update(ctx context.Context, a *Annotation) error
	// ListByPrediction returns annotations newest first.
	ListByPrediction(ctx context.Context, predictionID int64) ([]Annotation, error)
	// LatestByPrediction returns the newest annotation, or nil when none.
	LatestByPrediction(ctx context.Context, predictionID int64) (*Annotation, error)
}

type IssueRepository interface {
	Create(ctx context.Context, r *IssueReport) error
	// ListByPrediction returns issue reports newest first.
	ListByPrediction(ctx context.Context, predictionID int64) ([]IssueReport, error)
}

type annotationRepo struct {
	db *sql.DB
}

func NewAnnotationRepository(db *sql.DB) AnnotationRepository {
	return &annotationRepo{db: db}
}

const annotationSelect = `
	SELECT a.id, a.prediction_id, a.doctor_id, u.username, a.notes,
	       COALESCE(a.corrected_label, ''), a.created_at, a.updated_at
	FROM annotations a
	JOIN users u ON u.id = a.doctor_id`

func (r *annotationRepo) Create(ctx context.Context, a *Annotation) error {
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	query := `INSERT INTO annotations (prediction_id, doctor_id, notes, corrected_label, created_at, updated_at)
	          VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		a.PredictionID, a.DoctorID, a.Notes, a.CorrectedLabel, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert annotation: %w", err)
	}
	return nil
}

func (r *annotationRepo) GetByID(ctx context.Context, id int64) (*Annotation, error) {
	a, err := scanAnnotation(r.db.QueryRowContext(ctx, annotationSelect+` WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnnotationNotFound
		}
		return nil, fmt.Errorf("get annotation %d: %w", id, err)
	}
	return a, nil
}

func (r *annotationRepo) Update(ctx context.Context, a *Annotation) error {
	a.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE annotations SET notes = $2, corrected_label = NULLIF($3, ''), updated_at = $4 WHERE id = $1`,
		a.ID, a.Notes, a.CorrectedLabel, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update annotation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update annotation rows: %w", err)
	}
	if affected == 0 {
		return ErrAnnotationNotFound
	}
	return nil
}

func (r *annotationRepo) ListByPrediction(ctx context.Context, predictionID int64) ([]Annotation, error) {
	query := annotationSelect + ` WHERE a.prediction_id = $1 ORDER BY a.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, predictionID)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	var annotations []Annotation
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		annotations = append(annotations, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return annotations, nil
}

func (r *annotationRepo) LatestByPrediction(ctx context.Context, predictionID int64) (*Annotation, error) {
	query := annotationSelect + ` WHERE a.prediction_id = $1 ORDER BY a.created_at DESC LIMIT 1`
	a, err := scanAnnotation(r.db.QueryRowContext(ctx, query, predictionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest annotation for prediction %d: %w", predictionID, err)
	}
	return a, nil
}

type issueRepo struct {
	db *sql.DB
}

func NewIssueRepository(db *sql.DB) IssueRepository {
	return &issueRepo{db: db}
}

func (r *issueRepo) Create(ctx context.Context, report *IssueReport) error {
	report.CreatedAt = time.Now()
	query := `INSERT INTO issue_reports (prediction_id, doctor_id, issue_description, correct_label, created_at)
	          VALUES ($1, $2, $3, NULLIF($4, ''), $5) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		report.PredictionID, report.DoctorID, report.Description, report.CorrectLabel, report.CreatedAt,
	).Scan(&report.ID)
	if err != nil {
		return fmt.Errorf("insert issue report: %w", err)
	}
	return nil
}

func (r *issueRepo) ListByPrediction(ctx context.Context, predictionID int64) ([]IssueReport, error) {
	query := `
		SELECT i.id, i.prediction_id, i.doctor_id, u.username, i.issue_description,
		       COALESCE(i.correct_label, ''), i.created_at
		FROM issue_reports i
		JOIN users u ON u.id = i.doctor_id
		WHERE i.prediction_id = $1
		ORDER BY i.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, predictionID)
	if err != nil {
		return nil, fmt.Errorf("list issue reports: %w", err)
	}
	defer rows.Close()

	var reports []IssueReport
	for rows.Next() {
		var report IssueReport
		err := rows.Scan(&report.ID, &report.PredictionID, &report.DoctorID, &report.DoctorUsername,
			&report.Description, &report.CorrectLabel, &report.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan issue report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return reports, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnnotation(row rowScanner) (*Annotation, error) {
	var a Annotation
	err := row.Scan(&a.ID, &a.PredictionID, &a.DoctorID, &a.DoctorUsername,
		&a.Notes, &a.CorrectedLabel, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
