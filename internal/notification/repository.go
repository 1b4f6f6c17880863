package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("notification not found")

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	// ListUnreadByUser returns unread notifications newest first.
	ListUnreadByUser(ctx context.Context, userID int64) ([]Notification, error)
	// MarkRead flips the read flag, but only when userID owns the
	// notification. Returns ErrNotFound otherwise.
	MarkRead(ctx context.Context, id, userID int64) error
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Create(ctx context.Context, n *Notification) error {
	query := `INSERT INTO notifications (user_id, prediction_id, message, read_flag, created_at)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	err := r.db.QueryRowContext(ctx, query,
		n.UserID, n.PredictionID, n.Message, n.Read, n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *postgresRepo) ListUnreadByUser(ctx context.Context, userID int64) ([]Notification, error) {
	query := `SELECT id, user_id, prediction_id, message, read_flag, created_at
	          FROM notifications
	          WHERE user_id = $1 AND NOT read_flag
	          ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list unread notifications: %w", err)
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.PredictionID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return notifications, nil
}

func (r *postgresRepo) MarkRead(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read_flag = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark read rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
