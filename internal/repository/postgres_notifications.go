package repository

import (
	"context"
	"database/sql"
	"fmt"

	"aquaflow/internal/domain"

	"go.uber.org/zap"
)

// PostgresNotificationsRepo notification records backed by Postgres
type PostgresNotificationsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresNotificationsRepo(db *sql.DB, logger *zap.Logger) *PostgresNotificationsRepo {
	return &PostgresNotificationsRepo{db: db, logger: logger}
}

func (r *PostgresNotificationsRepo) Create(ctx context.Context, n *domain.Notification) error {
	var data any
	if len(n.Data) > 0 {
		data = []byte(n.Data)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (notification_id, uid, title, body, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.NotificationID, n.UID, n.Title, n.Body, data, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// Delete removes a notification record. Deleting an already-deleted record
// is not an error; the coordinator's cleanup path must be idempotent.
func (r *PostgresNotificationsRepo) Delete(ctx context.Context, notificationID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE notification_id = $1`,
		notificationID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

func (r *PostgresNotificationsRepo) ListByUser(ctx context.Context, uid string) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT notification_id, uid, title, body, data, created_at
		FROM notifications
		WHERE uid = $1
		ORDER BY created_at DESC
	`, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var data sql.NullString
		if err := rows.Scan(&n.NotificationID, &n.UID, &n.Title, &n.Body, &data, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if data.Valid {
			n.Data = []byte(data.String)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return notifications, nil
}
