package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aquaflow/internal/domain"

	"go.uber.org/zap"
)

// PostgresWaterRequestsRepo water requests backed by Postgres
type PostgresWaterRequestsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresWaterRequestsRepo(db *sql.DB, logger *zap.Logger) *PostgresWaterRequestsRepo {
	return &PostgresWaterRequestsRepo{db: db, logger: logger}
}

const waterRequestColumns = `request_id, uid, quantity, urgency, status, scheduled_at, created_at, latitude, longitude`

func (r *PostgresWaterRequestsRepo) Create(ctx context.Context, req *domain.WaterRequest) error {
	query := `
		INSERT INTO water_requests (` + waterRequestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		req.RequestID, req.UID, req.Quantity, string(req.Urgency), string(req.Status),
		req.ScheduledAt, req.CreatedAt, req.Latitude, req.Longitude,
	)
	if err != nil {
		return fmt.Errorf("failed to insert water request: %w", err)
	}
	return nil
}

func (r *PostgresWaterRequestsRepo) GetByID(ctx context.Context, requestID string) (*domain.WaterRequest, error) {
	query := `SELECT ` + waterRequestColumns + ` FROM water_requests WHERE request_id = $1`

	var req domain.WaterRequest
	err := r.db.QueryRowContext(ctx, query, requestID).Scan(
		&req.RequestID, &req.UID, &req.Quantity, &req.Urgency, &req.Status,
		&req.ScheduledAt, &req.CreatedAt, &req.Latitude, &req.Longitude,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get water request: %w", err)
	}
	return &req, nil
}

func (r *PostgresWaterRequestsRepo) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.WaterRequest, error) {
	query := `
		SELECT ` + waterRequestColumns + `
		FROM water_requests
		WHERE status = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query water requests: %w", err)
	}
	defer rows.Close()

	var requests []domain.WaterRequest
	for rows.Next() {
		var req domain.WaterRequest
		if err := rows.Scan(
			&req.RequestID, &req.UID, &req.Quantity, &req.Urgency, &req.Status,
			&req.ScheduledAt, &req.CreatedAt, &req.Latitude, &req.Longitude,
		); err != nil {
			return nil, fmt.Errorf("failed to scan water request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate water requests: %w", err)
	}
	return requests, nil
}

// UpdateStatus overwrites the status unconditionally (last-write-wins).
func (r *PostgresWaterRequestsRepo) UpdateStatus(ctx context.Context, requestID string, status domain.RequestStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE water_requests SET status = $1 WHERE request_id = $2`,
		string(status), requestID,
	)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
