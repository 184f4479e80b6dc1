package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aquaflow/internal/domain"

	"go.uber.org/zap"
)

// PostgresFilterRepo filter readings and expiry records backed by Postgres
type PostgresFilterRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresFilterRepo(db *sql.DB, logger *zap.Logger) *PostgresFilterRepo {
	return &PostgresFilterRepo{db: db, logger: logger}
}

func (r *PostgresFilterRepo) InsertReading(ctx context.Context, reading *domain.FilterReading) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO filter_health (uid, ph, turbidity, captured_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, reading.UID, reading.PH, reading.Turbidity, reading.CapturedAt).Scan(&reading.ID)
	if err != nil {
		return fmt.Errorf("failed to insert filter reading: %w", err)
	}
	return nil
}

func (r *PostgresFilterRepo) LatestReading(ctx context.Context, uid string) (*domain.FilterReading, error) {
	var reading domain.FilterReading
	err := r.db.QueryRowContext(ctx, `
		SELECT id, uid, ph, turbidity, captured_at
		FROM filter_health
		WHERE uid = $1
		ORDER BY captured_at DESC
		LIMIT 1
	`, uid).Scan(&reading.ID, &reading.UID, &reading.PH, &reading.Turbidity, &reading.CapturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get filter reading: %w", err)
	}
	return &reading, nil
}

func (r *PostgresFilterRepo) GetExpiry(ctx context.Context, uid string) (*domain.FilterExpiry, error) {
	var expiry domain.FilterExpiry
	err := r.db.QueryRowContext(ctx,
		`SELECT uid, expiration_date FROM expiry_dates WHERE uid = $1`,
		uid,
	).Scan(&expiry.UID, &expiry.ExpirationDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get filter expiry: %w", err)
	}
	return &expiry, nil
}

// ResetExpiry records a filter replacement by moving the expiration date.
func (r *PostgresFilterRepo) ResetExpiry(ctx context.Context, uid string, date time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expiry_dates (uid, expiration_date)
		VALUES ($1, $2)
		ON CONFLICT (uid) DO UPDATE SET expiration_date = EXCLUDED.expiration_date
	`, uid, date)
	if err != nil {
		return fmt.Errorf("failed to reset filter expiry: %w", err)
	}
	return nil
}
