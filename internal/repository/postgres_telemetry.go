package repository

import (
	"context"
	"database/sql"
	"fmt"

	"aquaflow/internal/domain"

	"go.uber.org/zap"
)

// PostgresTelemetryRepo append-only distance readings backed by Postgres
type PostgresTelemetryRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresTelemetryRepo(db *sql.DB, logger *zap.Logger) *PostgresTelemetryRepo {
	return &PostgresTelemetryRepo{db: db, logger: logger}
}

func (r *PostgresTelemetryRepo) Insert(ctx context.Context, reading *domain.TankReading) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO avg_distance (uid, distance, captured_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, reading.UID, reading.Distance, reading.CapturedAt).Scan(&reading.ID)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

func (r *PostgresTelemetryRepo) Latest(ctx context.Context, uid string, n int) ([]domain.TankReading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, uid, distance, captured_at
		FROM avg_distance
		WHERE uid = $1
		ORDER BY captured_at DESC
		LIMIT $2
	`, uid, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []domain.TankReading
	for rows.Next() {
		var reading domain.TankReading
		if err := rows.Scan(&reading.ID, &reading.UID, &reading.Distance, &reading.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}
	return readings, nil
}
