package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aquaflow/internal/domain"

	"go.uber.org/zap"
)

// PostgresUsersRepo users backed by Postgres
type PostgresUsersRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresUsersRepo(db *sql.DB, logger *zap.Logger) *PostgresUsersRepo {
	return &PostgresUsersRepo{db: db, logger: logger}
}

func (r *PostgresUsersRepo) GetByUID(ctx context.Context, uid string) (*domain.User, error) {
	query := `SELECT uid, name, ip, push_token, water_level FROM users WHERE uid = $1`

	var user domain.User
	err := r.db.QueryRowContext(ctx, query, uid).Scan(
		&user.UID, &user.Name, &user.IP, &user.PushToken, &user.WaterLevel,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *PostgresUsersRepo) ListUIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT uid FROM users ORDER BY uid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("failed to scan uid: %w", err)
		}
		uids = append(uids, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return uids, nil
}

func (r *PostgresUsersRepo) UpdateWaterLevel(ctx context.Context, uid string, distance float64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET water_level = $1 WHERE uid = $2`,
		distance, uid,
	)
	if err != nil {
		return fmt.Errorf("failed to update water level: %w", err)
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
