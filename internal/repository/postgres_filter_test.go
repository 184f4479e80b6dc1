package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"aquaflow/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupFilterRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresFilterRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresFilterRepo(db, zap.NewNop())
	return db, mock, repo
}

func TestFilter_InsertReading(t *testing.T) {
	db, mock, repo := setupFilterRepo(t)
	defer db.Close()

	captured := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	reading := &domain.FilterReading{
		UID:        "user-1",
		PH:         6.2,
		Turbidity:  7.5,
		CapturedAt: captured,
	}

	mock.ExpectQuery(`INSERT INTO filter_health`).
		WithArgs("user-1", 6.2, 7.5, captured).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	require.NoError(t, repo.InsertReading(context.Background(), reading))
	assert.Equal(t, int64(7), reading.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilter_LatestReading(t *testing.T) {
	db, mock, repo := setupFilterRepo(t)
	defer db.Close()

	captured := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "uid", "ph", "turbidity", "captured_at"}).
		AddRow(int64(3), "user-1", 6.8, 2.1, captured)

	mock.ExpectQuery(`SELECT id, uid, ph, turbidity, captured_at`).
		WithArgs("user-1").
		WillReturnRows(rows)

	reading, err := repo.LatestReading(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 6.8, reading.PH)
	assert.Equal(t, 2.1, reading.Turbidity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilter_LatestReading_NotFound(t *testing.T) {
	db, mock, repo := setupFilterRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, uid, ph, turbidity, captured_at`).
		WithArgs("silent").
		WillReturnRows(sqlmock.NewRows([]string{"id", "uid", "ph", "turbidity", "captured_at"}))

	_, err := repo.LatestReading(context.Background(), "silent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilter_GetExpiry_NotFound(t *testing.T) {
	db, mock, repo := setupFilterRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT uid, expiration_date FROM expiry_dates`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"uid", "expiration_date"}))

	_, err := repo.GetExpiry(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilter_ResetExpiry_Upserts(t *testing.T) {
	db, mock, repo := setupFilterRepo(t)
	defer db.Close()

	date := time.Date(2026, 10, 30, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO expiry_dates`).
		WithArgs("user-1", date).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ResetExpiry(context.Background(), "user-1", date))
	assert.NoError(t, mock.ExpectationsWereMet())
}
