// Package repository data access for aquaflow. Interfaces are defined here
// so services can be unit-tested against fakes; Postgres implementations
// live in the postgres_*.go files.
package repository

import (
	"context"
	"errors"
	"time"

	"aquaflow/internal/domain"
)

// ErrNotFound the requested record does not exist
var ErrNotFound = errors.New("record not found")

// WaterRequestsRepo water request persistence
type WaterRequestsRepo interface {
	Create(ctx context.Context, req *domain.WaterRequest) error
	GetByID(ctx context.Context, requestID string) (*domain.WaterRequest, error)
	ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.WaterRequest, error)
	// UpdateStatus is a plain last-write-wins update: concurrent writers are
	// not guarded against each other. The lifecycle manager validates the
	// transition before calling this.
	UpdateStatus(ctx context.Context, requestID string, status domain.RequestStatus) error
}

// UsersRepo tank owner accounts (device address, push token, latest level)
type UsersRepo interface {
	GetByUID(ctx context.Context, uid string) (*domain.User, error)
	ListUIDs(ctx context.Context) ([]string, error)
	UpdateWaterLevel(ctx context.Context, uid string, distance float64) error
}

// TelemetryRepo append-only distance readings
type TelemetryRepo interface {
	Insert(ctx context.Context, reading *domain.TankReading) error
	// Latest returns up to n readings, newest first.
	Latest(ctx context.Context, uid string, n int) ([]domain.TankReading, error)
}

// FilterRepo water-quality samples and filter expiry records
type FilterRepo interface {
	InsertReading(ctx context.Context, reading *domain.FilterReading) error
	LatestReading(ctx context.Context, uid string) (*domain.FilterReading, error)
	GetExpiry(ctx context.Context, uid string) (*domain.FilterExpiry, error)
	ResetExpiry(ctx context.Context, uid string, date time.Time) error
}

// NotificationsRepo per-user notification records
type NotificationsRepo interface {
	Create(ctx context.Context, n *domain.Notification) error
	Delete(ctx context.Context, notificationID string) error
	ListByUser(ctx context.Context, uid string) ([]domain.Notification, error)
}
