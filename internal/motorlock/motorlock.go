// Package motorlock serializes physical pump actuation. Concurrent pump or
// valve commands on the same hardware are unsafe, so at most one water
// transfer may be in flight system-wide. The lock is a single Redis key
// written with SET NX, which makes the check-and-set atomic across all
// service instances; a TTL lease keeps a crashed holder from wedging
// actuation forever.
package motorlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrLockBusy another transfer is already in flight
var ErrLockBusy = errors.New("motor lock busy")

const lockKey = "motor:lock"

// Lock the global motor lock
type Lock struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func New(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Lock {
	return &Lock{client: client, ttl: ttl, logger: logger}
}

// Acquire attempts the atomic inactive->active flip. Exactly one of any
// number of concurrent callers succeeds; the rest get ErrLockBusy and must
// re-invoke later (no retry here).
func (l *Lock) Acquire(ctx context.Context) error {
	holder := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey, holder, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire motor lock: %w", err)
	}
	if !ok {
		return ErrLockBusy
	}
	l.logger.Info("Motor lock acquired",
		zap.String("holder", holder),
		zap.Duration("ttl", l.ttl),
	)
	return nil
}

// Release clears the lock unconditionally. There is a single motor, so the
// coordinator that reaches its cleanup step is always the holder.
func (l *Lock) Release(ctx context.Context) error {
	if err := l.client.Del(ctx, lockKey).Err(); err != nil {
		return fmt.Errorf("failed to release motor lock: %w", err)
	}
	l.logger.Info("Motor lock released")
	return nil
}

// IsActive reports whether a transfer currently holds the lock.
func (l *Lock) IsActive(ctx context.Context) (bool, error) {
	_, err := l.client.Get(ctx, lockKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read motor lock: %w", err)
	}
	return true, nil
}
