// Package transfer orchestrates a physical water transfer between two
// tanks: acquire the global motor lock, resolve both controller addresses,
// run the pump for a duration derived from the requested amount, then stop
// both ends and release the lock. The lock is never left held after an
// invocation unwinds, success or failure.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aquaflow/internal/motorlock"
	"aquaflow/internal/repository"

	"go.uber.org/zap"
)

// ErrEndpointUnresolved a participant has no registered device address
var ErrEndpointUnresolved = errors.New("device endpoint unresolved")

// ThroughputLitersPerSecond fixed pump rating: 100 liters every 5 seconds.
const ThroughputLitersPerSecond = 20.0

// DurationFor converts a requested amount to pump-open time.
func DurationFor(quantityLiters float64) time.Duration {
	return time.Duration(quantityLiters / ThroughputLitersPerSecond * float64(time.Second))
}

// DeviceController pump and valve commands on a tank controller
type DeviceController interface {
	StartSending(ctx context.Context, ip string, durationSeconds float64) error
	StopSending(ctx context.Context, ip string) error
	StartReceiving(ctx context.Context, ip string) error
	StopReceiving(ctx context.Context, ip string) error
}

// Locker the global motor lock
type Locker interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// Request one accepted transfer to execute. The requester receives water
// from the owner's tank; NotificationID is the originating notification
// record, deleted on completion.
type Request struct {
	RequestID      string
	RequesterUID   string
	OwnerUID       string
	NotificationID string
	Quantity       float64 // liters
}

// Transfer an in-flight transfer. Done is closed after the stop sequence
// and lock release have run.
type Transfer struct {
	Duration time.Duration
	done     chan struct{}
}

func (t *Transfer) Done() <-chan struct{} {
	return t.done
}

// Coordinator drives the transfer protocol.
type Coordinator struct {
	lock          Locker
	users         repository.UsersRepo
	devices       DeviceController
	notifications repository.NotificationsRepo
	logger        *zap.Logger

	stopTimeout time.Duration
	// afterFunc schedules the timed stop; replaced in tests.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

func NewCoordinator(
	lock Locker,
	users repository.UsersRepo,
	devices DeviceController,
	notifications repository.NotificationsRepo,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		lock:          lock,
		users:         users,
		devices:       devices,
		notifications: notifications,
		logger:        logger,
		stopTimeout:   30 * time.Second,
		afterFunc:     time.AfterFunc,
	}
}

// Execute runs one transfer. A busy lock aborts immediately with
// motorlock.ErrLockBusy and no retry; the caller re-invokes later. Any
// failure after acquisition releases the lock before returning. Device
// start commands are best-effort: a failed start is logged and the timed
// stop still runs, because the lock must come free on the timer either way.
func (c *Coordinator) Execute(ctx context.Context, req Request) (*Transfer, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("invalid transfer quantity %.1f", req.Quantity)
	}

	if err := c.lock.Acquire(ctx); err != nil {
		return nil, err
	}

	senderIP, err := c.resolveEndpoint(ctx, req.OwnerUID)
	if err != nil {
		return nil, c.abort(err)
	}
	receiverIP, err := c.resolveEndpoint(ctx, req.RequesterUID)
	if err != nil {
		return nil, c.abort(err)
	}

	duration := DurationFor(req.Quantity)
	c.logger.Info("Starting water transfer",
		zap.String("request_id", req.RequestID),
		zap.String("sender_ip", senderIP),
		zap.String("receiver_ip", receiverIP),
		zap.Float64("quantity", req.Quantity),
		zap.Duration("duration", duration),
	)

	// Fixed order: sender first, then receiver. Same for the stop sequence.
	if err := c.devices.StartSending(ctx, senderIP, duration.Seconds()); err != nil {
		c.logger.Warn("Start-sending command failed, continuing to timed stop",
			zap.String("request_id", req.RequestID),
			zap.Error(err),
		)
	}
	if err := c.devices.StartReceiving(ctx, receiverIP); err != nil {
		c.logger.Warn("Start-receiving command failed, continuing to timed stop",
			zap.String("request_id", req.RequestID),
			zap.Error(err),
		)
	}

	tr := &Transfer{Duration: duration, done: make(chan struct{})}

	// The stop sequence is scheduled off the caller's context on purpose:
	// it must fire even if the initiating client is long gone, or the lock
	// stays held and the pump keeps running.
	c.afterFunc(duration, func() {
		defer close(tr.done)
		c.finish(req, senderIP, receiverIP)
	})

	return tr, nil
}

// Decline handles a declined transfer: the originating notification is
// removed, the lock is never touched.
func (c *Coordinator) Decline(ctx context.Context, notificationID string) error {
	if notificationID == "" {
		return nil
	}
	if err := c.notifications.Delete(ctx, notificationID); err != nil {
		return fmt.Errorf("failed to delete notification %s: %w", notificationID, err)
	}
	return nil
}

func (c *Coordinator) resolveEndpoint(ctx context.Context, uid string) (string, error) {
	user, err := c.users.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%w: unknown user %s", ErrEndpointUnresolved, uid)
		}
		return "", fmt.Errorf("failed to resolve endpoint for %s: %w", uid, err)
	}
	if !user.IP.Valid || user.IP.String == "" {
		return "", fmt.Errorf("%w: no device address for user %s", ErrEndpointUnresolved, uid)
	}
	return user.IP.String, nil
}

// abort releases the lock and passes the original error through.
func (c *Coordinator) abort(err error) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.stopTimeout)
	defer cancel()
	if relErr := c.lock.Release(ctx); relErr != nil {
		c.logger.Error("Failed to release motor lock during abort", zap.Error(relErr))
	}
	return err
}

// finish is the timed stop: stop sender then receiver, delete the
// originating notification, release the lock. Every step is attempted
// regardless of earlier failures; the release is the one that must not be
// skipped.
func (c *Coordinator) finish(req Request, senderIP, receiverIP string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.stopTimeout)
	defer cancel()

	if err := c.devices.StopSending(ctx, senderIP); err != nil {
		c.logger.Warn("Stop-sending command failed",
			zap.String("request_id", req.RequestID),
			zap.Error(err),
		)
	}
	if err := c.devices.StopReceiving(ctx, receiverIP); err != nil {
		c.logger.Warn("Stop-receiving command failed",
			zap.String("request_id", req.RequestID),
			zap.Error(err),
		)
	}

	if req.NotificationID != "" {
		if err := c.notifications.Delete(ctx, req.NotificationID); err != nil {
			c.logger.Warn("Failed to delete transfer notification",
				zap.String("notification_id", req.NotificationID),
				zap.Error(err),
			)
		}
	}

	if err := c.lock.Release(ctx); err != nil {
		c.logger.Error("Failed to release motor lock after transfer",
			zap.String("request_id", req.RequestID),
			zap.Error(err),
		)
	}

	c.logger.Info("Water transfer completed",
		zap.String("request_id", req.RequestID),
		zap.Float64("quantity", req.Quantity),
	)
}

// ensure the production lock satisfies the interface
var _ Locker = (*motorlock.Lock)(nil)
