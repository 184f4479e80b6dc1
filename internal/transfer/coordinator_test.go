package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"aquaflow/internal/domain"
	"aquaflow/internal/motorlock"
	"aquaflow/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeLock in-memory Locker with atomic acquire semantics
type fakeLock struct {
	mu       sync.Mutex
	held     bool
	acquires int
	releases int
}

func (l *fakeLock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return motorlock.ErrLockBusy
	}
	l.held = true
	l.acquires++
	return nil
}

func (l *fakeLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.releases++
	return nil
}

func (l *fakeLock) isHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// fakeDevices records commands in call order
type fakeDevices struct {
	mu        sync.Mutex
	calls     []string
	failStart bool
}

func (d *fakeDevices) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

func (d *fakeDevices) StartSending(ctx context.Context, ip string, durationSeconds float64) error {
	d.record(fmt.Sprintf("send:%s:%.0f", ip, durationSeconds))
	if d.failStart {
		return errors.New("controller unreachable")
	}
	return nil
}

func (d *fakeDevices) StopSending(ctx context.Context, ip string) error {
	d.record("stop-send:" + ip)
	return nil
}

func (d *fakeDevices) StartReceiving(ctx context.Context, ip string) error {
	d.record("recv:" + ip)
	if d.failStart {
		return errors.New("controller unreachable")
	}
	return nil
}

func (d *fakeDevices) StopReceiving(ctx context.Context, ip string) error {
	d.record("stop-recv:" + ip)
	return nil
}

func (d *fakeDevices) callList() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

type fakeUsers struct {
	users map[string]*domain.User
}

func (f *fakeUsers) GetByUID(ctx context.Context, uid string) (*domain.User, error) {
	u, ok := f.users[uid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) ListUIDs(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeUsers) UpdateWaterLevel(ctx context.Context, uid string, distance float64) error {
	return nil
}

type fakeNotifications struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeNotifications) Create(ctx context.Context, n *domain.Notification) error { return nil }

func (f *fakeNotifications) Delete(ctx context.Context, notificationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, notificationID)
	return nil
}

func (f *fakeNotifications) ListByUser(ctx context.Context, uid string) ([]domain.Notification, error) {
	return nil, nil
}

func (f *fakeNotifications) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deleted))
	copy(out, f.deleted)
	return out
}

func userWithIP(uid, ip string) *domain.User {
	return &domain.User{
		UID: uid,
		IP:  sql.NullString{String: ip, Valid: ip != ""},
	}
}

func newTestCoordinator(lock *fakeLock, devices *fakeDevices, users *fakeUsers, notifications *fakeNotifications) *Coordinator {
	c := NewCoordinator(lock, users, devices, notifications, zap.NewNop())
	// run the timed stop immediately so tests need no sleeping
	c.afterFunc = func(d time.Duration, f func()) *time.Timer {
		f()
		return time.NewTimer(0)
	}
	return c
}

func transferRequest() Request {
	return Request{
		RequestID:      "req-1",
		RequesterUID:   "requester",
		OwnerUID:       "owner",
		NotificationID: "notif-1",
		Quantity:       100,
	}
}

func bothUsers() *fakeUsers {
	return &fakeUsers{users: map[string]*domain.User{
		"owner":     userWithIP("owner", "10.0.0.1"),
		"requester": userWithIP("requester", "10.0.0.2"),
	}}
}

func TestDurationFor(t *testing.T) {
	assert.Equal(t, 5*time.Second, DurationFor(100))
	assert.Equal(t, 10*time.Second, DurationFor(200))
	assert.Equal(t, 2500*time.Millisecond, DurationFor(50))
}

func TestExecute_FullProtocol(t *testing.T) {
	lock := &fakeLock{}
	devices := &fakeDevices{}
	notifications := &fakeNotifications{}
	c := newTestCoordinator(lock, devices, bothUsers(), notifications)

	tr, err := c.Execute(context.Background(), transferRequest())
	require.NoError(t, err)
	require.NotNil(t, tr)
	<-tr.Done()

	assert.Equal(t, 5*time.Second, tr.Duration)

	// sender before receiver on both start and stop
	assert.Equal(t, []string{
		"send:10.0.0.1:5",
		"recv:10.0.0.2",
		"stop-send:10.0.0.1",
		"stop-recv:10.0.0.2",
	}, devices.callList())

	assert.Equal(t, []string{"notif-1"}, notifications.deletedIDs())
	assert.False(t, lock.isHeld(), "lock must be released after completion")
	assert.Equal(t, 1, lock.releases)
}

func TestExecute_BusyLockAbortsWithoutSideEffects(t *testing.T) {
	lock := &fakeLock{held: true}
	devices := &fakeDevices{}
	notifications := &fakeNotifications{}
	c := newTestCoordinator(lock, devices, bothUsers(), notifications)

	_, err := c.Execute(context.Background(), transferRequest())
	assert.ErrorIs(t, err, motorlock.ErrLockBusy)

	assert.Empty(t, devices.callList())
	assert.Empty(t, notifications.deletedIDs())
	assert.True(t, lock.isHeld(), "a busy lock belongs to someone else and must not be cleared")
	assert.Equal(t, 0, lock.releases)
}

func TestExecute_UnresolvedSenderReleasesLock(t *testing.T) {
	lock := &fakeLock{}
	devices := &fakeDevices{}
	users := &fakeUsers{users: map[string]*domain.User{
		"requester": userWithIP("requester", "10.0.0.2"),
		// owner has no record at all
	}}
	c := newTestCoordinator(lock, devices, users, &fakeNotifications{})

	_, err := c.Execute(context.Background(), transferRequest())
	assert.ErrorIs(t, err, ErrEndpointUnresolved)
	assert.False(t, lock.isHeld())
	assert.Empty(t, devices.callList())
}

func TestExecute_UserWithoutAddressReleasesLock(t *testing.T) {
	lock := &fakeLock{}
	users := &fakeUsers{users: map[string]*domain.User{
		"owner":     userWithIP("owner", "10.0.0.1"),
		"requester": userWithIP("requester", ""), // registered, no controller yet
	}}
	c := newTestCoordinator(lock, &fakeDevices{}, users, &fakeNotifications{})

	_, err := c.Execute(context.Background(), transferRequest())
	assert.ErrorIs(t, err, ErrEndpointUnresolved)
	assert.False(t, lock.isHeld())
}

func TestExecute_StartFailureStillStopsAndReleases(t *testing.T) {
	lock := &fakeLock{}
	devices := &fakeDevices{failStart: true}
	notifications := &fakeNotifications{}
	c := newTestCoordinator(lock, devices, bothUsers(), notifications)

	tr, err := c.Execute(context.Background(), transferRequest())
	require.NoError(t, err, "start failures are warnings, not aborts")
	<-tr.Done()

	calls := devices.callList()
	assert.Contains(t, calls, "stop-send:10.0.0.1")
	assert.Contains(t, calls, "stop-recv:10.0.0.2")
	assert.False(t, lock.isHeld())
	assert.Equal(t, []string{"notif-1"}, notifications.deletedIDs())
}

func TestExecute_InvalidQuantity(t *testing.T) {
	lock := &fakeLock{}
	c := newTestCoordinator(lock, &fakeDevices{}, bothUsers(), &fakeNotifications{})

	req := transferRequest()
	req.Quantity = 0
	_, err := c.Execute(context.Background(), req)
	assert.Error(t, err)
	assert.Equal(t, 0, lock.acquires)
}

func TestExecute_SecondTransferAfterFirstCompletes(t *testing.T) {
	lock := &fakeLock{}
	c := newTestCoordinator(lock, &fakeDevices{}, bothUsers(), &fakeNotifications{})

	tr1, err := c.Execute(context.Background(), transferRequest())
	require.NoError(t, err)
	<-tr1.Done()

	tr2, err := c.Execute(context.Background(), transferRequest())
	require.NoError(t, err)
	<-tr2.Done()

	assert.Equal(t, 2, lock.acquires)
	assert.Equal(t, 2, lock.releases)
	assert.False(t, lock.isHeld())
}

func TestExecute_TimedStopRunsOnRealTimer(t *testing.T) {
	lock := &fakeLock{}
	devices := &fakeDevices{}
	c := NewCoordinator(lock, bothUsers(), devices, &fakeNotifications{}, zap.NewNop())

	req := transferRequest()
	req.Quantity = 0.2 // 10 ms of pumping

	// caller's context is cancelled right away; the stop must still fire
	ctx, cancel := context.WithCancel(context.Background())
	tr, err := c.Execute(ctx, req)
	require.NoError(t, err)
	cancel()

	select {
	case <-tr.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed stop never fired")
	}
	assert.False(t, lock.isHeld())
}

func TestDecline_DeletesNotificationWithoutLock(t *testing.T) {
	lock := &fakeLock{}
	notifications := &fakeNotifications{}
	c := newTestCoordinator(lock, &fakeDevices{}, bothUsers(), notifications)

	require.NoError(t, c.Decline(context.Background(), "notif-9"))

	assert.Equal(t, []string{"notif-9"}, notifications.deletedIDs())
	assert.Equal(t, 0, lock.acquires)
	assert.Equal(t, 0, lock.releases)
}

func TestDecline_EmptyNotificationIDIsNoop(t *testing.T) {
	notifications := &fakeNotifications{}
	c := newTestCoordinator(&fakeLock{}, &fakeDevices{}, bothUsers(), notifications)

	require.NoError(t, c.Decline(context.Background(), ""))
	assert.Empty(t, notifications.deletedIDs())
}
