package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aquaflow/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubNotificationsRepo struct {
	byUser map[string][]domain.Notification
	err    error
}

func (s *stubNotificationsRepo) Create(ctx context.Context, n *domain.Notification) error {
	return nil
}

func (s *stubNotificationsRepo) Delete(ctx context.Context, notificationID string) error {
	return nil
}

func (s *stubNotificationsRepo) ListByUser(ctx context.Context, uid string) ([]domain.Notification, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byUser[uid], nil
}

func newNotificationsServer(t *testing.T, repo *stubNotificationsRepo) *httptest.Server {
	t.Helper()
	router := NewRouter(zap.NewNop())
	router.RegisterUserRoutes(NewNotificationsHandler(repo, zap.NewNop()))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestListNotifications(t *testing.T) {
	repo := &stubNotificationsRepo{byUser: map[string][]domain.Notification{
		"user-1": {
			{NotificationID: "n-1", UID: "user-1", Title: "Water request", CreatedAt: time.Now().UTC()},
			{NotificationID: "n-2", UID: "user-1", Title: "Water request accepted", CreatedAt: time.Now().UTC()},
		},
	}}
	server := newNotificationsServer(t, repo)

	resp, err := http.Get(server.URL + "/api/v1/users/user-1/notifications")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeResult(t, resp)
	var listed []domain.Notification
	require.NoError(t, json.Unmarshal(result.Result, &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "n-1", listed[0].NotificationID)
}

func TestListNotifications_UnknownUserIsEmpty(t *testing.T) {
	server := newNotificationsServer(t, &stubNotificationsRepo{})

	resp, err := http.Get(server.URL + "/api/v1/users/nobody/notifications")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeResult(t, resp)
	assert.Equal(t, ResultSuccess, result.Code)
}

func TestListNotifications_StorageError(t *testing.T) {
	server := newNotificationsServer(t, &stubNotificationsRepo{err: errors.New("db down")})

	resp, err := http.Get(server.URL + "/api/v1/users/user-1/notifications")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestListNotifications_RouteShape(t *testing.T) {
	server := newNotificationsServer(t, &stubNotificationsRepo{})

	resp, err := http.Post(server.URL+"/api/v1/users/user-1/notifications", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/v1/users/user-1/settings")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type stubBroker struct {
	connected bool
}

func (s *stubBroker) IsConnected() bool { return s.connected }

func TestHealthz_ReportsBrokerStatus(t *testing.T) {
	router := NewRouter(zap.NewNop())
	router.RegisterHealthz(nil, &stubBroker{connected: true})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeResult(t, resp)
	var status map[string]string
	require.NoError(t, json.Unmarshal(result.Result, &status))
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, "connected", status["mqtt"])
}

func TestHealthz_NoBrokerConfigured(t *testing.T) {
	router := NewRouter(zap.NewNop())
	router.RegisterHealthz(nil, nil)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeResult(t, resp)
	var status map[string]string
	require.NoError(t, json.Unmarshal(result.Result, &status))
	assert.Equal(t, "ok", status["status"])
	_, present := status["mqtt"]
	assert.False(t, present)
}
