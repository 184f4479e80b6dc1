package device

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// startController runs a fake tank controller and returns its ip plus a
// client pointed at its port.
func startController(t *testing.T, handler http.Handler) (string, *Client) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return host, NewClient(port, 2*time.Second, zap.NewNop())
}

func TestStartSending_PostsDuration(t *testing.T) {
	var gotPath string
	var gotBody map[string]float64

	ip, client := startController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))

	err := client.StartSending(context.Background(), ip, 5)
	require.NoError(t, err)

	assert.Equal(t, "/send-water", gotPath)
	assert.Equal(t, 5.0, gotBody["duration"])
}

func TestStopCommands_HitExpectedPaths(t *testing.T) {
	var paths []string
	ip, client := startController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))

	ctx := context.Background()
	require.NoError(t, client.StartReceiving(ctx, ip))
	require.NoError(t, client.StopSending(ctx, ip))
	require.NoError(t, client.StopReceiving(ctx, ip))

	assert.Equal(t, []string{"/receive-water", "/stop-water", "/stop-receive-water"}, paths)
}

func TestWaterLevel_ParsesPlainTextInteger(t *testing.T) {
	ip, client := startController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get-water-level", r.URL.Path)
		w.Write([]byte(" 57 \n"))
	}))

	level, err := client.WaterLevel(context.Background(), ip)
	require.NoError(t, err)
	assert.Equal(t, 57, level)
}

func TestWaterLevel_UnparseableBody(t *testing.T) {
	ip, client := startController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("sensor offline"))
	}))

	_, err := client.WaterLevel(context.Background(), ip)
	assert.Error(t, err)
}

func TestCommands_SurfaceHTTPErrors(t *testing.T) {
	ip, client := startController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	ctx := context.Background()
	assert.Error(t, client.StartSending(ctx, ip, 5))
	assert.Error(t, client.StopSending(ctx, ip))
	_, err := client.WaterLevel(ctx, ip)
	assert.Error(t, err)
}
