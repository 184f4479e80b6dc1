package forecast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDailyPredictions_ParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predictions", r.URL.Path)
		assert.Equal(t, "user-1", r.URL.Query().Get("uid"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"date":"2026-09-01","predicted_consumption":120.5},
			{"date":"2026-09-02","predicted_consumption":98.0}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	preds, err := client.DailyPredictions(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, preds, 2)

	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), preds[0].Date)
	assert.Equal(t, 120.5, preds[0].Consumption)
	assert.Equal(t, 98.0, preds[1].Consumption)
}

func TestDailyPredictions_MalformedDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"date":"tomorrow","predicted_consumption":10}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	_, err := client.DailyPredictions(context.Background(), "user-1")
	assert.Error(t, err)
}

func TestDailyPredictions_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	_, err := client.DailyPredictions(context.Background(), "user-1")
	assert.Error(t, err)
}

func TestDailyPredictions_EmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	preds, err := client.DailyPredictions(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, preds)
}
