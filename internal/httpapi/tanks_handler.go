package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"aquaflow/internal/redisx"
	"aquaflow/internal/repository"
	"aquaflow/internal/watercalc"

	"go.uber.org/zap"
)

// PredictionSource supplies per-day consumption predictions for a tank.
type PredictionSource interface {
	DailyPredictions(ctx context.Context, uid string) ([]watercalc.Prediction, error)
}

// TanksHandler water level and depletion forecast endpoints
type TanksHandler struct {
	cache           redisx.KV
	telemetry       repository.TelemetryRepo
	predictions     PredictionSource
	smoothingWindow int
	volumeKey       func(uid string) string
	logger          *zap.Logger
}

func NewTanksHandler(
	cache redisx.KV,
	telemetry repository.TelemetryRepo,
	predictions PredictionSource,
	smoothingWindow int,
	volumeKey func(uid string) string,
	logger *zap.Logger,
) *TanksHandler {
	if smoothingWindow <= 0 {
		smoothingWindow = 1
	}
	return &TanksHandler{
		cache:           cache,
		telemetry:       telemetry,
		predictions:     predictions,
		smoothingWindow: smoothingWindow,
		volumeKey:       volumeKey,
		logger:          logger,
	}
}

type tankLevelResponse struct {
	UID    string  `json:"uid"`
	Volume float64 `json:"volume"`
}

// Level handles GET /api/v1/tanks/{uid}/level.
func (h *TanksHandler) Level(w http.ResponseWriter, r *http.Request, uid string) {
	volume, err := h.currentVolume(r.Context(), uid)
	if err != nil {
		h.logger.Error("Failed to compute tank volume",
			zap.String("uid", uid),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to compute tank volume"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(tankLevelResponse{UID: uid, Volume: volume}))
}

type tankForecastResponse struct {
	UID    string                    `json:"uid"`
	Volume float64                   `json:"volume"`
	Points []watercalc.ForecastPoint `json:"points"`
}

// Forecast handles GET /api/v1/tanks/{uid}/forecast.
func (h *TanksHandler) Forecast(w http.ResponseWriter, r *http.Request, uid string) {
	volume, err := h.currentVolume(r.Context(), uid)
	if err != nil {
		h.logger.Error("Failed to compute tank volume",
			zap.String("uid", uid),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to compute tank volume"))
		return
	}

	predictions, err := h.predictions.DailyPredictions(r.Context(), uid)
	if err != nil {
		h.logger.Error("Failed to fetch consumption predictions",
			zap.String("uid", uid),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, Fail("forecast service unavailable"))
		return
	}

	points := watercalc.DepletionForecast(volume, predictions)
	writeJSON(w, http.StatusOK, Ok(tankForecastResponse{UID: uid, Volume: volume, Points: points}))
}

// currentVolume prefers the cached smoothed value and falls back to
// recomputing from the latest readings on a miss.
func (h *TanksHandler) currentVolume(ctx context.Context, uid string) (float64, error) {
	if cached, err := h.cache.Get(ctx, h.volumeKey(uid)); err == nil {
		if volume, parseErr := strconv.ParseFloat(cached, 64); parseErr == nil {
			return volume, nil
		}
		h.logger.Warn("Discarding unparseable cached volume", zap.String("uid", uid))
	} else if !errors.Is(err, redisx.ErrCacheMiss) {
		h.logger.Warn("Volume cache read failed, recomputing",
			zap.String("uid", uid),
			zap.Error(err),
		)
	}

	readings, err := h.telemetry.Latest(ctx, uid, h.smoothingWindow)
	if err != nil {
		return 0, err
	}
	distances := make([]float64, 0, len(readings))
	for _, reading := range readings {
		distances = append(distances, reading.Distance)
	}
	return watercalc.VolumeFromDistance(watercalc.MeanDistance(distances)), nil
}
