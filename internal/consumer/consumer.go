// Package consumer ingests sensor readings published by tank controllers
// over MQTT. Distance readings keep the derived water level fresh: each
// reading is stored, the user's latest distance is updated, and a smoothed
// volume is cached for the read path. Quality samples (pH and turbidity)
// feed the filter health calculation.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"aquaflow/internal/domain"
	"aquaflow/internal/redisx"
	"aquaflow/internal/repository"
	"aquaflow/internal/watercalc"

	"go.uber.org/zap"
)

const volumeCacheTTL = 10 * time.Minute

// VolumeCacheKey cache key for the smoothed volume of one tank
func VolumeCacheKey(uid string) string {
	return "tank:" + uid + ":volume"
}

// TelemetryConsumer processes inbound distance and quality messages.
type TelemetryConsumer struct {
	telemetry       repository.TelemetryRepo
	users           repository.UsersRepo
	filters         repository.FilterRepo
	cache           redisx.KV
	smoothingWindow int
	logger          *zap.Logger
}

func NewTelemetryConsumer(
	telemetry repository.TelemetryRepo,
	users repository.UsersRepo,
	filters repository.FilterRepo,
	cache redisx.KV,
	smoothingWindow int,
	logger *zap.Logger,
) *TelemetryConsumer {
	if smoothingWindow <= 0 {
		smoothingWindow = 1
	}
	return &TelemetryConsumer{
		telemetry:       telemetry,
		users:           users,
		filters:         filters,
		cache:           cache,
		smoothingWindow: smoothingWindow,
		logger:          logger,
	}
}

// HandleMessage is the MQTT handler for the distance topic filter
// (tank/+/distance). The payload is the raw sensor distance in cm.
func (c *TelemetryConsumer) HandleMessage(topic string, payload []byte) error {
	uid, err := uidFromTopic(topic, "distance")
	if err != nil {
		return err
	}

	distance, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if err != nil {
		return fmt.Errorf("invalid distance payload %q on topic %s: %w", payload, topic, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reading := &domain.TankReading{
		UID:        uid,
		Distance:   distance,
		CapturedAt: time.Now().UTC(),
	}
	if err := c.telemetry.Insert(ctx, reading); err != nil {
		return fmt.Errorf("failed to store reading for %s: %w", uid, err)
	}

	if err := c.users.UpdateWaterLevel(ctx, uid, distance); err != nil {
		c.logger.Warn("Failed to update user water level",
			zap.String("uid", uid),
			zap.Error(err),
		)
	}

	if err := c.refreshVolumeCache(ctx, uid); err != nil {
		c.logger.Warn("Failed to refresh volume cache",
			zap.String("uid", uid),
			zap.Error(err),
		)
	}

	c.logger.Debug("Stored tank reading",
		zap.String("uid", uid),
		zap.Float64("distance", distance),
	)
	return nil
}

// refreshVolumeCache recomputes the smoothed volume from the most recent
// readings and writes it through to the cache.
func (c *TelemetryConsumer) refreshVolumeCache(ctx context.Context, uid string) error {
	readings, err := c.telemetry.Latest(ctx, uid, c.smoothingWindow)
	if err != nil {
		return err
	}

	distances := make([]float64, 0, len(readings))
	for _, r := range readings {
		distances = append(distances, r.Distance)
	}
	volume := watercalc.VolumeFromDistance(watercalc.MeanDistance(distances))

	value := strconv.FormatFloat(volume, 'f', 2, 64)
	return c.cache.Set(ctx, VolumeCacheKey(uid), value, volumeCacheTTL)
}

// qualitySample wire format published by the water-quality sensor
type qualitySample struct {
	PH        float64 `json:"ph"`
	Turbidity float64 `json:"turbidity"`
}

// HandleQualityMessage is the MQTT handler for the quality topic filter
// (tank/+/quality). The payload is a JSON pH/turbidity pair; stored samples
// feed the filter health endpoint.
func (c *TelemetryConsumer) HandleQualityMessage(topic string, payload []byte) error {
	uid, err := uidFromTopic(topic, "quality")
	if err != nil {
		return err
	}

	var sample qualitySample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return fmt.Errorf("invalid quality payload on topic %s: %w", topic, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reading := &domain.FilterReading{
		UID:        uid,
		PH:         sample.PH,
		Turbidity:  sample.Turbidity,
		CapturedAt: time.Now().UTC(),
	}
	if err := c.filters.InsertReading(ctx, reading); err != nil {
		return fmt.Errorf("failed to store quality sample for %s: %w", uid, err)
	}

	c.logger.Debug("Stored quality sample",
		zap.String("uid", uid),
		zap.Float64("ph", sample.PH),
		zap.Float64("turbidity", sample.Turbidity),
	)
	return nil
}

// uidFromTopic extracts the tank id from "tank/{uid}/{leaf}".
func uidFromTopic(topic, leaf string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "tank" || parts[2] != leaf || parts[1] == "" {
		return "", fmt.Errorf("unexpected telemetry topic %q", topic)
	}
	return parts[1], nil
}
