package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"aquaflow/internal/consumer"
	"aquaflow/internal/domain"
	"aquaflow/internal/redisx"
	"aquaflow/internal/repository"
	"aquaflow/internal/watercalc"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DevicePoller reads the raw distance straight from a tank controller.
type DevicePoller interface {
	WaterLevel(ctx context.Context, ip string) (int, error)
}

// LevelRefresher periodically recomputes every tank's smoothed volume from
// stored readings. The MQTT consumer keeps levels fresh for tanks that are
// publishing; this job covers tanks that have gone quiet, so the cache and
// the users table never serve values older than one refresh interval plus
// the cache TTL. A tank with no stored readings at all is polled directly
// over its controller's HTTP API when a poller is configured.
type LevelRefresher struct {
	users           repository.UsersRepo
	telemetry       repository.TelemetryRepo
	cache           redisx.KV
	poller          DevicePoller
	smoothingWindow int
	logger          *zap.Logger

	cron *cron.Cron
}

func NewLevelRefresher(
	users repository.UsersRepo,
	telemetry repository.TelemetryRepo,
	cache redisx.KV,
	poller DevicePoller,
	smoothingWindow int,
	logger *zap.Logger,
) *LevelRefresher {
	if smoothingWindow <= 0 {
		smoothingWindow = 1
	}
	return &LevelRefresher{
		users:           users,
		telemetry:       telemetry,
		cache:           cache,
		poller:          poller,
		smoothingWindow: smoothingWindow,
		logger:          logger,
		cron:            cron.New(),
	}
}

// Start schedules the refresh at the given cron spec and runs the scheduler.
func (l *LevelRefresher) Start(spec string) error {
	_, err := l.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := l.RefreshAll(ctx); err != nil {
			l.logger.Error("Level refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule level refresh %q: %w", spec, err)
	}
	l.cron.Start()
	l.logger.Info("Level refresher started", zap.String("spec", spec))
	return nil
}

// Stop halts the scheduler and waits for a running refresh to finish.
func (l *LevelRefresher) Stop() {
	<-l.cron.Stop().Done()
}

// RefreshAll recomputes and stores the volume for every known tank. A
// failure on one tank is logged and the rest still refresh.
func (l *LevelRefresher) RefreshAll(ctx context.Context) error {
	uids, err := l.users.ListUIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tanks: %w", err)
	}

	for _, uid := range uids {
		if err := l.refreshOne(ctx, uid); err != nil {
			l.logger.Warn("Failed to refresh tank level",
				zap.String("uid", uid),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (l *LevelRefresher) refreshOne(ctx context.Context, uid string) error {
	readings, err := l.telemetry.Latest(ctx, uid, l.smoothingWindow)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		readings, err = l.pollDevice(ctx, uid)
		if err != nil {
			return err
		}
		if len(readings) == 0 {
			return nil
		}
	}

	distances := make([]float64, 0, len(readings))
	for _, reading := range readings {
		distances = append(distances, reading.Distance)
	}
	mean := watercalc.MeanDistance(distances)
	volume := watercalc.VolumeFromDistance(mean)

	if err := l.users.UpdateWaterLevel(ctx, uid, mean); err != nil {
		return err
	}
	return l.cache.Set(ctx, consumer.VolumeCacheKey(uid),
		strconv.FormatFloat(volume, 'f', 2, 64), 10*time.Minute)
}

// pollDevice reads the distance straight from the tank controller when
// nothing has been stored yet. The polled value is persisted so the next
// refresh finds it in the usual path. Tanks without a controller address
// stay skipped.
func (l *LevelRefresher) pollDevice(ctx context.Context, uid string) ([]domain.TankReading, error) {
	if l.poller == nil {
		return nil, nil
	}
	user, err := l.users.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IP.Valid {
		return nil, nil
	}

	level, err := l.poller.WaterLevel(ctx, user.IP.String)
	if err != nil {
		return nil, fmt.Errorf("failed to poll tank %s: %w", uid, err)
	}

	reading := domain.TankReading{
		UID:        uid,
		Distance:   float64(level),
		CapturedAt: time.Now().UTC(),
	}
	if err := l.telemetry.Insert(ctx, &reading); err != nil {
		return nil, err
	}
	l.logger.Info("Polled silent tank over HTTP",
		zap.String("uid", uid),
		zap.Int("distance", level),
	)
	return []domain.TankReading{reading}, nil
}
