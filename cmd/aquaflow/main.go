package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aquaflow/internal/config"
	"aquaflow/internal/consumer"
	"aquaflow/internal/database"
	"aquaflow/internal/device"
	"aquaflow/internal/forecast"
	"aquaflow/internal/httpapi"
	"aquaflow/internal/lifecycle"
	"aquaflow/internal/logger"
	"aquaflow/internal/motorlock"
	"aquaflow/internal/mqttx"
	"aquaflow/internal/notify"
	"aquaflow/internal/redisx"
	"aquaflow/internal/repository"
	"aquaflow/internal/service"
	"aquaflow/internal/transfer"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "aquaflow")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	redisClient := redisx.NewClient(&cfg.Redis)
	defer redisClient.Close()
	if err := redisx.Ping(context.Background(), redisClient); err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	kv := redisx.NewRedisKV(redisClient)

	// repositories
	requestsRepo := repository.NewPostgresWaterRequestsRepo(db, log)
	usersRepo := repository.NewPostgresUsersRepo(db, log)
	telemetryRepo := repository.NewPostgresTelemetryRepo(db, log)
	filterRepo := repository.NewPostgresFilterRepo(db, log)
	notificationsRepo := repository.NewPostgresNotificationsRepo(db, log)

	// domain services
	lock := motorlock.New(redisClient, time.Duration(cfg.Lock.TTLSeconds)*time.Second, log)
	devices := device.NewClient(cfg.Devices.Port, time.Duration(cfg.Devices.TimeoutSeconds)*time.Second, log)
	coordinator := transfer.NewCoordinator(lock, usersRepo, devices, notificationsRepo, log)
	lifecycleManager := lifecycle.NewManager(requestsRepo, log)
	notifier := notify.NewNotifier(notificationsRepo, usersRepo, notify.NewPushClient(cfg.Push.Endpoint, log), log)
	forecastClient := forecast.NewClient(cfg.Forecast.BaseURL, log)

	// telemetry ingest
	telemetryConsumer := consumer.NewTelemetryConsumer(
		telemetryRepo, usersRepo, filterRepo, kv, cfg.Telemetry.SmoothingWindow, log)

	var mqttClient *mqttx.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqttx.NewClient(&cfg.MQTT, log)
		if err != nil {
			log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		defer mqttClient.Disconnect()
		if err := mqttClient.Subscribe(cfg.MQTT.Topic, cfg.MQTT.QoS, telemetryConsumer.HandleMessage); err != nil {
			log.Fatal("Failed to subscribe to telemetry topic", zap.Error(err))
		}
		if err := mqttClient.Subscribe(cfg.MQTT.QualityTopic, cfg.MQTT.QoS, telemetryConsumer.HandleQualityMessage); err != nil {
			log.Fatal("Failed to subscribe to quality topic", zap.Error(err))
		}
		log.Info("Subscribed to sensor topics",
			zap.String("telemetry", cfg.MQTT.Topic),
			zap.String("quality", cfg.MQTT.QualityTopic),
		)
	}

	// periodic level refresh
	refresher := service.NewLevelRefresher(usersRepo, telemetryRepo, kv, devices, cfg.Telemetry.SmoothingWindow, log)
	if err := refresher.Start(cfg.Telemetry.RefreshSpec); err != nil {
		log.Fatal("Failed to start level refresher", zap.Error(err))
	}
	defer refresher.Stop()

	// HTTP API
	router := httpapi.NewRouter(log)
	router.RegisterRequestRoutes(httpapi.NewRequestsHandler(
		requestsRepo, lifecycleManager, coordinator, notifier, log))
	router.RegisterTankRoutes(httpapi.NewTanksHandler(
		kv, telemetryRepo, forecastClient, cfg.Telemetry.SmoothingWindow, consumer.VolumeCacheKey, log))
	router.RegisterFilterRoutes(httpapi.NewFiltersHandler(filterRepo, log))
	router.RegisterUserRoutes(httpapi.NewNotificationsHandler(notificationsRepo, log))
	var broker httpapi.BrokerStatus
	if mqttClient != nil {
		broker = mqttClient
	}
	router.RegisterHealthz(db, broker)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutting down on signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}
