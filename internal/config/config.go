package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DatabaseConfig Postgres connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig sensor feed broker settings
type MQTTConfig struct {
	Enabled      bool
	Broker       string
	ClientID     string
	Username     string
	Password     string
	QoS          byte
	Topic        string // distance telemetry topic filter, e.g. "tank/+/distance"
	QualityTopic string // water quality topic filter, e.g. "tank/+/quality"
}

// Config service configuration
type Config struct {
	HTTP struct {
		Addr string
	}

	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// Tank controller endpoints (per-device HTTP API)
	Devices struct {
		Port           int // controllers listen on a fixed port
		TimeoutSeconds int
	}

	// Push notification transport
	Push struct {
		Endpoint string
	}

	// Consumption prediction API
	Forecast struct {
		BaseURL string
	}

	// Motor lock lease. The TTL is a safety net: a crashed holder must not
	// wedge pump actuation forever.
	Lock struct {
		TTLSeconds int
	}

	Telemetry struct {
		SmoothingWindow int    // latest-N readings averaged per tank
		RefreshSpec     string // cron spec for the level refresh job
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from the environment. A .env file is honored
// when present (local development); real deployments set variables directly.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "aquaflow")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "true") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "aquaflow")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "tank/+/distance")
	cfg.MQTT.QualityTopic = getEnv("MQTT_QUALITY_TOPIC", "tank/+/quality")

	cfg.Devices.Port = getEnvInt("DEVICE_PORT", 80)
	cfg.Devices.TimeoutSeconds = getEnvInt("DEVICE_TIMEOUT_SECONDS", 10)

	cfg.Push.Endpoint = getEnv("PUSH_ENDPOINT", "https://exp.host/--/api/v2/push/send")

	cfg.Forecast.BaseURL = getEnv("FORECAST_BASE_URL", "http://localhost:9090")

	cfg.Lock.TTLSeconds = getEnvInt("MOTOR_LOCK_TTL_SECONDS", 300)

	cfg.Telemetry.SmoothingWindow = getEnvInt("TELEMETRY_SMOOTHING_WINDOW", 10)
	cfg.Telemetry.RefreshSpec = getEnv("TELEMETRY_REFRESH_SPEC", "@every 1m")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}
