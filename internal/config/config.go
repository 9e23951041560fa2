package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Cache backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type AppConfig struct {
	OpenWeatherAPIKey  string        `env:"OPENWEATHER_API_KEY"`
	OpenWeatherBaseURL string        `env:"OPENWEATHER_BASE_URL" envDefault:"https://api.openweathermap.org/data/2.5"`
	Units              string        `env:"OPENWEATHER_UNITS" envDefault:"metric"`
	Lang               string        `env:"OPENWEATHER_LANG" envDefault:"ja"`
	HTTPTimeout        time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	// RetryAttempts is per weather API request; 1 means no retries.
	RetryAttempts int           `env:"WEATHER_RETRY_ATTEMPTS" envDefault:"1"`
	Freshness     time.Duration `env:"WEATHER_FRESHNESS" envDefault:"10m"`

	LocationMemoryTTL  time.Duration `env:"LOCATION_MEMORY_TTL" envDefault:"5m"`
	LocationPersistTTL time.Duration `env:"LOCATION_PERSIST_TTL" envDefault:"24h"`
	LocationTimeout    time.Duration `env:"LOCATION_TIMEOUT" envDefault:"15s"`

	AutoUpdateEnabled  bool          `env:"AUTO_UPDATE_ENABLED" envDefault:"true"`
	AutoUpdateInterval time.Duration `env:"AUTO_UPDATE_INTERVAL" envDefault:"1h"`

	CacheBackend    string `env:"CACHE_BACKEND" envDefault:"memory"`
	CacheSQLitePath string `env:"CACHE_SQLITE_PATH" envDefault:"weather-cache.db"`
	RedisAddr       string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPrefix     string `env:"REDIS_PREFIX" envDefault:"weather:"`
	DatabaseURL     string `env:"DATABASE_URL"`

	// Simulated device.
	DeviceLat        float64 `env:"DEVICE_LAT" envDefault:"35.6812"`
	DeviceLon        float64 `env:"DEVICE_LON" envDefault:"139.7671"`
	DeviceCity       string  `env:"DEVICE_CITY"`
	DeviceCountry    string  `env:"DEVICE_COUNTRY"`
	GeocoderAPIKey   string  `env:"GEOCODER_API_KEY"`
	DevicePermission string  `env:"DEVICE_PERMISSION" envDefault:"granted"`
	DeviceGPSEnabled bool    `env:"DEVICE_GPS_ENABLED" envDefault:"true"`

	NetworkProbeURL      string        `env:"NETWORK_PROBE_URL"`
	NetworkProbeInterval time.Duration `env:"NETWORK_PROBE_INTERVAL" envDefault:"30s"`

	Timezone string `env:"TIMEZONE" envDefault:"Asia/Tokyo"`
	Port     string `env:"PORT" envDefault:"8080"`
}

// Load reads configuration from .env and the environment.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the components cannot work with.
func (c *AppConfig) Validate() error {
	var errs []error

	positive := map[string]time.Duration{
		"HTTP_TIMEOUT":           c.HTTPTimeout,
		"WEATHER_FRESHNESS":      c.Freshness,
		"LOCATION_MEMORY_TTL":    c.LocationMemoryTTL,
		"LOCATION_PERSIST_TTL":   c.LocationPersistTTL,
		"LOCATION_TIMEOUT":       c.LocationTimeout,
		"AUTO_UPDATE_INTERVAL":   c.AutoUpdateInterval,
		"NETWORK_PROBE_INTERVAL": c.NetworkProbeInterval,
	}
	for key, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", key, d))
		}
	}

	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("WEATHER_RETRY_ATTEMPTS must be at least 1, got %d", c.RetryAttempts))
	}

	switch c.CacheBackend {
	case BackendMemory, BackendRedis:
	case BackendSQLite:
		if c.CacheSQLitePath == "" {
			errs = append(errs, errors.New("CACHE_SQLITE_PATH is required for the sqlite backend"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend))
	}

	switch c.DevicePermission {
	case "granted", "denied", "prompt":
	default:
		errs = append(errs, fmt.Errorf("DEVICE_PERMISSION must be granted, denied or prompt, got %q", c.DevicePermission))
	}

	if c.DeviceLat < -90 || c.DeviceLat > 90 || c.DeviceLon < -180 || c.DeviceLon > 180 {
		errs = append(errs, fmt.Errorf("device coordinate %.4f,%.4f out of range", c.DeviceLat, c.DeviceLon))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE: %w", err))
	}

	return errors.Join(errs...)
}

// Location returns the configured timezone; Validate guarantees it loads.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
