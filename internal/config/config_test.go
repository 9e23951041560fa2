package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", "abc")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.OpenWeatherAPIKey != "abc" {
		t.Fatalf("api key = %q", cfg.OpenWeatherAPIKey)
	}
	if cfg.Freshness != 10*time.Minute || cfg.LocationMemoryTTL != 5*time.Minute ||
		cfg.LocationPersistTTL != 24*time.Hour || cfg.LocationTimeout != 15*time.Second {
		t.Fatalf("unexpected freshness defaults: %+v", cfg)
	}
	if !cfg.AutoUpdateEnabled || cfg.AutoUpdateInterval != time.Hour {
		t.Fatalf("unexpected auto-update defaults: %+v", cfg)
	}
	if cfg.CacheBackend != BackendMemory || cfg.RetryAttempts != 1 || cfg.Port != "8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Location().String() != "UTC" {
		t.Fatalf("location = %s", cfg.Location())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("CACHE_BACKEND", " SQLite ")
	t.Setenv("CACHE_SQLITE_PATH", "/tmp/weather.db")
	t.Setenv("AUTO_UPDATE_INTERVAL", "30m")
	t.Setenv("DEVICE_PERMISSION", "prompt")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CacheBackend != BackendSQLite || cfg.AutoUpdateInterval != 30*time.Minute || cfg.DevicePermission != "prompt" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("CACHE_BACKEND", "postgres")
	t.Setenv("DEVICE_PERMISSION", "sometimes")
	t.Setenv("WEATHER_FRESHNESS", "-1m")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"DATABASE_URL", "DEVICE_PERMISSION", "WEATHER_FRESHNESS"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadRejectsUnparseableDuration(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}
