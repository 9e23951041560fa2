package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/i474232898/weather-display/internal/api/http"
	appcore "github.com/i474232898/weather-display/internal/app"
	"github.com/i474232898/weather-display/internal/cache"
	"github.com/i474232898/weather-display/internal/config"
	"github.com/i474232898/weather-display/internal/device"
	"github.com/i474232898/weather-display/internal/location"
	"github.com/i474232898/weather-display/internal/network"
	"github.com/i474232898/weather-display/internal/permission"
	"github.com/i474232898/weather-display/internal/weather"
	"github.com/i474232898/weather-display/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	kv, closeKV, err := openCache(cfg)
	if err != nil {
		log.Fatalf("failed to open %s cache: %v", cfg.CacheBackend, err)
	}
	defer closeKV()
	store := cache.NewStore(kv)

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	client := providers.NewOpenWeatherClient(httpClient, providers.OpenWeatherConfig{
		APIKey:   cfg.OpenWeatherAPIKey,
		BaseURL:  cfg.OpenWeatherBaseURL,
		Units:    cfg.Units,
		Lang:     cfg.Lang,
		Location: cfg.Location(),
		Attempts: cfg.RetryAttempts,
	})

	monitor := network.NewMonitor()
	if cfg.NetworkProbeURL != "" {
		prober := network.NewProber(monitor, httpClient, cfg.NetworkProbeURL, cfg.NetworkProbeInterval)
		if err := prober.Start(); err != nil {
			log.Fatalf("failed to start network prober: %v", err)
		}
		defer prober.Stop()
	}

	source := newDevice(cfg)
	provider := location.NewProvider(source, store, location.Config{
		MemoryTTL:  cfg.LocationMemoryTTL,
		PersistTTL: cfg.LocationPersistTTL,
		Timeout:    cfg.LocationTimeout,
	})

	svc := weather.NewService(store, client, monitor, cfg.Freshness)
	core := appcore.New(store, svc, permission.NewMachine(provider), monitor, appcore.Settings{
		AutoUpdate: cfg.AutoUpdateEnabled,
		Interval:   cfg.AutoUpdateInterval,
	})
	defer core.Stop()

	startCtx, cancelStart := context.WithTimeout(context.Background(), cfg.LocationTimeout+2*cfg.HTTPTimeout)
	if err := core.Start(startCtx); err != nil {
		log.Printf("startup: %v", err)
	}
	cancelStart()

	app := fiber.New(fiber.Config{
		AppName:               "weather-display",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.LocationTimeout + 2*cfg.HTTPTimeout,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-display",
			"online":  monitor.Online(),
		})
	})

	httpapi.RegisterRoutes(app, core)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: listening on :%s (cache=%s)", cfg.Port, cfg.CacheBackend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

func openCache(cfg *config.AppConfig) (cache.KV, func(), error) {
	switch cfg.CacheBackend {
	case config.BackendSQLite:
		kv, err := cache.OpenSQLite(cfg.CacheSQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return kv, closer("sqlite", kv.Close), nil
	case config.BackendPostgres:
		kv, err := cache.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return kv, closer("postgres", kv.Close), nil
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		kv := cache.NewRedisKV(rdb, cfg.RedisPrefix)
		return kv, closer("redis", kv.Close), nil
	default:
		return cache.NewMemoryKV(), func() {}, nil
	}
}

func closer(name string, fn func() error) func() {
	return func() {
		if err := fn(); err != nil {
			log.Printf("error closing %s cache: %v", name, err)
		}
	}
}

func newDevice(cfg *config.AppConfig) location.Source {
	perm, err := device.ParsePermission(cfg.DevicePermission)
	if err != nil {
		log.Fatalf("invalid device config: %v", err)
	}

	static := device.NewStaticSource(perm, cfg.DeviceGPSEnabled, cfg.DeviceLat, cfg.DeviceLon)
	if cfg.DeviceCity == "" || cfg.GeocoderAPIKey == "" {
		return static
	}
	return device.NewGeocodedSource(static, cfg.DeviceCity, cfg.DeviceCountry, device.GoogleLookup(cfg.GeocoderAPIKey))
}
