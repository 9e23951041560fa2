package weather

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/i474232898/weather-display/internal/cache"
	"github.com/i474232898/weather-display/internal/platform/obs"
)

// DefaultFreshness is how long a cached snapshot is served without a
// network call.
const DefaultFreshness = 10 * time.Minute

// Result is a snapshot plus where it came from.
type Result struct {
	Snapshot  Snapshot `json:"snapshot"`
	FromCache bool     `json:"fromCache"`
	Stale     bool     `json:"stale"`
	Offline   bool     `json:"offline"`
}

// Service decides, per request, between the fresh cache, a live fetch and
// the stale cache.
type Service struct {
	store     *cache.Store
	client    Client
	reach     Reachability
	freshness time.Duration
	now       func() time.Time
}

// NewService creates a Service. reach may be nil, in which case the network
// is assumed reachable.
func NewService(store *cache.Store, client Client, reach Reachability, freshness time.Duration) *Service {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &Service{
		store:     store,
		client:    client,
		reach:     reach,
		freshness: freshness,
		now:       time.Now,
	}
}

// GetWeather returns weather for the coordinate. It only fails, with
// ErrNoData, when the live fetch fails and nothing is cached. A cached
// snapshot for another place is never served as fresh.
func (s *Service) GetWeather(ctx context.Context, lat, lon float64, forceRefresh bool) (_ Result, err error) {
	ctx = obs.WithRequestID(ctx)
	defer obs.Time(ctx, "weather.GetWeather")(&err)

	if !forceRefresh {
		entry, ok := cache.Get[Snapshot](ctx, s.store, cache.WeatherKey)
		if ok && cache.IsFresh(entry.StoredAt, s.freshness, s.now()) && entry.Payload.Location.Near(lat, lon) {
			return Result{Snapshot: entry.Payload, FromCache: true}, nil
		}
	}

	// Reachability only labels the outcome; the live fetch is always tried.
	offline := s.reach != nil && !s.reach.Online()

	snap, err := s.fetchLive(ctx, lat, lon)
	if err != nil {
		log.Printf("weather: live fetch failed for %.4f,%.4f: %v", lat, lon, err)
		if offline {
			err = fmt.Errorf("%w: %w", ErrOffline, err)
		}
		return s.fallback(ctx, offline || IsFailureKind(err, FailureTransport), err)
	}

	cache.Set(ctx, s.store, cache.WeatherKey, snap)
	return Result{Snapshot: snap}, nil
}

// Cached returns the persisted snapshot of any age without touching the
// network.
func (s *Service) Cached(ctx context.Context) (Result, bool) {
	entry, ok := cache.Get[Snapshot](ctx, s.store, cache.WeatherKey)
	if !ok {
		return Result{}, false
	}
	return Result{
		Snapshot:  entry.Payload,
		FromCache: true,
		Stale:     !cache.IsFresh(entry.StoredAt, s.freshness, s.now()),
	}, true
}

// Clear drops the persisted snapshot.
func (s *Service) Clear(ctx context.Context) {
	s.store.Clear(ctx, cache.WeatherKey)
}

// fallback serves whatever snapshot is persisted, re-read so a write that
// landed during the failed fetch is picked up.
func (s *Service) fallback(ctx context.Context, offline bool, cause error) (Result, error) {
	entry, ok := cache.Get[Snapshot](ctx, s.store, cache.WeatherKey)
	if !ok {
		return Result{}, fmt.Errorf("%w: %w", ErrNoData, cause)
	}
	return Result{
		Snapshot:  entry.Payload,
		FromCache: true,
		Stale:     true,
		Offline:   offline,
	}, nil
}

// fetchLive fetches today and tomorrow concurrently; either failing fails
// both.
func (s *Service) fetchLive(ctx context.Context, lat, lon float64) (Snapshot, error) {
	var (
		today    DailyWeather
		tomorrow NextDayWeather
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard(func() error {
		t, err := s.client.FetchToday(gctx, lat, lon)
		if err != nil {
			return err
		}
		today = t
		return nil
	}))
	g.Go(guard(func() error {
		t, err := s.client.FetchTomorrow(gctx, lat, lon)
		if err != nil {
			return err
		}
		tomorrow = t
		return nil
	}))

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Location:  Location{Lat: lat, Lon: lon},
		Today:     today,
		Tomorrow:  tomorrow,
		FetchedAt: s.now().UTC(),
	}
	if err := snap.validate(); err != nil {
		return Snapshot{}, fmt.Errorf("assemble snapshot: %w", err)
	}
	return snap, nil
}

// guard turns a panic inside fn into an error.
func guard(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("unexpected panic: %v", r)
			}
		}()
		return fn()
	}
}
