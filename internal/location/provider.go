package location

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/i474232898/weather-display/internal/cache"
)

// Config holds the provider's timing policy.
type Config struct {
	// MemoryTTL is how long a fix is served without asking the device.
	MemoryTTL time.Duration
	// PersistTTL is how long a persisted fix is trusted on restore.
	PersistTTL time.Duration
	// Timeout bounds a single device position request.
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MemoryTTL:  5 * time.Minute,
		PersistTTL: 24 * time.Hour,
		Timeout:    15 * time.Second,
	}
}

// Provider wraps a device Source with a short-lived memory cache, a
// persisted last fix and a timeout that degrades to the last known fix.
type Provider struct {
	source Source
	store  *cache.Store
	cfg    Config
	now    func() time.Time

	mu     sync.RWMutex
	last   *Coordinate
	lastAt time.Time
}

func NewProvider(source Source, store *cache.Store, cfg Config) *Provider {
	def := DefaultConfig()
	if cfg.MemoryTTL <= 0 {
		cfg.MemoryTTL = def.MemoryTTL
	}
	if cfg.PersistTTL <= 0 {
		cfg.PersistTTL = def.PersistTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	return &Provider{
		source: source,
		store:  store,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Initialize restores a persisted fix younger than PersistTTL into the
// memory cache, keeping its original timestamp.
func (p *Provider) Initialize(ctx context.Context) {
	entry, ok := cache.Get[Coordinate](ctx, p.store, cache.LocationKey)
	if !ok {
		return
	}
	if !cache.IsFresh(entry.StoredAt, p.cfg.PersistTTL, p.now()) {
		log.Printf("location: persisted fix from %s is too old, ignoring", entry.StoredAt.Format(time.RFC3339))
		return
	}

	c := entry.Payload
	p.mu.Lock()
	p.last = &c
	p.lastAt = entry.StoredAt
	p.mu.Unlock()

	log.Printf("INFO: location: restored fix %.4f,%.4f", c.Latitude, c.Longitude)
}

// CheckPermission reports the current OS permission; errors count as denied.
func (p *Provider) CheckPermission(ctx context.Context) bool {
	granted, err := p.source.CheckPermission(ctx)
	if err != nil {
		log.Printf("location: permission check failed: %v", err)
		return false
	}
	return granted
}

// RequestPermission prompts for permission; errors count as denied.
func (p *Provider) RequestPermission(ctx context.Context) bool {
	granted, err := p.source.RequestPermission(ctx)
	if err != nil {
		log.Printf("location: permission request failed: %v", err)
		return false
	}
	return granted
}

// OpenSettings forwards to the source when it can open the OS settings.
func (p *Provider) OpenSettings(ctx context.Context) error {
	opener, ok := p.source.(SettingsOpener)
	if !ok {
		return errors.New("location: source cannot open settings")
	}
	return opener.OpenSettings(ctx)
}

// Cached returns the last known fix regardless of age.
func (p *Provider) Cached() (Coordinate, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.last == nil {
		return Coordinate{}, false
	}
	return *p.last, true
}

// GetCurrentLocation returns the memory-cached fix when it is younger than
// MemoryTTL and forceRefresh is false. Otherwise it asks the device. A
// device timeout falls back to the last known fix of any age.
func (p *Provider) GetCurrentLocation(ctx context.Context, forceRefresh bool) (Coordinate, error) {
	if !forceRefresh {
		if c, ok := p.freshMemory(); ok {
			return c, nil
		}
	}

	c, err := p.acquire(ctx)
	if err == nil {
		p.remember(ctx, c)
		return c, nil
	}

	if IsKind(err, TimedOut) {
		if last, ok := p.Cached(); ok {
			log.Printf("location: device timed out, reusing fix from %s", last.Timestamp.Format(time.RFC3339))
			return last, nil
		}
	}

	return Coordinate{}, err
}

func (p *Provider) freshMemory() (Coordinate, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.last == nil || !cache.IsFresh(p.lastAt, p.cfg.MemoryTTL, p.now()) {
		return Coordinate{}, false
	}
	return *p.last, true
}

func (p *Provider) acquire(ctx context.Context) (Coordinate, error) {
	granted, err := p.source.CheckPermission(ctx)
	if err != nil {
		return Coordinate{}, newFailure(Unknown, "failed to check location permission", err)
	}
	if !granted {
		return Coordinate{}, newFailure(PermissionDenied, "location permission not granted", nil)
	}

	enabled, err := p.source.ServiceEnabled(ctx)
	if err != nil {
		return Coordinate{}, newFailure(Unknown, "failed to check location service", err)
	}
	if !enabled {
		return Coordinate{}, newFailure(ServiceDisabled, "location service is disabled", nil)
	}

	return p.position(ctx)
}

// position races the device request against cfg.Timeout.
func (p *Provider) position(ctx context.Context) (Coordinate, error) {
	tctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	type result struct {
		c   Coordinate
		err error
	}
	ch := make(chan result, 1)

	go func() {
		c, err := p.source.Position(tctx)
		ch <- result{c: c, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return Coordinate{}, asFailure(r.err)
		}
		if r.c.Timestamp.IsZero() {
			r.c.Timestamp = p.now()
		}
		return r.c, nil
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return Coordinate{}, newFailure(Unknown, "location request cancelled", err)
		}
		return Coordinate{}, newFailure(TimedOut, "location request timed out", tctx.Err())
	}
}

func (p *Provider) remember(ctx context.Context, c Coordinate) {
	p.mu.Lock()
	p.last = &c
	p.lastAt = p.now()
	p.mu.Unlock()

	cache.Set(ctx, p.store, cache.LocationKey, c)
}
