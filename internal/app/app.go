// Package app holds the explicitly constructed components of the weather
// core and the flows that span them.
package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/i474232898/weather-display/internal/cache"
	"github.com/i474232898/weather-display/internal/network"
	"github.com/i474232898/weather-display/internal/permission"
	"github.com/i474232898/weather-display/internal/scheduler"
	"github.com/i474232898/weather-display/internal/weather"
)

// ErrNoLocation is returned when weather is requested before any location
// is known.
var ErrNoLocation = errors.New("no location available")

// Settings are the user preferences persisted under cache.SettingsKey.
type Settings struct {
	AutoUpdate bool          `json:"autoUpdate"`
	Interval   time.Duration `json:"interval"`
}

// AutoUpdateStatus describes the auto-update preference and timer.
type AutoUpdateStatus struct {
	Enabled    bool      `json:"enabled"`
	Active     bool      `json:"active"`
	Interval   string    `json:"interval"`
	IsUpdating bool      `json:"isUpdating"`
	LastUpdate time.Time `json:"lastUpdate,omitempty"`
	NextUpdate time.Time `json:"nextUpdate,omitempty"`
}

// App wires the cache, orchestrator, permission machine, network monitor and
// auto-updater together.
type App struct {
	store    *cache.Store
	weather  *weather.Service
	location *permission.Machine
	network  *network.Monitor
	updater  *scheduler.AutoUpdater

	listenerTimeout time.Duration

	mu       sync.Mutex
	settings Settings
	latest   *weather.Result
}

// New builds the App. defaults apply until a persisted Settings is loaded
// by Start.
func New(store *cache.Store, svc *weather.Service, machine *permission.Machine, monitor *network.Monitor, defaults Settings) *App {
	if defaults.Interval <= 0 {
		defaults.Interval = scheduler.DefaultInterval
	}

	a := &App{
		store:    store,
		weather:  svc,
		location: machine,
		network:  monitor,
		settings: defaults,

		listenerTimeout: scheduler.RunTimeout,
	}
	a.updater = scheduler.New(a.autoRefresh, defaults.Interval)

	machine.Subscribe(func(permission.Status) { a.syncFromListener() })
	monitor.Subscribe(func(network.Status) { a.syncFromListener() })
	return a
}

// Start restores settings, runs the permission/location start-up and loads
// weather for whatever location is held. Location failures are returned
// even when cached weather could be shown.
func (a *App) Start(ctx context.Context) error {
	if entry, ok := cache.Get[Settings](ctx, a.store, cache.SettingsKey); ok {
		a.mu.Lock()
		a.settings = entry.Payload
		a.mu.Unlock()
		a.updater.SetInterval(ctx, entry.Payload.Interval)
		log.Printf("INFO: app: restored settings autoUpdate=%t interval=%s", entry.Payload.AutoUpdate, entry.Payload.Interval)
	}

	locErr := a.location.Start(ctx)
	if locErr != nil {
		log.Printf("app: location start-up failed: %v", locErr)
	}
	a.syncAutoUpdate(ctx)

	if _, ok := a.location.Location(); !ok {
		return locErr
	}
	if _, err := a.Weather(ctx); err != nil && locErr == nil {
		return err
	}
	return locErr
}

// Stop cancels the auto-update timer.
func (a *App) Stop() {
	a.updater.Stop()
}

// Weather returns weather for the held location through the freshness
// tiers. Without a location it falls back to whatever snapshot is cached.
func (a *App) Weather(ctx context.Context) (weather.Result, error) {
	c, ok := a.location.Location()
	if !ok {
		if res, ok := a.weather.Cached(ctx); ok {
			return res, nil
		}
		return weather.Result{}, ErrNoLocation
	}
	return a.fetch(ctx, c.Latitude, c.Longitude, false)
}

// WeatherAt returns weather for an explicit coordinate.
func (a *App) WeatherAt(ctx context.Context, lat, lon float64, force bool) (weather.Result, error) {
	return a.fetch(ctx, lat, lon, force)
}

// Latest is the last result handed out, if any.
func (a *App) Latest() (weather.Result, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.latest == nil {
		return weather.Result{}, false
	}
	return *a.latest, true
}

// Refresh is the user-initiated refresh. With a location only weather is
// force-refreshed; without one the location is refreshed first. It is not
// subject to the auto-update in-flight guard.
func (a *App) Refresh(ctx context.Context) (weather.Result, error) {
	c, ok := a.location.Location()
	if !ok {
		var err error
		c, err = a.location.RefreshLocation(ctx)
		if err != nil {
			return weather.Result{}, err
		}
	}
	return a.fetch(ctx, c.Latitude, c.Longitude, true)
}

// RefreshLocation forces a new position fix.
func (a *App) RefreshLocation(ctx context.Context) (permission.Status, error) {
	_, err := a.location.RefreshLocation(ctx)
	return a.location.Status(), err
}

// RequestPermission asks for location permission and, once a location is
// held, loads weather for it.
func (a *App) RequestPermission(ctx context.Context) (permission.Status, error) {
	granted, err := a.location.RequestPermission(ctx)
	if err != nil || !granted {
		return a.location.Status(), err
	}
	if _, ok := a.location.Location(); ok {
		if _, err := a.Weather(ctx); err != nil {
			log.Printf("app: weather after permission grant failed: %v", err)
		}
	}
	return a.location.Status(), nil
}

func (a *App) OpenSettings(ctx context.Context) error {
	return a.location.OpenSettings(ctx)
}

func (a *App) LocationStatus() permission.Status {
	return a.location.Status()
}

func (a *App) NetworkStatus() network.Status {
	return a.network.Status()
}

// UpdateNetwork feeds a reachability change from the platform.
func (a *App) UpdateNetwork(s network.Status) {
	a.network.Update(s)
}

// OnAppState handles a lifecycle transition: permission is re-checked on
// resume and the auto-updater gets a chance to run a due update.
func (a *App) OnAppState(ctx context.Context, state scheduler.AppState) error {
	var err error
	if state == scheduler.AppActive {
		err = a.location.Resume(ctx)
	}
	a.updater.OnAppState(ctx, state)
	return err
}

func (a *App) Settings() Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// SetAutoUpdate persists the preference and re-evaluates the timer. A zero
// interval keeps the current one.
func (a *App) SetAutoUpdate(ctx context.Context, enabled bool, interval time.Duration) Settings {
	a.mu.Lock()
	a.settings.AutoUpdate = enabled
	if interval > 0 {
		a.settings.Interval = interval
	}
	s := a.settings
	a.mu.Unlock()

	cache.Set(ctx, a.store, cache.SettingsKey, s)
	a.updater.SetInterval(ctx, s.Interval)
	a.syncAutoUpdate(ctx)
	return s
}

func (a *App) AutoUpdateStatus() AutoUpdateStatus {
	s := a.Settings()
	return AutoUpdateStatus{
		Enabled:    s.AutoUpdate,
		Active:     a.updater.Enabled(),
		Interval:   a.updater.Interval().String(),
		IsUpdating: a.updater.IsUpdating(),
		LastUpdate: a.updater.LastUpdate(),
		NextUpdate: a.updater.NextUpdate(),
	}
}

// ClearCache drops every cached entry, keeps the user's settings, and
// reloads weather from the API when a location is held.
func (a *App) ClearCache(ctx context.Context) (weather.Result, error) {
	a.store.ClearAll(ctx)
	a.mu.Lock()
	a.latest = nil
	s := a.settings
	a.mu.Unlock()
	cache.Set(ctx, a.store, cache.SettingsKey, s)

	c, ok := a.location.Location()
	if !ok {
		return weather.Result{}, ErrNoLocation
	}
	return a.fetch(ctx, c.Latitude, c.Longitude, true)
}

// CacheSize is the approximate number of bytes held by the cache.
func (a *App) CacheSize(ctx context.Context) int {
	return a.store.Size(ctx)
}

func (a *App) fetch(ctx context.Context, lat, lon float64, force bool) (weather.Result, error) {
	res, err := a.weather.GetWeather(ctx, lat, lon, force)
	if err != nil {
		return weather.Result{}, err
	}
	a.mu.Lock()
	a.latest = &res
	a.mu.Unlock()
	return res, nil
}

func (a *App) autoRefresh(ctx context.Context) error {
	c, ok := a.location.Location()
	if !ok {
		return ErrNoLocation
	}
	_, err := a.fetch(ctx, c.Latitude, c.Longitude, false)
	return err
}

// syncFromListener re-evaluates the updater from a state-change callback,
// which has no request context. An update run on enable is bounded like a
// timer-driven one.
func (a *App) syncFromListener() {
	ctx, cancel := context.WithTimeout(context.Background(), a.listenerTimeout)
	defer cancel()
	a.syncAutoUpdate(ctx)
}

// syncAutoUpdate arms the updater only while the user wants it, a location
// is held and the network is up.
func (a *App) syncAutoUpdate(ctx context.Context) {
	_, hasLocation := a.location.Location()
	want := a.Settings().AutoUpdate && hasLocation && a.network.Online()

	switch {
	case want && !a.updater.Enabled():
		a.updater.Enable(ctx)
	case !want && a.updater.Enabled():
		a.updater.Disable()
	}
}
