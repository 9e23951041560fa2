package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/atomic"
)

// DefaultInterval is used when no interval is configured.
const DefaultInterval = time.Hour

// RunTimeout bounds a single timer-driven update.
const RunTimeout = time.Minute

// AppState is the application lifecycle state.
type AppState string

const (
	AppActive     AppState = "active"
	AppBackground AppState = "background"
	AppInactive   AppState = "inactive"
)

// Action is the refresh run on every update.
type Action func(ctx context.Context) error

// AutoUpdater runs an Action on an interval while enabled and when the app
// returns to the foreground with an update due. Only one run is in flight at
// a time; triggers arriving during a run are dropped.
type AutoUpdater struct {
	action     Action
	runTimeout time.Duration
	now        func() time.Time

	updating   atomic.Bool
	lastUpdate atomic.Time
	runs       atomic.Int64

	mu        sync.Mutex
	enabled   bool
	interval  time.Duration
	appState  AppState
	scheduler *gocron.Scheduler
}

// New creates a disabled AutoUpdater.
func New(action Action, interval time.Duration) *AutoUpdater {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &AutoUpdater{
		action:     action,
		runTimeout: RunTimeout,
		now:        time.Now,
		interval:   interval,
		appState:   AppActive,
	}
}

// Enable checks whether an update is due, runs one if so, and arms the
// repeating timer.
func (u *AutoUpdater) Enable(ctx context.Context) {
	u.mu.Lock()
	u.enabled = true
	u.armLocked()
	u.mu.Unlock()

	log.Printf("scheduler: auto-update enabled every %s", u.Interval())
	u.RunIfDue(ctx)
}

// Disable cancels the timer. A run already in flight completes.
func (u *AutoUpdater) Disable() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.enabled = false
	u.stopLocked()
	log.Println("scheduler: auto-update disabled")
}

// SetInterval changes the interval, re-arming the timer and checking for a
// due update when enabled.
func (u *AutoUpdater) SetInterval(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}

	u.mu.Lock()
	u.interval = d
	enabled := u.enabled
	if enabled {
		u.armLocked()
	}
	u.mu.Unlock()

	if enabled {
		u.RunIfDue(ctx)
	}
}

// OnAppState records a lifecycle transition. Returning to active from
// background or inactive runs an update if one is due; the timer keeps
// running regardless.
func (u *AutoUpdater) OnAppState(ctx context.Context, state AppState) {
	u.mu.Lock()
	prev := u.appState
	u.appState = state
	enabled := u.enabled
	u.mu.Unlock()

	if enabled && state == AppActive && prev != AppActive {
		log.Printf("scheduler: app became active, checking for due update")
		u.RunIfDue(ctx)
	}
}

// RunIfDue runs an update when none has succeeded yet or the last one is at
// least an interval old.
func (u *AutoUpdater) RunIfDue(ctx context.Context) bool {
	if !u.due() {
		return false
	}
	return u.Trigger(ctx)
}

// Trigger runs the action now unless a run is already in flight, in which
// case it returns false immediately. LastUpdate only advances on success.
func (u *AutoUpdater) Trigger(ctx context.Context) bool {
	if !u.updating.CompareAndSwap(false, true) {
		log.Println("DEBUG: scheduler: update already in flight, dropping trigger")
		return false
	}
	defer u.updating.Store(false)

	u.runs.Inc()
	if err := u.action(ctx); err != nil {
		log.Printf("ERROR: scheduler: auto-update failed: %v", err)
		return true
	}
	u.lastUpdate.Store(u.now())
	return true
}

// Enabled reports whether the timer is armed.
func (u *AutoUpdater) Enabled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.enabled
}

func (u *AutoUpdater) Interval() time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.interval
}

// IsUpdating reports whether a run is in flight.
func (u *AutoUpdater) IsUpdating() bool {
	return u.updating.Load()
}

// Runs is the number of runs started so far.
func (u *AutoUpdater) Runs() int64 {
	return u.runs.Load()
}

// LastUpdate is the time of the last successful run; zero if none.
func (u *AutoUpdater) LastUpdate() time.Time {
	return u.lastUpdate.Load()
}

// NextUpdate is when the next run is due; zero while disabled. Before the
// first successful run it is now.
func (u *AutoUpdater) NextUpdate() time.Time {
	u.mu.Lock()
	enabled, interval := u.enabled, u.interval
	u.mu.Unlock()

	if !enabled {
		return time.Time{}
	}
	last := u.LastUpdate()
	if last.IsZero() {
		return u.now()
	}
	return last.Add(interval)
}

// Stop cancels the timer without changing the enabled flag.
func (u *AutoUpdater) Stop() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.stopLocked()
}

func (u *AutoUpdater) due() bool {
	last := u.LastUpdate()
	if last.IsZero() {
		return true
	}
	return u.now().Sub(last) >= u.Interval()
}

func (u *AutoUpdater) armLocked() {
	u.stopLocked()

	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(u.interval).WaitForSchedule().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), u.runTimeout)
		defer cancel()
		u.Trigger(ctx)
	})
	if err != nil {
		log.Printf("ERROR: scheduler: failed to schedule auto-update: %v", err)
		return
	}

	s.StartAsync()
	u.scheduler = s
}

func (u *AutoUpdater) stopLocked() {
	if u.scheduler != nil {
		u.scheduler.Stop()
		u.scheduler = nil
	}
}
