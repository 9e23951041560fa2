package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingAction struct {
	calls atomic.Int32
	err   error
}

func (a *countingAction) run(context.Context) error {
	a.calls.Add(1)
	return a.err
}

func TestTriggerWhileInFlightIsDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	u := New(func(context.Context) error {
		calls.Add(1)
		close(started)
		<-release
		return nil
	}, time.Hour)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		u.Trigger(context.Background())
	}()

	<-started
	if !u.IsUpdating() {
		t.Fatalf("expected an update in flight")
	}
	if u.Trigger(context.Background()) {
		t.Fatalf("second trigger should be dropped")
	}
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("action ran %d times, want 1", n)
	}
	if u.Runs() != 1 {
		t.Fatalf("runs = %d, want 1", u.Runs())
	}
	if u.IsUpdating() {
		t.Fatalf("in-flight flag not released")
	}
}

func TestEnableRunsWhenNeverUpdated(t *testing.T) {
	a := &countingAction{}
	u := New(a.run, time.Hour)
	defer u.Stop()

	u.Enable(context.Background())

	if n := a.calls.Load(); n != 1 {
		t.Fatalf("action ran %d times, want 1", n)
	}
	if u.LastUpdate().IsZero() {
		t.Fatalf("expected last update to be recorded")
	}
	if !u.Enabled() {
		t.Fatalf("expected enabled")
	}
}

func TestEnableSkipsWhenRecentlyUpdated(t *testing.T) {
	a := &countingAction{}
	u := New(a.run, time.Hour)
	defer u.Stop()
	u.lastUpdate.Store(time.Now().Add(-10 * time.Minute))

	u.Enable(context.Background())

	if n := a.calls.Load(); n != 0 {
		t.Fatalf("action ran %d times, want 0", n)
	}
	if got := u.NextUpdate(); !got.After(time.Now()) {
		t.Fatalf("next update %s should be in the future", got)
	}
}

func TestFailedRunDoesNotAdvanceLastUpdate(t *testing.T) {
	a := &countingAction{err: errors.New("boom")}
	u := New(a.run, time.Hour)

	if !u.Trigger(context.Background()) {
		t.Fatalf("expected trigger to run")
	}
	if !u.LastUpdate().IsZero() {
		t.Fatalf("last update advanced on failure")
	}
}

func TestSetIntervalRechecksDue(t *testing.T) {
	a := &countingAction{}
	u := New(a.run, time.Hour)
	defer u.Stop()
	u.lastUpdate.Store(time.Now().Add(-20 * time.Minute))

	u.Enable(context.Background())
	if n := a.calls.Load(); n != 0 {
		t.Fatalf("action ran %d times before interval change", n)
	}

	u.SetInterval(context.Background(), 15*time.Minute)
	if n := a.calls.Load(); n != 1 {
		t.Fatalf("action ran %d times after interval change, want 1", n)
	}
	if u.Interval() != 15*time.Minute {
		t.Fatalf("interval = %s", u.Interval())
	}
}

func TestOnAppStateResumeRunsWhenDue(t *testing.T) {
	a := &countingAction{}
	u := New(a.run, time.Hour)
	defer u.Stop()
	u.Enable(context.Background())

	base := u.LastUpdate()
	u.now = func() time.Time { return base.Add(30 * time.Minute) }
	u.OnAppState(context.Background(), AppBackground)
	u.OnAppState(context.Background(), AppActive)
	if n := a.calls.Load(); n != 1 {
		t.Fatalf("resume before interval ran action, calls=%d", n)
	}

	u.now = func() time.Time { return base.Add(61 * time.Minute) }
	u.OnAppState(context.Background(), AppInactive)
	u.OnAppState(context.Background(), AppActive)
	if n := a.calls.Load(); n != 2 {
		t.Fatalf("calls = %d, want 2 after due resume", n)
	}
}

func TestOnAppStateIgnoredWhileDisabled(t *testing.T) {
	a := &countingAction{}
	u := New(a.run, time.Hour)

	u.OnAppState(context.Background(), AppBackground)
	u.OnAppState(context.Background(), AppActive)

	if n := a.calls.Load(); n != 0 {
		t.Fatalf("calls = %d, want 0", n)
	}
}

func TestDisableStopsTimer(t *testing.T) {
	a := &countingAction{}
	u := New(a.run, 20*time.Millisecond)
	u.Enable(context.Background())

	deadline := time.Now().Add(3 * time.Second)
	for a.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if a.calls.Load() < 2 {
		t.Fatalf("timer never fired, calls=%d", a.calls.Load())
	}

	u.Disable()
	if !u.NextUpdate().IsZero() {
		t.Fatalf("next update should be zero while disabled")
	}
	time.Sleep(30 * time.Millisecond)
	after := a.calls.Load()
	time.Sleep(100 * time.Millisecond)
	if n := a.calls.Load(); n != after {
		t.Fatalf("action ran after disable: %d -> %d", after, n)
	}
}
