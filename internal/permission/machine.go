// Package permission tracks location permission and the acquisition of a
// position fix.
package permission

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/i474232898/weather-display/internal/location"
)

// State is the location permission as last observed.
type State string

const (
	StateUnknown State = "unknown"
	StateGranted State = "granted"
	StateDenied  State = "denied"
)

// Phase is the location acquisition progress.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// Status is a point-in-time view of the machine.
type Status struct {
	Permission State                `json:"permission"`
	Phase      Phase                `json:"phase"`
	Location   *location.Coordinate `json:"location,omitempty"`
	// Failure is set while Phase is PhaseFailed.
	Failure *location.Failure `json:"-"`
}

// Locator is the subset of location.Provider the machine drives.
type Locator interface {
	Initialize(ctx context.Context)
	Cached() (location.Coordinate, bool)
	CheckPermission(ctx context.Context) bool
	RequestPermission(ctx context.Context) bool
	GetCurrentLocation(ctx context.Context, forceRefresh bool) (location.Coordinate, error)
	OpenSettings(ctx context.Context) error
}

// Machine owns the permission state and the current location. It never
// swallows a failure: every operation that fails returns it.
type Machine struct {
	loc Locator

	mu        sync.Mutex
	status    Status
	listeners []func(Status)
}

func NewMachine(loc Locator) *Machine {
	return &Machine{
		loc:    loc,
		status: Status{Permission: StateUnknown, Phase: PhaseIdle},
	}
}

// Status returns a copy of the current status.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Location returns the held location, if any.
func (m *Machine) Location() (location.Coordinate, bool) {
	s := m.Status()
	if s.Location == nil {
		return location.Coordinate{}, false
	}
	return *s.Location, true
}

// Subscribe registers fn to be called after every status change.
func (m *Machine) Subscribe(fn func(Status)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Start restores the persisted fix, checks permission and, when granted,
// fetches a location. A denied permission fails with PermissionDenied
// without asking the device for a position.
func (m *Machine) Start(ctx context.Context) error {
	m.loc.Initialize(ctx)
	if c, ok := m.loc.Cached(); ok {
		m.update(func(s *Status) {
			s.Location = &c
			s.Phase = PhaseReady
		})
	}

	if !m.loc.CheckPermission(ctx) {
		return m.deny()
	}

	m.update(func(s *Status) { s.Permission = StateGranted })
	_, err := m.fetch(ctx, false)
	return err
}

// RequestPermission re-checks the OS permission, prompts only if it is still
// missing, and fetches a location once granted.
func (m *Machine) RequestPermission(ctx context.Context) (bool, error) {
	granted := m.loc.CheckPermission(ctx)
	if !granted {
		granted = m.loc.RequestPermission(ctx)
	}
	if !granted {
		return false, m.deny()
	}

	m.update(func(s *Status) { s.Permission = StateGranted })
	_, err := m.fetch(ctx, false)
	return true, err
}

// Resume re-checks permission after the app returns to the foreground. A
// newly granted permission with no location held triggers a fetch.
func (m *Machine) Resume(ctx context.Context) error {
	prev := m.Status()
	granted := m.loc.CheckPermission(ctx)

	if !granted {
		if prev.Permission != StateDenied {
			log.Printf("permission: location permission revoked while in background")
		}
		m.update(func(s *Status) { s.Permission = StateDenied })
		return nil
	}

	m.update(func(s *Status) { s.Permission = StateGranted })
	if prev.Permission != StateGranted && prev.Location == nil {
		_, err := m.fetch(ctx, false)
		return err
	}
	return nil
}

// RefreshLocation always asks the device for a new fix.
func (m *Machine) RefreshLocation(ctx context.Context) (location.Coordinate, error) {
	return m.fetch(ctx, true)
}

// OpenSettings sends the user to the OS location settings.
func (m *Machine) OpenSettings(ctx context.Context) error {
	return m.loc.OpenSettings(ctx)
}

func (m *Machine) deny() error {
	f := &location.Failure{Kind: location.PermissionDenied, Message: "location permission not granted"}
	m.update(func(s *Status) {
		s.Permission = StateDenied
		s.Phase = PhaseFailed
		s.Failure = f
	})
	return f
}

func (m *Machine) fetch(ctx context.Context, force bool) (location.Coordinate, error) {
	m.update(func(s *Status) {
		s.Phase = PhaseLoading
		s.Failure = nil
	})

	c, err := m.loc.GetCurrentLocation(ctx, force)
	if err != nil {
		f := toFailure(err)
		log.Printf("permission: location fetch failed: %v", f)
		m.update(func(s *Status) {
			s.Phase = PhaseFailed
			s.Failure = f
			// Covers revocation between the permission check and the fetch.
			if f.Kind == location.PermissionDenied {
				s.Permission = StateDenied
			}
		})
		return location.Coordinate{}, f
	}

	m.update(func(s *Status) {
		s.Phase = PhaseReady
		s.Location = &c
		s.Failure = nil
		s.Permission = StateGranted
	})
	return c, nil
}

func (m *Machine) update(fn func(*Status)) {
	m.mu.Lock()
	fn(&m.status)
	snapshot := m.status
	listeners := append([]func(Status){}, m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func toFailure(err error) *location.Failure {
	var f *location.Failure
	if errors.As(err, &f) {
		return f
	}
	return &location.Failure{Kind: location.Unknown, Message: "failed to get location", Err: err}
}
