// Package network tracks whether the device can reach the internet.
package network

import (
	"log"
	"sync"
)

// Status mirrors the reachability signal pushed by the platform.
type Status struct {
	Connected bool `json:"isConnected"`
	// InternetReachable is nil while the platform has not decided yet.
	InternetReachable *bool  `json:"isInternetReachable"`
	Type              string `json:"type"`
}

// Online reports whether the status allows network calls. An undecided
// reachability counts as reachable.
func (s Status) Online() bool {
	if !s.Connected {
		return false
	}
	return s.InternetReachable == nil || *s.InternetReachable
}

// Monitor holds the latest Status and fans changes out to subscribers.
type Monitor struct {
	mu        sync.RWMutex
	status    Status
	listeners []func(Status)
}

// NewMonitor starts optimistic: connected, reachability unknown.
func NewMonitor() *Monitor {
	return &Monitor{status: Status{Connected: true, Type: "unknown"}}
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Online implements weather.Reachability.
func (m *Monitor) Online() bool {
	return m.Status().Online()
}

// Update records a new status. Subscribers are only called when the
// online state flips.
func (m *Monitor) Update(s Status) {
	m.mu.Lock()
	prev := m.status
	m.status = s
	listeners := append([]func(Status){}, m.listeners...)
	m.mu.Unlock()

	if prev.Online() == s.Online() {
		return
	}

	log.Printf("network: status changed connected=%t online=%t type=%s", s.Connected, s.Online(), s.Type)
	for _, l := range listeners {
		l(s)
	}
}

// Subscribe registers fn for online/offline transitions.
func (m *Monitor) Subscribe(fn func(Status)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}
