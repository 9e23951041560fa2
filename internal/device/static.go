// Package device provides location.Source implementations for running the
// weather core outside a phone: a configurable static device and one whose
// position comes from geocoding a city.
package device

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/i474232898/weather-display/internal/location"
)

// Permission is the simulated OS permission state.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	// PermissionPrompt is granted on the next request.
	PermissionPrompt Permission = "prompt"
)

// ParsePermission validates a configured permission value.
func ParsePermission(s string) (Permission, error) {
	switch p := Permission(s); p {
	case PermissionGranted, PermissionDenied, PermissionPrompt:
		return p, nil
	default:
		return "", fmt.Errorf("invalid device permission %q", s)
	}
}

// StaticSource is a device whose permission, GPS switch and position are
// set from configuration or the API.
type StaticSource struct {
	mu            sync.RWMutex
	permission    Permission
	gpsEnabled    bool
	lat, lon      float64
	settingsOpens int
	now           func() time.Time
}

func NewStaticSource(permission Permission, gpsEnabled bool, lat, lon float64) *StaticSource {
	return &StaticSource{
		permission: permission,
		gpsEnabled: gpsEnabled,
		lat:        lat,
		lon:        lon,
		now:        time.Now,
	}
}

func (s *StaticSource) CheckPermission(context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permission == PermissionGranted, nil
}

// RequestPermission grants a prompt permission; a denied one stays denied
// until changed in settings.
func (s *StaticSource) RequestPermission(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permission == PermissionPrompt {
		s.permission = PermissionGranted
		log.Println("device: location permission granted by user")
	}
	return s.permission == PermissionGranted, nil
}

func (s *StaticSource) ServiceEnabled(context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gpsEnabled, nil
}

func (s *StaticSource) Position(ctx context.Context) (location.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return location.Coordinate{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return location.Coordinate{Latitude: s.lat, Longitude: s.lon, Timestamp: s.now().UTC()}, nil
}

// OpenSettings has no screen to show; it records and logs the request.
func (s *StaticSource) OpenSettings(context.Context) error {
	s.mu.Lock()
	s.settingsOpens++
	s.mu.Unlock()
	log.Println("INFO: device: user sent to location settings")
	return nil
}

// Snapshot is the current device configuration.
type Snapshot struct {
	Permission Permission `json:"permission"`
	GPSEnabled bool       `json:"gpsEnabled"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
}

func (s *StaticSource) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Permission: s.permission, GPSEnabled: s.gpsEnabled, Latitude: s.lat, Longitude: s.lon}
}

func (s *StaticSource) SetPermission(p Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permission = p
}

func (s *StaticSource) SetGPSEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gpsEnabled = enabled
}

func (s *StaticSource) SetPosition(lat, lon float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lat, s.lon = lat, lon
}
