package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData is returned when neither the network nor the cache can
	// produce a snapshot.
	ErrNoData = errors.New("no weather data available")
	// ErrNoForecast is returned when a day has no forecast samples.
	ErrNoForecast = errors.New("no forecast samples for requested day")
	// ErrOffline marks a live fetch that failed while the network was
	// reported down.
	ErrOffline = errors.New("network unreachable")
)

// FailureKind classifies a remote fetch failure at its origin.
type FailureKind string

const (
	FailureTransport    FailureKind = "TRANSPORT"
	FailureUnauthorized FailureKind = "UNAUTHORIZED"
	FailureRateLimited  FailureKind = "RATE_LIMITED"
	FailureServer       FailureKind = "SERVER_ERROR"
	FailureUnknown      FailureKind = "UNKNOWN"
)

// FetchFailure is returned by Client implementations.
type FetchFailure struct {
	Kind       FailureKind
	StatusCode int // 0 when no response was received
	Err        error
}

func (f *FetchFailure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("weather fetch %s (status %d): %v", f.Kind, f.StatusCode, f.Err)
	}
	return fmt.Sprintf("weather fetch %s: %v", f.Kind, f.Err)
}

func (f *FetchFailure) Unwrap() error {
	return f.Err
}

// IsFailureKind reports whether err is a *FetchFailure of the given kind.
func IsFailureKind(err error, kind FailureKind) bool {
	var f *FetchFailure
	return errors.As(err, &f) && f.Kind == kind
}
