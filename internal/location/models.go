package location

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Coordinate is a single position fix.
type Coordinate struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// FailureKind classifies why a location could not be produced.
type FailureKind string

const (
	PermissionDenied FailureKind = "PERMISSION_DENIED"
	ServiceDisabled  FailureKind = "SERVICE_DISABLED"
	TimedOut         FailureKind = "TIMEOUT"
	Unknown          FailureKind = "UNKNOWN"
)

// Failure is the typed error returned by the Provider.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("location %s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("location %s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// IsKind reports whether err is a *Failure of the given kind.
func IsKind(err error, kind FailureKind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == kind
}

func newFailure(kind FailureKind, msg string, err error) *Failure {
	return &Failure{Kind: kind, Message: msg, Err: err}
}

// asFailure keeps typed failures and folds everything else into Unknown,
// except deadline errors which count as a timeout.
func asFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newFailure(TimedOut, "location request timed out", err)
	}
	return newFailure(Unknown, "failed to get location", err)
}

// Source is the device permission/position contract.
type Source interface {
	CheckPermission(ctx context.Context) (bool, error)
	RequestPermission(ctx context.Context) (bool, error)
	ServiceEnabled(ctx context.Context) (bool, error)
	Position(ctx context.Context) (Coordinate, error)
}

// SettingsOpener is implemented by sources that can send the user to the
// OS location settings.
type SettingsOpener interface {
	OpenSettings(ctx context.Context) error
}
