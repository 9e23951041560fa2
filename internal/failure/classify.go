// Package failure turns typed location and weather failures into what a
// user interface needs: a category, a message, whether retrying can help
// and which action to offer.
package failure

import (
	"context"
	"errors"

	"github.com/i474232898/weather-display/internal/location"
	"github.com/i474232898/weather-display/internal/weather"
)

// Type is the user-facing failure category.
type Type string

const (
	LocationPermission Type = "LOCATION_PERMISSION"
	LocationTimeout    Type = "LOCATION_TIMEOUT"
	GPSDisabled        Type = "GPS_DISABLED"
	APIAuth            Type = "API_AUTH"
	APIRateLimit       Type = "API_RATE_LIMIT"
	APIServer          Type = "API_SERVER"
	NetworkOffline     Type = "NETWORK_OFFLINE"
	NetworkTimeout     Type = "NETWORK_TIMEOUT"
	Unknown            Type = "UNKNOWN"
)

// ActionOpenSettings asks the UI to offer a shortcut to the OS settings.
const ActionOpenSettings = "open_settings"

// Info describes a failure for display.
type Info struct {
	Type        Type   `json:"type"`
	Message     string `json:"message"`
	UserMessage string `json:"userMessage"`
	CanRetry    bool   `json:"canRetry"`
	Action      string `json:"action,omitempty"`
}

// Classify inspects err by type only; nil yields the zero Info.
func Classify(err error) Info {
	if err == nil {
		return Info{}
	}
	msg := err.Error()

	var lf *location.Failure
	if errors.As(err, &lf) {
		switch lf.Kind {
		case location.PermissionDenied:
			return Info{Type: LocationPermission, Message: msg, UserMessage: "Allow location access. You can change this in Settings.", Action: ActionOpenSettings}
		case location.ServiceDisabled:
			return Info{Type: GPSDisabled, Message: msg, UserMessage: "Turn on location services.", Action: ActionOpenSettings}
		case location.TimedOut:
			return Info{Type: LocationTimeout, Message: msg, UserMessage: "Getting your location is taking a while. Please wait.", CanRetry: true}
		default:
			return Info{Type: Unknown, Message: msg, UserMessage: "Could not get your location.", CanRetry: true}
		}
	}

	var wf *weather.FetchFailure
	if errors.As(err, &wf) {
		switch wf.Kind {
		case weather.FailureUnauthorized:
			return Info{Type: APIAuth, Message: msg, UserMessage: "The weather API key is invalid. Check the configuration."}
		case weather.FailureRateLimited:
			return Info{Type: APIRateLimit, Message: msg, UserMessage: "The weather API limit was reached. Please wait."}
		case weather.FailureServer:
			return Info{Type: APIServer, Message: msg, UserMessage: "The weather service had an error. Try again later.", CanRetry: true}
		case weather.FailureTransport:
			if errors.Is(err, context.DeadlineExceeded) {
				return Info{Type: NetworkTimeout, Message: msg, UserMessage: "The connection timed out.", CanRetry: true}
			}
			return Info{Type: NetworkOffline, Message: msg, UserMessage: "Check your internet connection.", CanRetry: true}
		default:
			return Info{Type: Unknown, Message: msg, UserMessage: "Could not get weather data.", CanRetry: true}
		}
	}

	if errors.Is(err, weather.ErrOffline) {
		return Info{Type: NetworkOffline, Message: msg, UserMessage: "Check your internet connection.", CanRetry: true}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Info{Type: NetworkTimeout, Message: msg, UserMessage: "The connection timed out.", CanRetry: true}
	}

	return Info{Type: Unknown, Message: msg, UserMessage: "Something went wrong.", CanRetry: true}
}

// Retryable reports whether retrying err can help. It fits
// retry.Options.ShouldRetry.
func Retryable(err error) bool {
	return Classify(err).CanRetry
}
