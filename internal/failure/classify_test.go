package failure

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/i474232898/weather-display/internal/location"
	"github.com/i474232898/weather-display/internal/weather"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		typ      Type
		canRetry bool
		action   string
	}{
		{"permission denied", &location.Failure{Kind: location.PermissionDenied}, LocationPermission, false, ActionOpenSettings},
		{"gps disabled", &location.Failure{Kind: location.ServiceDisabled}, GPSDisabled, false, ActionOpenSettings},
		{"location timeout", &location.Failure{Kind: location.TimedOut}, LocationTimeout, true, ""},
		{"location unknown", &location.Failure{Kind: location.Unknown}, Unknown, true, ""},
		{"unauthorized", &weather.FetchFailure{Kind: weather.FailureUnauthorized, StatusCode: 401}, APIAuth, false, ""},
		{"rate limited", &weather.FetchFailure{Kind: weather.FailureRateLimited, StatusCode: 429}, APIRateLimit, false, ""},
		{"server", &weather.FetchFailure{Kind: weather.FailureServer, StatusCode: 502}, APIServer, true, ""},
		{"transport", &weather.FetchFailure{Kind: weather.FailureTransport, Err: errors.New("connection refused")}, NetworkOffline, true, ""},
		{"transport timeout", &weather.FetchFailure{Kind: weather.FailureTransport, Err: context.DeadlineExceeded}, NetworkTimeout, true, ""},
		{"no data wrapping unauthorized", fmt.Errorf("%w: %w", weather.ErrNoData, &weather.FetchFailure{Kind: weather.FailureUnauthorized}), APIAuth, false, ""},
		{"no data while offline", fmt.Errorf("%w: %w", weather.ErrNoData, weather.ErrOffline), NetworkOffline, true, ""},
		{"plain", errors.New("boom"), Unknown, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Type != tt.typ || got.CanRetry != tt.canRetry || got.Action != tt.action {
				t.Fatalf("Classify() = %+v, want type=%s canRetry=%v action=%q", got, tt.typ, tt.canRetry, tt.action)
			}
			if got.Message == "" || got.UserMessage == "" {
				t.Fatalf("expected messages to be filled: %+v", got)
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != (Info{}) {
		t.Fatalf("Classify(nil) = %+v", got)
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(&location.Failure{Kind: location.PermissionDenied}) {
		t.Fatalf("permission denied must not be retryable")
	}
	if !Retryable(&weather.FetchFailure{Kind: weather.FailureServer}) {
		t.Fatalf("server errors are retryable")
	}
}
