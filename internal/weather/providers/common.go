package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-display/internal/retry"
	"github.com/i474232898/weather-display/internal/weather"
)

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client *http.Client
	Retry  retry.Options
}

var errNoHTTPClient = errors.New("http client not configured")

type serverError struct{ code int }

func (e serverError) Error() string { return fmt.Sprintf("server error: %d", e.code) }

// doRequestWithResilience executes the request through the circuit breaker,
// retrying transport and 5xx failures with backoff. Any non-2xx response is
// returned as a *weather.FetchFailure with its body closed.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}

	opts := cfg.Retry
	opts.ShouldRetry = retriable

	resp, err := retry.Do(ctx, opts, func(ctx context.Context) (*http.Response, error) {
		req, err := buildRequest(ctx)
		if err != nil {
			return nil, &weather.FetchFailure{Kind: weather.FailureUnknown, Err: err}
		}

		// Only transport errors and 5xx count against the breaker.
		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, serverError{code: resp.StatusCode}
			}
			return resp, nil
		})
		if err != nil {
			return nil, classifyTransport(err)
		}

		resp, ok := result.(*http.Response)
		if !ok {
			return nil, &weather.FetchFailure{Kind: weather.FailureUnknown, Err: fmt.Errorf("unexpected result type from circuit breaker")}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, classifyStatus(resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		var f *weather.FetchFailure
		if !errors.As(err, &f) {
			// retry.Do returns the bare context error when cancelled
			// between attempts.
			err = &weather.FetchFailure{Kind: weather.FailureTransport, Err: err}
		}
		return nil, err
	}
	return resp, nil
}

func classifyTransport(err error) error {
	var se serverError
	if errors.As(err, &se) {
		return &weather.FetchFailure{Kind: weather.FailureServer, StatusCode: se.code, Err: err}
	}
	// Includes gobreaker.ErrOpenState and ErrTooManyRequests: the upstream
	// is treated as unreachable while the breaker is open.
	return &weather.FetchFailure{Kind: weather.FailureTransport, Err: err}
}

func classifyStatus(code int) error {
	err := fmt.Errorf("unexpected status %d", code)
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &weather.FetchFailure{Kind: weather.FailureUnauthorized, StatusCode: code, Err: err}
	case code == http.StatusTooManyRequests:
		return &weather.FetchFailure{Kind: weather.FailureRateLimited, StatusCode: code, Err: err}
	default:
		return &weather.FetchFailure{Kind: weather.FailureUnknown, StatusCode: code, Err: err}
	}
}

func retriable(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	return weather.IsFailureKind(err, weather.FailureTransport) || weather.IsFailureKind(err, weather.FailureServer)
}
