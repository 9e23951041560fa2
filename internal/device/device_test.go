package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/i474232898/weather-display/internal/cache"
	"github.com/i474232898/weather-display/internal/location"
)

func TestParsePermission(t *testing.T) {
	for _, s := range []string{"granted", "denied", "prompt"} {
		if _, err := ParsePermission(s); err != nil {
			t.Fatalf("ParsePermission(%q): %v", s, err)
		}
	}
	if _, err := ParsePermission("maybe"); err == nil {
		t.Fatalf("expected error for unknown permission")
	}
}

func TestStaticSourcePromptIsGrantedOnRequest(t *testing.T) {
	s := NewStaticSource(PermissionPrompt, true, 35.68, 139.76)
	ctx := context.Background()

	if ok, _ := s.CheckPermission(ctx); ok {
		t.Fatalf("prompt should not count as granted before a request")
	}
	if ok, _ := s.RequestPermission(ctx); !ok {
		t.Fatalf("request should grant a prompt permission")
	}
	if ok, _ := s.CheckPermission(ctx); !ok {
		t.Fatalf("permission should stay granted")
	}
}

func TestStaticSourceDeniedStaysDenied(t *testing.T) {
	s := NewStaticSource(PermissionDenied, true, 0, 0)
	if ok, _ := s.RequestPermission(context.Background()); ok {
		t.Fatalf("denied permission must not be granted by a request")
	}

	s.SetPermission(PermissionGranted)
	if ok, _ := s.CheckPermission(context.Background()); !ok {
		t.Fatalf("expected granted after settings change")
	}
}

func TestStaticSourceWorksWithProvider(t *testing.T) {
	s := NewStaticSource(PermissionGranted, false, 35.68, 139.76)
	p := location.NewProvider(s, cache.NewStore(cache.NewMemoryKV()), location.DefaultConfig())

	_, err := p.GetCurrentLocation(context.Background(), true)
	if !location.IsKind(err, location.ServiceDisabled) {
		t.Fatalf("expected ServiceDisabled, got %v", err)
	}

	s.SetGPSEnabled(true)
	s.SetPosition(43.06, 141.35)
	c, err := p.GetCurrentLocation(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Latitude != 43.06 || c.Longitude != 141.35 {
		t.Fatalf("position = %+v", c)
	}
}

func TestStaticSourceOpenSettings(t *testing.T) {
	s := NewStaticSource(PermissionDenied, true, 0, 0)
	if err := s.OpenSettings(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.settingsOpens != 1 {
		t.Fatalf("settingsOpens = %d", s.settingsOpens)
	}
}

func TestGeocodedSourceResolvesOnce(t *testing.T) {
	calls := 0
	lookup := func(city, country string) (float64, float64, error) {
		calls++
		if city != "Sapporo" || country != "Japan" {
			t.Errorf("lookup(%q, %q)", city, country)
		}
		return 43.06, 141.35, nil
	}

	g := NewGeocodedSource(NewStaticSource(PermissionGranted, true, 0, 0), "Sapporo", "Japan", lookup)
	for i := 0; i < 3; i++ {
		c, err := g.Position(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Latitude != 43.06 || c.Longitude != 141.35 {
			t.Fatalf("position = %+v", c)
		}
	}
	if calls != 1 {
		t.Fatalf("lookup called %d times, want 1", calls)
	}
}

func TestGeocodedSourceLookupFailure(t *testing.T) {
	fail := true
	lookup := func(string, string) (float64, float64, error) {
		if fail {
			return 0, 0, errors.New("ZERO_RESULTS")
		}
		return 1, 2, nil
	}
	g := NewGeocodedSource(NewStaticSource(PermissionGranted, true, 0, 0), "Nowhere", "", lookup)

	if _, err := g.Position(context.Background()); err == nil {
		t.Fatalf("expected lookup error")
	}

	fail = false
	if c, err := g.Position(context.Background()); err != nil || c.Latitude != 1 {
		t.Fatalf("expected retry to succeed, got %+v, %v", c, err)
	}
}

func TestGeocodedSourceHonoursDeadline(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	lookup := func(string, string) (float64, float64, error) {
		<-block
		return 0, 0, nil
	}
	g := NewGeocodedSource(NewStaticSource(PermissionGranted, true, 0, 0), "Slow", "", lookup)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Position(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
