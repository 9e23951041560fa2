package device

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-display/internal/location"
)

// LookupFunc resolves a city to coordinates.
type LookupFunc func(city, country string) (lat, lon float64, err error)

// GoogleLookup returns a LookupFunc backed by the Google geocoding API.
func GoogleLookup(apiKey string) LookupFunc {
	return func(city, country string) (float64, float64, error) {
		geocoder.ApiKey = apiKey
		loc, err := geocoder.Geocoding(geocoder.Address{City: city, Country: country})
		if err != nil {
			return 0, 0, err
		}
		return loc.Latitude, loc.Longitude, nil
	}
}

// GeocodedSource is a StaticSource whose position is resolved from a city
// name on first use.
type GeocodedSource struct {
	*StaticSource

	city    string
	country string
	lookup  LookupFunc

	mu       sync.Mutex
	resolved bool
}

func NewGeocodedSource(base *StaticSource, city, country string, lookup LookupFunc) *GeocodedSource {
	return &GeocodedSource{StaticSource: base, city: city, country: country, lookup: lookup}
}

// Position geocodes the configured city once, then serves the static
// position. A failed lookup is retried on the next call.
func (g *GeocodedSource) Position(ctx context.Context) (location.Coordinate, error) {
	if err := g.resolve(ctx); err != nil {
		return location.Coordinate{}, err
	}
	return g.StaticSource.Position(ctx)
}

func (g *GeocodedSource) resolve(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resolved {
		return nil
	}

	type result struct {
		lat, lon float64
		err      error
	}
	ch := make(chan result, 1)
	go func() {
		lat, lon, err := g.lookup(g.city, g.country)
		ch <- result{lat: lat, lon: lon, err: err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return fmt.Errorf("geocode %s,%s: %w", g.city, g.country, r.err)
		}
		log.Printf("device: resolved %s,%s to %.4f,%.4f", g.city, g.country, r.lat, r.lon)
		g.SetPosition(r.lat, r.lon)
		g.resolved = true
		return nil
	}
}
