package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Well-known keys.
const (
	WeatherKey  = "weather_data"
	LocationKey = "last_location"
	SettingsKey = "app_settings"
)

// SchemaVersion is stamped on every entry written by this build. Entries
// carrying any other version are treated as absent and deleted on read.
const SchemaVersion = "1.0.1"

// Entry is the persisted envelope around a cached payload.
type Entry[T any] struct {
	Payload       T         `json:"data"`
	StoredAt      time.Time `json:"timestamp"`
	SchemaVersion string    `json:"version"`
}

// Store is a versioned, timestamped cache over a KV. Every failure is
// absorbed here: reads degrade to a miss and writes are logged and dropped.
type Store struct {
	kv      KV
	version string
	now     func() time.Time
}

// NewStore creates a Store over kv using the current SchemaVersion.
func NewStore(kv KV) *Store {
	return &Store{
		kv:      kv,
		version: SchemaVersion,
		now:     time.Now,
	}
}

// Get loads the entry under key. Missing, unparseable and wrong-version
// entries all report ok=false; a wrong-version entry is also removed.
func Get[T any](ctx context.Context, s *Store, key string) (Entry[T], bool) {
	var zero Entry[T]

	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		log.Printf("cache: get %s failed: %v", key, err)
		return zero, false
	}
	if !ok {
		return zero, false
	}

	var entry Entry[T]
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		log.Printf("cache: ignoring unparseable entry %s: %v", key, err)
		return zero, false
	}

	if entry.SchemaVersion != s.version {
		log.Printf("cache: version mismatch for %s (got %q, want %q), clearing", key, entry.SchemaVersion, s.version)
		s.Clear(ctx, key)
		return zero, false
	}

	return entry, true
}

// Set stores payload under key, stamped with the current time and version.
func Set[T any](ctx context.Context, s *Store, key string, payload T) {
	entry := Entry[T]{
		Payload:       payload,
		StoredAt:      s.now().UTC(),
		SchemaVersion: s.version,
	}

	b, err := json.Marshal(entry)
	if err != nil {
		log.Printf("cache: encode %s failed: %v", key, err)
		return
	}

	if err := s.kv.Set(ctx, key, string(b)); err != nil {
		log.Printf("cache: set %s failed: %v", key, err)
	}
}

// IsFresh reports whether storedAt is younger than maxAge.
func (s *Store) IsFresh(storedAt time.Time, maxAge time.Duration) bool {
	return IsFresh(storedAt, maxAge, s.now())
}

// IsFresh reports whether now-storedAt is strictly less than maxAge.
func IsFresh(storedAt time.Time, maxAge time.Duration, now time.Time) bool {
	return now.Sub(storedAt) < maxAge
}

// Clear removes a single key.
func (s *Store) Clear(ctx context.Context, key string) {
	if err := s.kv.Remove(ctx, key); err != nil {
		log.Printf("cache: clear %s failed: %v", key, err)
	}
}

// ClearAll removes every key held by the underlying KV.
func (s *Store) ClearAll(ctx context.Context) {
	keys, err := s.kv.ListKeys(ctx)
	if err != nil {
		log.Printf("cache: list keys failed: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.kv.RemoveMany(ctx, keys); err != nil {
		log.Printf("cache: clear all failed: %v", err)
		return
	}
	log.Printf("INFO: cache: cleared %d keys", len(keys))
}

// Size returns the approximate number of bytes held across all keys.
func (s *Store) Size(ctx context.Context) int {
	keys, err := s.kv.ListKeys(ctx)
	if err != nil {
		log.Printf("cache: list keys failed: %v", err)
		return 0
	}

	total := 0
	for _, k := range keys {
		v, ok, err := s.kv.Get(ctx, k)
		if err != nil || !ok {
			continue
		}
		total += len(v)
	}
	return total
}
