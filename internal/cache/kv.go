package cache

import "context"

// KV is the raw persistent key/value storage the cache store sits on.
// Implementations must be safe for concurrent use; they do not order a Get
// against a concurrent Set.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	RemoveMany(ctx context.Context, keys []string) error
	ListKeys(ctx context.Context) ([]string, error)
}
