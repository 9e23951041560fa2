package cache

import (
	"context"
	"reflect"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisKV(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	kv := NewRedisKV(client, "device1:")
	defer kv.Close()

	if err := mr.Set("other:key", "x"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := kv.Set(ctx, WeatherKey, "w"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Set(ctx, LocationKey, "l"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if got, _ := mr.Get("device1:" + WeatherKey); got != "w" {
		t.Fatalf("expected prefixed key in redis, got %q", got)
	}

	keys, err := kv.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{LocationKey, WeatherKey}) {
		t.Fatalf("keys = %v", keys)
	}

	if err := kv.Remove(ctx, WeatherKey); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok, err := kv.Get(ctx, WeatherKey); ok || err != nil {
		t.Fatalf("expected miss after remove, ok=%v err=%v", ok, err)
	}
	if !mr.Exists("other:key") {
		t.Fatalf("foreign key must not be touched")
	}
}
