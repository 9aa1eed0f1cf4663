package api

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("redis close: %v", cerr)
		}
	})
	return m, client
}

func TestRedisDeduperAdd(t *testing.T) {
	_, client := newTestRedis(t)
	deduper := NewRedisDeduper(client, time.Minute)
	ctx := context.Background()

	added, err := deduper.Add(ctx, "user", "v1:k1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !added {
		t.Fatal("expected key to be added")
	}

	added, err = deduper.Add(ctx, "user", "v1:k1")
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if added {
		t.Fatal("expected duplicate on second call")
	}

	if err := deduper.Remove(ctx, "user", "v1:k1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	added, err = deduper.Add(ctx, "user", "v1:k1")
	if err != nil {
		t.Fatalf("add after remove: %v", err)
	}
	if !added {
		t.Fatal("expected key to be accepted again after remove")
	}
}

func TestRedisDeduperKeyNamespacing(t *testing.T) {
	m, client := newTestRedis(t)
	deduper := NewRedisDeduper(client, time.Minute)
	ctx := context.Background()

	if _, err := deduper.Add(ctx, "alice", "k"); err != nil {
		t.Fatalf("add: %v", err)
	}
	added, err := deduper.Add(ctx, "bob", "k")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !added {
		t.Fatal("keys must be scoped per user")
	}

	key := "alice:" + dedupeKeyPrefix + ":k"
	if !m.Exists(key) {
		t.Fatalf("expected key %q to exist", key)
	}
	if ttl := m.TTL(key); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl: %v", ttl)
	}
}
