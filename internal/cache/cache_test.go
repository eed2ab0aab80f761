package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type manualTime struct {
	mu  sync.Mutex
	now time.Time
}

func (m *manualTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualTime) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func exerciseCache(t *testing.T, c Cache, expire func(time.Duration)) {
	t.Helper()
	ctx := context.Background()

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	if err := c.Set(ctx, "k", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := c.Get(ctx, "k")
	if err != nil || string(v) != "v1" {
		t.Fatalf("Get = %q, %v", v, err)
	}
	if ok, _ := c.Exists(ctx, "k"); !ok {
		t.Fatalf("key should exist")
	}

	calls := 0
	compute := func() ([]byte, error) {
		calls++
		return []byte("computed"), nil
	}
	v, _ = c.GetOrSet(ctx, "lazy", time.Minute, compute)
	v2, _ := c.GetOrSet(ctx, "lazy", time.Minute, compute)
	if string(v) != "computed" || string(v2) != "computed" || calls != 1 {
		t.Fatalf("GetOrSet computed %d times (%q, %q)", calls, v, v2)
	}

	expire(2 * time.Minute)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expiry, got %v", err)
	}

	c.Set(ctx, "a", []byte("1"), time.Minute)
	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := c.Exists(ctx, "a"); ok {
		t.Fatalf("deleted key still exists")
	}

	c.Set(ctx, "b", []byte("1"), time.Minute)
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if ok, _ := c.Exists(ctx, "b"); ok {
		t.Fatalf("Clear left keys behind")
	}
}

func TestMemoryCache(t *testing.T) {
	clock := &manualTime{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := newMemoryCache(clock.Now, time.Hour)
	defer c.Close()

	exerciseCache(t, c, clock.Advance)
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	buf := []byte("abc")
	c.Set(ctx, "k", buf, time.Minute)
	buf[0] = 'x'
	v, _ := c.Get(ctx, "k")
	if string(v) != "abc" {
		t.Fatalf("cache aliased caller buffer: %q", v)
	}
	c.Close()
	c.Close()
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisCacheWithClient(client, "test")
	exerciseCache(t, c, mr.FastForward)

	// Keys outside the prefix survive Clear.
	client.Set(context.Background(), "other", "x", 0)
	if err := c.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if !mr.Exists("other") {
		t.Fatalf("Clear removed a foreign key")
	}
}
