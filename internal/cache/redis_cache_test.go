package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	c, err := New("redis://"+s.Addr(), ttl)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return c, s
}

func TestNewCache(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	c, err := New("redis://"+s.Addr(), time.Second)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestSetAndGet(t *testing.T) {
	c, s := setupTestCache(t, time.Minute)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	payload := []byte(`{"people":["Ana"]}`)

	if err := c.Set(ctx, "matrix", payload); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := c.Get(ctx, "matrix")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("expected payload %s, got %s", payload, got)
	}
}

func TestGetMiss(t *testing.T) {
	c, s := setupTestCache(t, time.Minute)
	defer c.Close()
	defer s.Close()

	_, err := c.Get(context.Background(), "absent")
	if !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss, got %v", err)
	}
}

func TestEntriesExpire(t *testing.T) {
	c, s := setupTestCache(t, 10*time.Millisecond)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "matrix", []byte("payload")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Fast-forward time in miniredis past the TTL
	s.FastForward(20 * time.Millisecond)

	_, err := c.Get(ctx, "matrix")
	if !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss after TTL, got %v", err)
	}
}

func TestInvalidateDropsAllEntries(t *testing.T) {
	c, s := setupTestCache(t, time.Minute)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	for _, name := range []string{"matrix", "grid:Ana", "grid:Bo"} {
		if err := c.Set(ctx, name, []byte("payload")); err != nil {
			t.Fatalf("Set %s failed: %v", name, err)
		}
	}

	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	for _, name := range []string{"matrix", "grid:Ana", "grid:Bo"} {
		if _, err := c.Get(ctx, name); !errors.Is(err, ErrMiss) {
			t.Errorf("expected %s to be gone, got %v", name, err)
		}
	}
}

func TestInvalidateLeavesForeignKeys(t *testing.T) {
	c, s := setupTestCache(t, time.Minute)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "matrix", []byte("payload")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	s.Set("other:key", "kept")

	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	if !s.Exists("other:key") {
		t.Error("keys outside the cache prefix must survive invalidation")
	}
}
