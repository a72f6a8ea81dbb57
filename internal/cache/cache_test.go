package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC)
	c := NewMemory()
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "availability:2026-02-05", []byte(`["10:00 AM"]`), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	val, ok, err := c.Get(ctx, "availability:2026-02-05")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(val) != `["10:00 AM"]` {
		t.Fatalf("unexpected value: %s", val)
	}

	now = now.Add(time.Minute)
	if _, ok, _ := c.Get(ctx, "availability:2026-02-05"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestMemoryCacheDeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	_ = c.Set(ctx, "availability:2026-02-05", []byte("a"), 0)
	_ = c.Set(ctx, "availability:2026-02-06", []byte("b"), 0)
	_ = c.Set(ctx, "offerings", []byte("c"), 0)

	if err := c.DeletePrefix(ctx, "availability:"); err != nil {
		t.Fatalf("DeletePrefix error: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "availability:2026-02-06"); ok {
		t.Fatalf("expected prefix entries removed")
	}
	if _, ok, _ := c.Get(ctx, "offerings"); !ok {
		t.Fatalf("expected unrelated entry kept")
	}
}

func TestNoopCacheNeverHits(t *testing.T) {
	ctx := context.Background()
	c := NewNoop()
	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("noop cache must never hit")
	}
}
