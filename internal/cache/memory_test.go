package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[int](2, time.Minute)

	c.Set(ctx, "history:1", 1)
	c.Set(ctx, "history:2", 2)
	if v, ok := c.Get(ctx, "history:1"); !ok || v != 1 {
		t.Fatalf("Get(history:1) = %d, %v", v, ok)
	}

	// history:2 was used longest ago.
	c.Set(ctx, "history:3", 3)
	if _, ok := c.Get(ctx, "history:2"); ok {
		t.Fatal("expected history:2 to be evicted")
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}

	c.Set(ctx, "history:1", 10)
	if v, _ := c.Get(ctx, "history:1"); v != 10 {
		t.Fatalf("overwrite: got %d", v)
	}

	c.Delete(ctx, "history:1")
	if _, ok := c.Get(ctx, "history:1"); ok {
		t.Fatal("expected history:1 to be deleted")
	}

	want := Stats{Hits: 2, Misses: 2, Evictions: 1}
	if got := c.Stats(); got != want {
		t.Fatalf("Stats = %+v, want %+v", got, want)
	}
}

func TestMemoryExpiry(t *testing.T) {
	tests := []struct {
		name        string
		ttl         time.Duration
		wantHit     bool
		wantCleaned int
	}{
		{"expires after ttl", time.Minute, false, 1},
		{"zero ttl never expires", 0, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
			c := NewMemory[string](10, tt.ttl)
			c.clock = func() time.Time { return now }

			c.Set(ctx, "k", "v")
			c.Set(ctx, "k2", "v2")
			now = now.Add(2 * time.Minute)

			if _, ok := c.Get(ctx, "k"); ok != tt.wantHit {
				t.Fatalf("Get(k) hit = %v, want %v", ok, tt.wantHit)
			}
			if n := c.CleanExpired(); n != tt.wantCleaned {
				t.Fatalf("CleanExpired = %d, want %d", n, tt.wantCleaned)
			}
			if tt.wantHit && c.Len() != 2 {
				t.Fatalf("Len = %d, want 2", c.Len())
			}
			if !tt.wantHit && (c.Len() != 0 || c.Stats().Expired != 2) {
				t.Fatalf("Len = %d, Stats = %+v", c.Len(), c.Stats())
			}
		})
	}
}

func TestManagerStop(t *testing.T) {
	m := NewManager()
	m.Register(NewMemory[int](1, time.Millisecond))
	m.Register(Noop[int]{}) // not a Cleaner, ignored
	if len(m.caches) != 1 {
		t.Fatalf("registered %d cleaners, want 1", len(m.caches))
	}
	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop() // second stop is a no-op
}

func TestNoop(t *testing.T) {
	var c Cache[int] = Noop[int]{}
	c.Set(context.Background(), "k", 1)
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Fatal("noop cache must always miss")
	}
}
