package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/confiabar/confiabar/internal/domain"
)

func TestLRUCacheBasicOps(t *testing.T) {
	c := NewLRUCache(100)
	defer c.Close()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := c.Get(ctx, "k1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(val) != "v1" {
			t.Errorf("expected v1, got %s", val)
		}
	})

	t.Run("Miss", func(t *testing.T) {
		val, err := c.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil on miss, got %s", val)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		c.Set(ctx, "k1", []byte("v2"), time.Minute)
		val, _ := c.Get(ctx, "k1")
		if string(val) != "v2" {
			t.Errorf("expected v2, got %s", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		c.Set(ctx, "k2", []byte("v"), time.Minute)
		if err := c.Delete(ctx, "k2"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		val, _ := c.Get(ctx, "k2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache(100)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "short", []byte("v"), 10*time.Millisecond)

	val, _ := c.Get(ctx, "short")
	if val == nil {
		t.Fatal("expected value before expiry")
	}

	time.Sleep(20 * time.Millisecond)

	// Expiry is lazy: the read past the TTL drops the entry.
	val, _ = c.Get(ctx, "short")
	if val != nil {
		t.Error("expected nil after expiry")
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache(3)
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute)
	}

	// Touch k0 so k1 becomes the oldest.
	c.Get(ctx, "k0")

	c.Set(ctx, "k3", []byte("v"), time.Minute)

	if val, _ := c.Get(ctx, "k1"); val != nil {
		t.Error("expected k1 to be evicted")
	}
	if val, _ := c.Get(ctx, "k0"); val == nil {
		t.Error("expected k0 to survive")
	}

	size, capacity := c.Stats()
	if size != 3 || capacity != 3 {
		t.Errorf("Stats = (%d, %d), want (3, 3)", size, capacity)
	}
}

func TestLRUCacheRecordRoundTrip(t *testing.T) {
	c := NewLRUCache(100)
	defer c.Close()
	ctx := context.Background()

	record := &domain.CanonicalRecord{
		Identifier: "11222333000181",
		TradeName:  "Bar do Ze",
		LegalName:  "BAR DO ZE LTDA",
		Equity:     50000,
		Founded:    time.Date(2015, 3, 10, 0, 0, 0, 0, time.UTC),
		Status:     "ATIVA",
		Activity:   domain.Activity{Code: "5611201", Text: "Restaurantes e similares"},
	}

	if err := c.SetRecord(ctx, record.Identifier, record, time.Minute); err != nil {
		t.Fatalf("SetRecord failed: %v", err)
	}

	got, err := c.GetRecord(ctx, record.Identifier)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached record")
	}
	if got.TradeName != record.TradeName || got.Equity != record.Equity {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.ActiveStatus() {
		t.Error("expected active status to survive the round trip")
	}

	missing, err := c.GetRecord(ctx, "19131243000197")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for uncached identifier")
	}
}

func TestNewCacheFactory(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 10})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer c.Close()

		if _, ok := c.(*LRUCache); !ok {
			t.Errorf("expected *LRUCache, got %T", c)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := New(domain.CacheConfig{Type: "memcached"})
		if err == nil {
			t.Error("expected error for unsupported cache type")
		}
	})
}
