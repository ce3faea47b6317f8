package worker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/confiabar/confiabar/internal/bus"
	"github.com/confiabar/confiabar/internal/domain"
	"github.com/confiabar/confiabar/internal/store"
)

func newTestStore(t *testing.T) domain.Store {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "confiabar-worker-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	s, err := store.New(domain.StoreConfig{Driver: "sqlite", SQLitePath: tmpPath})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStatsWorker(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	s := newTestStore(t)
	ctx := context.Background()

	w := NewStatsWorker(eventBus, s)

	t.Run("StartAndStop", func(t *testing.T) {
		if err := w.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		stats := w.GetStats()
		if stats.SubscriptionCount != 3 {
			t.Errorf("expected 3 subscriptions, got %d", stats.SubscriptionCount)
		}

		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}

		stats = w.GetStats()
		if stats.SubscriptionCount != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", stats.SubscriptionCount)
		}
	})

	t.Run("RefreshOnMutationEvent", func(t *testing.T) {
		w := NewStatsWorker(eventBus, s)
		if err := w.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		// Allow subscriptions to be active
		time.Sleep(50 * time.Millisecond)

		err := s.SaveReport(ctx, &domain.UserReport{
			ID:          uuid.NewString(),
			Identifier:  "11222333000181",
			Cleanliness: 4,
			CreatedAt:   time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("SaveReport failed: %v", err)
		}

		if err := eventBus.Publish(ctx, domain.TopicReportCreated, []byte(`{}`)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		// Wait for async processing
		deadline := time.Now().Add(2 * time.Second)
		for {
			stats, err := s.GetStats(ctx)
			if err != nil {
				t.Fatalf("GetStats failed: %v", err)
			}
			if stats.TotalReports == 1 {
				if stats.TotalEstablishments != 1 {
					t.Errorf("TotalEstablishments = %d, want 1", stats.TotalEstablishments)
				}
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("stats never refreshed: %+v", stats)
			}
			time.Sleep(20 * time.Millisecond)
		}
	})
}
