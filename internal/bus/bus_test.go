package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/confiabar/confiabar/internal/domain"
)

func TestChannelBusPublishSubscribe(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()
	ctx := context.Background()

	received := make(chan *domain.Message, 1)
	sub, err := b.Subscribe(ctx, domain.TopicReportCreated, func(ctx context.Context, msg *domain.Message) error {
		received <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	if sub.Topic() != domain.TopicReportCreated {
		t.Errorf("Topic = %q", sub.Topic())
	}

	if err := b.Publish(ctx, domain.TopicReportCreated, []byte(`{"identifier":"11222333000181"}`)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Topic != domain.TopicReportCreated {
			t.Errorf("message Topic = %q", msg.Topic)
		}
		if string(msg.Payload) != `{"identifier":"11222333000181"}` {
			t.Errorf("Payload = %s", msg.Payload)
		}
		if msg.ID == "" {
			t.Error("expected generated message id")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestChannelBusTopicIsolation(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()
	ctx := context.Background()

	var mu sync.Mutex
	var got []string

	for _, topic := range []string{domain.TopicReportCreated, domain.TopicPenaltyCreated} {
		topic := topic
		_, err := b.Subscribe(ctx, topic, func(ctx context.Context, msg *domain.Message) error {
			mu.Lock()
			got = append(got, topic)
			mu.Unlock()
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
	}

	b.Publish(ctx, domain.TopicPenaltyCreated, []byte(`{}`))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != domain.TopicPenaltyCreated {
		t.Errorf("expected only the penalty subscriber to fire, got %v", got)
	}
}

func TestChannelBusClose(t *testing.T) {
	b := NewChannelBus(10)
	ctx := context.Background()

	if err := b.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := b.Ping(ctx); err == nil {
		t.Error("expected Ping to fail after close")
	}
	if err := b.Publish(ctx, domain.TopicReportCreated, nil); err == nil {
		t.Error("expected Publish to fail after close")
	}
	if _, err := b.Subscribe(ctx, domain.TopicReportCreated, nil); err == nil {
		t.Error("expected Subscribe to fail after close")
	}

	// Second close is a no-op.
	if err := b.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestNewBusFactory(t *testing.T) {
	t.Run("Channel", func(t *testing.T) {
		b, err := New(domain.EventBusConfig{Type: "channel"})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer b.Close()

		if _, ok := b.(*ChannelBus); !ok {
			t.Errorf("expected *ChannelBus, got %T", b)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := New(domain.EventBusConfig{Type: "kafka"})
		if err == nil {
			t.Error("expected error for unsupported bus type")
		}
	})
}
