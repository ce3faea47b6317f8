// Package worker provides async processing of store mutation events.
package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/confiabar/confiabar/internal/domain"
)

// mutationTopics are the events that invalidate the aggregate stats.
var mutationTopics = []string{
	domain.TopicReportCreated,
	domain.TopicReportDeleted,
	domain.TopicPenaltyCreated,
}

// StatsWorker recomputes the aggregate stats snapshot whenever a report
// or penalty mutation event arrives, keeping reads of /stats cheap.
type StatsWorker struct {
	bus   domain.EventBus
	store domain.Store

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewStatsWorker creates a stats worker.
func NewStatsWorker(bus domain.EventBus, store domain.Store) *StatsWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &StatsWorker{
		bus:    bus,
		store:  store,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to every mutation topic.
func (w *StatsWorker) Start() error {
	for _, topic := range mutationTopics {
		sub, err := w.bus.Subscribe(w.ctx, topic, w.handleMutation)
		if err != nil {
			return err
		}
		w.subscriptions = append(w.subscriptions, sub)
	}

	slog.Info("stats worker started",
		"topic_count", len(w.subscriptions),
	)
	return nil
}

// handleMutation recomputes and persists the aggregate stats.
func (w *StatsWorker) handleMutation(ctx context.Context, msg *domain.Message) error {
	stats, err := w.store.RefreshStats(ctx)
	if err != nil {
		slog.Error("failed to refresh aggregate stats",
			"topic", msg.Topic,
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	slog.Debug("aggregate stats refreshed",
		"topic", msg.Topic,
		"total_reports", stats.TotalReports,
		"total_penalties", stats.TotalPenalties,
	)
	return nil
}

// Stop gracefully stops the worker.
func (w *StatsWorker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("stats worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *StatsWorker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
