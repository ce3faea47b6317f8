package provider

import (
	"context"
	"log/slog"

	"github.com/confiabar/confiabar/internal/domain"
)

// Provider fetches one establishment record from a single upstream
// registry.
type Provider interface {
	ID() string
	Fetch(ctx context.Context, identifier string) (*domain.CanonicalRecord, error)
}

// Gateway runs the provider cascade: providers are tried in order and
// the first success wins. Every failure is remembered so a total
// outage can report per-provider reasons.
type Gateway struct {
	providers []Provider
	logger    *slog.Logger
}

// NewGateway creates a cascade over the given providers. Order matters.
func NewGateway(logger *slog.Logger, providers ...Provider) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{providers: providers, logger: logger}
}

// Query tries each provider in turn and returns the first successful
// record together with the id of the provider that produced it. When
// every provider fails the result is a *CascadeError listing each
// attempt.
func (g *Gateway) Query(ctx context.Context, identifier string) (*domain.CanonicalRecord, string, error) {
	attempts := make([]Attempt, 0, len(g.providers))
	for _, p := range g.providers {
		record, err := p.Fetch(ctx, identifier)
		if err == nil {
			return record, p.ID(), nil
		}
		g.logger.Warn("provider attempt failed",
			"provider", p.ID(),
			"identifier", identifier,
			"error", err)
		attempts = append(attempts, Attempt{Provider: p.ID(), Err: err})

		if ctx.Err() != nil {
			break
		}
	}
	return nil, "", &CascadeError{Attempts: attempts}
}
