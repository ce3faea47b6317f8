// Package lookup coordinates a single identifier query: validation,
// cache check, provider cascade, persistence and history logging.
package lookup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/confiabar/confiabar/internal/cnpj"
	"github.com/confiabar/confiabar/internal/domain"
	"github.com/confiabar/confiabar/internal/provider"
)

// ErrInvalidIdentifier is returned before any I/O when the input fails
// validation. Malformed input is a client error, not a lookup attempt,
// so it never reaches the search history.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// CEPProvider resolves postal codes. Single provider, no cascade, no
// cache.
type CEPProvider interface {
	LookupCEP(ctx context.Context, cep string) (*domain.CEPResult, error)
}

// Service is the lookup orchestrator.
type Service struct {
	store   domain.Store
	cache   domain.Cache
	gateway *provider.Gateway
	cep     CEPProvider
	ttl     time.Duration
	logger  *slog.Logger
}

// NewService creates a lookup orchestrator.
func NewService(store domain.Store, cache domain.Cache, gateway *provider.Gateway, cep CEPProvider, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = domain.DefaultRecordTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		cache:   cache,
		gateway: gateway,
		cep:     cep,
		ttl:     ttl,
		logger:  logger,
	}
}

// Lookup resolves a raw identifier to a canonical record. Cache hits
// short-circuit the providers; within the TTL, repeated lookups return
// identical data without re-invoking them.
func (s *Service) Lookup(ctx context.Context, raw string) (*domain.LookupResult, error) {
	identifier := cnpj.Normalize(raw)
	if !cnpj.IsValid(identifier) {
		return nil, ErrInvalidIdentifier
	}

	// A cache-read failure degrades to a miss.
	record, err := s.cache.GetRecord(ctx, identifier)
	if err != nil {
		s.logger.Warn("cache read failed, treating as miss",
			"identifier", identifier, "error", err)
	}
	if record != nil {
		return &domain.LookupResult{Record: record, Origin: domain.OriginCache}, nil
	}

	record, origin, err := s.gateway.Query(ctx, identifier)
	if err != nil {
		s.appendHistory(ctx, &domain.SearchEntry{
			ID:         uuid.NewString(),
			QueryType:  domain.QueryTypeCNPJ,
			Identifier: identifier,
			Success:    false,
			Error:      err.Error(),
			CreatedAt:  time.Now().UTC(),
		})
		return nil, err
	}

	// A cache-write failure must not abort a successful lookup.
	if err := s.cache.SetRecord(ctx, identifier, record, s.ttl); err != nil {
		s.logger.Warn("cache write failed",
			"identifier", identifier, "error", err)
	}

	s.appendHistory(ctx, &domain.SearchEntry{
		ID:         uuid.NewString(),
		QueryType:  domain.QueryTypeCNPJ,
		Identifier: identifier,
		Success:    true,
		TradeName:  record.DisplayName(),
		CreatedAt:  time.Now().UTC(),
	})

	return &domain.LookupResult{Record: record, Origin: origin}, nil
}

// LookupCEP resolves a raw postal code. Single provider, no cache.
// Validation failures skip the history; resolved and failed lookups
// are both logged.
func (s *Service) LookupCEP(ctx context.Context, raw string) (*domain.CEPResult, error) {
	code := cnpj.Normalize(raw)
	if !cnpj.IsValidCEP(code) {
		return nil, ErrInvalidIdentifier
	}

	result, err := s.cep.LookupCEP(ctx, code)
	if err != nil {
		s.appendHistory(ctx, &domain.SearchEntry{
			ID:         uuid.NewString(),
			QueryType:  domain.QueryTypeCEP,
			Identifier: code,
			Success:    false,
			Error:      err.Error(),
			CreatedAt:  time.Now().UTC(),
		})
		return nil, err
	}

	s.appendHistory(ctx, &domain.SearchEntry{
		ID:         uuid.NewString(),
		QueryType:  domain.QueryTypeCEP,
		Identifier: code,
		Success:    true,
		CreatedAt:  time.Now().UTC(),
	})

	return result, nil
}

// appendHistory logs a search entry; persistence failures degrade to a
// warning.
func (s *Service) appendHistory(ctx context.Context, entry *domain.SearchEntry) {
	if err := s.store.AddSearch(ctx, entry); err != nil {
		s.logger.Warn("failed to append search history",
			"identifier", entry.Identifier, "error", err)
	}
}
