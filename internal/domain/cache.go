package domain

import (
	"context"
	"time"
)

// Cache defines the interface for the registry lookup cache.
// Supports two-phase caching: local LRU (community) + Redis (pro).
// Expiry is lazy: entries past their TTL are dropped on read.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetRecord retrieves a cached canonical record by identifier.
	GetRecord(ctx context.Context, identifier string) (*CanonicalRecord, error)

	// SetRecord caches a canonical record under its identifier.
	SetRecord(ctx context.Context, identifier string, record *CanonicalRecord, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// RecordTTL bounds how long a cached registry record is served
	// before the providers are consulted again.
	RecordTTL time.Duration

	// Local LRU cache settings (community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}

// DefaultRecordTTL is how long registry records stay fresh when no TTL
// is configured.
const DefaultRecordTTL = 24 * time.Hour
