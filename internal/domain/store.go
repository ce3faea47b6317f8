// Package domain defines the core interfaces and types for confiabar.
package domain

import (
	"context"
	"time"
)

// Store defines the interface for durable persistence: community
// reports, penalty complaints, the bounded search history, derived
// aggregate stats and custom alert rules, all on top of a generic
// keyed blob contract.
type Store interface {
	// Generic keyed blob operations.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context) ([]string, error)

	// User reports, append-only per identifier, removable by id.
	SaveReport(ctx context.Context, report *UserReport) error
	ListReports(ctx context.Context, identifier string) ([]*UserReport, error)
	ListAllReports(ctx context.Context) ([]*UserReport, error)
	DeleteReport(ctx context.Context, identifier, reportID string) error
	ReportStats(ctx context.Context, identifier string) (*ReportStats, error)

	// Penalty complaints; the count is the scoring input.
	SavePenalty(ctx context.Context, penalty *PenaltyReport) error
	ListPenalties(ctx context.Context, identifier string) ([]*PenaltyReport, error)
	ListAllPenalties(ctx context.Context) ([]*PenaltyReport, error)
	CountPenalties(ctx context.Context, identifier string) (int, error)

	// Bounded search history, newest first, capped at HistoryLimit.
	AddSearch(ctx context.Context, entry *SearchEntry) error
	ListSearches(ctx context.Context, limit int) ([]*SearchEntry, error)
	ClearSearches(ctx context.Context) error

	// Derived aggregate stats.
	RefreshStats(ctx context.Context) (*AggregateStats, error)
	GetStats(ctx context.Context) (*AggregateStats, error)

	// Custom alert rule configurations.
	SaveAlertRule(ctx context.Context, rule *AlertRuleConfig) error
	ListAlertRules(ctx context.Context) ([]*AlertRuleConfig, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// StoreConfig holds configuration for store initialization.
type StoreConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
