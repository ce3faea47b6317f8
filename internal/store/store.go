// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/confiabar/confiabar/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// statsKey is where the aggregate stats snapshot lives in the kv table.
const statsKey = "stats:aggregate"

// SQLStore implements domain.Store using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// New creates a new store based on configuration.
func New(cfg domain.StoreConfig) (domain.Store, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	s := &SQLStore{
		db:     db,
		driver: cfg.Driver,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

func (s *SQLStore) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := s.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves a value from the kv table.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_store WHERE key = ?`

	var value string
	err := s.db.QueryRowContext(ctx, s.rebind(query), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

// Set stores a value in the kv table, replacing any previous one.
func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, s.rebind(query), key, string(value), time.Now().UTC())
	return err
}

// Delete removes a key from the kv table.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_store WHERE key = ?`

	result, err := s.db.ExecContext(ctx, s.rebind(query), key)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListKeys returns every key in the kv table.
func (s *SQLStore) ListKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv_store ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// SaveReport stores a user report.
func (s *SQLStore) SaveReport(ctx context.Context, report *domain.UserReport) error {
	if report.Identifier == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidInput)
	}
	if report.Cleanliness < 1 || report.Cleanliness > 5 {
		return fmt.Errorf("%w: cleanliness must be between 1 and 5", ErrInvalidInput)
	}

	query := `
		INSERT INTO reports (
			id, identifier, cleanliness, sealed_bottles,
			invoice_issued, normal_prices, comment, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		report.ID, report.Identifier, report.Cleanliness,
		boolToInt(report.SealedBottles), boolToInt(report.InvoiceIssued),
		boolToInt(report.NormalPrices), report.Comment, report.CreatedAt,
	)
	return err
}

// ListReports retrieves every report for an establishment, newest first.
func (s *SQLStore) ListReports(ctx context.Context, identifier string) ([]*domain.UserReport, error) {
	query := `
		SELECT id, identifier, cleanliness, sealed_bottles,
			   invoice_issued, normal_prices, comment, created_at
		FROM reports
		WHERE identifier = ?
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), identifier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*domain.UserReport
	for rows.Next() {
		var r domain.UserReport
		var sealed, invoice, prices int

		if err := rows.Scan(
			&r.ID, &r.Identifier, &r.Cleanliness,
			&sealed, &invoice, &prices,
			&r.Comment, &r.CreatedAt,
		); err != nil {
			return nil, err
		}

		r.SealedBottles = sealed == 1
		r.InvoiceIssued = invoice == 1
		r.NormalPrices = prices == 1
		reports = append(reports, &r)
	}
	return reports, rows.Err()
}

// ListAllReports retrieves every report across establishments, newest first.
func (s *SQLStore) ListAllReports(ctx context.Context) ([]*domain.UserReport, error) {
	query := `
		SELECT id, identifier, cleanliness, sealed_bottles,
			   invoice_issued, normal_prices, comment, created_at
		FROM reports
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*domain.UserReport
	for rows.Next() {
		var r domain.UserReport
		var sealed, invoice, prices int

		if err := rows.Scan(
			&r.ID, &r.Identifier, &r.Cleanliness,
			&sealed, &invoice, &prices,
			&r.Comment, &r.CreatedAt,
		); err != nil {
			return nil, err
		}

		r.SealedBottles = sealed == 1
		r.InvoiceIssued = invoice == 1
		r.NormalPrices = prices == 1
		reports = append(reports, &r)
	}
	return reports, rows.Err()
}

// DeleteReport removes one report of an establishment by id.
func (s *SQLStore) DeleteReport(ctx context.Context, identifier, reportID string) error {
	query := `DELETE FROM reports WHERE identifier = ? AND id = ?`

	result, err := s.db.ExecContext(ctx, s.rebind(query), identifier, reportID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ReportStats aggregates the reports of one establishment. An
// establishment with no reports yields zero-valued stats, not an error.
func (s *SQLStore) ReportStats(ctx context.Context, identifier string) (*domain.ReportStats, error) {
	query := `
		SELECT COUNT(*),
			   COALESCE(AVG(cleanliness), 0),
			   COALESCE(AVG(sealed_bottles), 0),
			   COALESCE(AVG(invoice_issued), 0),
			   COALESCE(AVG(normal_prices), 0)
		FROM reports
		WHERE identifier = ?
	`

	var total int
	var avgClean, avgSealed, avgInvoice, avgPrices float64

	err := s.db.QueryRowContext(ctx, s.rebind(query), identifier).Scan(
		&total, &avgClean, &avgSealed, &avgInvoice, &avgPrices,
	)
	if err != nil {
		return nil, err
	}

	return &domain.ReportStats{
		Total:            total,
		AvgCleanliness:   math.Round(avgClean*10) / 10,
		PctSealedBottles: int(math.Round(avgSealed * 100)),
		PctInvoiceIssued: int(math.Round(avgInvoice * 100)),
		PctNormalPrices:  int(math.Round(avgPrices * 100)),
	}, nil
}

// SavePenalty stores a penalty complaint.
func (s *SQLStore) SavePenalty(ctx context.Context, penalty *domain.PenaltyReport) error {
	if penalty.Identifier == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO penalties (id, identifier, reason, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		penalty.ID, penalty.Identifier, penalty.Reason, penalty.Comment, penalty.CreatedAt,
	)
	return err
}

// ListPenalties retrieves every penalty for an establishment, newest first.
func (s *SQLStore) ListPenalties(ctx context.Context, identifier string) ([]*domain.PenaltyReport, error) {
	query := `
		SELECT id, identifier, reason, comment, created_at
		FROM penalties
		WHERE identifier = ?
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), identifier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var penalties []*domain.PenaltyReport
	for rows.Next() {
		var p domain.PenaltyReport
		if err := rows.Scan(&p.ID, &p.Identifier, &p.Reason, &p.Comment, &p.CreatedAt); err != nil {
			return nil, err
		}
		penalties = append(penalties, &p)
	}
	return penalties, rows.Err()
}

// ListAllPenalties retrieves every penalty across establishments, newest first.
func (s *SQLStore) ListAllPenalties(ctx context.Context) ([]*domain.PenaltyReport, error) {
	query := `
		SELECT id, identifier, reason, comment, created_at
		FROM penalties
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var penalties []*domain.PenaltyReport
	for rows.Next() {
		var p domain.PenaltyReport
		if err := rows.Scan(&p.ID, &p.Identifier, &p.Reason, &p.Comment, &p.CreatedAt); err != nil {
			return nil, err
		}
		penalties = append(penalties, &p)
	}
	return penalties, rows.Err()
}

// CountPenalties returns the penalty count for an establishment.
func (s *SQLStore) CountPenalties(ctx context.Context, identifier string) (int, error) {
	query := `SELECT COUNT(*) FROM penalties WHERE identifier = ?`

	var count int
	err := s.db.QueryRowContext(ctx, s.rebind(query), identifier).Scan(&count)
	return count, err
}

// AddSearch appends a history entry and evicts the oldest entries past
// the cap.
func (s *SQLStore) AddSearch(ctx context.Context, entry *domain.SearchEntry) error {
	query := `
		INSERT INTO search_history (
			id, query_type, identifier, success, trade_name, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		entry.ID, entry.QueryType, entry.Identifier,
		boolToInt(entry.Success), entry.TradeName, entry.Error, entry.CreatedAt,
	)
	if err != nil {
		return err
	}

	trim := fmt.Sprintf(`
		DELETE FROM search_history
		WHERE id NOT IN (
			SELECT id FROM search_history
			ORDER BY created_at DESC
			LIMIT %d
		)
	`, domain.HistoryLimit)

	_, err = s.db.ExecContext(ctx, trim)
	return err
}

// ListSearches retrieves history entries, newest first. A non-positive
// limit returns everything up to the cap.
func (s *SQLStore) ListSearches(ctx context.Context, limit int) ([]*domain.SearchEntry, error) {
	if limit <= 0 || limit > domain.HistoryLimit {
		limit = domain.HistoryLimit
	}

	query := `
		SELECT id, query_type, identifier, success, trade_name, error_message, created_at
		FROM search_history
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.SearchEntry
	for rows.Next() {
		var e domain.SearchEntry
		var success int

		if err := rows.Scan(
			&e.ID, &e.QueryType, &e.Identifier,
			&success, &e.TradeName, &e.Error, &e.CreatedAt,
		); err != nil {
			return nil, err
		}

		e.Success = success == 1
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// ClearSearches wipes the history log.
func (s *SQLStore) ClearSearches(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM search_history`)
	return err
}

// RefreshStats recomputes the aggregate stats and persists the snapshot
// through the kv contract.
func (s *SQLStore) RefreshStats(ctx context.Context) (*domain.AggregateStats, error) {
	query := `
		SELECT
			(SELECT COUNT(DISTINCT identifier) FROM (
				SELECT identifier FROM reports
				UNION
				SELECT identifier FROM penalties
			) AS establishments),
			(SELECT COUNT(*) FROM reports),
			(SELECT COUNT(*) FROM penalties)
	`

	stats := &domain.AggregateStats{UpdatedAt: time.Now().UTC()}
	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalEstablishments, &stats.TotalReports, &stats.TotalPenalties,
	)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		return nil, err
	}
	if err := s.Set(ctx, statsKey, payload); err != nil {
		return nil, err
	}
	return stats, nil
}

// GetStats returns the last persisted aggregate snapshot. Before the
// first refresh it returns zero-valued stats.
func (s *SQLStore) GetStats(ctx context.Context) (*domain.AggregateStats, error) {
	payload, err := s.Get(ctx, statsKey)
	if errors.Is(err, ErrNotFound) {
		return &domain.AggregateStats{}, nil
	}
	if err != nil {
		return nil, err
	}

	var stats domain.AggregateStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// SaveAlertRule stores or updates a custom alert rule.
func (s *SQLStore) SaveAlertRule(ctx context.Context, rule *domain.AlertRuleConfig) error {
	if rule.ID == "" || rule.Expression == "" {
		return fmt.Errorf("%w: rule id and expression are required", ErrInvalidInput)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO alert_rules (
			id, name, description, expression, message, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			message = excluded.message,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		rule.ID, rule.Name, rule.Description,
		rule.Expression, rule.Message, boolToInt(rule.Enabled),
		now, now,
	)
	return err
}

// ListAlertRules retrieves all enabled alert rules.
func (s *SQLStore) ListAlertRules(ctx context.Context) ([]*domain.AlertRuleConfig, error) {
	query := `
		SELECT id, name, description, expression, message, enabled, created_at, updated_at
		FROM alert_rules
		WHERE enabled = 1
		ORDER BY name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.AlertRuleConfig
	for rows.Next() {
		var r domain.AlertRuleConfig
		var enabled int

		if err := rows.Scan(
			&r.ID, &r.Name, &r.Description,
			&r.Expression, &r.Message, &enabled,
			&r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, err
		}

		r.Enabled = enabled == 1
		rules = append(rules, &r)
	}
	return rules, rows.Err()
}

// Ping checks database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
