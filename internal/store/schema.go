package store

// Schema definitions for the confiabar database.
// Compatible with both SQLite and PostgreSQL.

const schemaKV = `
CREATE TABLE IF NOT EXISTS kv_store (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaReports = `
CREATE TABLE IF NOT EXISTS reports (
    id TEXT PRIMARY KEY,
    identifier TEXT NOT NULL,
    cleanliness INTEGER NOT NULL,
    sealed_bottles INTEGER NOT NULL,
    invoice_issued INTEGER NOT NULL,
    normal_prices INTEGER NOT NULL,
    comment TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_identifier ON reports(identifier);
CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(identifier, created_at);
`

const schemaPenalties = `
CREATE TABLE IF NOT EXISTS penalties (
    id TEXT PRIMARY KEY,
    identifier TEXT NOT NULL,
    reason TEXT,
    comment TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_penalties_identifier ON penalties(identifier);
`

const schemaSearchHistory = `
CREATE TABLE IF NOT EXISTS search_history (
    id TEXT PRIMARY KEY,
    query_type TEXT NOT NULL,
    identifier TEXT NOT NULL,
    success INTEGER NOT NULL,
    trade_name TEXT,
    error_message TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_history_created ON search_history(created_at);
`

const schemaAlertRules = `
CREATE TABLE IF NOT EXISTS alert_rules (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    expression TEXT NOT NULL,
    message TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alert_rules_enabled ON alert_rules(enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaKV,
		schemaReports,
		schemaPenalties,
		schemaSearchHistory,
		schemaAlertRules,
	}
}
