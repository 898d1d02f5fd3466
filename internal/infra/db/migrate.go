package db

import (
	"database/sql"
	"fmt"
)

// The unique keys on drafts and channel_stats back the dedup contract:
// one row per (source_kind, source_url) for the lifetime of the table.

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS sources (
    id         BIGSERIAL PRIMARY KEY,
    kind       VARCHAR(16) NOT NULL,
    address    TEXT NOT NULL,
    name       TEXT NOT NULL DEFAULT '',
    active     BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (kind, address)
)`,
	`CREATE TABLE IF NOT EXISTS settings (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS drafts (
    id           BIGSERIAL PRIMARY KEY,
    source_kind  VARCHAR(16) NOT NULL,
    source_name  TEXT NOT NULL,
    text         TEXT NOT NULL,
    source_url   TEXT NOT NULL,
    published_at TIMESTAMPTZ,
    keywords     TEXT NOT NULL DEFAULT '[]',
    status       VARCHAR(16) NOT NULL DEFAULT 'new',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    processed_at TIMESTAMPTZ,
    UNIQUE (source_kind, source_url),
    CHECK (status IN ('new', 'processed', 'deleted', 'skipped'))
)`,
	`CREATE TABLE IF NOT EXISTS channel_stats (
    id                BIGSERIAL PRIMARY KEY,
    source_kind       VARCHAR(16) NOT NULL,
    source_url        TEXT NOT NULL,
    days              INTEGER NOT NULL,
    total_posts       INTEGER NOT NULL,
    matched_posts     INTEGER NOT NULL,
    last_post_at      TIMESTAMPTZ,
    avg_posts_per_day DOUBLE PRECISION NOT NULL,
    top_keywords      TEXT NOT NULL DEFAULT '[]',
    activity_hours    TEXT NOT NULL DEFAULT '[]',
    analyzed_at       TIMESTAMPTZ NOT NULL,
    UNIQUE (source_kind, source_url)
)`,
	`CREATE INDEX IF NOT EXISTS idx_sources_active ON sources(active) WHERE active = TRUE`,
	`CREATE INDEX IF NOT EXISTS idx_drafts_status_created_at ON drafts(status, created_at DESC)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS sources (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    kind       TEXT NOT NULL,
    address    TEXT NOT NULL,
    name       TEXT NOT NULL DEFAULT '',
    active     BOOLEAN NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (kind, address)
)`,
	`CREATE TABLE IF NOT EXISTS settings (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS drafts (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    source_kind  TEXT NOT NULL,
    source_name  TEXT NOT NULL,
    text         TEXT NOT NULL,
    source_url   TEXT NOT NULL,
    published_at DATETIME,
    keywords     TEXT NOT NULL DEFAULT '[]',
    status       TEXT NOT NULL DEFAULT 'new',
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    processed_at DATETIME,
    UNIQUE (source_kind, source_url),
    CHECK (status IN ('new', 'processed', 'deleted', 'skipped'))
)`,
	`CREATE TABLE IF NOT EXISTS channel_stats (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    source_kind       TEXT NOT NULL,
    source_url        TEXT NOT NULL,
    days              INTEGER NOT NULL,
    total_posts       INTEGER NOT NULL,
    matched_posts     INTEGER NOT NULL,
    last_post_at      DATETIME,
    avg_posts_per_day REAL NOT NULL,
    top_keywords      TEXT NOT NULL DEFAULT '[]',
    activity_hours    TEXT NOT NULL DEFAULT '[]',
    analyzed_at       DATETIME NOT NULL,
    UNIQUE (source_kind, source_url)
)`,
	`CREATE INDEX IF NOT EXISTS idx_sources_active ON sources(active)`,
	`CREATE INDEX IF NOT EXISTS idx_drafts_status_created_at ON drafts(status, created_at DESC)`,
}

var dropStatements = []string{
	`DROP TABLE IF EXISTS channel_stats`,
	`DROP TABLE IF EXISTS drafts`,
	`DROP TABLE IF EXISTS settings`,
	`DROP TABLE IF EXISTS sources`,
}

func schemaFor(dialect Dialect) ([]string, error) {
	switch dialect {
	case DialectPostgres:
		return postgresSchema, nil
	case DialectSQLite:
		return sqliteSchema, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", dialect)
	}
}

// MigrateUp creates the schema. Every statement is idempotent.
func MigrateUp(db *sql.DB, dialect Dialect) error {
	stmts, err := schemaFor(dialect)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// MigrateDown drops every table, destroying all drafts and checkpoints.
func MigrateDown(db *sql.DB) error {
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
