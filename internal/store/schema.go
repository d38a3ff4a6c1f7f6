// Package store is the embedded SQLite storage engine for the feature and
// workflow catalog. Every mutating call runs in one transaction that covers
// both the primary table and its FTS5 index.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, FTS5 always available
	DriverCGO     = "sqlite3" // mattn/go-sqlite3, FTS5 only with the sqlite_fts5 build tag
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS features (
	id              TEXT PRIMARY KEY,
	parent_id       TEXT,
	name            TEXT NOT NULL,
	description     TEXT,
	status          TEXT NOT NULL DEFAULT 'planned',
	code_symbols    TEXT,
	files           TEXT,
	technical_notes TEXT,
	commit_ids      TEXT,
	uses            TEXT,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_features_parent ON features(parent_id);

CREATE TABLE IF NOT EXISTS workflows (
	id          TEXT PRIMARY KEY,
	parent_id   TEXT,
	name        TEXT NOT NULL,
	description TEXT,
	purpose     TEXT,
	depends_on  TEXT,
	mermaid     TEXT,
	status      TEXT NOT NULL DEFAULT 'planned',
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_workflows_parent ON workflows(parent_id);
`

// Columns that older databases may lack. Added in place on open.
var legacyColumns = []struct{ table, column string }{
	{"features", "uses"},
	{"features", "commit_ids"},
	{"workflows", "purpose"},
	{"workflows", "depends_on"},
	{"workflows", "mermaid"},
}

// DB wraps a sql.DB with catalog operations.
type DB struct {
	conn *sql.DB
	fts  bool
	now  func() time.Time
}

// Open opens (or creates) the catalog database at path and brings the
// schema and search indexes into shape. An empty driver selects
// DriverModernc.
func Open(driver, path string) (*DB, error) {
	if driver == "" {
		driver = DriverModernc
	}
	conn, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	// One connection per store: callers open a store per operation and
	// pragmas below are per-connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := addLegacyColumns(conn); err != nil {
		conn.Close()
		return nil, err
	}
	fts, err := initFTS(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn, fts: fts, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// FTSEnabled reports whether the driver provides FTS5. Without it every
// search is served by substring matching.
func (db *DB) FTSEnabled() bool {
	return db.fts
}

func addLegacyColumns(conn *sql.DB) error {
	for _, lc := range legacyColumns {
		cols, err := tableColumns(conn, lc.table)
		if err != nil {
			return err
		}
		if cols[lc.column] {
			continue
		}
		if _, err := conn.Exec(`ALTER TABLE ` + lc.table + ` ADD COLUMN ` + lc.column + ` TEXT`); err != nil {
			return fmt.Errorf("store: add column %s.%s: %w", lc.table, lc.column, err)
		}
	}
	return nil
}

type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func tableColumns(q queryer, table string) (map[string]bool, error) {
	rows, err := q.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("store: table info %s: %w", table, err)
	}
	defer rows.Close()
	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

// withTx runs fn in a transaction and commits if fn succeeds.
func (db *DB) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// stamp returns the current UTC time, forced strictly after prev so
// updated_at always advances.
func (db *DB) stamp(prev time.Time) time.Time {
	now := db.now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func rowExists(q queryer, table, id string) (bool, error) {
	var one int
	err := q.QueryRow(`SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: lookup %s %s: %w", table, id, err)
	}
	return true, nil
}
