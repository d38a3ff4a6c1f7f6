package store

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/feattree/internal/apperr"
)

// ftsTable describes a standalone FTS5 table mirroring a subset of a
// primary table's columns, keyed by the entity id.
type ftsTable struct {
	name    string
	source  string
	columns []string
}

var (
	featuresFTS  = ftsTable{name: "features_fts", source: "features", columns: []string{"id", "name", "description", "technical_notes"}}
	workflowsFTS = ftsTable{name: "workflows_fts", source: "workflows", columns: []string{"id", "name", "description", "purpose"}}
)

func (t ftsTable) createSQL() string {
	return `CREATE VIRTUAL TABLE ` + t.name + ` USING fts5(` + strings.Join(t.columns, ", ") +
		`, tokenize = 'unicode61 remove_diacritics 2')`
}

func (t ftsTable) populateSQL(where string) string {
	cols := strings.Join(t.columns, ", ")
	return `INSERT INTO ` + t.name + ` (` + cols + `) SELECT ` + cols + ` FROM ` + t.source + where
}

// initFTS creates both FTS tables, repairing any left in a legacy shape.
// It returns false when the driver was built without FTS5.
func initFTS(conn *sql.DB) (bool, error) {
	if _, err := conn.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS temp.fts5_probe USING fts5(x)`); err != nil {
		if !strings.Contains(err.Error(), "no such module") {
			return false, err
		}
		// The index cannot be maintained. Drop sync triggers an older
		// revision may have left, otherwise primary writes would fail.
		for _, t := range []ftsTable{featuresFTS, workflowsFTS} {
			if err := dropSyncTriggers(conn, t); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	_, _ = conn.Exec(`DROP TABLE IF EXISTS temp.fts5_probe`)

	for _, t := range []ftsTable{featuresFTS, workflowsFTS} {
		if err := ensureFTS(conn, t); err != nil {
			return true, err
		}
	}
	return true, nil
}

func ensureFTS(conn *sql.DB, t ftsTable) error {
	var ddl string
	err := conn.QueryRow(`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, t.name).Scan(&ddl)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("inspect %s: %w", t.name, err)
	}
	if err == nil {
		ok, err := compatibleFTS(conn, t, ddl)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return rebuildFTS(conn, t)
}

// compatibleFTS rejects external-content tables (kept in sync by triggers
// in an older revision) and tables whose column set differs.
func compatibleFTS(conn *sql.DB, t ftsTable, ddl string) (bool, error) {
	if strings.Contains(strings.ReplaceAll(strings.ToLower(ddl), " ", ""), "content=") {
		return false, nil
	}
	cols, err := tableColumns(conn, t.name)
	if err != nil {
		return false, err
	}
	if len(cols) != len(t.columns) {
		return false, nil
	}
	for _, c := range t.columns {
		if !cols[c] {
			return false, nil
		}
	}
	return true, nil
}

// rebuildFTS drops t (and any triggers feeding it) and recreates it from
// the primary table in one transaction.
func rebuildFTS(conn *sql.DB, t ftsTable) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("rebuild %s: begin: %w", t.name, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := dropSyncTriggers(tx, t); err != nil {
		return err
	}
	if _, err := tx.Exec(`DROP TABLE IF EXISTS ` + t.name); err != nil {
		return fmt.Errorf("rebuild %s: drop: %w", t.name, err)
	}
	if _, err := tx.Exec(t.createSQL()); err != nil {
		return fmt.Errorf("rebuild %s: create: %w", t.name, err)
	}
	if _, err := tx.Exec(t.populateSQL("")); err != nil {
		return fmt.Errorf("rebuild %s: populate: %w", t.name, err)
	}
	return tx.Commit()
}

type execQueryer interface {
	queryer
	Exec(query string, args ...any) (sql.Result, error)
}

func dropSyncTriggers(q execQueryer, t ftsTable) error {
	rows, err := q.Query(`SELECT name, sql FROM sqlite_master WHERE type = 'trigger' AND tbl_name = ?`, t.source)
	if err != nil {
		return fmt.Errorf("list triggers on %s: %w", t.source, err)
	}
	var names []string
	for rows.Next() {
		var name string
		var body sql.NullString
		if err := rows.Scan(&name, &body); err != nil {
			rows.Close()
			return err
		}
		if strings.Contains(body.String, t.name) {
			names = append(names, name)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, name := range names {
		if _, err := q.Exec(`DROP TRIGGER IF EXISTS "` + name + `"`); err != nil {
			return fmt.Errorf("drop trigger %s: %w", name, err)
		}
	}
	return nil
}

// syncFTS replaces the index entry for id with the primary row's current
// values. A missing primary row leaves no entry behind.
func (db *DB) syncFTS(tx *sql.Tx, t ftsTable, id string) error {
	if !db.fts {
		return nil
	}
	if _, err := tx.Exec(`DELETE FROM `+t.name+` WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: clear %s entry: %w", t.name, err)
	}
	if _, err := tx.Exec(t.populateSQL(` WHERE id = ?`), id); err != nil {
		return fmt.Errorf("store: sync %s entry: %w", t.name, err)
	}
	return nil
}

func (db *DB) removeFTS(tx *sql.Tx, t ftsTable, id string) error {
	if !db.fts {
		return nil
	}
	if _, err := tx.Exec(`DELETE FROM `+t.name+` WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: remove %s entry: %w", t.name, err)
	}
	return nil
}

// Rebuild repopulates both search indexes from the primary tables.
func (db *DB) Rebuild() error {
	if !db.fts {
		return nil
	}
	return db.withTx(func(tx *sql.Tx) error {
		for _, t := range []ftsTable{featuresFTS, workflowsFTS} {
			if _, err := tx.Exec(`DELETE FROM ` + t.name); err != nil {
				return fmt.Errorf("store: clear %s: %w", t.name, err)
			}
			if _, err := tx.Exec(t.populateSQL("")); err != nil {
				return fmt.Errorf("store: populate %s: %w", t.name, err)
			}
		}
		return nil
	})
}

// matchIDs runs an FTS5 MATCH and returns ids by rank. A query the FTS5
// parser rejects yields apperr.ErrInvalidQuery.
func (db *DB) matchIDs(t ftsTable, query string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT id FROM `+t.name+` WHERE `+t.name+` MATCH ? ORDER BY rank`, query)
	if err != nil {
		return nil, classifyMatchErr(err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classifyMatchErr(err)
	}
	return ids, nil
}

var matchSyntaxMarkers = []string{
	"fts5:",
	"syntax error",
	"no such column",
	"unterminated string",
	"malformed match",
	"unknown special query",
}

func classifyMatchErr(err error) error {
	msg := strings.ToLower(err.Error())
	for _, m := range matchSyntaxMarkers {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %v", apperr.ErrInvalidQuery, err)
		}
	}
	return fmt.Errorf("store: match: %w", err)
}
