package store

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/starford/feattree/internal/apperr"
	"github.com/starford/feattree/internal/models"
)

const notDeleted = `IFNULL(status, '') != 'deleted'`

type scanner interface {
	Scan(dest ...any) error
}

// entity holds what differs between the feature and workflow tables; the
// tree, delete and search rules are shared.
type entity[T any] struct {
	kind    string
	table   string
	columns string
	fts     ftsTable
	text    func(*T) []string // fields covered by substring search
	scan    func(scanner) (*T, error)
	id      func(*T) string
}

func (e entity[T]) get(q queryer, id string) (*T, error) {
	row := q.QueryRow(`SELECT `+e.columns+` FROM `+e.table+` WHERE id = ?`, id)
	v, err := e.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", e.kind, id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s %s: %w", e.kind, id, err)
	}
	return v, nil
}

func (e entity[T]) list(q queryer, where string, args ...any) ([]T, error) {
	query := `SELECT ` + e.columns + ` FROM ` + e.table
	if where != "" {
		query += ` WHERE ` + where
	}
	rows, err := q.Query(query+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list %ss: %w", e.kind, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := e.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan %s: %w", e.kind, err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (e entity[T]) children(q queryer, id string) ([]T, error) {
	return e.list(q, `parent_id = ?`, id)
}

func (e entity[T]) hasProtectedChildren(q queryer, id string) (bool, error) {
	var n int
	err := q.QueryRow(`SELECT COUNT(*) FROM `+e.table+` WHERE parent_id = ? AND status IN (?, ?)`,
		id, string(models.StatusInProgress), string(models.StatusDone)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: count children of %s %s: %w", e.kind, id, err)
	}
	return n > 0, nil
}

// remove hard-deletes a planned entity and soft-deletes anything else,
// refusing while a child is in progress or done.
func (e entity[T]) remove(db *DB, id string) (models.DeleteType, error) {
	var kind models.DeleteType
	err := db.withTx(func(tx *sql.Tx) error {
		var status sql.NullString
		var updated sql.NullString
		err := tx.QueryRow(`SELECT status, updated_at FROM `+e.table+` WHERE id = ?`, id).Scan(&status, &updated)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s %s: %w", e.kind, id, apperr.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("store: get %s %s: %w", e.kind, id, err)
		}

		protected, err := e.hasProtectedChildren(tx, id)
		if err != nil {
			return err
		}
		if protected {
			return fmt.Errorf("%s %s: %w", e.kind, id, apperr.ErrHasProtectedChildren)
		}

		if st := models.Status(status.String); st == models.StatusPlanned || st == "" {
			if err := db.removeFTS(tx, e.fts, id); err != nil {
				return err
			}
			if _, err := tx.Exec(`DELETE FROM `+e.table+` WHERE id = ?`, id); err != nil {
				return fmt.Errorf("store: delete %s %s: %w", e.kind, id, err)
			}
			kind = models.DeleteHard
			return nil
		}

		prev, err := parseTime(updated.String)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE `+e.table+` SET status = ?, updated_at = ? WHERE id = ?`,
			string(models.StatusDeleted), formatTime(db.stamp(prev)), id); err != nil {
			return fmt.Errorf("store: soft delete %s %s: %w", e.kind, id, err)
		}
		kind = models.DeleteSoft
		return db.syncFTS(tx, e.fts, id)
	})
	if err != nil {
		return "", err
	}
	return kind, nil
}

// search returns FTS hits in rank order followed by any further substring
// matches, never including deleted rows. An FTS query the parser rejects
// is served by the substring path alone.
func (e entity[T]) search(db *DB, query string) ([]T, error) {
	var ranked []T
	if db.fts && strings.TrimSpace(query) != "" {
		ids, err := db.matchIDs(e.fts, query)
		switch {
		case errors.Is(err, apperr.ErrInvalidQuery):
		case err != nil:
			return nil, err
		default:
			ranked, err = e.byIDs(db.conn, ids)
			if err != nil {
				return nil, err
			}
		}
	}

	substr, err := e.matchSubstring(db.conn, query)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(ranked))
	for i := range ranked {
		seen[e.id(&ranked[i])] = struct{}{}
	}
	out := ranked
	for i := range substr {
		if _, dup := seen[e.id(&substr[i])]; dup {
			continue
		}
		out = append(out, substr[i])
	}
	return out, nil
}

// matchSubstring returns the non-deleted rows with a text field containing
// query under Unicode case folding. SQLite's LIKE only folds ASCII.
func (e entity[T]) matchSubstring(q queryer, query string) ([]T, error) {
	all, err := e.list(q, notDeleted)
	if err != nil {
		return nil, err
	}
	fold := cases.Fold()
	needle := fold.String(query)
	var out []T
	for i := range all {
		if slices.ContainsFunc(e.text(&all[i]), func(field string) bool {
			return strings.Contains(fold.String(field), needle)
		}) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// byIDs loads the non-deleted rows for ids, preserving the order of ids.
func (e entity[T]) byIDs(q queryer, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	rows, err := e.list(q, notDeleted+` AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]T, len(rows))
	for i := range rows {
		byID[e.id(&rows[i])] = rows[i]
	}
	out := make([]T, 0, len(rows))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// resolve looks up ids in order, dropping any that do not exist.
func (e entity[T]) resolve(q queryer, ids []string) ([]T, error) {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		v, err := e.get(q, id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}
