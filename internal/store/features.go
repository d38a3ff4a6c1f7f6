package store

import (
	"database/sql"
	"fmt"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/feattree/internal/apperr"
	"github.com/starford/feattree/internal/models"
)

const featureColumns = `id, parent_id, name, description, status, code_symbols, files, technical_notes, commit_ids, uses, created_at, updated_at`

var features = entity[models.Feature]{
	kind:    "feature",
	table:   "features",
	columns: featureColumns,
	fts:     featuresFTS,
	text:    func(f *models.Feature) []string { return []string{f.Name, f.Description, f.TechnicalNotes} },
	scan:    scanFeature,
	id:      func(f *models.Feature) string { return f.ID },
}

// AddFeatureParams holds the input for creating a feature.
type AddFeatureParams struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	ParentID    string        `json:"parent_id,omitempty"`
	Description string        `json:"description,omitempty"`
	Uses        []string      `json:"uses,omitempty"`
	Status      models.Status `json:"status,omitempty"`
}

// Validate checks required fields and the initial status.
func (p *AddFeatureParams) Validate() error {
	return invalidInput(validation.ValidateStruct(p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Status, validation.In(creatableStatuses...)),
	))
}

// UpdateFeatureParams holds a partial update. Nil fields are left
// untouched; a pointer to "" clears a text field. Nil list fields are left
// untouched; an empty non-nil list stores an empty list.
type UpdateFeatureParams struct {
	Name           *string        `json:"name,omitempty"`
	ParentID       *string        `json:"parent_id,omitempty"`
	Description    *string        `json:"description,omitempty"`
	TechnicalNotes *string        `json:"technical_notes,omitempty"`
	Status         *models.Status `json:"status,omitempty"`
	CodeSymbols    []string       `json:"code_symbols,omitempty"`
	Files          []string       `json:"files,omitempty"`
	CommitIDs      []string       `json:"commit_ids,omitempty"`
	Uses           []string       `json:"uses,omitempty"`
}

// Validate rejects a blank name and statuses an update may not set,
// including an explicit empty status.
func (p *UpdateFeatureParams) Validate() error {
	return invalidInput(validation.ValidateStruct(p,
		validation.Field(&p.Name, validation.NilOrNotEmpty),
		validation.Field(&p.Status, validation.NilOrNotEmpty, validation.In(creatableStatuses...)),
	))
}

// Empty reports whether p would change nothing.
func (p *UpdateFeatureParams) Empty() bool {
	return p.Name == nil && p.ParentID == nil && p.Description == nil && p.TechnicalNotes == nil &&
		p.Status == nil && p.CodeSymbols == nil && p.Files == nil && p.CommitIDs == nil && p.Uses == nil
}

// AddFeature inserts a new feature and indexes it.
func (db *DB) AddFeature(p AddFeatureParams) (*models.Feature, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	status := p.Status
	if status == "" {
		status = models.StatusPlanned
	}
	uses, err := encodeList(p.Uses)
	if err != nil {
		return nil, err
	}
	now := formatTime(db.now())

	err = db.withTx(func(tx *sql.Tx) error {
		exists, err := rowExists(tx, features.table, p.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("feature %s: %w", p.ID, apperr.ErrDuplicateID)
		}
		_, err = tx.Exec(`
			INSERT INTO features (id, parent_id, name, description, uses, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, nullString(p.ParentID), p.Name, nullString(p.Description), uses, string(status), now, now)
		if isUniqueViolation(err) {
			return fmt.Errorf("feature %s: %w", p.ID, apperr.ErrDuplicateID)
		}
		if err != nil {
			return fmt.Errorf("store: insert feature %s: %w", p.ID, err)
		}
		return db.syncFTS(tx, featuresFTS, p.ID)
	})
	if err != nil {
		return nil, err
	}
	return db.GetFeature(p.ID)
}

// GetFeature returns the feature with id regardless of status.
func (db *DB) GetFeature(id string) (*models.Feature, error) {
	return features.get(db.conn, id)
}

// UpdateFeature applies the non-nil fields of p, refreshes updated_at and
// resyncs the search index. An empty p returns the current row untouched.
func (db *DB) UpdateFeature(id string, p UpdateFeatureParams) (*models.Feature, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Empty() {
		return db.GetFeature(id)
	}
	var set assignments
	set.text("name", p.Name)
	set.text("parent_id", p.ParentID)
	set.text("description", p.Description)
	set.text("technical_notes", p.TechnicalNotes)
	if p.Status != nil {
		set.add("status", string(*p.Status))
	}
	for _, lf := range []struct {
		col   string
		items []string
	}{
		{"code_symbols", p.CodeSymbols},
		{"files", p.Files},
		{"commit_ids", p.CommitIDs},
		{"uses", p.Uses},
	} {
		if err := set.list(lf.col, lf.items); err != nil {
			return nil, err
		}
	}

	err := db.withTx(func(tx *sql.Tx) error {
		prev, err := features.get(tx, id)
		if err != nil {
			return err
		}
		set.add("updated_at", formatTime(db.stamp(prev.UpdatedAt)))
		if _, err := tx.Exec(`UPDATE features SET `+set.clause()+` WHERE id = ?`, append(set.args, id)...); err != nil {
			return fmt.Errorf("store: update feature %s: %w", id, err)
		}
		return db.syncFTS(tx, featuresFTS, id)
	})
	if err != nil {
		return nil, err
	}
	return db.GetFeature(id)
}

// GetChildren returns the direct children of a feature, any status.
func (db *DB) GetChildren(id string) ([]models.Feature, error) {
	return features.children(db.conn, id)
}

// HasProtectedChildren reports whether any child is in progress or done.
func (db *DB) HasProtectedChildren(id string) (bool, error) {
	return features.hasProtectedChildren(db.conn, id)
}

// DeleteFeature hard-deletes a planned feature and soft-deletes any other.
func (db *DB) DeleteFeature(id string) (models.DeleteType, error) {
	return features.remove(db, id)
}

// SearchFeatures searches name, description and technical notes.
func (db *DB) SearchFeatures(query string) ([]models.Feature, error) {
	return features.search(db, query)
}

// ListFeatures returns every non-deleted feature ordered by id.
func (db *DB) ListFeatures() ([]models.Feature, error) {
	return features.list(db.conn, notDeleted)
}

// GetFeaturesUsing returns the non-deleted features whose uses list
// contains id.
func (db *DB) GetFeaturesUsing(id string) ([]models.Feature, error) {
	all, err := db.ListFeatures()
	if err != nil {
		return nil, err
	}
	var out []models.Feature
	for _, f := range all {
		if slices.Contains(f.Uses, id) {
			out = append(out, f)
		}
	}
	return out, nil
}

// ResolveFeatures looks up ids in order and drops those that do not exist.
func (db *DB) ResolveFeatures(ids []string) ([]models.Feature, error) {
	return features.resolve(db.conn, ids)
}

func scanFeature(sc scanner) (*models.Feature, error) {
	var (
		f                                    models.Feature
		parentID, description, status, notes sql.NullString
		symbols, files, commits, uses        sql.NullString
		createdAt, updatedAt                 sql.NullString
	)
	if err := sc.Scan(&f.ID, &parentID, &f.Name, &description, &status, &symbols, &files,
		&notes, &commits, &uses, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	f.ParentID = parentID.String
	f.Description = description.String
	f.TechnicalNotes = notes.String
	f.Status = statusOrDefault(status)

	var err error
	if f.CodeSymbols, err = decodeList(symbols); err != nil {
		return nil, err
	}
	if f.Files, err = decodeList(files); err != nil {
		return nil, err
	}
	if f.CommitIDs, err = decodeList(commits); err != nil {
		return nil, err
	}
	if f.Uses, err = decodeList(uses); err != nil {
		return nil, err
	}
	if f.CreatedAt, err = parseTime(createdAt.String); err != nil {
		return nil, err
	}
	if f.UpdatedAt, err = parseTime(updatedAt.String); err != nil {
		return nil, err
	}
	return &f, nil
}

// Statuses accepted on create and update. Deletion has its own operation.
var creatableStatuses = []any{models.StatusPlanned, models.StatusInProgress, models.StatusDone}

func statusOrDefault(ns sql.NullString) models.Status {
	if !ns.Valid || ns.String == "" {
		return models.StatusPlanned
	}
	return models.Status(ns.String)
}

func invalidInput(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
}

// assignments accumulates the SET clause of a partial update. Column
// names are fixed by the caller, never user input.
type assignments struct {
	cols []string
	args []any
}

func (a *assignments) add(col string, v any) {
	a.cols = append(a.cols, col+" = ?")
	a.args = append(a.args, v)
}

func (a *assignments) text(col string, v *string) {
	if v != nil {
		a.add(col, nullString(*v))
	}
}

func (a *assignments) list(col string, items []string) error {
	if items == nil {
		return nil
	}
	enc, err := encodeList(items)
	if err != nil {
		return err
	}
	a.add(col, enc)
	return nil
}

func (a *assignments) clause() string {
	return strings.Join(a.cols, ", ")
}
