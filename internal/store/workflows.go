package store

import (
	"database/sql"
	"fmt"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/feattree/internal/apperr"
	"github.com/starford/feattree/internal/models"
)

const workflowColumns = `id, parent_id, name, description, purpose, depends_on, mermaid, status, created_at, updated_at`

var workflows = entity[models.Workflow]{
	kind:    "workflow",
	table:   "workflows",
	columns: workflowColumns,
	fts:     workflowsFTS,
	text:    func(w *models.Workflow) []string { return []string{w.Name, w.Description, w.Purpose} },
	scan:    scanWorkflow,
	id:      func(w *models.Workflow) string { return w.ID },
}

// AddWorkflowParams holds the input for creating a workflow.
type AddWorkflowParams struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	ParentID    string        `json:"parent_id,omitempty"`
	Description string        `json:"description,omitempty"`
	Purpose     string        `json:"purpose,omitempty"`
	DependsOn   []string      `json:"depends_on,omitempty"`
	Mermaid     string        `json:"mermaid,omitempty"`
	Status      models.Status `json:"status,omitempty"`
}

// Validate checks required fields and the initial status.
func (p *AddWorkflowParams) Validate() error {
	return invalidInput(validation.ValidateStruct(p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Status, validation.In(creatableStatuses...)),
	))
}

// UpdateWorkflowParams follows the same partial-update rules as
// UpdateFeatureParams.
type UpdateWorkflowParams struct {
	Name        *string        `json:"name,omitempty"`
	ParentID    *string        `json:"parent_id,omitempty"`
	Description *string        `json:"description,omitempty"`
	Purpose     *string        `json:"purpose,omitempty"`
	Mermaid     *string        `json:"mermaid,omitempty"`
	Status      *models.Status `json:"status,omitempty"`
	DependsOn   []string       `json:"depends_on,omitempty"`
}

// Validate rejects a blank name and statuses an update may not set.
func (p *UpdateWorkflowParams) Validate() error {
	return invalidInput(validation.ValidateStruct(p,
		validation.Field(&p.Name, validation.NilOrNotEmpty),
		validation.Field(&p.Status, validation.NilOrNotEmpty, validation.In(creatableStatuses...)),
	))
}

// Empty reports whether p would change nothing.
func (p *UpdateWorkflowParams) Empty() bool {
	return p.Name == nil && p.ParentID == nil && p.Description == nil && p.Purpose == nil &&
		p.Mermaid == nil && p.Status == nil && p.DependsOn == nil
}

// AddWorkflow inserts a new workflow and indexes it.
func (db *DB) AddWorkflow(p AddWorkflowParams) (*models.Workflow, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	status := p.Status
	if status == "" {
		status = models.StatusPlanned
	}
	deps, err := encodeList(p.DependsOn)
	if err != nil {
		return nil, err
	}
	now := formatTime(db.now())

	err = db.withTx(func(tx *sql.Tx) error {
		exists, err := rowExists(tx, workflows.table, p.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("workflow %s: %w", p.ID, apperr.ErrDuplicateID)
		}
		_, err = tx.Exec(`
			INSERT INTO workflows (id, parent_id, name, description, purpose, depends_on, mermaid, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, nullString(p.ParentID), p.Name, nullString(p.Description), nullString(p.Purpose),
			deps, nullString(p.Mermaid), string(status), now, now)
		if isUniqueViolation(err) {
			return fmt.Errorf("workflow %s: %w", p.ID, apperr.ErrDuplicateID)
		}
		if err != nil {
			return fmt.Errorf("store: insert workflow %s: %w", p.ID, err)
		}
		return db.syncFTS(tx, workflowsFTS, p.ID)
	})
	if err != nil {
		return nil, err
	}
	return db.GetWorkflow(p.ID)
}

// GetWorkflow returns the workflow with id regardless of status.
func (db *DB) GetWorkflow(id string) (*models.Workflow, error) {
	return workflows.get(db.conn, id)
}

// UpdateWorkflow applies the non-nil fields of p. An empty p returns the
// current row untouched.
func (db *DB) UpdateWorkflow(id string, p UpdateWorkflowParams) (*models.Workflow, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Empty() {
		return db.GetWorkflow(id)
	}
	var set assignments
	set.text("name", p.Name)
	set.text("parent_id", p.ParentID)
	set.text("description", p.Description)
	set.text("purpose", p.Purpose)
	set.text("mermaid", p.Mermaid)
	if p.Status != nil {
		set.add("status", string(*p.Status))
	}
	if err := set.list("depends_on", p.DependsOn); err != nil {
		return nil, err
	}

	err := db.withTx(func(tx *sql.Tx) error {
		prev, err := workflows.get(tx, id)
		if err != nil {
			return err
		}
		set.add("updated_at", formatTime(db.stamp(prev.UpdatedAt)))
		if _, err := tx.Exec(`UPDATE workflows SET `+set.clause()+` WHERE id = ?`, append(set.args, id)...); err != nil {
			return fmt.Errorf("store: update workflow %s: %w", id, err)
		}
		return db.syncFTS(tx, workflowsFTS, id)
	})
	if err != nil {
		return nil, err
	}
	return db.GetWorkflow(id)
}

// GetWorkflowChildren returns the direct children of a workflow, any status.
func (db *DB) GetWorkflowChildren(id string) ([]models.Workflow, error) {
	return workflows.children(db.conn, id)
}

// HasProtectedWorkflowChildren reports whether any child is in progress or
// done.
func (db *DB) HasProtectedWorkflowChildren(id string) (bool, error) {
	return workflows.hasProtectedChildren(db.conn, id)
}

// DeleteWorkflow follows the same hard/soft rules as DeleteFeature.
func (db *DB) DeleteWorkflow(id string) (models.DeleteType, error) {
	return workflows.remove(db, id)
}

// SearchWorkflows searches name, description and purpose.
func (db *DB) SearchWorkflows(query string) ([]models.Workflow, error) {
	return workflows.search(db, query)
}

// ListWorkflows returns every non-deleted workflow ordered by id.
func (db *DB) ListWorkflows() ([]models.Workflow, error) {
	return workflows.list(db.conn, notDeleted)
}

// GetWorkflowsForFeature returns the non-deleted workflows that depend on
// the feature.
func (db *DB) GetWorkflowsForFeature(featureID string) ([]models.Workflow, error) {
	all, err := db.ListWorkflows()
	if err != nil {
		return nil, err
	}
	var out []models.Workflow
	for _, w := range all {
		if slices.Contains(w.DependsOn, featureID) {
			out = append(out, w)
		}
	}
	return out, nil
}

// GetFeaturesForWorkflow resolves a workflow's depends_on list in order.
// Ids that no longer exist are dropped.
func (db *DB) GetFeaturesForWorkflow(workflowID string) ([]models.Feature, error) {
	w, err := db.GetWorkflow(workflowID)
	if err != nil {
		return nil, err
	}
	return db.ResolveFeatures(w.DependsOn)
}

func scanWorkflow(sc scanner) (*models.Workflow, error) {
	var (
		w                              models.Workflow
		parentID, description, purpose sql.NullString
		deps, mermaid, status          sql.NullString
		createdAt, updatedAt           sql.NullString
	)
	if err := sc.Scan(&w.ID, &parentID, &w.Name, &description, &purpose, &deps, &mermaid,
		&status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	w.ParentID = parentID.String
	w.Description = description.String
	w.Purpose = purpose.String
	w.Mermaid = mermaid.String
	w.Status = statusOrDefault(status)

	var err error
	if w.DependsOn, err = decodeList(deps); err != nil {
		return nil, err
	}
	if w.CreatedAt, err = parseTime(createdAt.String); err != nil {
		return nil, err
	}
	if w.UpdatedAt, err = parseTime(updatedAt.String); err != nil {
		return nil, err
	}
	return &w, nil
}
