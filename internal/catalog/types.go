package catalog

import (
	"fmt"

	"github.com/starford/feattree/internal/apperr"
	"github.com/starford/feattree/internal/models"
)

// FeatureSummary is one search hit.
type FeatureSummary struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Status    models.Status `json:"status"`
	ParentID  *string       `json:"parent_id"`
	UsesCount int           `json:"uses_count,omitempty"`
}

// WorkflowSummary is one workflow search hit.
type WorkflowSummary struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   models.Status `json:"status"`
	ParentID *string       `json:"parent_id"`
}

// Ref points at another entity by id and name.
type Ref struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Status models.Status `json:"status,omitempty"`
}

// FeatureDetail is a feature with its links resolved in both directions.
type FeatureDetail struct {
	models.Feature
	LinkedWorkflows []Ref `json:"linked_workflows"`
	UsesFeatures    []Ref `json:"uses_features,omitempty"`
	UsedByFeatures  []Ref `json:"used_by_features,omitempty"`
}

// WorkflowDetail is a workflow with the features it depends on.
type WorkflowDetail struct {
	models.Workflow
	LinkedFeatures []Ref `json:"linked_features"`
}

// DeleteResult reports which delete branch ran.
type DeleteResult struct {
	OK   bool              `json:"ok"`
	Type models.DeleteType `json:"type"`
}

// Info locates the catalog on disk.
type Info struct {
	WorkingDir  string `json:"working_dir"`
	MarkerFile  string `json:"marker_file"`
	MarkerValue string `json:"marker_value,omitempty"`
	ProjectRoot string `json:"project_root"`
	DocsDir     string `json:"docs_dir"`
	Database    string `json:"database"`
	FTSEnabled  bool   `json:"fts_enabled"`
}

// Kind names what a ChangeEvent is about.
type Kind string

const (
	KindFeature   Kind = "feature"
	KindWorkflow  Kind = "workflow"
	KindDocuments Kind = "documents"
)

// Op names what happened.
type Op string

const (
	OpCreated     Op = "created"
	OpUpdated     Op = "updated"
	OpDeleted     Op = "deleted"
	OpRegenerated Op = "regenerated"
)

// ChangeEvent announces a committed change to the catalog.
type ChangeEvent struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id,omitempty"`
	Op   Op     `json:"op"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func errUnknownDocument(name string) error {
	return fmt.Errorf("document %q: %w", name, apperr.ErrNotFound)
}
