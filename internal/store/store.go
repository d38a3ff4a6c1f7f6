package store

import "github.com/starford/feattree/internal/models"

// Catalog is the full set of storage operations over features and
// workflows. *DB implements it.
type Catalog interface {
	AddFeature(p AddFeatureParams) (*models.Feature, error)
	GetFeature(id string) (*models.Feature, error)
	UpdateFeature(id string, p UpdateFeatureParams) (*models.Feature, error)
	GetChildren(id string) ([]models.Feature, error)
	HasProtectedChildren(id string) (bool, error)
	DeleteFeature(id string) (models.DeleteType, error)
	SearchFeatures(query string) ([]models.Feature, error)
	GetFeaturesUsing(id string) ([]models.Feature, error)
	ListFeatures() ([]models.Feature, error)
	ResolveFeatures(ids []string) ([]models.Feature, error)

	AddWorkflow(p AddWorkflowParams) (*models.Workflow, error)
	GetWorkflow(id string) (*models.Workflow, error)
	UpdateWorkflow(id string, p UpdateWorkflowParams) (*models.Workflow, error)
	GetWorkflowChildren(id string) ([]models.Workflow, error)
	HasProtectedWorkflowChildren(id string) (bool, error)
	DeleteWorkflow(id string) (models.DeleteType, error)
	SearchWorkflows(query string) ([]models.Workflow, error)
	ListWorkflows() ([]models.Workflow, error)
	GetWorkflowsForFeature(featureID string) ([]models.Workflow, error)
	GetFeaturesForWorkflow(workflowID string) ([]models.Feature, error)

	Rebuild() error
	FTSEnabled() bool
	Close() error
}

var _ Catalog = (*DB)(nil)
