package catalog

import (
	"context"

	"github.com/starford/feattree/internal/models"
	"github.com/starford/feattree/internal/store"
)

// SearchWorkflows runs a full-text search over workflows.
func (s *Service) SearchWorkflows(_ context.Context, query string) ([]WorkflowSummary, error) {
	var hits []models.Workflow
	err := s.withStore(func(db store.Catalog) error {
		var err error
		hits, err = db.SearchWorkflows(query)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]WorkflowSummary, len(hits))
	for i, w := range hits {
		out[i] = WorkflowSummary{ID: w.ID, Name: w.Name, Status: w.Status, ParentID: optional(w.ParentID)}
	}
	return out, nil
}

// AddWorkflow creates a workflow and regenerates the docs.
func (s *Service) AddWorkflow(ctx context.Context, p store.AddWorkflowParams) (*models.Workflow, error) {
	var w *models.Workflow
	err := s.withStore(func(db store.Catalog) error {
		var err error
		w, err = db.AddWorkflow(p)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, KindWorkflow, w.ID, OpCreated)
	return w, nil
}

// UpdateWorkflow applies a partial update. An update that changes nothing
// leaves the docs alone and emits no event.
func (s *Service) UpdateWorkflow(ctx context.Context, id string, p store.UpdateWorkflowParams) (*models.Workflow, error) {
	var w *models.Workflow
	err := s.withStore(func(db store.Catalog) error {
		var err error
		w, err = db.UpdateWorkflow(id, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !p.Empty() {
		s.changed(ctx, KindWorkflow, id, OpUpdated)
	}
	return w, nil
}

// GetWorkflow returns a workflow with the features it depends on. Feature
// ids that no longer exist are left out.
func (s *Service) GetWorkflow(_ context.Context, id string) (*WorkflowDetail, error) {
	var d WorkflowDetail
	err := s.withStore(func(db store.Catalog) error {
		w, err := db.GetWorkflow(id)
		if err != nil {
			return err
		}
		d.Workflow = *w
		feats, err := db.GetFeaturesForWorkflow(id)
		if err != nil {
			return err
		}
		d.LinkedFeatures = featureRefs(feats, true)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DeleteWorkflow removes a workflow, hard or soft depending on its status.
func (s *Service) DeleteWorkflow(ctx context.Context, id string) (DeleteResult, error) {
	var kind models.DeleteType
	err := s.withStore(func(db store.Catalog) error {
		var err error
		kind, err = db.DeleteWorkflow(id)
		return err
	})
	if err != nil {
		return DeleteResult{}, err
	}
	s.changed(ctx, KindWorkflow, id, OpDeleted)
	return DeleteResult{OK: true, Type: kind}, nil
}

// ListWorkflows returns every non-deleted workflow.
func (s *Service) ListWorkflows(_ context.Context) ([]models.Workflow, error) {
	var out []models.Workflow
	err := s.withStore(func(db store.Catalog) error {
		var err error
		out, err = db.ListWorkflows()
		return err
	})
	return out, err
}

// WorkflowChildren returns the direct children of an existing workflow.
func (s *Service) WorkflowChildren(_ context.Context, id string) ([]models.Workflow, error) {
	var out []models.Workflow
	err := s.withStore(func(db store.Catalog) error {
		if _, err := db.GetWorkflow(id); err != nil {
			return err
		}
		var err error
		out, err = db.GetWorkflowChildren(id)
		return err
	})
	return out, err
}
