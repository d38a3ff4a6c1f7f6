package catalog

import (
	"context"

	"github.com/starford/feattree/internal/models"
	"github.com/starford/feattree/internal/store"
)

// SearchFeatures returns trimmed search hits.
func (s *Service) SearchFeatures(_ context.Context, query string) ([]FeatureSummary, error) {
	var hits []models.Feature
	err := s.withStore(func(db store.Catalog) error {
		var err error
		hits, err = db.SearchFeatures(query)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]FeatureSummary, len(hits))
	for i, f := range hits {
		out[i] = FeatureSummary{
			ID:        f.ID,
			Name:      f.Name,
			Status:    f.Status,
			ParentID:  optional(f.ParentID),
			UsesCount: len(f.Uses),
		}
	}
	return out, nil
}

// AddFeature creates a feature.
func (s *Service) AddFeature(ctx context.Context, p store.AddFeatureParams) (*models.Feature, error) {
	var f *models.Feature
	err := s.withStore(func(db store.Catalog) error {
		var err error
		f, err = db.AddFeature(p)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, KindFeature, f.ID, OpCreated)
	return f, nil
}

// UpdateFeature applies a partial update. An update that changes nothing
// leaves the docs alone and emits no event.
func (s *Service) UpdateFeature(ctx context.Context, id string, p store.UpdateFeatureParams) (*models.Feature, error) {
	var f *models.Feature
	err := s.withStore(func(db store.Catalog) error {
		var err error
		f, err = db.UpdateFeature(id, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !p.Empty() {
		s.changed(ctx, KindFeature, id, OpUpdated)
	}
	return f, nil
}

// GetFeature returns a feature with the workflows depending on it, the
// features it uses and the features using it.
func (s *Service) GetFeature(_ context.Context, id string) (*FeatureDetail, error) {
	var d FeatureDetail
	err := s.withStore(func(db store.Catalog) error {
		f, err := db.GetFeature(id)
		if err != nil {
			return err
		}
		d.Feature = *f

		flows, err := db.GetWorkflowsForFeature(id)
		if err != nil {
			return err
		}
		d.LinkedWorkflows = make([]Ref, 0, len(flows))
		for _, w := range flows {
			d.LinkedWorkflows = append(d.LinkedWorkflows, Ref{ID: w.ID, Name: w.Name})
		}

		if len(f.Uses) > 0 {
			used, err := db.ResolveFeatures(f.Uses)
			if err != nil {
				return err
			}
			d.UsesFeatures = featureRefs(used, false)
		}

		users, err := db.GetFeaturesUsing(id)
		if err != nil {
			return err
		}
		if len(users) > 0 {
			d.UsedByFeatures = featureRefs(users, false)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DeleteFeature removes a feature, hard or soft depending on its status.
func (s *Service) DeleteFeature(ctx context.Context, id string) (DeleteResult, error) {
	var kind models.DeleteType
	err := s.withStore(func(db store.Catalog) error {
		var err error
		kind, err = db.DeleteFeature(id)
		return err
	})
	if err != nil {
		return DeleteResult{}, err
	}
	s.changed(ctx, KindFeature, id, OpDeleted)
	return DeleteResult{OK: true, Type: kind}, nil
}

// ListFeatures returns every non-deleted feature.
func (s *Service) ListFeatures(_ context.Context) ([]models.Feature, error) {
	var out []models.Feature
	err := s.withStore(func(db store.Catalog) error {
		var err error
		out, err = db.ListFeatures()
		return err
	})
	return out, err
}

func featureRefs(fs []models.Feature, withStatus bool) []Ref {
	refs := make([]Ref, 0, len(fs))
	for _, f := range fs {
		r := Ref{ID: f.ID, Name: f.Name}
		if withStatus {
			r.Status = f.Status
		}
		refs = append(refs, r)
	}
	return refs
}

// FeatureChildren returns the direct children of a feature, any status.
func (s *Service) FeatureChildren(_ context.Context, id string) ([]models.Feature, error) {
	var out []models.Feature
	err := s.withStore(func(db store.Catalog) error {
		if _, err := db.GetFeature(id); err != nil {
			return err
		}
		var err error
		out, err = db.GetChildren(id)
		return err
	})
	return out, err
}
