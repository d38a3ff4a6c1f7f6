package api

import (
	"github.com/starford/feattree/internal/catalog"
	"github.com/starford/feattree/internal/models"
	"github.com/starford/feattree/internal/storage"
)

// FeatureListResponse is the GET /features payload without a query.
type FeatureListResponse struct {
	Features []models.Feature `json:"features"`
}

// FeatureSearchResponse is the GET /features?q= payload.
type FeatureSearchResponse struct {
	Results []catalog.FeatureSummary `json:"results"`
}

// WorkflowListResponse is the GET /workflows payload without a query.
type WorkflowListResponse struct {
	Workflows []models.Workflow `json:"workflows"`
}

// WorkflowSearchResponse is the GET /workflows?q= payload.
type WorkflowSearchResponse struct {
	Results []catalog.WorkflowSummary `json:"results"`
}

// DocumentListResponse is the GET /docs payload.
type DocumentListResponse struct {
	Documents []storage.DocInfo `json:"documents"`
}

// FeatureDetail is the GET /features/{id} payload.
type FeatureDetail = catalog.FeatureDetail

// WorkflowDetail is the GET /workflows/{id} payload.
type WorkflowDetail = catalog.WorkflowDetail

// DeleteResponse reports which delete branch ran.
type DeleteResponse = catalog.DeleteResult

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
