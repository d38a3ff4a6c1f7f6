package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/feattree/internal/catalog"
)

// NewRouter creates a chi router with all API routes. When authEnabled is
// set every route, the event stream included, requires the bearer token.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *catalog.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/features", func(r chi.Router) {
		r.Get("/", h.ListFeatures)
		r.Post("/", h.CreateFeature)
		r.Get("/{id}", h.GetFeature)
		r.Patch("/{id}", h.UpdateFeature)
		r.Delete("/{id}", h.DeleteFeature)
		r.Get("/{id}/children", h.FeatureChildren)
	})

	r.Route("/workflows", func(r chi.Router) {
		r.Get("/", h.ListWorkflows)
		r.Post("/", h.CreateWorkflow)
		r.Get("/{id}", h.GetWorkflow)
		r.Patch("/{id}", h.UpdateWorkflow)
		r.Delete("/{id}", h.DeleteWorkflow)
		r.Get("/{id}/children", h.WorkflowChildren)
	})

	r.Get("/docs", h.ListDocuments)
	r.Get("/docs/features.md", h.Document(catalog.FeaturesDoc))
	r.Get("/docs/workflows.md", h.Document(catalog.WorkflowsDoc))
	r.Post("/reindex", h.Reindex)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
