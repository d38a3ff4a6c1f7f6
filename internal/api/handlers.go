package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/feattree/internal/catalog"
	"github.com/starford/feattree/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	svc *catalog.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *catalog.Service) *Handler {
	return &Handler{svc: svc}
}

// ListFeatures handles GET /api/features.
//
//	@Summary		List or search features
//	@Tags			features
//	@Produce		json
//	@Param			q	query		string	false	"Search query"
//	@Success		200	{object}	FeatureListResponse
//	@Success		200	{object}	FeatureSearchResponse
//	@Security		BearerAuth
//	@Router			/features [get]
func (h *Handler) ListFeatures(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("q"); q != "" {
		hits, err := h.svc.SearchFeatures(r.Context(), q)
		if err != nil {
			writeError(w, "search features", err)
			return
		}
		writeJSON(w, http.StatusOK, FeatureSearchResponse{Results: nonNilSlice(hits)})
		return
	}
	all, err := h.svc.ListFeatures(r.Context())
	if err != nil {
		writeError(w, "list features", err)
		return
	}
	writeJSON(w, http.StatusOK, FeatureListResponse{Features: nonNilSlice(all)})
}

// CreateFeature handles POST /api/features.
//
//	@Summary		Create a feature
//	@Tags			features
//	@Accept			json
//	@Produce		json
//	@Param			body	body		store.AddFeatureParams	true	"Feature to create"
//	@Success		201		{object}	models.Feature
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/features [post]
func (h *Handler) CreateFeature(w http.ResponseWriter, r *http.Request) {
	var req store.AddFeatureParams
	if !decodeBody(w, r, &req) {
		return
	}
	f, err := h.svc.AddFeature(r.Context(), req)
	if err != nil {
		writeError(w, "create feature", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// GetFeature handles GET /api/features/{id}.
//
//	@Summary		Get a feature with its links
//	@Tags			features
//	@Produce		json
//	@Param			id	path		string	true	"Feature id"
//	@Success		200	{object}	FeatureDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/features/{id} [get]
func (h *Handler) GetFeature(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetFeature(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get feature", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// UpdateFeature handles PATCH /api/features/{id}. Fields absent from the
// body are left unchanged.
//
//	@Summary		Partially update a feature
//	@Tags			features
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Feature id"
//	@Param			body	body		store.UpdateFeatureParams	true	"Fields to change"
//	@Success		200		{object}	models.Feature
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/features/{id} [patch]
func (h *Handler) UpdateFeature(w http.ResponseWriter, r *http.Request) {
	var req store.UpdateFeatureParams
	if !decodeBody(w, r, &req) {
		return
	}
	f, err := h.svc.UpdateFeature(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, "update feature", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// DeleteFeature handles DELETE /api/features/{id}.
//
//	@Summary		Delete a feature (hard if planned, soft otherwise)
//	@Tags			features
//	@Produce		json
//	@Param			id	path		string	true	"Feature id"
//	@Success		200	{object}	DeleteResponse
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/features/{id} [delete]
func (h *Handler) DeleteFeature(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DeleteFeature(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete feature", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// FeatureChildren handles GET /api/features/{id}/children.
func (h *Handler) FeatureChildren(w http.ResponseWriter, r *http.Request) {
	kids, err := h.svc.FeatureChildren(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "feature children", err)
		return
	}
	writeJSON(w, http.StatusOK, FeatureListResponse{Features: nonNilSlice(kids)})
}

// ListWorkflows handles GET /api/workflows.
//
//	@Summary		List or search workflows
//	@Tags			workflows
//	@Produce		json
//	@Param			q	query		string	false	"Search query"
//	@Success		200	{object}	WorkflowListResponse
//	@Success		200	{object}	WorkflowSearchResponse
//	@Security		BearerAuth
//	@Router			/workflows [get]
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("q"); q != "" {
		hits, err := h.svc.SearchWorkflows(r.Context(), q)
		if err != nil {
			writeError(w, "search workflows", err)
			return
		}
		writeJSON(w, http.StatusOK, WorkflowSearchResponse{Results: nonNilSlice(hits)})
		return
	}
	all, err := h.svc.ListWorkflows(r.Context())
	if err != nil {
		writeError(w, "list workflows", err)
		return
	}
	writeJSON(w, http.StatusOK, WorkflowListResponse{Workflows: nonNilSlice(all)})
}

// CreateWorkflow handles POST /api/workflows.
//
//	@Summary		Create a workflow
//	@Tags			workflows
//	@Accept			json
//	@Produce		json
//	@Param			body	body		store.AddWorkflowParams	true	"Workflow to create"
//	@Success		201		{object}	models.Workflow
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workflows [post]
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req store.AddWorkflowParams
	if !decodeBody(w, r, &req) {
		return
	}
	wf, err := h.svc.AddWorkflow(r.Context(), req)
	if err != nil {
		writeError(w, "create workflow", err)
		return
	}
	writeJSON(w, http.StatusCreated, wf)
}

// GetWorkflow handles GET /api/workflows/{id}.
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetWorkflow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get workflow", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// UpdateWorkflow handles PATCH /api/workflows/{id}.
func (h *Handler) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req store.UpdateWorkflowParams
	if !decodeBody(w, r, &req) {
		return
	}
	wf, err := h.svc.UpdateWorkflow(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, "update workflow", err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// DeleteWorkflow handles DELETE /api/workflows/{id}.
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DeleteWorkflow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete workflow", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) WorkflowChildren(w http.ResponseWriter, r *http.Request) {
	kids, err := h.svc.WorkflowChildren(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "workflow children", err)
		return
	}
	writeJSON(w, http.StatusOK, WorkflowListResponse{Workflows: nonNilSlice(kids)})
}

// ListDocuments handles GET /api/docs.
//
//	@Summary		Generated documents on disk with checksums
//	@Tags			docs
//	@Produce		json
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/docs [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.Documents(r.Context())
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: nonNilSlice(docs)})
}

// Document serves a generated document, rendered from the current data.
//
//	@Summary		Rendered FEATURES.md or WORKFLOWS.md
//	@Tags			docs
//	@Produce		text/markdown
//	@Success		200	{string}	string
//	@Security		BearerAuth
//	@Router			/docs/features.md [get]
//	@Router			/docs/workflows.md [get]
func (h *Handler) Document(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		md, err := h.svc.Document(r.Context(), name)
		if err != nil {
			writeError(w, "render "+name, err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		if _, err := w.Write([]byte(md)); err != nil {
			slog.Debug("write document", slog.String("error", err.Error()))
		}
	}
}

// Reindex handles POST /api/reindex: rebuilds the search indexes and
// regenerates the documents.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reindex(r.Context()); err != nil {
		writeError(w, "reindex", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
