package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/feattree/internal/store"
)

func (s *Server) searchFeatures(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.svc.SearchFeatures(ctx, query)
	if err != nil {
		return s.failure("search_features", err), nil
	}
	return jsonResult(hits)
}

func (s *Server) getFeature(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetFeature(ctx, id)
	if err != nil {
		return s.failure("get_feature", err), nil
	}
	return jsonResult(d)
}

func (s *Server) addFeature(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a := argsOf(req)
	p := store.AddFeatureParams{
		ID:          a.str("id"),
		Name:        a.str("name"),
		ParentID:    a.str("parent_id"),
		Description: a.str("description"),
		Uses:        a.list("uses"),
	}
	if st := a.optStatus("status"); st != nil {
		p.Status = *st
	}
	if a.err != nil {
		return s.failure("add_feature", a.err), nil
	}
	if _, err := s.svc.AddFeature(ctx, p); err != nil {
		return s.failure("add_feature", err), nil
	}
	return okResult(), nil
}

func (s *Server) updateFeature(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a := argsOf(req)
	p := store.UpdateFeatureParams{
		Name:           a.optString("name"),
		ParentID:       a.optString("parent_id"),
		Description:    a.optString("description"),
		TechnicalNotes: a.optString("technical_notes"),
		Status:         a.optStatus("status"),
		CodeSymbols:    a.list("code_symbols"),
		Files:          a.list("files"),
		CommitIDs:      a.list("commit_ids"),
		Uses:           a.list("uses"),
	}
	if a.err != nil {
		return s.failure("update_feature", a.err), nil
	}
	if _, err := s.svc.UpdateFeature(ctx, id, p); err != nil {
		return s.failure("update_feature", err), nil
	}
	return okResult(), nil
}

func (s *Server) deleteFeature(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.DeleteFeature(ctx, id)
	if err != nil {
		return s.failure("delete_feature", err), nil
	}
	return jsonResult(res)
}

func (s *Server) searchWorkflows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.svc.SearchWorkflows(ctx, query)
	if err != nil {
		return s.failure("search_workflows", err), nil
	}
	return jsonResult(hits)
}

func (s *Server) getWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetWorkflow(ctx, id)
	if err != nil {
		return s.failure("get_workflow", err), nil
	}
	return jsonResult(d)
}

func (s *Server) addWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a := argsOf(req)
	p := store.AddWorkflowParams{
		ID:          a.str("id"),
		Name:        a.str("name"),
		ParentID:    a.str("parent_id"),
		Description: a.str("description"),
		Purpose:     a.str("purpose"),
		DependsOn:   a.list("depends_on"),
		Mermaid:     a.str("mermaid"),
	}
	if st := a.optStatus("status"); st != nil {
		p.Status = *st
	}
	if a.err != nil {
		return s.failure("add_workflow", a.err), nil
	}
	if _, err := s.svc.AddWorkflow(ctx, p); err != nil {
		return s.failure("add_workflow", err), nil
	}
	return okResult(), nil
}

func (s *Server) updateWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a := argsOf(req)
	p := store.UpdateWorkflowParams{
		Name:        a.optString("name"),
		ParentID:    a.optString("parent_id"),
		Description: a.optString("description"),
		Purpose:     a.optString("purpose"),
		Mermaid:     a.optString("mermaid"),
		Status:      a.optStatus("status"),
		DependsOn:   a.list("depends_on"),
	}
	if a.err != nil {
		return s.failure("update_workflow", a.err), nil
	}
	if _, err := s.svc.UpdateWorkflow(ctx, id, p); err != nil {
		return s.failure("update_workflow", err), nil
	}
	return okResult(), nil
}

func (s *Server) deleteWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.DeleteWorkflow(ctx, id)
	if err != nil {
		return s.failure("delete_workflow", err), nil
	}
	return jsonResult(res)
}
