// Package mcpserver exposes the feature catalog as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/feattree/internal/apperr"
	"github.com/starford/feattree/internal/catalog"
)

// Resource URIs for the generated documents.
const (
	FeaturesURI  = "feattree://features.md"
	WorkflowsURI = "feattree://workflows.md"
)

var settableStatuses = []string{"planned", "in-progress", "done"}

// Server wraps the MCP server with the catalog tools.
type Server struct {
	mcp *server.MCPServer
	svc *catalog.Service
	log *slog.Logger
}

// New creates an MCP server with every catalog tool and document resource
// registered.
func New(svc *catalog.Service, version string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{svc: svc, log: log}

	s.mcp = server.NewMCPServer(
		"feature-tree",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions(Instructions),
	)

	s.registerFeatureTools()
	s.registerWorkflowTools()

	s.mcp.AddTool(mcp.NewTool("debug_cwd",
		mcp.WithDescription("Report the working directory, project marker, resolved project root and database path."),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.debugCwd)

	s.mcp.AddResource(
		mcp.NewResource(FeaturesURI, "FEATURES.md",
			mcp.WithResourceDescription("Feature tree rendered as Markdown."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.documentResource(FeaturesURI, catalog.FeaturesDoc),
	)
	s.mcp.AddResource(
		mcp.NewResource(WorkflowsURI, "WORKFLOWS.md",
			mcp.WithResourceDescription("Workflow tree rendered as Markdown, with mermaid diagrams."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.documentResource(WorkflowsURI, catalog.WorkflowsDoc),
	)

	return s
}

func (s *Server) registerFeatureTools() {
	s.mcp.AddTool(mcp.NewTool("search_features",
		mcp.WithDescription("Search features by name, description or technical notes. Use before starting work to see what exists."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Words or a substring to look for")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.searchFeatures)

	s.mcp.AddTool(mcp.NewTool("get_feature",
		mcp.WithDescription("Get one feature with linked workflows, the features it uses and the features using it."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Feature id, e.g. AUTH.login")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.getFeature)

	s.mcp.AddTool(mcp.NewTool("add_feature",
		mcp.WithDescription("Create a feature. Use when something new is described."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Dotted id, e.g. AUTH.login")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Short human-readable name")),
		mcp.WithString("parent_id", mcp.Description("Id of the parent feature")),
		mcp.WithString("description", mcp.Description("What the feature does")),
		stringList("uses", "Ids of features this one relies on, e.g. INFRA.cache"),
		mcp.WithString("status", mcp.Description("Initial status, planned by default"), mcp.Enum(settableStatuses...)),
	), s.addFeature)

	s.mcp.AddTool(mcp.NewTool("update_feature",
		mcp.WithDescription("Update a feature. Always record code_symbols and files after implementing."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Feature id")),
		mcp.WithString("name", mcp.Description("New name")),
		mcp.WithString("parent_id", mcp.Description("New parent id, empty to make it a root")),
		mcp.WithString("status", mcp.Enum(settableStatuses...)),
		stringList("code_symbols", "Identifiers implementing the feature"),
		stringList("files", "Paths involved"),
		stringList("commit_ids", "Commits that touched the feature"),
		mcp.WithString("technical_notes", mcp.Description("What the code does not show")),
		mcp.WithString("description", mcp.Description("What the feature does")),
		stringList("uses", "Ids of features this one relies on"),
	), s.updateFeature)

	s.mcp.AddTool(mcp.NewTool("delete_feature",
		mcp.WithDescription("Delete a feature. Planned features are removed, in-progress or done ones are marked deleted."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Feature id")),
		mcp.WithDestructiveHintAnnotation(true),
	), s.deleteFeature)
}

func (s *Server) registerWorkflowTools() {
	s.mcp.AddTool(mcp.NewTool("search_workflows",
		mcp.WithDescription("Search workflows by name, description or purpose."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Words or a substring to look for")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.searchWorkflows)

	s.mcp.AddTool(mcp.NewTool("get_workflow",
		mcp.WithDescription("Get one workflow with the features it depends on."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Workflow id, e.g. USER_ONBOARDING.signup")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.getWorkflow)

	s.mcp.AddTool(mcp.NewTool("add_workflow",
		mcp.WithDescription("Create a workflow. Use JOURNEY.flow ids; depends_on lists feature ids."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Dotted id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Short human-readable name")),
		mcp.WithString("parent_id", mcp.Description("Id of the parent workflow")),
		mcp.WithString("description", mcp.Description("What happens in the workflow")),
		mcp.WithString("purpose", mcp.Description("Why the user goes through it")),
		stringList("depends_on", "Feature ids the workflow relies on"),
		mcp.WithString("mermaid", mcp.Description("Mermaid diagram source")),
		mcp.WithString("status", mcp.Description("Initial status, planned by default"), mcp.Enum(settableStatuses...)),
	), s.addWorkflow)

	s.mcp.AddTool(mcp.NewTool("update_workflow",
		mcp.WithDescription("Update a workflow's fields."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Workflow id")),
		mcp.WithString("name", mcp.Description("New name")),
		mcp.WithString("parent_id", mcp.Description("New parent id, empty to make it a root")),
		mcp.WithString("status", mcp.Enum(settableStatuses...)),
		stringList("depends_on", "Feature ids the workflow relies on"),
		mcp.WithString("mermaid", mcp.Description("Mermaid diagram source")),
		mcp.WithString("description", mcp.Description("What happens in the workflow")),
		mcp.WithString("purpose", mcp.Description("Why the user goes through it")),
	), s.updateWorkflow)

	s.mcp.AddTool(mcp.NewTool("delete_workflow",
		mcp.WithDescription("Delete a workflow. Planned workflows are removed, others are marked deleted."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Workflow id")),
		mcp.WithDestructiveHintAnnotation(true),
	), s.deleteWorkflow)
}

func stringList(name, desc string) mcp.ToolOption {
	return mcp.WithArray(name, mcp.Description(desc), mcp.Items(map[string]any{"type": "string"}))
}

// ServeStdio serves MCP on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp,
		server.WithErrorLogger(slog.NewLogLogger(s.log.Handler(), slog.LevelError)))
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) documentResource(uri, name string) server.ResourceHandlerFunc {
	return func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		md, err := s.svc.Document(ctx, name)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: uri, MIMEType: "text/markdown", Text: md},
		}, nil
	}
}

func (s *Server) debugCwd(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.svc.Info(ctx)
	if err != nil {
		return s.failure("debug_cwd", err), nil
	}
	marker := info.MarkerValue
	if marker == "" {
		marker = "(not found)"
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"working dir: %s\nmarker %s: %s\nproject root: %s\ndatabase: %s\nfts5: %t",
		info.WorkingDir, info.MarkerFile, marker, info.ProjectRoot, info.Database, info.FTSEnabled,
	)), nil
}

func okResult() *mcp.CallToolResult {
	return mcp.NewToolResultText(`{"ok":true}`)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

type failureBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// failure reports err to the caller as a tool error carrying its code.
func (s *Server) failure(tool string, err error) *mcp.CallToolResult {
	code := apperr.Code(err)
	if code == apperr.CodeStorageFailure {
		s.log.Error("mcp: tool failed", slog.String("tool", tool), slog.String("error", err.Error()))
	}
	out, _ := json.Marshal(failureBody{Error: err.Error(), Code: code})
	return mcp.NewToolResultError(string(out))
}
