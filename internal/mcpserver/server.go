// Package mcpserver exposes driftsync's reconciliation operations as MCP
// tools over stdio, so AI assistants and other MCP clients can inspect and
// drive synchronization runs.
//
// Three tools are registered:
//
//   - sync_plan: compute a plan without mutating either side
//   - sync_apply: execute a full reconciliation run
//   - sync_status: report the outcome of the most recent run
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"driftsync/internal/api"
	"driftsync/internal/reconciler"
	"driftsync/pkg/logging"
)

// RunFunc executes one reconciliation run. With dryRun the run plans and
// records but never mutates either side.
type RunFunc func(ctx context.Context, dryRun bool) (*reconciler.Result, error)

// Server wraps the reconciliation engine behind an MCP stdio server.
type Server struct {
	run         RunFunc
	artifactDir string
	mcpServer   *server.MCPServer
}

// NewServer creates an MCP server bound to the given run function and
// artifact directory.
func NewServer(run RunFunc, artifactDir, version string) *Server {
	mcpServer := server.NewMCPServer(
		"driftsync",
		version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		run:         run,
		artifactDir: artifactDir,
		mcpServer:   mcpServer,
	}
	s.registerTools()
	return s
}

// Start serves MCP over stdio and blocks until the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	logging.Info("MCPServer", "Serving reconciliation tools over stdio")
	return server.ServeStdio(s.mcpServer)
}

// registerTools registers the sync tools.
func (s *Server) registerTools() {
	planTool := mcp.NewTool("sync_plan",
		mcp.WithDescription("Compute the reconciliation plan between the git tree and the live instance without changing anything"),
	)
	s.mcpServer.AddTool(planTool, s.handlePlan)

	applyTool := mcp.NewTool("sync_apply",
		mcp.WithDescription("Execute a reconciliation run: apply the plan, commit and push tree changes, record the diff artifact"),
		mcp.WithBoolean("dryRun",
			mcp.Description("Plan and record only, without applying (default false)"),
		),
	)
	s.mcpServer.AddTool(applyTool, s.handleApply)

	statusTool := mcp.NewTool("sync_status",
		mcp.WithDescription("Report the outcome of the most recent reconciliation run"),
	)
	s.mcpServer.AddTool(statusTool, s.handleStatus)
}

// runPayload is the JSON shape returned by sync_plan and sync_apply. It
// extends the run result with the per-resource decision list, which the
// result persists only through the diff artifact.
type runPayload struct {
	*reconciler.Result
	DecisionList []reconciler.Decision `json:"decisions,omitempty"`
}

func (s *Server) handlePlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.run(ctx, true)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Plan failed: %v", err)), nil
	}
	return marshalResult(runPayload{Result: result, DecisionList: result.Decisions})
}

func (s *Server) handleApply(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dryRun := request.GetBool("dryRun", false)

	result, err := s.run(ctx, dryRun)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Sync failed: %v", err)), nil
	}
	return marshalResult(runPayload{Result: result, DecisionList: result.Decisions})
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := reconciler.ReadStatus(s.artifactDir)
	if api.IsNotFound(err) {
		return mcp.NewToolResultText("No reconciliation run has been recorded yet."), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Reading run status: %v", err)), nil
	}
	return marshalResult(status)
}

// marshalResult renders any payload as an indented-JSON text result.
func marshalResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
