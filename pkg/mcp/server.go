// Package mcp exposes the engine over the Model Context Protocol on stdio:
// an `ask` tool running the full question-to-rows loop and a `plan_joins`
// tool for inspecting join skeletons.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/sqlmend/sqlmend/pkg/pipeline"
	"github.com/sqlmend/sqlmend/pkg/schema"
)

// Deps are the collaborators the tools need.
type Deps struct {
	Engine *pipeline.Engine
	Schema *schema.Context
	Logger *zap.Logger
}

// Server wraps the mcp-go MCPServer.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates the MCP server and registers all tools.
func NewServer(version string, deps *Deps) *Server {
	mcpServer := server.NewMCPServer(
		"sqlmend",
		version,
		server.WithToolCapabilities(true),
	)

	s := &Server{mcp: mcpServer, logger: deps.Logger.Named("mcp")}
	RegisterHealthTool(mcpServer, version)
	RegisterAskTool(mcpServer, deps)
	RegisterPlanJoinsTool(mcpServer, deps)
	return s
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving MCP on stdio")
	return server.ServeStdio(s.mcp)
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}
