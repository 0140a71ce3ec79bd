// Package mcp exposes the knowledge-base tools over the Model Context
// Protocol on stdio.
package mcp

import (
	"context"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"xppkb/internal/tools"
)

// ServerName is reported to clients during initialization.
const ServerName = "xppkb"

// Server wraps the tool service in an MCP server.
type Server struct {
	service *tools.Service
	server  *server.MCPServer
	logger  *slog.Logger
}

// NewServer creates a server with every tool and resource registered.
func NewServer(service *tools.Service, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{service: service, logger: logger}

	s.server = server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)
	for _, tool := range toolDefinitions() {
		s.server.AddTool(tool, s.handle(tool.Name))
	}
	s.registerResources()
	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *server.MCPServer {
	return s.server
}

// Serve answers requests read from in until ctx is done or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("MCP server listening on stdio", "tools", len(tools.Names))
	stdio := server.NewStdioServer(s.server)
	return stdio.Listen(ctx, in, out)
}

// handle dispatches a tool call to the service. Failures come back as
// error results; the protocol-level error is always nil.
func (s *Server) handle(tool string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := s.service.Call(ctx, tool, req.GetArguments())
		s.logger.Debug("Tool call handled", "tool", tool, "isError", res.IsError)
		return toCallToolResult(res), nil
	}
}

func toCallToolResult(res *tools.Result) *mcp.CallToolResult {
	if res.IsError {
		return mcp.NewToolResultError(res.Content)
	}
	return mcp.NewToolResultText(res.Content)
}
