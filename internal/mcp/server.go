package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/graphstore"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/jobs"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/searcher"
)

// ServerName is the MCP server name
const ServerName = "aethernexus"

// Deps are the components exposed as tools
type Deps struct {
	Runner   *jobs.Runner
	Searcher *searcher.Searcher
	Graph    *graphstore.Gateway
	Version  string
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	runner   *jobs.Runner
	searcher *searcher.Searcher
	graph    *graphstore.Gateway
	logger   *slog.Logger
}

// NewServer creates a new MCP server instance with every tool registered
func NewServer(deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		mcp:      server.NewMCPServer(ServerName, deps.Version),
		runner:   deps.Runner,
		searcher: deps.Searcher,
		graph:    deps.Graph,
		logger:   logger,
	}

	for _, t := range s.tools() {
		s.mcp.AddTool(t.Tool, t.Handler)
	}
	return s
}

// Serve runs the MCP server on stdio until the client disconnects, then
// cancels background indexing jobs
func (s *Server) Serve(ctx context.Context) error {
	defer s.runner.Shutdown()
	s.logger.InfoContext(ctx, "serving MCP on stdio", "tools", len(s.tools()))
	return server.ServeStdio(s.mcp)
}

// tools pairs every tool definition with its handler
func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: indexProjectTool(), Handler: s.handleIndexProject},
		{Tool: indexStatusTool(), Handler: s.handleIndexStatus},
		{Tool: deleteIndexTool(), Handler: s.handleDeleteIndex},
		{Tool: searchTool(), Handler: s.handleSearch},
		{Tool: entityGraphTool(), Handler: s.handleEntityGraph},
		{Tool: entityConnectionsTool(), Handler: s.handleEntityConnections},
	}
}
