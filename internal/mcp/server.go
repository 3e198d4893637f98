// Package mcp exposes the Ruby analyzer to MCP clients over stdio.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/imyousuf/rubyagent/internal/indexer"
)

const serverName = "rubyagent"

// Server wraps an MCP server whose tools run analyses through an Indexer.
type Server struct {
	mcpServer *server.MCPServer
	idx       *indexer.Indexer
	log       *slog.Logger
}

// NewServer creates an MCP server backed by idx. version is reported to
// clients during initialization.
func NewServer(idx *indexer.Indexer, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{idx: idx, log: logger}

	s.mcpServer = server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Analyze Ruby class structure: definitions, namespaces, includes, methods and the files their call receivers resolve to."),
	)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: analyzeDirectoryTool(), Handler: s.handleAnalyzeDirectory},
		server.ServerTool{Tool: lookupClassTool(), Handler: s.handleLookupClass},
		server.ServerTool{Tool: classVariantsTool(), Handler: s.handleClassVariants},
		server.ServerTool{Tool: listRunsTool(), Handler: s.handleListRuns},
		server.ServerTool{Tool: statsTool(), Handler: s.handleStats},
	)

	return s
}

// ServeStdio serves MCP requests on stdin/stdout until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
