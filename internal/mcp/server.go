package mcp

import (
	"context"
	"errors"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/fitscat/internal/indexer"
	"github.com/dshills/fitscat/internal/searcher"
	"github.com/dshills/fitscat/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "fitscat"
	// DefaultSearchLimit is used when search_files has no limit
	DefaultSearchLimit = 50
	// MaxSearchLimit caps search_files results
	MaxSearchLimit = 1000
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	workers  int
}

// NewServer creates an MCP server over an opened catalog. workers is the
// pool width used when index_directory does not name one.
func NewServer(store storage.Storage, idx *indexer.Indexer, srch *searcher.Searcher, version string, workers int) (*Server, error) {
	if store == nil || idx == nil || srch == nil {
		return nil, errors.New("mcp: store, indexer and searcher are required")
	}
	if workers <= 0 {
		workers = indexer.DefaultWorkers
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, version),
		storage:  store,
		indexer:  idx,
		searcher: srch,
		workers:  workers,
	}
	s.registerTools()
	return s, nil
}

// Serve runs the MCP server on stdio and blocks until the client disconnects.
// The caller owns the store.
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(indexDirectoryTool(), s.handleIndexDirectory)
	s.mcp.AddTool(searchFilesTool(), s.handleSearchFiles)
	s.mcp.AddTool(getHeaderTool(), s.handleGetHeader)
	s.mcp.AddTool(catalogStatsTool(), s.handleCatalogStats)
	s.mcp.AddTool(listClientsTool(), s.handleListClients)
}
