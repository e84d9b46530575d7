package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/fitscat/internal/indexer"
	"github.com/dshills/fitscat/internal/metrics"
	"github.com/dshills/fitscat/internal/searcher"
	"github.com/dshills/fitscat/internal/storage"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeDirectoryNotFound  = -32001 // Directory missing or not walkable
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // File has no catalog record
)

// maxReportedErrors bounds the failures listed in an index_directory response
const maxReportedErrors = 5

// handleIndexDirectory handles the index_directory tool invocation
func (s *Server) handleIndexDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		code := ErrorCodeInvalidParams
		if errors.Is(err, ErrPathNotFound) {
			code = ErrorCodeDirectoryNotFound
		}
		return nil, newMCPError(code, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	workers := getIntDefault(args, "workers", s.workers)
	if workers < 1 || workers > 64 {
		return nil, newMCPError(ErrorCodeInvalidParams, "workers must be between 1 and 64", map[string]interface{}{
			"param": "workers",
			"value": workers,
		})
	}

	stats, err := s.indexer.Run(ctx, path, &indexer.Config{
		Workers: workers,
		OnStart: func() { metrics.RunStarted(workers) },
		OnFile:  metrics.ObserveFile,
	})
	switch {
	case errors.Is(err, indexer.ErrIndexingInProgress):
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	case errors.Is(err, indexer.ErrWalk):
		metrics.RunFinished(0)
		return nil, newMCPError(ErrorCodeDirectoryNotFound, "failed to scan directory", map[string]interface{}{
			"error": err.Error(),
		})
	case err != nil:
		metrics.RunFinished(0)
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	metrics.RunFinished(stats.Duration)
	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"indexed":     !stats.Cancelled,
		"root":        stats.Root,
		"total_files": stats.TotalFiles,
		"created":     stats.Created,
		"updated":     stats.Updated,
		"failed":      stats.Failed,
		"cancelled":   stats.Cancelled,
		"duration_ms": stats.Duration.Milliseconds(),
	}

	if total, err := s.storage.CountFiles(ctx, nil); err == nil {
		response["catalog_files"] = total
	}

	if msgs := stats.ErrorMessages(); len(msgs) > 0 {
		if len(msgs) > maxReportedErrors {
			response["errors"] = msgs[:maxReportedErrors]
			response["error_count"] = len(msgs)
		} else {
			response["errors"] = msgs
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchFiles handles the search_files tool invocation
func (s *Server) handleSearchFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	filters, err := parseFilters(args)
	if err != nil {
		return nil, err
	}

	filters.Limit = getIntDefault(args, "limit", DefaultSearchLimit)
	if filters.Limit < 1 || filters.Limit > MaxSearchLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", MaxSearchLimit), map[string]interface{}{
			"param": "limit",
			"value": filters.Limit,
		})
	}
	filters.Offset = getIntDefault(args, "offset", 0)

	resp, err := s.searcher.Search(ctx, *filters)
	if err != nil {
		return nil, searchError(err)
	}

	results := make([]map[string]interface{}, 0, len(resp.Files))
	for _, f := range resp.Files {
		results = append(results, fileResult(f))
	}

	response := map[string]interface{}{
		"results":     results,
		"total":       resp.Total,
		"returned":    len(results),
		"offset":      filters.Offset,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetHeader handles the get_header tool invocation
func (s *Server) handleGetHeader(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if !filepath.IsAbs(path) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": ErrPathNotAbsolute.Error(),
		})
	}

	header, err := s.searcher.Header(ctx, filepath.Clean(path))
	if errors.Is(err, searcher.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotIndexed, "file not indexed", map[string]interface{}{
			"path": path,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load header", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"path":   path,
		"header": header,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCatalogStats handles the catalog_stats tool invocation
func (s *Server) handleCatalogStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	filters, err := parseFilters(args)
	if err != nil {
		return nil, err
	}

	stats, err := s.searcher.Stats(ctx, *filters)
	if err != nil {
		return nil, searchError(err)
	}

	response := map[string]interface{}{
		"files":                stats.Files,
		"total_exposure_hours": stats.TotalExposureHours,
		"nights":               stats.Nights,
		"objects":              stats.Objects,
		"observatories":        stats.Observatories,
		"months":               stats.Months,
		"indexer_state":        s.indexer.State().String(),
	}
	if dr, err := s.searcher.DateRange(ctx); err == nil {
		response["catalog_date_range"] = dr
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListClients handles the list_clients tool invocation
func (s *Server) handleListClients(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clients, err := s.searcher.Clients(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list clients", map[string]interface{}{
			"error": err.Error(),
		})
	}

	list := make([]map[string]interface{}, 0, len(clients))
	for _, c := range clients {
		list = append(list, map[string]interface{}{
			"mac":       c.MAC,
			"hostname":  c.Hostname,
			"os":        c.OS,
			"files":     c.Files,
			"last_seen": c.LastSeen.UTC().Format(time.RFC3339),
		})
	}

	response := map[string]interface{}{
		"clients": list,
		"count":   len(list),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// arguments returns the call's argument object. A call without arguments
// is treated as an empty object.
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// parseFilters reads the shared filter arguments
func parseFilters(args map[string]interface{}) (*searcher.Filters, error) {
	f := &searcher.Filters{
		ObjectContains: getStringDefault(args, "object", ""),
	}

	var err error
	if f.ObjectNames, err = getStringSlice(args, "names"); err != nil {
		return nil, err
	}
	if f.Observatories, err = getStringSlice(args, "observatories"); err != nil {
		return nil, err
	}
	if f.ClientMACs, err = getStringSlice(args, "clients"); err != nil {
		return nil, err
	}
	if f.ExpTimes, err = getFloatSlice(args, "exptimes"); err != nil {
		return nil, err
	}
	if f.MinExpTime, err = getFloatPtr(args, "min_exptime"); err != nil {
		return nil, err
	}
	if f.MinAltitude, err = getFloatPtr(args, "min_altitude"); err != nil {
		return nil, err
	}
	if f.MaxAltitude, err = getFloatPtr(args, "max_altitude"); err != nil {
		return nil, err
	}
	if f.DateFrom, err = getDatePtr(args, "date_from"); err != nil {
		return nil, err
	}
	if f.DateTo, err = getDatePtr(args, "date_to"); err != nil {
		return nil, err
	}
	return f, nil
}

// searchError maps searcher failures onto MCP error codes
func searchError(err error) error {
	if errors.Is(err, searcher.ErrInvalidFilters) {
		return newMCPError(ErrorCodeInvalidParams, "invalid filters", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	return newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
		"error": err.Error(),
	})
}

func fileResult(f *storage.FitsFile) map[string]interface{} {
	out := map[string]interface{}{
		"path":        f.FilePath,
		"filename":    f.FileName,
		"object":      f.ObjectName,
		"exptime":     f.ExpTime,
		"observatory": f.Observatory,
		"ra_deg":      f.RADeg,
		"dec_deg":     f.DecDeg,
		"altitude":    f.Altitude,
		"client":      f.ClientHostname,
	}
	if f.DateObs != nil {
		out["date_obs"] = f.DateObs.UTC().Format(time.RFC3339)
	} else {
		out["date_obs"] = nil
	}
	return out
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that path is an absolute, readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a list of strings. A single string is accepted
// as a list of one.
func getStringSlice(args map[string]interface{}, key string) ([]string, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return []string{v}, nil
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, invalidParam(key, "expected an array of strings")
			}
			if str != "" {
				out = append(out, str)
			}
		}
		return out, nil
	default:
		return nil, invalidParam(key, "expected an array of strings")
	}
}

// getFloatSlice extracts a list of numbers
func getFloatSlice(args map[string]interface{}, key string) ([]float64, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case float64:
		return []float64{v}, nil
	case []float64:
		return v, nil
	case []interface{}:
		out := make([]float64, 0, len(v))
		for _, item := range v {
			n, ok := item.(float64)
			if !ok {
				return nil, invalidParam(key, "expected an array of numbers")
			}
			out = append(out, n)
		}
		return out, nil
	default:
		return nil, invalidParam(key, "expected an array of numbers")
	}
}

// getFloatPtr extracts an optional number
func getFloatPtr(args map[string]interface{}, key string) (*float64, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case float64:
		return &v, nil
	case int:
		n := float64(v)
		return &n, nil
	default:
		return nil, invalidParam(key, "expected a number")
	}
}

// getDatePtr extracts an optional YYYY-MM-DD date as UTC midnight
func getDatePtr(args map[string]interface{}, key string) (*time.Time, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	str, ok := v.(string)
	if !ok {
		return nil, invalidParam(key, "expected a YYYY-MM-DD string")
	}
	if str == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", str, time.UTC)
	if err != nil {
		return nil, invalidParam(key, "expected a YYYY-MM-DD string")
	}
	return &t, nil
}

func invalidParam(key, reason string) error {
	return newMCPError(ErrorCodeInvalidParams, "invalid "+key, map[string]interface{}{
		"param":  key,
		"reason": reason,
	})
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
