package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/dshills/fitscat/internal/logging"
	"github.com/dshills/fitscat/internal/searcher"
	"github.com/dshills/fitscat/internal/storage"
)

// FileJSON is the wire form of one catalog record
type FileJSON struct {
	Path        string     `json:"path"`
	FileName    string     `json:"filename"`
	Object      string     `json:"object"`
	DateObs     *time.Time `json:"date_obs"`
	ExpTime     float64    `json:"exptime"`
	Observatory string     `json:"observatory"`
	RADeg       *float64   `json:"ra_deg"`
	DecDeg      *float64   `json:"dec_deg"`
	Altitude    *float64   `json:"altitude"`
	ScanRoot    string     `json:"scan_root"`
	Client      ClientJSON `json:"client"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ClientJSON identifies the writer of a record
type ClientJSON struct {
	Hostname string     `json:"hostname"`
	OS       string     `json:"os"`
	MAC      string     `json:"mac"`
	Files    int        `json:"files,omitempty"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// FilesResponse is one page of the listing
type FilesResponse struct {
	Files  []FileJSON `json:"files"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// HealthResponse contains the health check response
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	Files        int    `json:"files"`
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

func toFileJSON(f *storage.FitsFile) FileJSON {
	return FileJSON{
		Path:        f.FilePath,
		FileName:    f.FileName,
		Object:      f.ObjectName,
		DateObs:     f.DateObs,
		ExpTime:     f.ExpTime,
		Observatory: f.Observatory,
		RADeg:       f.RADeg,
		DecDeg:      f.DecDeg,
		Altitude:    f.Altitude,
		ScanRoot:    f.ScanRoot,
		Client:      ClientJSON{Hostname: f.ClientHostname, OS: f.ClientOS, MAC: f.ClientMAC},
		UpdatedAt:   f.UpdatedAt,
	}
}

// ListFiles returns a filtered page of records
func (s *Server) ListFiles(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r.URL.Query(), true)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.searcher.Search(r.Context(), f)
	if err != nil {
		s.queryError(w, err)
		return
	}

	out := FilesResponse{Files: make([]FileJSON, 0, len(resp.Files)), Total: resp.Total, Limit: f.Limit, Offset: f.Offset}
	for _, file := range resp.Files {
		out.Files = append(out.Files, toFileJSON(file))
	}
	writeJSON(w, out)
}

// GetHeader returns the stored header of one file
func (s *Server) GetHeader(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSONError(w, "path is required", http.StatusBadRequest)
		return
	}

	header, err := s.searcher.Header(r.Context(), path)
	if err != nil {
		if errors.Is(err, searcher.ErrNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		s.queryError(w, err)
		return
	}
	writeJSON(w, header)
}

// ListClients returns every machine that has written records
func (s *Server) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.searcher.Clients(r.Context())
	if err != nil {
		s.queryError(w, err)
		return
	}

	out := make([]ClientJSON, 0, len(clients))
	for _, c := range clients {
		lastSeen := c.LastSeen
		out = append(out, ClientJSON{Hostname: c.Hostname, OS: c.OS, MAC: c.MAC, Files: c.Files, LastSeen: &lastSeen})
	}
	writeJSON(w, out)
}

// GetStats returns aggregate statistics for the filtered records
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r.URL.Query(), false)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	st, err := s.searcher.Stats(r.Context(), f)
	if err != nil {
		s.queryError(w, err)
		return
	}
	writeJSON(w, st)
}

// GetSky returns galactic positions for the filtered records
func (s *Server) GetSky(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r.URL.Query(), false)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	points, err := s.searcher.Sky(r.Context(), f)
	if err != nil {
		s.queryError(w, err)
		return
	}
	writeJSON(w, points)
}

// GetOptions returns the distinct filter values
func (s *Server) GetOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.searcher.Options(r.Context())
	if err != nil {
		s.queryError(w, err)
		return
	}
	writeJSON(w, opts)
}

// HealthCheck reports liveness and the catalog size
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:       "healthy",
		Version:      s.version,
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	page, err := s.searcher.Search(r.Context(), searcher.Filters{Limit: 1})
	if err != nil {
		logging.Warn("Health check query failed: %v", err)
		resp.Status = "degraded"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSONBody(w, resp)
		return
	}
	resp.Files = page.Total
	writeJSON(w, resp)
}

func (s *Server) queryError(w http.ResponseWriter, err error) {
	if errors.Is(err, searcher.ErrInvalidFilters) {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	logging.Error("Query failed: %v", err)
	writeJSONError(w, "query failed", http.StatusInternalServerError)
}

// writeJSON sets the content type and encodes v
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	writeJSONBody(w, v)
}

// writeJSONBody encodes v. Errors are only logged since the status line
// has already been sent.
func writeJSONBody(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSONBody(w, map[string]string{"error": message})
}
