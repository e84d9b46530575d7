package searcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/fitscat/internal/storage"
)

// DefaultCacheTTL bounds how stale a cached result can be when another
// process writes to the catalog
const DefaultCacheTTL = time.Minute

const cacheSize = 1000

// ErrNotFound is returned by Header for a path that is not cataloged
var ErrNotFound = errors.New("file not found in catalog")

// SearchResponse contains one page of matching records
type SearchResponse struct {
	Files    []*storage.FitsFile
	Total    int // Matches before Limit/Offset
	Duration time.Duration
	CacheHit bool
}

// cacheEntry represents a cached response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher answers catalog queries on top of a store
type Searcher struct {
	storage storage.Storage
	ttl     time.Duration
	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
	now     func() time.Time
}

// NewSearcher creates a Searcher. A zero ttl selects DefaultCacheTTL; a
// negative ttl disables caching.
func NewSearcher(store storage.Storage, ttl time.Duration) *Searcher {
	// Cache will automatically evict least recently used entries
	cache, err := lru.New[[32]byte, *cacheEntry](cacheSize)
	if err != nil {
		// Only fails for a non-positive size
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &Searcher{
		storage: store,
		ttl:     ttl,
		cache:   cache,
		now:     time.Now,
	}
}

// Search returns one page of records matching f, newest observation first
func (s *Searcher) Search(ctx context.Context, f Filters) (*SearchResponse, error) {
	return s.search(ctx, f, true)
}

func (s *Searcher) search(ctx context.Context, f Filters, paged bool) (*SearchResponse, error) {
	start := s.now()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	kind := "all"
	if paged {
		kind = "page"
	}
	key := f.cacheKey(kind)
	if cached := s.checkCache(key); cached != nil {
		cached.CacheHit = true
		cached.Duration = s.now().Sub(start)
		return cached, nil
	}

	sf := f.toStorage(paged)
	files, err := s.storage.ListFiles(ctx, sf)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	total := len(files)
	if paged && (f.Limit > 0 || f.Offset > 0) {
		total, err = s.storage.CountFiles(ctx, f.toStorage(false))
		if err != nil {
			return nil, fmt.Errorf("failed to count files: %w", err)
		}
	}

	resp := &SearchResponse{Files: files, Total: total}
	s.storeInCache(key, resp)
	resp.Duration = s.now().Sub(start)
	return resp, nil
}

// Header returns the stored header of one file as a JSON object
func (s *Searcher) Header(ctx context.Context, path string) (json.RawMessage, error) {
	rec, err := s.storage.GetFile(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if rec.HeaderDump == "" {
		return json.RawMessage("{}"), nil
	}
	return json.RawMessage(rec.HeaderDump), nil
}

// Clients lists every machine that has written records
func (s *Searcher) Clients(ctx context.Context) ([]storage.Client, error) {
	clients, err := s.storage.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

// DateRange returns the span of observation dates in the catalog
func (s *Searcher) DateRange(ctx context.Context) (*storage.DateRange, error) {
	dr, err := s.storage.DateRange(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read date range: %w", err)
	}
	return dr, nil
}

// Stats summarizes every record matching f. Limit and Offset are ignored.
func (s *Searcher) Stats(ctx context.Context, f Filters) (*Stats, error) {
	resp, err := s.search(ctx, f, false)
	if err != nil {
		return nil, err
	}
	return Summarize(resp.Files), nil
}

// Sky returns galactic positions for every record matching f
func (s *Searcher) Sky(ctx context.Context, f Filters) ([]SkyPoint, error) {
	resp, err := s.search(ctx, f, false)
	if err != nil {
		return nil, err
	}
	return SkyPoints(resp.Files), nil
}

// Options returns the distinct values offered as filter choices
func (s *Searcher) Options(ctx context.Context) (*Options, error) {
	resp, err := s.search(ctx, Filters{}, false)
	if err != nil {
		return nil, err
	}
	opts := FilterOptions(resp.Files)
	if opts.DateRange, err = s.DateRange(ctx); err != nil {
		return nil, err
	}
	return opts, nil
}

// InvalidateCache drops every cached result. Called after an indexing run.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached responses
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

// checkCache returns a copy of a live cached response, or nil
func (s *Searcher) checkCache(key [32]byte) *SearchResponse {
	if s.ttl < 0 {
		return nil
	}

	s.cacheMu.RLock()
	entry, found := s.cache.Get(key)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}
	if s.now().After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil
	}
	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()
	return response
}

func (s *Searcher) storeInCache(key [32]byte, resp *SearchResponse) {
	if s.ttl < 0 {
		return
	}
	entry := &cacheEntry{
		response:  copySearchResponse(resp),
		expiresAt: s.now().Add(s.ttl),
	}
	s.cacheMu.Lock()
	s.cache.Add(key, entry)
	s.cacheMu.Unlock()
}

// copySearchResponse deep-copies records so callers cannot modify the cache
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}
	dst := &SearchResponse{Total: src.Total, Files: make([]*storage.FitsFile, len(src.Files))}
	for i, f := range src.Files {
		c := *f
		c.DateObs = copyPtr(f.DateObs)
		c.RADeg = copyPtr(f.RADeg)
		c.DecDeg = copyPtr(f.DecDeg)
		c.Altitude = copyPtr(f.Altitude)
		dst.Files[i] = &c
	}
	return dst
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
