package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/fitscat/internal/coords"
	"github.com/dshills/fitscat/internal/fits"
	"github.com/dshills/fitscat/internal/logging"
	"github.com/dshills/fitscat/internal/storage"
	"github.com/dshills/fitscat/pkg/types"
)

// Defaults applied to zero Config fields
const (
	DefaultWorkers       = 8
	DefaultProgressEvery = 100
)

// ErrIndexingInProgress is returned when Run is called while another run
// on the same Indexer has not finished.
var ErrIndexingInProgress = errors.New("indexing already in progress")

// State is the coordinator's position in a run
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateDispatching
	StateDraining
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateDispatching:
		return "dispatching"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config contains configuration for a single run
type Config struct {
	Workers       int           // Concurrent files (default: 8)
	ProgressEvery int           // Files between progress reports (default: 100)
	FileTimeout   time.Duration // Per-file deadline, 0 for none
	OnProgress    func(Progress)

	// OnStart is called once the run holds the lock, before scanning
	OnStart func()

	// OnFile sees every finished file. Calls are serialized.
	OnFile func(types.FileResult)
}

func (c *Config) withDefaults() Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.Workers <= 0 {
		out.Workers = DefaultWorkers
	}
	if out.ProgressEvery <= 0 {
		out.ProgressEvery = DefaultProgressEvery
	}
	if out.FileTimeout < 0 {
		out.FileTimeout = 0
	}
	return out
}

// Statistics summarizes a finished run
type Statistics struct {
	Root        string
	TotalFiles  int
	Processed   int
	Created     int
	Updated     int
	Failed      int
	Outcomes    map[types.Outcome]int
	FailedFiles []types.FileResult // Sorted by path
	Cancelled   bool
	Duration    time.Duration
}

func newStatistics(root string, total int) *Statistics {
	return &Statistics{
		Root:       root,
		TotalFiles: total,
		Outcomes:   make(map[types.Outcome]int, len(types.AllOutcomes)),
	}
}

func (s *Statistics) record(r types.FileResult) {
	s.Processed++
	s.Outcomes[r.Outcome]++
	switch {
	case r.Outcome == types.OutcomeCreated:
		s.Created++
	case r.Outcome == types.OutcomeUpdated:
		s.Updated++
	case r.Outcome.IsError():
		s.Failed++
		s.FailedFiles = append(s.FailedFiles, r)
	}
}

// ErrorMessages renders each failed file as "path: reason"
func (s *Statistics) ErrorMessages() []string {
	msgs := make([]string, 0, len(s.FailedFiles))
	for _, f := range s.FailedFiles {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Path, f.Reason()))
	}
	return msgs
}

// Indexer coordinates the pipeline: walk -> read header -> resolve -> upsert
type Indexer struct {
	store    storage.Storage
	resolver *coords.Resolver
	client   types.ClientInfo

	lock  IndexLock
	state atomic.Int32
	now   func() time.Time
	// onState observes transitions; set only in tests
	onState func(State)
}

// New creates an Indexer writing to store. Every record is tagged with client.
func New(store storage.Storage, resolver *coords.Resolver, client types.ClientInfo) *Indexer {
	if resolver == nil {
		resolver = coords.NewResolver(coords.FiglObservatory())
	}
	return &Indexer{
		store:    store,
		resolver: resolver,
		client:   client,
		now:      time.Now,
	}
}

// State returns the current coordinator state
func (idx *Indexer) State() State {
	return State(idx.state.Load())
}

func (idx *Indexer) setState(s State) {
	idx.state.Store(int32(s))
	logging.Debug("Indexer state: %s", s)
	if idx.onState != nil {
		idx.onState(s)
	}
}

// Run indexes every FITS file below root. Per-file failures are recorded in
// the returned Statistics; only a failed walk (ErrWalk) or a concurrent run
// (ErrIndexingInProgress) is returned as an error. Cancelling ctx stops
// dispatching; files never dispatched are counted as cancelled.
func (idx *Indexer) Run(ctx context.Context, root string, config *Config) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer idx.lock.Release()
	defer idx.setState(StateDone)

	cfg := config.withDefaults()
	startTime := idx.now()
	if cfg.OnStart != nil {
		cfg.OnStart()
	}

	idx.setState(StateScanning)
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWalk, err)
	}
	files, err := discoverFiles(ctx, absRoot)
	if err != nil {
		return nil, err
	}
	logging.Info("Found %d FITS files under %s", len(files), absRoot)

	stats := newStatistics(absRoot, len(files))
	if len(files) == 0 {
		stats.Cancelled = ctx.Err() != nil
		stats.Duration = idx.now().Sub(startTime)
		return stats, nil
	}
	col := &collector{
		stats:    stats,
		progress: newProgressTracker(len(files), cfg.ProgressEvery, cfg.OnProgress, idx.now),
		onFile:   cfg.OnFile,
	}

	idx.setState(StateDispatching)
	dispatched := idx.dispatch(ctx, absRoot, files, cfg, col)

	idx.setState(StateDraining)
	if dispatched < len(files) {
		for _, path := range files[dispatched:] {
			col.add(types.FileResult{Path: path, Outcome: types.OutcomeCancelled, Err: ctx.Err()})
		}
	}
	col.wait()

	stats.Cancelled = ctx.Err() != nil
	sort.Slice(stats.FailedFiles, func(i, j int) bool {
		return stats.FailedFiles[i].Path < stats.FailedFiles[j].Path
	})
	stats.Duration = idx.now().Sub(startTime)

	logging.Info("Indexed %s: %d created, %d updated, %d failed in %s",
		absRoot, stats.Created, stats.Updated, stats.Failed, stats.Duration.Round(time.Millisecond))
	return stats, nil
}

// dispatch starts one task per file on a pool of cfg.Workers and returns how
// many files were handed out before ctx was cancelled. Tasks never fail the
// group; their results go to the collector.
func (idx *Indexer) dispatch(ctx context.Context, root string, files []string, cfg Config, col *collector) int {
	g := new(errgroup.Group)
	g.SetLimit(cfg.Workers)
	col.group = g

	dispatched := 0
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			col.add(idx.processFile(ctx, root, path, cfg.FileTimeout))
			return nil
		})
		dispatched++
	}
	return dispatched
}

// processFile runs the per-file pipeline and classifies the result
func (idx *Indexer) processFile(ctx context.Context, root, path string, timeout time.Duration) (res types.FileResult) {
	start := idx.now()
	res.Path = path
	defer func() { res.Duration = idx.now().Sub(start) }()

	fctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithDeadline(ctx, start.Add(timeout))
		defer cancel()
	}

	header, err := fits.ReadHeader(fctx, path)
	if err != nil {
		res.Err = err
		switch {
		case errors.Is(err, fits.ErrNotFound):
			res.Outcome = types.OutcomeNotFound
		case ctx.Err() != nil:
			res.Outcome = types.OutcomeCancelled
		default:
			res.Outcome = types.OutcomeUnreadable
		}
		return res
	}

	rec, err := idx.buildRecord(root, path, header)
	if err != nil {
		res.Outcome, res.Err = types.OutcomeUnreadable, err
		return res
	}

	res.Outcome, res.Err = upsertRecord(fctx, idx.store, rec)
	if res.Err != nil && ctx.Err() != nil {
		res.Outcome = types.OutcomeCancelled
	}
	return res
}

// buildRecord derives the catalog row for one header
func (idx *Indexer) buildRecord(root, path string, header *fits.Header) (*storage.FitsFile, error) {
	fields := fits.Extract(header)
	for _, w := range fields.Warnings {
		logging.Warn("%s: %v", path, w)
	}

	dump, err := header.JSON()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize header: %w", err)
	}

	pos := idx.resolver.Resolve(fields)
	return &storage.FitsFile{
		FilePath:       path,
		FileName:       filepath.Base(path),
		ObjectName:     fields.ObjectName,
		DateObs:        fields.DateObs,
		ExpTime:        fields.ExpTime,
		Observatory:    fields.Observatory,
		RADeg:          pos.RA,
		DecDeg:         pos.Dec,
		Altitude:       pos.Altitude,
		HeaderDump:     string(dump),
		ScanRoot:       root,
		ClientHostname: idx.client.Hostname,
		ClientOS:       idx.client.OS,
		ClientMAC:      idx.client.MAC,
	}, nil
}

// collector serializes results coming back from workers
type collector struct {
	mu       sync.Mutex
	stats    *Statistics
	progress *progressTracker
	onFile   func(types.FileResult)
	group    *errgroup.Group
}

func (c *collector) add(r types.FileResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case r.Outcome == types.OutcomeCancelled:
		logging.Debug("Skipped %s: %s", r.Path, r.Reason())
	case r.Outcome.IsError():
		logging.Warn("Failed to index %s: %s", r.Path, r.Reason())
	default:
		logging.Debug("Indexed %s (%s) in %s", r.Path, r.Outcome, r.Duration)
	}

	c.stats.record(r)
	if c.onFile != nil {
		c.onFile(r)
	}
	c.progress.add(r.Outcome)
}

func (c *collector) wait() {
	if c.group != nil {
		_ = c.group.Wait()
	}
}
