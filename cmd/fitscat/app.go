package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/fitscat/internal/config"
	"github.com/dshills/fitscat/internal/coords"
	"github.com/dshills/fitscat/internal/identity"
	"github.com/dshills/fitscat/internal/indexer"
	"github.com/dshills/fitscat/internal/logging"
	"github.com/dshills/fitscat/internal/metrics"
	"github.com/dshills/fitscat/internal/searcher"
	"github.com/dshills/fitscat/internal/storage"
	"github.com/dshills/fitscat/pkg/types"
)

// pushTimeout bounds the Pushgateway request after a run
const pushTimeout = 10 * time.Second

// app holds the dependencies shared by every command
type app struct {
	cfg    *config.Config
	store  storage.Storage
	client types.ClientInfo
}

// openApp loads configuration and opens the catalog, applying migrations
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if m, ok := store.(storage.Migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to migrate catalog: %w", err)
		}
	}

	return &app{cfg: cfg, store: store, client: identity.Detect()}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		logging.Info("Opening PostgreSQL catalog")
		return storage.Open(ctx, storage.BackendPostgres, cfg.DatabaseURL, poolSize(cfg.Workers))
	default:
		path, err := cfg.ResolvedDBPath()
		if err != nil {
			return nil, err
		}
		logging.Info("Opening SQLite catalog %s (driver %s, %s build)", path, storage.DriverName, storage.BuildMode)
		return storage.Open(ctx, storage.BackendSQLite, path, 0)
	}
}

// poolSize sizes the PostgreSQL pool to the worker count plus headroom
// for readers.
func poolSize(workers int) int {
	if workers <= 0 {
		workers = indexer.DefaultWorkers
	}
	return workers + 2
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logging.Warn("Failed to close catalog: %v", err)
	}
}

func (a *app) newIndexer() *indexer.Indexer {
	return indexer.New(a.store, coords.NewResolver(a.cfg.DefaultSite), a.client)
}

func (a *app) newSearcher() *searcher.Searcher {
	return searcher.NewSearcher(a.store, searcher.DefaultCacheTTL)
}

// index runs one indexing pass with metrics and optional Pushgateway export
func (a *app) index(ctx context.Context, dir string, workers int) (*indexer.Statistics, error) {
	if workers <= 0 {
		workers = a.cfg.Workers
	}
	metrics.InitializeMetrics()

	idx := a.newIndexer()
	stats, err := idx.Run(ctx, dir, &indexer.Config{
		Workers:       workers,
		ProgressEvery: a.cfg.ProgressEvery,
		FileTimeout:   a.cfg.FileTimeout,
		OnStart:       func() { metrics.RunStarted(workers) },
		OnProgress:    func(p indexer.Progress) { logging.Info("Progress: %s", p) },
		OnFile:        metrics.ObserveFile,
	})
	if err != nil {
		metrics.RunFinished(0)
		return nil, err
	}
	metrics.RunFinished(stats.Duration)

	if a.cfg.PushgatewayURL != "" {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()
		if err := metrics.Push(pctx, a.cfg.PushgatewayURL, a.client); err != nil {
			logging.Warn("Failed to push metrics to %s: %v", a.cfg.PushgatewayURL, err)
		}
	}
	return stats, nil
}
