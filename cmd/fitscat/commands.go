package main

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dshills/fitscat/internal/api"
	"github.com/dshills/fitscat/internal/config"
	"github.com/dshills/fitscat/internal/logging"
	"github.com/dshills/fitscat/internal/mcp"
	"github.com/dshills/fitscat/internal/snapshot"
	"github.com/dshills/fitscat/internal/storage"
)

// errCancelled makes an interrupted run exit non-zero after its summary
var errCancelled = errors.New("indexing cancelled")

func newRootCommand() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "fitscat [directory]",
		Short: "Index FITS images into a searchable catalog",
		Long: `fitscat scans a directory tree for FITS images (.fits, .fit, .fts), reads each
primary header and records object, observation time, exposure, sky position
and altitude in the catalog. Files already in the catalog are updated in place.

If no directory is given, fitscat asks for one.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if cmd.Flags().Changed("workers") {
				if workers < 1 {
					return fmt.Errorf("invalid --workers %d: must be at least 1", workers)
				}
			} else {
				workers = 0
			}

			var dir string
			if len(args) == 1 {
				dir = args[0]
			} else {
				var err error
				dir, err = promptDirectory(ctx, cmd.InOrStdin(), cmd.ErrOrStderr(), isTerminal(cmd.InOrStdin()))
				if err != nil {
					return err
				}
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.index(ctx, dir, workers)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(stats, isTerminal(cmd.OutOrStdout())))
			if stats.Cancelled {
				return errCancelled
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", config.DefaultWorkers, "Files processed concurrently; FITSCAT_WORKERS changes the default")
	cmd.AddCommand(
		newServeCmd(),
		newMCPCmd(),
		newExportCmd(),
		newStreamCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			return api.New(a.newSearcher(), version).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from FITSCAT_HTTP_ADDR, :8080)")
	return cmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve catalog tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			server, err := mcp.NewServer(a.store, a.newIndexer(), a.newSearcher(), version, a.cfg.Workers)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			logging.Info("fitscat %s MCP server ready, listening on stdio", version)
			if err := server.Serve(ctx); err != nil && !errors.Is(err, ctx.Err()) {
				return err
			}
			logging.Info("MCP server stopped")
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var out string
	var upload bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog to a Parquet snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if out == "" {
				out = a.cfg.SnapshotPath
			}
			n, err := snapshot.Export(ctx, a.store, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", n, out)

			if upload {
				key, err := snapshot.Upload(ctx, a.cfg.S3, out)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded to %s/%s\n", a.cfg.S3.Bucket, key)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Snapshot path (default from FITSCAT_SNAPSHOT_PATH, "+config.DefaultSnapshotPath+")")
	cmd.Flags().BoolVar(&upload, "upload", false, "Upload the snapshot to the configured S3 bucket")
	return cmd
}

func newStreamCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stream [snapshot]",
		Short: "Print a Parquet snapshot as JSON lines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultSnapshotPath
			if len(args) == 1 {
				path = args[0]
			} else if cfg, err := config.Load(); err == nil {
				path = cfg.SnapshotPath
			}
			_, err := snapshot.Stream(path, cmd.OutOrStdout())
			return err
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply catalog schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			m, ok := a.store.(storage.Migrator)
			if !ok {
				return errors.New("storage backend does not support migrations")
			}
			if reset {
				logging.Warn("Dropping every catalog record")
				if err := m.Reset(ctx); err != nil {
					return fmt.Errorf("failed to reset catalog: %w", err)
				}
			}
			v, err := m.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version %s\n", v)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Drop the catalog and recreate an empty schema")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "fitscat %s\n", version)
			fmt.Fprintf(out, "Build Time: %s\n", buildTime)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
			fmt.Fprintf(out, "Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
