// Command fitscat indexes directories of FITS images into a searchable
// catalog and serves it over HTTP and MCP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/fitscat/internal/logging"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Logs go to stderr; stdout is reserved for results and the MCP protocol
	logging.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fitscat: %v\n", err)
		os.Exit(1)
	}
}
