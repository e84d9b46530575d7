package metrics

import (
	"time"

	"github.com/dshills/fitscat/pkg/types"
)

// ObserveFile records one finished file. It matches indexer.Config.OnFile.
func ObserveFile(r types.FileResult) {
	IndexerFilesTotal.WithLabelValues(string(r.Outcome)).Inc()
	if r.Duration > 0 {
		IndexerFileDuration.Observe(r.Duration.Seconds())
	}
}

// RunStarted marks the beginning of a run with the given pool width
func RunStarted(workers int) {
	IndexerRunsTotal.Inc()
	IndexerWorkers.Set(float64(workers))
	IndexerIsRunning.Set(1)
}

// RunFinished marks the end of a run
func RunFinished(d time.Duration) {
	IndexerIsRunning.Set(0)
	IndexerRunDuration.Set(d.Seconds())
	IndexerLastRunTimestamp.Set(float64(time.Now().Unix()))
}
