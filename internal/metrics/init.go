package metrics

import "github.com/dshills/fitscat/pkg/types"

// InitializeMetrics pre-populates the outcome labels so every series is
// exported from the first scrape.
func InitializeMetrics() {
	for _, o := range types.AllOutcomes {
		IndexerFilesTotal.WithLabelValues(string(o))
	}
}
