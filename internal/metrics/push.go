package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/dshills/fitscat/pkg/types"
)

// PushJob is the Pushgateway job name used by CLI runs
const PushJob = "fitscat_indexer"

// Push sends the default registry to a Pushgateway, grouped by client host
// so several machines indexing into one catalog do not overwrite each other.
func Push(ctx context.Context, gatewayURL string, client types.ClientInfo) error {
	return PushFrom(ctx, gatewayURL, client, prometheus.DefaultGatherer)
}

// PushFrom is Push with an explicit gatherer. Failed pushes are retried
// with backoff.
func PushFrom(ctx context.Context, gatewayURL string, client types.ClientInfo, g prometheus.Gatherer) error {
	pusher := push.New(gatewayURL, PushJob).
		Gatherer(g).
		Grouping("instance", client.Hostname)
	err := retryWithBackoff(ctx, pushRetry, func() error {
		return pusher.PushContext(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
