// Package metrics provides Prometheus instrumentation for fitscat.
//
// All metrics are registered on the default registry and prefixed with
// "fitscat_". The HTTP server exposes them at /metrics; one-shot CLI runs can
// push them to a Pushgateway instead.
//
// # Indexer Metrics
//
//   - IndexerFilesTotal: files finished, by outcome
//   - IndexerFileDuration: per-file processing time
//   - IndexerRunDuration: duration of the last run
//   - IndexerWorkers: pool width of the current or last run
//   - IndexerRunsTotal: runs started
//   - IndexerIsRunning: 1 while a run is active
//
// # HTTP Metrics
//
//   - HTTPRequestsTotal: requests by method, route and status
//   - HTTPRequestDuration: request latency by method and route
package metrics
