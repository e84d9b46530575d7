// Package api serves the catalog query interface over HTTP as JSON.
//
// Routes:
//
//	GET /api/files          filtered, paged listing
//	GET /api/files/header   full header of one file (?path=)
//	GET /api/clients        machines that have written records
//	GET /api/stats          aggregate statistics for a filter
//	GET /api/sky            galactic positions for a filter
//	GET /api/options        distinct filter values and the date range
//	GET /healthz            liveness and catalog size
//	GET /metrics            Prometheus exposition
//
// Filter parameters are shared by files, stats and sky: client, name,
// observatory and exptime may repeat; object is a case-insensitive
// substring; min_exptime, min_alt and max_alt are numbers; from and to are
// YYYY-MM-DD days (both inclusive); limit and offset page the listing.
package api
