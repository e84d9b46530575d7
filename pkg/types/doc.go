// Package types provides shared type definitions for the fitscat catalog.
//
// The types here cross package boundaries: the indexer produces them, the
// storage layer persists parts of them, and the query surfaces (HTTP, MCP)
// render them.
//
// # Outcomes
//
// Every file handed to the indexer ends in exactly one Outcome:
//
//	result := types.FileResult{
//	    Path:    "/data/m31/light_001.fits",
//	    Outcome: types.OutcomeCreated,
//	}
//
//	if result.Outcome.IsError() {
//	    log.Printf("%s: %s", result.Path, result.Reason())
//	}
//
// Created and updated are successes; not found, unreadable, store error and
// cancelled are per-file failures that never abort a run.
//
// # Client Identity
//
// ClientInfo tags every record with the machine that wrote it:
//
//	info := types.ClientInfo{
//	    Hostname: "obs-pc",
//	    OS:       "linux 6.8.0",
//	    MAC:      "3c:22:fb:01:02:03",
//	}
//
// MAC addresses are lowercase, colon separated hex and double as the client
// filter key in the search layer.
package types
