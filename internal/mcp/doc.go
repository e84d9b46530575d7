// Package mcp exposes the FITS catalog as Model Context Protocol tools.
//
// The server speaks JSON-RPC 2.0 over stdio and registers five tools:
//   - index_directory: scan a directory and upsert one record per FITS file
//   - search_files: filter the catalog, newest observations first
//   - get_header: return the stored header cards of one file
//   - catalog_stats: exposure hours, nights, objects and monthly totals
//   - list_clients: machines that have written to the catalog
//
// # Basic Usage
//
//	fitscat mcp
//
// Logs go to stderr; stdout carries protocol messages only.
//
// # Tool: index_directory
//
//	Request:
//	{
//	  "name": "index_directory",
//	  "arguments": {"path": "/data/2024-03-01", "workers": 8}
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "root": "/data/2024-03-01",
//	  "total_files": 412,
//	  "created": 410,
//	  "updated": 0,
//	  "failed": 2,
//	  "cancelled": false,
//	  "duration_ms": 5310,
//	  "catalog_files": 18344,
//	  "errors": ["/data/2024-03-01/bad.fits: unreadable: missing END card"]
//	}
//
// Per-file failures are reported in the response, not as a tool error. The
// result cache of the searcher is cleared after every run.
//
// # Tool: search_files
//
// All filters are optional and combine with AND. Dates are UTC calendar days
// and both bounds are inclusive. An altitude bound excludes files whose
// altitude is unknown.
//
//	{
//	  "name": "search_files",
//	  "arguments": {
//	    "object": "m31",
//	    "observatories": ["Figl"],
//	    "min_altitude": 30,
//	    "date_from": "2024-01-01",
//	    "limit": 20
//	  }
//	}
//
// # Error Codes
//
//	-32602  invalid parameters
//	-32603  internal error
//	-32001  directory not found
//	-32002  indexing already in progress
//	-32003  file not indexed
package mcp
