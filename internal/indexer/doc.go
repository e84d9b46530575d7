// Package indexer coordinates the catalog indexing pipeline for directories
// of FITS images.
//
// The indexer walks a directory tree, reads each file's primary header,
// derives sky position and altitude, and upserts one record per absolute
// path into the store. Files are processed concurrently and independently:
// one bad file never affects another.
//
// # Basic Usage
//
//	store, _ := storage.NewSQLiteStorage("catalog.db")
//	idx := indexer.New(store, coords.NewResolver(coords.FiglObservatory()), identity.Detect())
//
//	stats, err := idx.Run(ctx, "/data/night-2024-03-01", &indexer.Config{
//	    Workers:    8,
//	    OnProgress: func(p indexer.Progress) { log.Println(p) },
//	})
//
//	fmt.Printf("%d created, %d updated, %d failed\n", stats.Created, stats.Updated, stats.Failed)
//
// # Pipeline
//
//  1. Scanning: list every .fits/.fit/.fts file below the root (case-insensitive).
//     The list is built eagerly and sorted. A walk error aborts the run with ErrWalk.
//  2. Dispatching: one task per file on an errgroup limited to Config.Workers.
//     Each task reads the header, extracts fields, resolves coordinates and
//     upserts the record inside its own transaction.
//  3. Draining: wait for in-flight files, then finalize Statistics.
//
// State() exposes the current phase. Run holds a non-blocking IndexLock, so
// a concurrent call fails fast with ErrIndexingInProgress.
//
// # Outcomes
//
// Every file ends in exactly one outcome:
//
//	created      no record existed for the path
//	updated      an existing record was overwritten in place
//	not found    the file vanished between the walk and the read
//	unreadable   not a FITS file, truncated, or no END card
//	store error  the transaction failed and was rolled back
//	cancelled    the run's context ended before the file completed
//
// Field-level problems (unparsable DATE-OBS, bad coordinates) are logged and
// leave the corresponding columns NULL. They are not failures.
//
// # Progress
//
// Config.OnProgress is called every Config.ProgressEvery files and once when
// the last file finishes. The ETA is a linear extrapolation of the mean time
// per file; it never increases between reports and never drops below zero.
//
// # Cancellation
//
// Cancelling the context passed to Run stops dispatching. Files already in
// flight observe the context at their next block read or store call. Files
// that were never dispatched are recorded as cancelled so the totals always
// add up. Config.FileTimeout bounds a single file.
package indexer
