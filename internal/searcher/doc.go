// Package searcher answers catalog queries: filtered listings, per-file
// headers, client and date summaries, aggregate statistics and sky positions.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, 0)
//
//	minAlt := 30.0
//	resp, err := s.Search(ctx, searcher.Filters{
//	    ObjectContains: "m3",
//	    MinAltitude:    &minAlt,
//	    Limit:          50,
//	})
//
//	for _, f := range resp.Files {
//	    fmt.Println(f.FilePath, f.ObjectName)
//	}
//
// # Filters
//
// Every non-zero field narrows the result; fields combine with AND and the
// values inside one list field combine with OR. DateFrom and DateTo name
// calendar days in UTC and both ends are inclusive. Altitude bounds exclude
// records whose altitude is unknown.
//
// # Statistics
//
// Stats aggregates every matching record (paging is ignored):
//
//   - file count and total exposure in hours
//   - distinct observing nights (UTC calendar dates)
//   - files per object and per observatory, most frequent first
//   - files and exposure hours per month, with empty months filled in
//
// Sky converts matching records to galactic longitude and latitude. The
// longitude is wrapped to [-180, 180) so the galactic center sits in the
// middle of a map. Records named "Unknown" or "flatwizard" are left out.
//
// # Caching
//
// Listings are cached in an LRU keyed by a hash of the canonical filters.
// Entries expire after the configured TTL and InvalidateCache purges them
// all; the indexer's callers invalidate after every run.
package searcher
