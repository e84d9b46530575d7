package searcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/fitscat/internal/storage"
)

func ptr[T any](v T) *T { return &v }

func day(y int, m time.Month, d, h int) *time.Time {
	t := time.Date(y, m, d, h, 0, 0, 0, time.UTC)
	return &t
}

// setupTestSearcher creates a searcher over an in-memory catalog
func setupTestSearcher(t *testing.T, files ...*storage.FitsFile) (*Searcher, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	for _, f := range files {
		require.NoError(t, store.UpsertFile(ctx, f))
	}
	return NewSearcher(store, 0), store
}

func record(path, object, site string, obs *time.Time, exptime float64, alt *float64) *storage.FitsFile {
	return &storage.FitsFile{
		FilePath:       path,
		FileName:       path,
		ObjectName:     object,
		DateObs:        obs,
		ExpTime:        exptime,
		Observatory:    site,
		RADeg:          ptr(10.6847),
		DecDeg:         ptr(41.2687),
		Altitude:       alt,
		HeaderDump:     `{"OBJECT":"` + object + `"}`,
		ScanRoot:       "/data",
		ClientHostname: "scope-pc",
		ClientOS:       "linux",
		ClientMAC:      "aa:bb:cc:dd:ee:ff",
	}
}

func catalog() []*storage.FitsFile {
	return []*storage.FitsFile{
		record("/data/m31_1.fits", "M31", "Figl", day(2024, 1, 10, 20), 300, ptr(55.0)),
		record("/data/m31_2.fits", "M31", "Figl", day(2024, 1, 10, 22), 300, ptr(62.0)),
		record("/data/m42.fits", "M42", "Backyard", day(2024, 3, 2, 19), 60, ptr(25.0)),
		record("/data/flat.fits", "flatwizard", "Figl", day(2024, 3, 2, 18), 1, nil),
		record("/data/nodate.fits", "Unknown", "Unknown", nil, 10, nil),
	}
}

func paths(files []*storage.FitsFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.FilePath
	}
	return out
}

func TestSearch_Filters(t *testing.T) {
	s, _ := setupTestSearcher(t, catalog()...)
	ctx := context.Background()

	tests := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{"no filters, newest first, undated last", Filters{}, []string{
			"/data/m42.fits", "/data/flat.fits", "/data/m31_2.fits", "/data/m31_1.fits", "/data/nodate.fits"}},
		{"object substring is case-insensitive", Filters{ObjectContains: "m3"}, []string{"/data/m31_2.fits", "/data/m31_1.fits"}},
		{"exact names", Filters{ObjectNames: []string{"M42", "flatwizard"}}, []string{"/data/m42.fits", "/data/flat.fits"}},
		{"observatory", Filters{Observatories: []string{"Backyard"}}, []string{"/data/m42.fits"}},
		{"exposure list", Filters{ExpTimes: []float64{60, 10}}, []string{"/data/m42.fits", "/data/nodate.fits"}},
		{"min exposure", Filters{MinExpTime: ptr(100.0)}, []string{"/data/m31_2.fits", "/data/m31_1.fits"}},
		{"altitude range skips unknown altitude", Filters{MinAltitude: ptr(20.0), MaxAltitude: ptr(60.0)}, []string{"/data/m42.fits", "/data/m31_1.fits"}},
		{"date range includes the whole last day", Filters{DateFrom: day(2024, 1, 10, 0), DateTo: day(2024, 1, 10, 0)}, []string{"/data/m31_2.fits", "/data/m31_1.fits"}},
		{"client", Filters{ClientMACs: []string{"11:22:33:44:55:66"}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.Search(ctx, tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, paths(resp.Files))
			assert.Equal(t, len(tt.want), resp.Total)
		})
	}
}

func TestSearch_PagingReportsTotal(t *testing.T) {
	s, _ := setupTestSearcher(t, catalog()...)

	resp, err := s.Search(context.Background(), Filters{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/flat.fits", "/data/m31_2.fits"}, paths(resp.Files))
	assert.Equal(t, 5, resp.Total)
}

func TestSearch_InvalidFilters(t *testing.T) {
	s, _ := setupTestSearcher(t)
	ctx := context.Background()

	for _, f := range []Filters{
		{Limit: -1},
		{Limit: MaxLimit + 1},
		{MinAltitude: ptr(100.0)},
		{MinAltitude: ptr(50.0), MaxAltitude: ptr(10.0)},
		{DateFrom: day(2024, 2, 1, 0), DateTo: day(2024, 1, 1, 0)},
	} {
		_, err := s.Search(ctx, f)
		assert.ErrorIs(t, err, ErrInvalidFilters)
	}
}

func TestSearch_CacheAndInvalidate(t *testing.T) {
	s, store := setupTestSearcher(t, catalog()...)
	ctx := context.Background()

	first, err := s.Search(ctx, Filters{ObjectNames: []string{"M31", "M42"}})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Len(t, first.Files, 3)

	// list order does not change the key
	second, err := s.Search(ctx, Filters{ObjectNames: []string{"M42", "M31"}})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)

	// cached copies are independent of what callers do with them
	second.Files[0].ObjectName = "changed"
	third, err := s.Search(ctx, Filters{ObjectNames: []string{"M31", "M42"}})
	require.NoError(t, err)
	assert.NotEqual(t, "changed", third.Files[0].ObjectName)

	require.NoError(t, store.UpsertFile(ctx, record("/data/m31_3.fits", "M31", "Figl", day(2024, 1, 11, 20), 300, nil)))
	stale, err := s.Search(ctx, Filters{ObjectNames: []string{"M31", "M42"}})
	require.NoError(t, err)
	assert.Len(t, stale.Files, 3)

	s.InvalidateCache()
	assert.Zero(t, s.CacheLen())
	fresh, err := s.Search(ctx, Filters{ObjectNames: []string{"M31", "M42"}})
	require.NoError(t, err)
	assert.False(t, fresh.CacheHit)
	assert.Len(t, fresh.Files, 4)
}

func TestSearch_CacheExpires(t *testing.T) {
	s, _ := setupTestSearcher(t, catalog()...)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := s.Search(ctx, Filters{})
	require.NoError(t, err)

	now = now.Add(DefaultCacheTTL + time.Second)
	resp, err := s.Search(ctx, Filters{})
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)
}

func TestSearch_CacheDisabled(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer store.Close()
	s := NewSearcher(store, -1)

	_, err = s.Search(context.Background(), Filters{})
	require.NoError(t, err)
	assert.Zero(t, s.CacheLen())
}

func TestHeader(t *testing.T) {
	s, _ := setupTestSearcher(t, catalog()...)
	ctx := context.Background()

	raw, err := s.Header(ctx, "/data/m42.fits")
	require.NoError(t, err)
	var header map[string]any
	require.NoError(t, json.Unmarshal(raw, &header))
	assert.Equal(t, "M42", header["OBJECT"])

	_, err = s.Header(ctx, "/data/missing.fits")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientsAndDateRange(t *testing.T) {
	s, _ := setupTestSearcher(t, catalog()...)
	ctx := context.Background()

	clients, err := s.Clients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, 5, clients[0].Files)

	dr, err := s.DateRange(ctx)
	require.NoError(t, err)
	require.NotNil(t, dr.Min)
	require.NotNil(t, dr.Max)
	assert.Equal(t, *day(2024, 1, 10, 20), dr.Min.UTC())
	assert.Equal(t, *day(2024, 3, 2, 19), dr.Max.UTC())
}

func TestStatsSkyAndOptions(t *testing.T) {
	s, _ := setupTestSearcher(t, catalog()...)
	ctx := context.Background()

	st, err := s.Stats(ctx, Filters{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, st.Files, "paging is ignored for statistics")

	points, err := s.Sky(ctx, Filters{})
	require.NoError(t, err)
	assert.Len(t, points, 3, "placeholder objects are not plotted")

	opts, err := s.Options(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"M31", "M42"}, opts.ObjectNames)
	assert.Equal(t, []string{"Backyard", "Figl"}, opts.Observatories)
	assert.Equal(t, []float64{1, 10, 60, 300}, opts.ExpTimes)
	require.NotNil(t, opts.DateRange)
}
