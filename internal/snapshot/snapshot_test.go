package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/fitscat/internal/config"
	"github.com/dshills/fitscat/internal/storage"
)

func setupTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func ptr[T any](v T) *T { return &v }

func seed(t *testing.T, store storage.Storage) {
	t.Helper()
	ctx := context.Background()
	obs := time.Date(2024, 1, 15, 20, 30, 0, 250000000, time.UTC)

	records := []*storage.FitsFile{
		{
			FilePath:    "/data/night/m31_001.fits",
			FileName:    "m31_001.fits",
			ObjectName:  "M31",
			DateObs:     &obs,
			ExpTime:     120,
			Observatory: "Figl",
			RADeg:       ptr(10.684),
			DecDeg:      ptr(41.269),
			Altitude:    ptr(55.5),
			HeaderDump:  `{"SIMPLE":true,"OBJECT":"M31"}`,
			ScanRoot:    "/data",
			ClientMAC:   "aa:bb:cc:dd:ee:ff",
		},
		{
			FilePath:    "/data/night/dark_001.fits",
			FileName:    "dark_001.fits",
			ObjectName:  "Unknown",
			ExpTime:     60,
			Observatory: "Unknown",
			ScanRoot:    "/data",
		},
	}
	for _, r := range records {
		require.NoError(t, store.UpsertFile(ctx, r))
	}
}

func streamLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	n, err := Stream(path, &buf)
	require.NoError(t, err)

	var out []map[string]interface{}
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var rec map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, out, n)
	return out
}

func TestExportAndStream(t *testing.T) {
	store := setupTestStorage(t)
	seed(t, store)
	path := filepath.Join(t.TempDir(), "fits_data.parquet")

	n, err := Export(context.Background(), store, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0444), info.Mode().Perm())

	lines := streamLines(t, path)
	require.Len(t, lines, 2)

	byPath := make(map[string]map[string]interface{})
	for _, l := range lines {
		byPath[l["filepath"].(string)] = l
	}

	m31 := byPath["/data/night/m31_001.fits"]
	require.NotNil(t, m31)
	assert.Equal(t, "M31", m31["object_name"])
	assert.Equal(t, "2024-01-15T20:30:00.250000", m31["date_obs"])
	assert.InDelta(t, 55.5, m31["altitude"], 1e-9)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", m31["client_mac"])
	header, ok := m31["header_dump"].(map[string]interface{})
	require.True(t, ok, "header is embedded as an object")
	assert.Equal(t, true, header["SIMPLE"])

	dark := byPath["/data/night/dark_001.fits"]
	require.NotNil(t, dark)
	assert.Nil(t, dark["date_obs"])
	assert.Nil(t, dark["ra_deg"])
	assert.Nil(t, dark["altitude"])
	assert.Equal(t, map[string]interface{}{}, dark["header_dump"])
}

func TestExport_ReplacesExistingSnapshot(t *testing.T) {
	store := setupTestStorage(t)
	path := filepath.Join(t.TempDir(), "fits_data.parquet")

	n, err := Export(context.Background(), store, path)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, streamLines(t, path))

	seed(t, store)
	n, err = Export(context.Background(), store, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, streamLines(t, path), 2)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are not left behind")
}

func TestExport_StoreClosed(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	path := filepath.Join(t.TempDir(), "fits_data.parquet")
	_, err = Export(context.Background(), store, path)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStream_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Stream(filepath.Join(dir, "missing.parquet"), io.Discard)
	assert.ErrorIs(t, err, ErrNotFound)

	garbage := filepath.Join(dir, "garbage.parquet")
	require.NoError(t, os.WriteFile(garbage, []byte("not parquet"), 0644))
	_, err = Stream(garbage, io.Discard)
	assert.Error(t, err)
}

func TestExport_SchemaTimestampsAreNaive(t *testing.T) {
	store := setupTestStorage(t)
	seed(t, store)
	path := filepath.Join(t.TempDir(), "fits_data.parquet")
	_, err := Export(context.Background(), store, path)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	require.NoError(t, err)
	pf, err := parquet.OpenFile(f, info.Size())
	require.NoError(t, err)
	assert.Equal(t, int64(2), pf.NumRows())

	for _, name := range []string{"date_obs", "created_at", "updated_at"} {
		col, ok := pf.Schema().Lookup(name)
		require.True(t, ok, name)
		lt := col.Node.Type().LogicalType()
		require.NotNil(t, lt, name)
		require.NotNil(t, lt.Timestamp, name)
		assert.False(t, lt.Timestamp.IsAdjustedToUTC, name)
	}

	dateObs, _ := pf.Schema().Lookup("date_obs")
	assert.True(t, dateObs.Node.Optional())
	filePath, _ := pf.Schema().Lookup("filepath")
	assert.False(t, filePath.Node.Optional())
}

func TestStream_ForeignParquetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)

	other := parquet.NewSchema("other", parquet.Group{"x": parquet.Int(64)})
	w := parquet.NewWriter(f, other)
	_, err = w.WriteRows([]parquet.Row{{parquet.Int64Value(1).Level(0, 0, 0)}})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	_, err = Stream(path, io.Discard)
	assert.ErrorIs(t, err, ErrNotSnapshot)
}

func TestRow_ParquetRoundTrip(t *testing.T) {
	obs := int64(1705350600250000)
	in := Row{
		ID:         7,
		FilePath:   "/data/a.fits",
		ObjectName: "M42",
		DateObs:    &obs,
		ExpTime:    300,
		DecDeg:     ptr(-5.39),
		HeaderDump: "{}",
		CreatedAt:  1,
		UpdatedAt:  2,
	}
	dec, err := newRowDecoder(rowSchema)
	require.NoError(t, err)
	out := dec.decode(in.parquetRow())
	assert.Equal(t, in, out)
	assert.Nil(t, out.RADeg)
}

func TestRow_RecordQuotesInvalidHeader(t *testing.T) {
	rec := Row{HeaderDump: "SIMPLE = T"}.Record()
	assert.JSONEq(t, `"SIMPLE = T"`, string(rec.HeaderDump))
	assert.Nil(t, rec.DateObs)
	assert.Equal(t, "1970-01-01T00:00:00.000000", rec.CreatedAt)
}

func TestUpload_Disabled(t *testing.T) {
	_, err := Upload(context.Background(), config.S3{}, "fits_data.parquet")
	assert.ErrorIs(t, err, ErrUploadDisabled)
}

// fakeS3 accepts bucket checks and object uploads
type fakeS3 struct {
	mu       sync.Mutex
	requests []string
	bodySize int
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	if r.Method == http.MethodPut {
		f.bodySize += len(body)
	}
	f.mu.Unlock()

	if r.Method == http.MethodPut {
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	}
	w.WriteHeader(http.StatusOK)
}

func TestUpload(t *testing.T) {
	fake := &fakeS3{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := setupTestStorage(t)
	seed(t, store)
	path := filepath.Join(t.TempDir(), "fits_data.parquet")
	_, err := Export(context.Background(), store, path)
	require.NoError(t, err)

	cfg := config.S3{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "fitscat",
		Region:    "us-east-1",
	}
	key, err := Upload(context.Background(), cfg, path)
	require.NoError(t, err)
	assert.Equal(t, "fits_data.parquet", key)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	checked := false
	for _, r := range fake.requests {
		if strings.HasPrefix(r, "HEAD /fitscat") {
			checked = true
		}
	}
	assert.True(t, checked, "bucket existence is checked: %v", fake.requests)
	assert.Contains(t, fake.requests, "PUT /fitscat/fits_data.parquet")
	assert.Positive(t, fake.bodySize)
}
