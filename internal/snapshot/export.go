package snapshot

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/dshills/fitscat/internal/logging"
	"github.com/dshills/fitscat/internal/storage"
)

// DefaultPath is where export writes when no path is given
const DefaultPath = "fits_data.parquet"

// readBatch is the number of rows decoded per read while streaming
const readBatch = 256

// ErrNotFound is returned by Stream when the snapshot does not exist
var ErrNotFound = errors.New("snapshot not found")

// Export writes every catalog record to a Parquet file at path and returns
// the number of rows. The file is written to a temporary name in the same
// directory and renamed into place, so readers never see a partial snapshot.
// The result is read-only.
func Export(ctx context.Context, store storage.Storage, path string) (int, error) {
	if path == "" {
		path = DefaultPath
	}

	files, err := store.ListFiles(ctx, &storage.FileFilters{IncludeHeader: true})
	if err != nil {
		return 0, fmt.Errorf("failed to read catalog: %w", err)
	}

	rows := make([]Row, 0, len(files))
	for _, f := range files {
		rows = append(rows, fromFile(f))
	}

	if err := writeAtomic(path, rows); err != nil {
		return 0, err
	}
	logging.Info("Exported %d rows to %s", len(rows), path)
	return len(rows), nil
}

func writeAtomic(path string, rows []Row) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fitscat-snapshot-*.parquet")
	if err != nil {
		return fmt.Errorf("failed to create temporary snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	prows := make([]parquet.Row, len(rows))
	for i, r := range rows {
		prows[i] = r.parquetRow()
	}
	w := parquet.NewWriter(tmp, rowSchema)
	if _, err = w.WriteRows(prows); err != nil {
		return fmt.Errorf("failed to write snapshot rows: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to finish snapshot: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err = os.Chmod(tmpName, 0444); err != nil {
		return fmt.Errorf("failed to make snapshot read-only: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}

// Stream writes every row of the snapshot at path to w as one JSON object
// per line and returns the number of rows written.
func Stream(path string, w io.Writer) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return 0, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat snapshot: %w", err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return 0, fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	dec, err := newRowDecoder(pf.Schema())
	if err != nil {
		return 0, err
	}

	reader := parquet.NewReader(pf)
	defer func() { _ = reader.Close() }()

	out := bufio.NewWriter(w)
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	written := 0
	buf := make([]parquet.Row, readBatch)
	for {
		n, readErr := reader.ReadRows(buf)
		for i := 0; i < n; i++ {
			if err := enc.Encode(dec.decode(buf[i]).Record()); err != nil {
				return written, fmt.Errorf("failed to write record: %w", err)
			}
			written++
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return written, fmt.Errorf("failed to read snapshot: %w", readErr)
		}
		if n == 0 {
			break
		}
	}

	if err := out.Flush(); err != nil {
		return written, fmt.Errorf("failed to write records: %w", err)
	}
	return written, nil
}
