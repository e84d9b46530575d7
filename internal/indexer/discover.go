package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrWalk marks a failure to enumerate the scan root. It aborts the run
// before any file is processed.
var ErrWalk = errors.New("directory walk failed")

// Extensions are the file suffixes treated as FITS images
var Extensions = []string{".fits", ".fit", ".fts"}

// IsFITSName reports whether a file name carries a FITS extension.
// The comparison ignores case.
func IsFITSName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// discoverFiles walks root and returns the absolute paths of every FITS
// file below it, sorted. Any error during the walk aborts the whole listing.
func discoverFiles(ctx context.Context, root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWalk, root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWalk, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrWalk, absRoot)
	}

	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		// Symlinked files are listed by their own path, directories are not followed
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if IsFITSName(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrWalk, err)
	}

	sort.Strings(files)
	return files, nil
}
