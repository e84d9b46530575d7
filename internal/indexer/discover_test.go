package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/fitscat/internal/fits/fitstest"
)

func TestDiscoverFiles_ExtensionsCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.fits", "b.FIT", "c.Fts", "nested/deep/d.fits", ".hidden/e.fit"} {
		fitstest.WriteFile(t, filepath.Join(root, name))
	}
	for _, name := range []string{"notes.txt", "image.fits.gz", "fits", "x.fitsx"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0644))
	}

	files, err := discoverFiles(context.Background(), root)
	require.NoError(t, err)

	want := []string{
		filepath.Join(root, ".hidden/e.fit"),
		filepath.Join(root, "a.fits"),
		filepath.Join(root, "b.FIT"),
		filepath.Join(root, "c.Fts"),
		filepath.Join(root, "nested/deep/d.fits"),
	}
	assert.Equal(t, want, files)
}

func TestDiscoverFiles_EmptyDirectory(t *testing.T) {
	files, err := discoverFiles(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverFiles_RelativeRootBecomesAbsolute(t *testing.T) {
	root := t.TempDir()
	fitstest.WriteFile(t, filepath.Join(root, "a.fits"))
	t.Chdir(root)

	files, err := discoverFiles(context.Background(), ".")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, filepath.IsAbs(files[0]))
}

func TestDiscoverFiles_Errors(t *testing.T) {
	root := t.TempDir()
	file := fitstest.WriteFile(t, filepath.Join(root, "a.fits"))

	_, err := discoverFiles(context.Background(), filepath.Join(root, "missing"))
	assert.ErrorIs(t, err, ErrWalk)

	_, err = discoverFiles(context.Background(), file)
	assert.ErrorIs(t, err, ErrWalk)
}

func TestDiscoverFiles_UnreadableSubdirectoryAborts(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	fitstest.WriteFile(t, filepath.Join(root, "a.fits"))
	locked := filepath.Join(root, "locked")
	fitstest.WriteFile(t, filepath.Join(locked, "b.fits"))
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	files, err := discoverFiles(context.Background(), root)
	assert.ErrorIs(t, err, ErrWalk)
	assert.Nil(t, files)
}

func TestDiscoverFiles_Cancelled(t *testing.T) {
	root := t.TempDir()
	fitstest.WriteFile(t, filepath.Join(root, "a.fits"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := discoverFiles(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsFITSName(t *testing.T) {
	assert.True(t, IsFITSName("m31.FITS"))
	assert.True(t, IsFITSName("dark.fts"))
	assert.False(t, IsFITSName("m31.fits.fz"))
	assert.False(t, IsFITSName("README"))
}
