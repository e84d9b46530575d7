package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/fitscat/internal/fits/fitstest"
	"github.com/dshills/fitscat/internal/indexer"
	"github.com/dshills/fitscat/pkg/types"
)

// testEnv points the catalog and snapshot at a temporary directory
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FITSCAT_DB_DRIVER", "sqlite")
	t.Setenv("FITSCAT_DB_PATH", filepath.Join(dir, "catalog.db"))
	t.Setenv("FITSCAT_SNAPSHOT_PATH", filepath.Join(dir, "fits_data.parquet"))
	t.Setenv("FITSCAT_PUSHGATEWAY_URL", "")
	t.Setenv("FITSCAT_S3_ENDPOINT", "")
	return dir
}

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFrames(t *testing.T, dir string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		cards := fitstest.Observation("M42", "05:35:17", "-05:23:28",
			fmt.Sprintf("2024-02-10T21:%02d:00", i), 300)
		fitstest.WriteFile(t, filepath.Join(dir, fmt.Sprintf("m42_%03d.fits", i)), cards...)
	}
}

func TestRootCommand_IndexesDirectory(t *testing.T) {
	testEnv(t)
	data := t.TempDir()
	writeFrames(t, data, 3)
	fitstest.WriteCorrupt(t, filepath.Join(data, "junk.fit"))

	out, err := runCommand(t, "", data, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexing complete")
	assert.Contains(t, out, "Files found: 4")
	assert.Contains(t, out, "Created: 3")
	assert.Contains(t, out, "Failed: 1")
	assert.Contains(t, out, "junk.fit")

	out, err = runCommand(t, "", data, "-w", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Created: 0")
	assert.Contains(t, out, "Updated: 3")
}

func TestRootCommand_PromptsForDirectory(t *testing.T) {
	testEnv(t)
	data := t.TempDir()
	writeFrames(t, data, 1)

	out, err := runCommand(t, "\n/does/not/exist\n"+data+"\n")
	require.NoError(t, err)
	assert.Contains(t, out, "'/does/not/exist' is not a valid directory")
	assert.Contains(t, out, "Created: 1")
}

func TestRootCommand_PromptEOF(t *testing.T) {
	testEnv(t)
	_, err := runCommand(t, "/does/not/exist\n")
	assert.ErrorIs(t, err, errNoDirectory)
}

func TestRootCommand_TooManyArgs(t *testing.T) {
	testEnv(t)
	_, err := runCommand(t, "", "a", "b")
	assert.Error(t, err)
}

func TestRootCommand_WorkersFlag(t *testing.T) {
	testEnv(t)
	data := t.TempDir()

	for _, bad := range []string{"0", "-3"} {
		_, err := runCommand(t, "", data, "--workers="+bad)
		require.Error(t, err, bad)
		assert.Contains(t, err.Error(), "must be at least 1")
	}

	out, err := runCommand(t, "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "(default 8)")
}

func TestExportAndStreamCommands(t *testing.T) {
	dir := testEnv(t)
	data := t.TempDir()
	writeFrames(t, data, 2)

	_, err := runCommand(t, "", data)
	require.NoError(t, err)

	out, err := runCommand(t, "", "export")
	require.NoError(t, err)
	snapshotPath := filepath.Join(dir, "fits_data.parquet")
	assert.Contains(t, out, "Exported 2 rows to "+snapshotPath)

	out, err = runCommand(t, "", "stream", snapshotPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"object_name":"M42"`)

	_, err = runCommand(t, "", "export", "--upload")
	assert.Error(t, err, "upload without an endpoint fails")
}

func TestMigrateCommand(t *testing.T) {
	testEnv(t)
	data := t.TempDir()
	writeFrames(t, data, 1)
	_, err := runCommand(t, "", data)
	require.NoError(t, err)

	out, err := runCommand(t, "", "migrate", "--reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema version")

	out, err = runCommand(t, "", data)
	require.NoError(t, err)
	assert.Contains(t, out, "Created: 1", "reset emptied the catalog")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "fitscat "+version)
	assert.Contains(t, out, "SQLite Driver:")
}

func TestPromptDirectory(t *testing.T) {
	dir := t.TempDir()

	t.Run("interactive prompt is repeated", func(t *testing.T) {
		var out bytes.Buffer
		got, err := promptDirectory(context.Background(), strings.NewReader("  \nnope\n"+dir+"\n"), &out, true)
		require.NoError(t, err)
		assert.Equal(t, dir, got)
		assert.Equal(t, 3, strings.Count(out.String(), "Please enter the root directory to scan: "))
	})

	t.Run("non-interactive input has no prompt text", func(t *testing.T) {
		var out bytes.Buffer
		got, err := promptDirectory(context.Background(), strings.NewReader(dir+"\n"), &out, false)
		require.NoError(t, err)
		assert.Equal(t, dir, got)
		assert.Empty(t, out.String())
	})

	t.Run("cancelled", func(t *testing.T) {
		r, w, err := os.Pipe()
		require.NoError(t, err)
		defer func() { _ = w.Close() }()
		defer func() { _ = r.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		var out bytes.Buffer
		_, err = promptDirectory(ctx, r, &out, false)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		assert.Contains(t, out.String(), "Operation cancelled by user.")
	})
}

func TestRenderSummary(t *testing.T) {
	stats := &indexer.Statistics{
		Root:       "/data",
		TotalFiles: 14,
		Processed:  14,
		Created:    2,
		Failed:     12,
		Outcomes: map[types.Outcome]int{
			types.OutcomeCreated:    2,
			types.OutcomeUnreadable: 12,
		},
		Duration: 1500 * time.Millisecond,
	}
	for i := 0; i < 12; i++ {
		stats.FailedFiles = append(stats.FailedFiles, types.FileResult{
			Path:    fmt.Sprintf("/data/bad_%02d.fits", i),
			Outcome: types.OutcomeUnreadable,
			Err:     errors.New("missing END card"),
		})
	}

	plain := renderSummary(stats, false)
	assert.Contains(t, plain, "Indexing complete")
	assert.Contains(t, plain, "Failed: 12")
	assert.Contains(t, plain, "unreadable: 12")
	assert.Contains(t, plain, "Duration: 1.5s")
	assert.Contains(t, plain, "/data/bad_09.fits")
	assert.NotContains(t, plain, "/data/bad_10.fits")
	assert.Contains(t, plain, "... and 2 more")

	stats.Cancelled = true
	assert.Contains(t, renderSummary(stats, true), "Indexing cancelled")
}
