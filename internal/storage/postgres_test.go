package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPostgres connects to FITSCAT_TEST_DATABASE_URL and starts from an
// empty schema. Tests are skipped when the variable is unset.
func setupPostgres(t *testing.T) *PostgresStorage {
	dsn := os.Getenv("FITSCAT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("FITSCAT_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	store, err := NewPostgresStorage(ctx, dsn, 4)
	require.NoError(t, err)
	require.NoError(t, store.Reset(ctx))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgres_UpsertAndQuery(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	rec := testRecord("/data/a.fits", "M31")
	require.NoError(t, store.UpsertFile(ctx, rec))
	firstID := rec.ID

	again := testRecord("/data/a.fits", "M33")
	again.Altitude = nil
	require.NoError(t, store.UpsertFile(ctx, again))
	assert.Equal(t, firstID, again.ID)

	got, err := store.GetFile(ctx, "/data/a.fits")
	require.NoError(t, err)
	assert.Equal(t, "M33", got.ObjectName)
	assert.Nil(t, got.Altitude)
	assert.JSONEq(t, `{"OBJECT":"M33"}`, got.HeaderDump)
	require.NotNil(t, got.DateObs)
	assert.True(t, rec.DateObs.Equal(*got.DateObs))

	n, err := store.CountFiles(ctx, &FileFilters{ObjectContains: "m33"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.GetFile(ctx, "/missing.fits")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_TransactionsAndSummaries(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertFile(ctx, testRecord("/data/a.fits", "A")))
	require.NoError(t, tx.Rollback())

	_, err = store.GetFile(ctx, "/data/a.fits")
	assert.ErrorIs(t, err, ErrNotFound)

	tx, err = store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertFile(ctx, testRecord("/data/b.fits", "B")))
	require.NoError(t, tx.Commit())
	assert.NoError(t, tx.Rollback(), "rollback after commit is a no-op")

	clients, err := store.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, 1, clients[0].Files)

	r, err := store.DateRange(ctx)
	require.NoError(t, err)
	require.NotNil(t, r.Min)
	assert.Equal(t, time.UTC, r.Min.Location())

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}
