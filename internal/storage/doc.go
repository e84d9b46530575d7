// Package storage persists the FITS catalog.
//
// The catalog is a single table, fits_files, with one row per absolute file
// path. Two backends implement Storage:
//   - SQLiteStorage: database/sql over mattn/go-sqlite3 (sqlite_cgo tag) or
//     modernc.org/sqlite (default), WAL journal, one pooled connection
//   - PostgresStorage: a pgx pool, header_dump stored as JSONB
//
// # Basic Usage
//
//	store, err := storage.Open(ctx, storage.BackendSQLite, "catalog.db", 8)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	files, err := store.ListFiles(ctx, &storage.FileFilters{
//	    ObjectContains: "m31",
//	    Limit:          50,
//	})
//
// # Transactions
//
// Every indexed file is written in its own transaction:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	if _, err := tx.GetFile(ctx, path); err != nil && !errors.Is(err, storage.ErrNotFound) {
//	    return err
//	}
//	if err := tx.UpsertFile(ctx, record); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// SQLite serializes transactions on its single connection. Methods on a Tx
// must only use that Tx; calling the parent Storage from inside a SQLite
// transaction deadlocks.
//
// # Timestamps
//
// All timestamps are UTC. SQLite stores them as fixed-width TEXT so range
// filters compare correctly; PostgreSQL uses TIMESTAMPTZ.
//
// # Migrations
//
// Schema versions are semantic versions applied in order
// (ApplyMigrations, RollbackMigration for SQLite; EnsureSchema and
// DropSchema for PostgreSQL). Backends also implement Migrator for the
// migrate command.
package storage
