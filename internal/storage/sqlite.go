package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidRecord is returned when a record is missing required fields
	ErrInvalidRecord = errors.New("invalid record")
)

// sqliteTimeLayout is fixed width and always UTC, so TEXT ordering is
// chronological
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Another process (serve, a second indexer) may hold the write lock
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction. With a single pooled connection,
// concurrent callers wait here until the previous transaction finishes.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// Migrate applies pending migrations
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	return ApplyMigrations(ctx, s.db)
}

// Reset drops the catalog and recreates an empty schema
func (s *SQLiteStorage) Reset(ctx context.Context) error {
	return resetSchema(ctx, s.db)
}

// SchemaVersion returns the newest applied migration
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (string, error) {
	recorded, err := recordedVersions(ctx, s.db)
	if err != nil {
		return "", err
	}
	v, err := latestVersion(recorded)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(sqliteTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func sqliteTimeArg(t time.Time) interface{} {
	return formatSQLiteTime(t)
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatSQLiteTime(*t)
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func validateRecord(file *FitsFile) error {
	if file.FilePath == "" {
		return fmt.Errorf("%w: empty filepath", ErrInvalidRecord)
	}
	if file.HeaderDump == "" {
		file.HeaderDump = "{}"
	}
	return nil
}

// File operations

// upsertFileWithQuerier inserts or overwrites the record for file.FilePath.
// Every derived and identity column is replaced; created_at is kept.
func (s *SQLiteStorage) upsertFileWithQuerier(ctx context.Context, q querier, file *FitsFile) error {
	if err := validateRecord(file); err != nil {
		return err
	}

	query := `
		INSERT INTO fits_files (
			filepath, filename, object_name, date_obs, exptime, observatory,
			ra_deg, dec_deg, altitude, header_dump, scan_root,
			client_hostname, client_os, client_mac, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filepath) DO UPDATE SET
			filename = excluded.filename,
			object_name = excluded.object_name,
			date_obs = excluded.date_obs,
			exptime = excluded.exptime,
			observatory = excluded.observatory,
			ra_deg = excluded.ra_deg,
			dec_deg = excluded.dec_deg,
			altitude = excluded.altitude,
			header_dump = excluded.header_dump,
			scan_root = excluded.scan_root,
			client_hostname = excluded.client_hostname,
			client_os = excluded.client_os,
			client_mac = excluded.client_mac,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`
	now := time.Now().UTC()
	var createdAt string
	err := q.QueryRowContext(ctx, query,
		file.FilePath, file.FileName, file.ObjectName, nullableTime(file.DateObs),
		file.ExpTime, file.Observatory,
		nullableFloat(file.RADeg), nullableFloat(file.DecDeg), nullableFloat(file.Altitude),
		file.HeaderDump, file.ScanRoot,
		file.ClientHostname, file.ClientOS, file.ClientMAC,
		formatSQLiteTime(now), formatSQLiteTime(now),
	).Scan(&file.ID, &createdAt)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}

	if file.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return err
	}
	file.UpdatedAt = now.Truncate(time.Microsecond)
	return nil
}

func (s *SQLiteStorage) UpsertFile(ctx context.Context, file *FitsFile) error {
	return s.upsertFileWithQuerier(ctx, s.querier(), file)
}

const fileColumns = `id, filepath, filename, object_name, date_obs, exptime, observatory,
		       ra_deg, dec_deg, altitude, scan_root,
		       client_hostname, client_os, client_mac, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFile(row rowScanner, withHeader bool) (*FitsFile, error) {
	var (
		file                 FitsFile
		dateObs              sql.NullString
		ra, dec, alt         sql.NullFloat64
		createdAt, updatedAt string
	)
	dest := []interface{}{
		&file.ID, &file.FilePath, &file.FileName, &file.ObjectName, &dateObs,
		&file.ExpTime, &file.Observatory, &ra, &dec, &alt, &file.ScanRoot,
		&file.ClientHostname, &file.ClientOS, &file.ClientMAC, &createdAt, &updatedAt,
	}
	if withHeader {
		dest = append(dest, &file.HeaderDump)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if dateObs.Valid {
		t, err := parseSQLiteTime(dateObs.String)
		if err != nil {
			return nil, err
		}
		file.DateObs = &t
	}
	if ra.Valid {
		file.RADeg = &ra.Float64
	}
	if dec.Valid {
		file.DecDeg = &dec.Float64
	}
	if alt.Valid {
		file.Altitude = &alt.Float64
	}

	var err error
	if file.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return nil, err
	}
	if file.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return nil, err
	}
	return &file, nil
}

// getFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getFileWithQuerier(ctx context.Context, q querier, filePath string) (*FitsFile, error) {
	query := `SELECT ` + fileColumns + `, header_dump FROM fits_files WHERE filepath = ?`
	file, err := scanFile(q.QueryRowContext(ctx, query, filePath), true)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (s *SQLiteStorage) GetFile(ctx context.Context, filePath string) (*FitsFile, error) {
	return s.getFileWithQuerier(ctx, s.querier(), filePath)
}

// listFilesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listFilesWithQuerier(ctx context.Context, q querier, filters *FileFilters) ([]*FitsFile, error) {
	withHeader := filters != nil && filters.IncludeHeader
	columns := fileColumns
	if withHeader {
		columns += ", header_dump"
	}
	where, args := buildWhere(filters, sqlitePlaceholder, sqliteTimeArg)
	query := `SELECT ` + columns + ` FROM fits_files` + where + ` ORDER BY date_obs DESC NULLS LAST, filepath` + pageClause(filters, sqliteNoLimit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	files := make([]*FitsFile, 0)
	for rows.Next() {
		file, err := scanFile(rows, withHeader)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *SQLiteStorage) ListFiles(ctx context.Context, filters *FileFilters) ([]*FitsFile, error) {
	return s.listFilesWithQuerier(ctx, s.querier(), filters)
}

// countFilesWithQuerier ignores Limit and Offset
func (s *SQLiteStorage) countFilesWithQuerier(ctx context.Context, q querier, filters *FileFilters) (int, error) {
	where, args := buildWhere(filters, sqlitePlaceholder, sqliteTimeArg)
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM fits_files`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return n, nil
}

func (s *SQLiteStorage) CountFiles(ctx context.Context, filters *FileFilters) (int, error) {
	return s.countFilesWithQuerier(ctx, s.querier(), filters)
}

// Catalog summaries

func (s *SQLiteStorage) listClientsWithQuerier(ctx context.Context, q querier) ([]Client, error) {
	query := `
		SELECT client_mac, client_hostname, client_os, COUNT(*), MAX(updated_at)
		FROM fits_files
		GROUP BY client_mac, client_hostname, client_os
		ORDER BY client_hostname, client_mac
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	clients := make([]Client, 0)
	for rows.Next() {
		var c Client
		var lastSeen string
		if err := rows.Scan(&c.MAC, &c.Hostname, &c.OS, &c.Files, &lastSeen); err != nil {
			return nil, err
		}
		if c.LastSeen, err = parseSQLiteTime(lastSeen); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *SQLiteStorage) ListClients(ctx context.Context) ([]Client, error) {
	return s.listClientsWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) dateRangeWithQuerier(ctx context.Context, q querier) (*DateRange, error) {
	var lo, hi sql.NullString
	err := q.QueryRowContext(ctx, `SELECT MIN(date_obs), MAX(date_obs) FROM fits_files`).Scan(&lo, &hi)
	if err != nil {
		return nil, fmt.Errorf("failed to read date range: %w", err)
	}

	r := &DateRange{}
	if lo.Valid {
		t, err := parseSQLiteTime(lo.String)
		if err != nil {
			return nil, err
		}
		r.Min = &t
	}
	if hi.Valid {
		t, err := parseSQLiteTime(hi.String)
		if err != nil {
			return nil, err
		}
		r.Max = &t
	}
	return r, nil
}

func (s *SQLiteStorage) DateRange(ctx context.Context) (*DateRange, error) {
	return s.dateRangeWithQuerier(ctx, s.querier())
}

// Transaction implementations. Every method runs on the transaction's
// querier: the pool holds one connection, so touching s.db here would block
// forever.

func (t *sqliteTx) UpsertFile(ctx context.Context, file *FitsFile) error {
	return t.storage.upsertFileWithQuerier(ctx, t.querier(), file)
}

func (t *sqliteTx) GetFile(ctx context.Context, filePath string) (*FitsFile, error) {
	return t.storage.getFileWithQuerier(ctx, t.querier(), filePath)
}

func (t *sqliteTx) ListFiles(ctx context.Context, filters *FileFilters) ([]*FitsFile, error) {
	return t.storage.listFilesWithQuerier(ctx, t.querier(), filters)
}

func (t *sqliteTx) CountFiles(ctx context.Context, filters *FileFilters) (int, error) {
	return t.storage.countFilesWithQuerier(ctx, t.querier(), filters)
}

func (t *sqliteTx) ListClients(ctx context.Context) ([]Client, error) {
	return t.storage.listClientsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) DateRange(ctx context.Context) (*DateRange, error) {
	return t.storage.dateRangeWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
