package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchemaVersionDDL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresMigrations mirrors AllMigrations for PostgreSQL
var PostgresMigrations = []Migration{
	{
		Version: "1.0.0",
		Up: `
CREATE TABLE IF NOT EXISTS fits_files (
	id BIGSERIAL PRIMARY KEY,
	filepath TEXT NOT NULL UNIQUE,
	filename TEXT NOT NULL,
	object_name TEXT NOT NULL DEFAULT 'Unknown',
	date_obs TIMESTAMPTZ,
	exptime DOUBLE PRECISION NOT NULL DEFAULT 0,
	observatory TEXT NOT NULL DEFAULT 'Unknown',
	ra_deg DOUBLE PRECISION,
	dec_deg DOUBLE PRECISION,
	altitude DOUBLE PRECISION,
	header_dump JSONB NOT NULL DEFAULT '{}'::jsonb,
	scan_root TEXT NOT NULL DEFAULT '',
	client_hostname TEXT NOT NULL DEFAULT '',
	client_os TEXT NOT NULL DEFAULT '',
	client_mac TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fits_files_object_lower ON fits_files (lower(object_name));
CREATE INDEX IF NOT EXISTS idx_fits_files_client_mac ON fits_files (client_mac);`,
		Down: `
DROP INDEX IF EXISTS idx_fits_files_client_mac;
DROP INDEX IF EXISTS idx_fits_files_object_lower;
DROP TABLE IF EXISTS fits_files;`,
	},
	{
		Version: "1.1.0",
		Up: `
CREATE INDEX IF NOT EXISTS idx_fits_files_date_obs ON fits_files (date_obs);
CREATE INDEX IF NOT EXISTS idx_fits_files_observatory ON fits_files (observatory);`,
		Down: `
DROP INDEX IF EXISTS idx_fits_files_observatory;
DROP INDEX IF EXISTS idx_fits_files_date_obs;`,
	},
}

// pgQuerier is implemented by *pgxpool.Pool and pgx.Tx
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStorage implements Storage on a pgx connection pool. Each
// transaction holds its own pooled connection, so workers commit in parallel.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects to dsn with a pool of maxConns connections and
// applies pending migrations
func NewPostgresStorage(ctx context.Context, dsn string, maxConns int) (*PostgresStorage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &PostgresStorage{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases every pooled connection
func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

// EnsureSchema applies pending migrations
func (s *PostgresStorage) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, pgSchemaVersionDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	recorded, err := s.recordedVersions(ctx)
	if err != nil {
		return err
	}
	current, err := latestVersion(recorded)
	if err != nil {
		return err
	}
	pending, err := pendingMigrations(PostgresMigrations, current)
	if err != nil {
		return err
	}
	for _, m := range pending {
		if _, err := s.pool.Exec(ctx, m.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.Version, err)
		}
		if _, err := s.pool.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1) ON CONFLICT DO NOTHING`, m.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
		}
	}
	return nil
}

// DropSchema removes the catalog table and the migration history
func (s *PostgresStorage) DropSchema(ctx context.Context) error {
	for i := len(PostgresMigrations) - 1; i >= 0; i-- {
		if _, err := s.pool.Exec(ctx, PostgresMigrations[i].Down); err != nil {
			return fmt.Errorf("drop schema %s: %w", PostgresMigrations[i].Version, err)
		}
	}
	if _, err := s.pool.Exec(ctx, `DROP TABLE IF EXISTS schema_version`); err != nil {
		return fmt.Errorf("drop schema_version: %w", err)
	}
	return nil
}

// Migrate applies pending migrations
func (s *PostgresStorage) Migrate(ctx context.Context) error {
	return s.EnsureSchema(ctx)
}

// Reset drops and recreates the schema
func (s *PostgresStorage) Reset(ctx context.Context) error {
	if err := s.DropSchema(ctx); err != nil {
		return err
	}
	return s.EnsureSchema(ctx)
}

// SchemaVersion returns the newest applied migration
func (s *PostgresStorage) SchemaVersion(ctx context.Context) (string, error) {
	recorded, err := s.recordedVersions(ctx)
	if err != nil {
		return "", err
	}
	v, err := latestVersion(recorded)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (s *PostgresStorage) recordedVersions(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT version FROM schema_version`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	return versions, nil
}

// BeginTx acquires a pooled connection and starts a transaction on it
func (s *PostgresStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &postgresTx{tx: tx, ctx: ctx}, nil
}

func (s *PostgresStorage) UpsertFile(ctx context.Context, file *FitsFile) error {
	return pgUpsertFile(ctx, s.pool, file)
}

func (s *PostgresStorage) GetFile(ctx context.Context, filePath string) (*FitsFile, error) {
	return pgGetFile(ctx, s.pool, filePath)
}

func (s *PostgresStorage) ListFiles(ctx context.Context, filters *FileFilters) ([]*FitsFile, error) {
	return pgListFiles(ctx, s.pool, filters)
}

func (s *PostgresStorage) CountFiles(ctx context.Context, filters *FileFilters) (int, error) {
	return pgCountFiles(ctx, s.pool, filters)
}

func (s *PostgresStorage) ListClients(ctx context.Context) ([]Client, error) {
	return pgListClients(ctx, s.pool)
}

func (s *PostgresStorage) DateRange(ctx context.Context) (*DateRange, error) {
	return pgDateRange(ctx, s.pool)
}

// postgresTx wraps a pgx transaction
type postgresTx struct {
	tx  pgx.Tx
	ctx context.Context
}

func (t *postgresTx) Commit() error {
	return t.tx.Commit(t.ctx)
}

// Rollback is also called after cancellation, so it does not use the
// transaction's context
func (t *postgresTx) Rollback() error {
	err := t.tx.Rollback(context.Background())
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func (t *postgresTx) UpsertFile(ctx context.Context, file *FitsFile) error {
	return pgUpsertFile(ctx, t.tx, file)
}

func (t *postgresTx) GetFile(ctx context.Context, filePath string) (*FitsFile, error) {
	return pgGetFile(ctx, t.tx, filePath)
}

func (t *postgresTx) ListFiles(ctx context.Context, filters *FileFilters) ([]*FitsFile, error) {
	return pgListFiles(ctx, t.tx, filters)
}

func (t *postgresTx) CountFiles(ctx context.Context, filters *FileFilters) (int, error) {
	return pgCountFiles(ctx, t.tx, filters)
}

func (t *postgresTx) ListClients(ctx context.Context) ([]Client, error) {
	return pgListClients(ctx, t.tx)
}

func (t *postgresTx) DateRange(ctx context.Context) (*DateRange, error) {
	return pgDateRange(ctx, t.tx)
}

func (t *postgresTx) Close() error {
	return nil
}

func (t *postgresTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func pgTimeArg(t time.Time) interface{} {
	return t.UTC()
}

func pgUpsertFile(ctx context.Context, q pgQuerier, file *FitsFile) error {
	if err := validateRecord(file); err != nil {
		return err
	}

	query := `
		INSERT INTO fits_files (
			filepath, filename, object_name, date_obs, exptime, observatory,
			ra_deg, dec_deg, altitude, header_dump, scan_root,
			client_hostname, client_os, client_mac, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12, $13, $14, $15, $15)
		ON CONFLICT (filepath) DO UPDATE SET
			filename = EXCLUDED.filename,
			object_name = EXCLUDED.object_name,
			date_obs = EXCLUDED.date_obs,
			exptime = EXCLUDED.exptime,
			observatory = EXCLUDED.observatory,
			ra_deg = EXCLUDED.ra_deg,
			dec_deg = EXCLUDED.dec_deg,
			altitude = EXCLUDED.altitude,
			header_dump = EXCLUDED.header_dump,
			scan_root = EXCLUDED.scan_root,
			client_hostname = EXCLUDED.client_hostname,
			client_os = EXCLUDED.client_os,
			client_mac = EXCLUDED.client_mac,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`
	var dateObs *time.Time
	if file.DateObs != nil {
		t := file.DateObs.UTC()
		dateObs = &t
	}
	err := q.QueryRow(ctx, query,
		file.FilePath, file.FileName, file.ObjectName, dateObs, file.ExpTime, file.Observatory,
		file.RADeg, file.DecDeg, file.Altitude, file.HeaderDump, file.ScanRoot,
		file.ClientHostname, file.ClientOS, file.ClientMAC, time.Now().UTC(),
	).Scan(&file.ID, &file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}
	file.CreatedAt = file.CreatedAt.UTC()
	file.UpdatedAt = file.UpdatedAt.UTC()
	return nil
}

const pgFileColumns = `id, filepath, filename, object_name, date_obs, exptime, observatory,
	ra_deg, dec_deg, altitude, scan_root, client_hostname, client_os, client_mac,
	created_at, updated_at`

func pgScanFile(row pgx.Row, withHeader bool) (*FitsFile, error) {
	var file FitsFile
	dest := []any{
		&file.ID, &file.FilePath, &file.FileName, &file.ObjectName, &file.DateObs,
		&file.ExpTime, &file.Observatory, &file.RADeg, &file.DecDeg, &file.Altitude,
		&file.ScanRoot, &file.ClientHostname, &file.ClientOS, &file.ClientMAC,
		&file.CreatedAt, &file.UpdatedAt,
	}
	if withHeader {
		dest = append(dest, &file.HeaderDump)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if file.DateObs != nil {
		t := file.DateObs.UTC()
		file.DateObs = &t
	}
	file.CreatedAt = file.CreatedAt.UTC()
	file.UpdatedAt = file.UpdatedAt.UTC()
	return &file, nil
}

func pgGetFile(ctx context.Context, q pgQuerier, filePath string) (*FitsFile, error) {
	query := `SELECT ` + pgFileColumns + `, header_dump::text FROM fits_files WHERE filepath = $1`
	file, err := pgScanFile(q.QueryRow(ctx, query, filePath), true)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

func pgListFiles(ctx context.Context, q pgQuerier, filters *FileFilters) ([]*FitsFile, error) {
	withHeader := filters != nil && filters.IncludeHeader
	columns := pgFileColumns
	if withHeader {
		columns += ", header_dump::text"
	}
	where, args := buildWhere(filters, postgresPlaceholder, pgTimeArg)
	query := `SELECT ` + columns + ` FROM fits_files` + where + ` ORDER BY date_obs DESC NULLS LAST, filepath` + pageClause(filters, postgresNoLimit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	files := make([]*FitsFile, 0)
	for rows.Next() {
		file, err := pgScanFile(rows, withHeader)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func pgCountFiles(ctx context.Context, q pgQuerier, filters *FileFilters) (int, error) {
	where, args := buildWhere(filters, postgresPlaceholder, pgTimeArg)
	var n int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM fits_files`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return n, nil
}

func pgListClients(ctx context.Context, q pgQuerier) ([]Client, error) {
	rows, err := q.Query(ctx, `
		SELECT client_mac, client_hostname, client_os, COUNT(*), MAX(updated_at)
		FROM fits_files
		GROUP BY client_mac, client_hostname, client_os
		ORDER BY client_hostname, client_mac`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]Client, 0)
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.MAC, &c.Hostname, &c.OS, &c.Files, &c.LastSeen); err != nil {
			return nil, err
		}
		c.LastSeen = c.LastSeen.UTC()
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func pgDateRange(ctx context.Context, q pgQuerier) (*DateRange, error) {
	r := &DateRange{}
	if err := q.QueryRow(ctx, `SELECT MIN(date_obs), MAX(date_obs) FROM fits_files`).Scan(&r.Min, &r.Max); err != nil {
		return nil, fmt.Errorf("failed to read date range: %w", err)
	}
	if r.Min != nil {
		t := r.Min.UTC()
		r.Min = &t
	}
	if r.Max != nil {
		t := r.Max.UTC()
		r.Max = &t
	}
	return r, nil
}
