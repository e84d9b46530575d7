package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.1.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all SQLite migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
	{
		Version: "1.1.0",
		Up:      migrationV11Up,
		Down:    migrationV11Down,
	},
}

// Timestamps are TEXT in the fixed-width UTC layout of sqliteTimeLayout so
// that string comparison orders them chronologically on every driver.
const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS fits_files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    filepath TEXT NOT NULL UNIQUE,
    filename TEXT NOT NULL,
    object_name TEXT NOT NULL DEFAULT 'Unknown',
    date_obs TEXT,
    exptime REAL NOT NULL DEFAULT 0,
    observatory TEXT NOT NULL DEFAULT 'Unknown',
    ra_deg REAL,
    dec_deg REAL,
    altitude REAL,
    header_dump TEXT NOT NULL DEFAULT '{}',
    scan_root TEXT NOT NULL DEFAULT '',
    client_hostname TEXT NOT NULL DEFAULT '',
    client_os TEXT NOT NULL DEFAULT '',
    client_mac TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fits_files_object_lower ON fits_files(lower(object_name));
CREATE INDEX IF NOT EXISTS idx_fits_files_client_mac ON fits_files(client_mac);
`

const migrationV1Down = `
DROP INDEX IF EXISTS idx_fits_files_client_mac;
DROP INDEX IF EXISTS idx_fits_files_object_lower;
DROP TABLE IF EXISTS fits_files;
`

const migrationV11Up = `
CREATE INDEX IF NOT EXISTS idx_fits_files_date_obs ON fits_files(date_obs);
CREATE INDEX IF NOT EXISTS idx_fits_files_observatory ON fits_files(observatory);
`

const migrationV11Down = `
DROP INDEX IF EXISTS idx_fits_files_observatory;
DROP INDEX IF EXISTS idx_fits_files_date_obs;
`

// latestVersion returns the highest of the recorded versions, 0.0.0 if none
func latestVersion(recorded []string) (*semver.Version, error) {
	current := semver.MustParse("0.0.0")
	for _, s := range recorded {
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", s, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, nil
}

// pendingMigrations returns migrations newer than current, oldest first
func pendingMigrations(all []Migration, current *semver.Version) ([]Migration, error) {
	type versioned struct {
		v *semver.Version
		m Migration
	}
	var pending []versioned
	for _, m := range all {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return nil, fmt.Errorf("invalid migration version %s: %w", m.Version, err)
		}
		if current.LessThan(v) {
			pending = append(pending, versioned{v: v, m: m})
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].v.LessThan(pending[j].v) })

	out := make([]Migration, len(pending))
	for i, p := range pending {
		out[i] = p.m
	}
	return out, nil
}

func findMigration(all []Migration, version string) *Migration {
	for i := range all {
		if all[i].Version == version {
			return &all[i]
		}
	}
	return nil
}

// recordedVersions reads schema_version, empty if the table does not exist
func recordedVersions(ctx context.Context, db *sql.DB) ([]string, error) {
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	recorded, err := recordedVersions(ctx, db)
	if err != nil {
		return err
	}
	currentVersion, err := latestVersion(recorded)
	if err != nil {
		return err
	}

	pending, err := pendingMigrations(AllMigrations, currentVersion)
	if err != nil {
		return err
	}

	for _, migration := range pending {
		if _, err := db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}
	}

	return nil
}

// RollbackMigration rolls back the most recent migration. Rolling back
// 1.0.0 drops the catalog table; schema_version itself is kept.
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	recorded, err := recordedVersions(ctx, db)
	if err != nil {
		return err
	}
	if len(recorded) == 0 {
		return fmt.Errorf("no migrations to rollback")
	}
	current, err := latestVersion(recorded)
	if err != nil {
		return err
	}

	migration := findMigration(AllMigrations, current.Original())
	if migration == nil {
		return fmt.Errorf("migration %s not found", current.Original())
	}

	if _, err := db.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", migration.Version); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", migration.Version, err)
	}

	return nil
}

// resetSchema rolls back every applied migration and applies them again
func resetSchema(ctx context.Context, db *sql.DB) error {
	for {
		recorded, err := recordedVersions(ctx, db)
		if err != nil {
			return err
		}
		if len(recorded) == 0 {
			break
		}
		if err := RollbackMigration(ctx, db); err != nil {
			return err
		}
	}
	return ApplyMigrations(ctx, db)
}
