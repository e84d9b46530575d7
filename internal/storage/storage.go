package storage

import (
	"context"
	"time"
)

// Storage defines the interface for persisting and querying catalog records
type Storage interface {
	// File operations
	UpsertFile(ctx context.Context, file *FitsFile) error
	GetFile(ctx context.Context, filePath string) (*FitsFile, error)
	ListFiles(ctx context.Context, filters *FileFilters) ([]*FitsFile, error)
	CountFiles(ctx context.Context, filters *FileFilters) (int, error)

	// Catalog summaries
	ListClients(ctx context.Context) ([]Client, error)
	DateRange(ctx context.Context) (*DateRange, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Migrator is implemented by backends that manage their own schema
type Migrator interface {
	// Migrate applies pending migrations
	Migrate(ctx context.Context) error
	// Reset drops every catalog table and recreates the schema
	Reset(ctx context.Context) error
	// SchemaVersion returns the newest applied migration version
	SchemaVersion(ctx context.Context) (string, error)
}

// FitsFile is one catalog record, keyed by absolute file path
type FitsFile struct {
	ID          int64
	FilePath    string // Absolute, unique, immutable
	FileName    string
	ObjectName  string
	DateObs     *time.Time // UTC
	ExpTime     float64
	Observatory string
	RADeg       *float64
	DecDeg      *float64
	Altitude    *float64
	HeaderDump  string // JSON object of every header card
	ScanRoot    string

	ClientHostname string
	ClientOS       string
	ClientMAC      string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FileFilters narrows ListFiles and CountFiles. Zero values do not filter.
type FileFilters struct {
	ClientMACs     []string
	ObjectContains string // Case-insensitive substring
	ObjectNames    []string
	Observatories  []string
	ExpTimes       []float64
	MinExpTime     *float64
	MinAltitude    *float64
	MaxAltitude    *float64
	DateFrom       *time.Time // Inclusive
	DateTo         *time.Time // Exclusive

	Limit  int
	Offset int

	// IncludeHeader loads header_dump, which is skipped otherwise
	IncludeHeader bool
}

// Client is a machine that has written records
type Client struct {
	MAC      string
	Hostname string
	OS       string
	Files    int
	LastSeen time.Time
}

// DateRange is the span of observation timestamps in the catalog. Both ends
// are nil when no record has a timestamp.
type DateRange struct {
	Min *time.Time `json:"min"`
	Max *time.Time `json:"max"`
}
