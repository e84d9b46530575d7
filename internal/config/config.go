// Package config reads fitscat settings from environment variables and
// exposes them as typed values. CLI flags override what is loaded here.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/fitscat/internal/coords"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	// DefaultDBPath is the SQLite catalog location; "~" is expanded
	DefaultDBPath = "~/.fitscat/catalog.db"
	// DefaultSnapshotPath is where export writes the Parquet snapshot
	DefaultSnapshotPath = "fits_data.parquet"
	// DefaultWorkers is the indexing pool width
	DefaultWorkers = 8

	defaultProgressEvery = 100
	defaultHTTPAddr      = ":8080"
	defaultS3Bucket      = "fitscat"
	defaultS3Region      = "us-east-1"
)

// ErrInvalid is returned for settings that parse but make no sense
var ErrInvalid = errors.New("invalid configuration")

// S3 holds the optional snapshot upload target
type S3 struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Enabled reports whether an upload target is configured
func (s S3) Enabled() bool {
	return s.Endpoint != ""
}

// Config is the runtime configuration
type Config struct {
	DBDriver    string
	DBPath      string
	DatabaseURL string

	Workers       int
	ProgressEvery int
	FileTimeout   time.Duration
	DefaultSite   coords.Location

	HTTPAddr       string
	SnapshotPath   string
	PushgatewayURL string
	S3             S3
}

// Load reads configuration from the environment, falling back to defaults
func Load() (*Config, error) {
	site := coords.FiglObservatory()
	cfg := &Config{
		DBDriver:      strings.ToLower(readEnv("FITSCAT_DB_DRIVER", DriverSQLite)),
		DBPath:        readEnv("FITSCAT_DB_PATH", DefaultDBPath),
		DatabaseURL:   readEnv("FITSCAT_DATABASE_URL", postgresURLFromParts()),
		Workers:       parseInt("FITSCAT_WORKERS", DefaultWorkers),
		ProgressEvery: parseInt("FITSCAT_PROGRESS_EVERY", defaultProgressEvery),
		FileTimeout:   parseDuration("FITSCAT_FILE_TIMEOUT", 0),
		DefaultSite: coords.Location{
			Latitude:  parseFloat("FITSCAT_DEFAULT_LAT", site.Latitude),
			Longitude: parseFloat("FITSCAT_DEFAULT_LON", site.Longitude),
			Height:    parseFloat("FITSCAT_DEFAULT_HEIGHT", site.Height),
		},
		HTTPAddr:       readEnv("FITSCAT_HTTP_ADDR", defaultHTTPAddr),
		SnapshotPath:   readEnv("FITSCAT_SNAPSHOT_PATH", DefaultSnapshotPath),
		PushgatewayURL: readEnv("FITSCAT_PUSHGATEWAY_URL", ""),
		S3: S3{
			Endpoint:  readEnv("FITSCAT_S3_ENDPOINT", ""),
			AccessKey: readEnv("FITSCAT_S3_ACCESS_KEY", ""),
			SecretKey: readEnv("FITSCAT_S3_SECRET_KEY", ""),
			Bucket:    readEnv("FITSCAT_S3_BUCKET", defaultS3Bucket),
			Region:    readEnv("FITSCAT_S3_REGION", defaultS3Region),
			UseSSL:    parseBool("FITSCAT_S3_USE_SSL", true),
		},
	}

	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = defaultProgressEvery
	}
	if cfg.FileTimeout < 0 {
		cfg.FileTimeout = 0
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be defaulted silently
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("%w: FITSCAT_DB_PATH is empty", ErrInvalid)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres driver needs FITSCAT_DATABASE_URL or DB_* variables", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalid, c.DBDriver)
	}
	if err := c.DefaultSite.Validate(); err != nil {
		return fmt.Errorf("%w: default site: %v", ErrInvalid, err)
	}
	return nil
}

// ResolvedDBPath returns DBPath with a leading "~" expanded
func (c *Config) ResolvedDBPath() (string, error) {
	return expandHome(c.DBPath)
}

// postgresURLFromParts builds a DSN from DB_USER, DB_PASSWORD, DB_HOST,
// DB_PORT and DB_NAME. It returns "" unless DB_HOST or DB_NAME is set.
func postgresURLFromParts() string {
	host := readEnv("DB_HOST", "")
	name := readEnv("DB_NAME", "")
	if host == "" && name == "" {
		return ""
	}
	if host == "" {
		host = "localhost"
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   host + ":" + readEnv("DB_PORT", "5432"),
		Path:   "/" + name,
	}
	if user := readEnv("DB_USER", ""); user != "" {
		if pw := readEnv("DB_PASSWORD", ""); pw != "" {
			u.User = url.UserPassword(user, pw)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String()
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

func parseFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	// time.ParseDuration understands inputs like "30s" or "2m"
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}
