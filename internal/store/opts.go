package store

import "strings"

// Opts holds configuration options for persistent store backends.
type Opts struct {
	// DSN is the database connection string. A file path selects SQLite; a
	// postgres URL or key=value DSN selects PostgreSQL.
	DSN string
}

// Option defines a configuration option for a store backend.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType reports "postgres" or "sqlite3" based on the DSN shape.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}
