package db

import (
	"fmt"
	"strings"
)

// Driver names the storage backend selected by DATABASE_URL.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// ParseDatabaseURL picks the driver from the URL scheme. For sqlite URLs the
// returned DSN is the file path ("sqlite://data/intake.db" -> "data/intake.db").
func ParseDatabaseURL(databaseURL string) (Driver, string, error) {
	scheme, rest, ok := strings.Cut(databaseURL, "://")
	if !ok {
		return "", "", fmt.Errorf("database url %q has no scheme", databaseURL)
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return DriverPostgres, databaseURL, nil
	case "sqlite", "sqlite3", "file":
		if rest == "" {
			return "", "", fmt.Errorf("sqlite database url %q has no path", databaseURL)
		}
		return DriverSQLite, rest, nil
	}
	return "", "", fmt.Errorf("unsupported database scheme %q", scheme)
}
