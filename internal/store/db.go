// Package store persists error occurrences in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dotcommander/errtrap/internal/app"
	_ "modernc.org/sqlite"
)

// connPragmas run on every new connection; the driver puts busy_timeout
// first so the WAL switch waits on locks too.
var connPragmas = []string{
	"busy_timeout(2000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// InitDBWithPath opens (creating if needed) the occurrence database at
// dbPath and applies pending migrations.
func InitDBWithPath(dbPath string) (*sql.DB, error) {
	if !isMemory(dbPath) {
		if _, err := app.EnsureDBDir(dbPath); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection serializes writers from concurrent observers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	if err := RetryWithBackoff(ctx, func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect database %s: %w", dbPath, err)
	}
	if err := RetryWithBackoff(ctx, func() error { return MigrateDB(db, dbPath) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database %s: %w", dbPath, err)
	}
	return db, nil
}

func isMemory(dbPath string) bool { return strings.Contains(dbPath, ":memory:") }

// sqliteDSN turns a path into a file: URI carrying the connection pragmas.
// Plain paths open read/write/create; file: URIs keep their own mode.
func sqliteDSN(dbPath string) string {
	base := dbPath
	switch {
	case strings.HasPrefix(dbPath, "file:"):
	case isMemory(dbPath):
		base = "file::memory:?cache=shared"
	default:
		base = "file:" + dbPath + "?mode=rwc"
	}

	params := make([]string, len(connPragmas))
	for i, p := range connPragmas {
		params[i] = "_pragma=" + p
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + strings.Join(params, "&")
}
