// Package ditchdb persists pipeline runs to SQLite so thresholding
// decisions stay auditable: which strategy ran, with which parameters,
// what cutoff it produced and how many cells survived each stage.
package ditchdb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the runs database connection.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the runs database at path and
// applies the session pragmas. Schema setup is separate: call
// MigrateUp before using the stores.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open runs db %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	return &DB{db}, nil
}
