// Package db provides the sqlite-backed run store: one row per inversion run
// and one row per outer iteration, so a run can be replayed or compared after
// the fact.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sql handle so the migration and store helpers hang off one
// type.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the sqlite database at path.
func Open(path string) (*DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := handle.Ping(); err != nil {
		handle.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{handle}, nil
}
