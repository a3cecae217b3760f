// Package storage implements the persistence contract of §3/§4: all
// entity CRUD the core needs, plus the transactional invariants around
// favorited sources, cascade deletes, and replace-idempotent TMDB
// mapping writes. It is a straight generalization of the teacher's
// pkg/database — same database/sql + modernc.org/sqlite, plain SQL
// strings, no ORM — from an anime-aggregator schema to the §3 entity
// set.
package storage

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// Open opens (creating if absent) the sqlite database at path and
// ensures the schema exists.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	// sqlite only supports one writer at a time; the task engine's
	// single-worker model means this is rarely a bottleneck, but the
	// compatibility API and scheduler also write concurrently.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{sqlDB}
	if err := db.createSchema(); err != nil {
		return nil, err
	}

	return db, nil
}
