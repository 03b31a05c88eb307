/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	db_warmcache.go: SQLite-backed warm cache for the static metadata
	database (SPEC_FULL.md §4.7a, added). The gzipped CSV is the
	authoritative source; this is a local persistence layer so a restart
	doesn't have to wait on a remote/slow CSV fetch before serving
	lookups, grounded on montge-stratux's use of mattn/go-sqlite3.
*/

package main

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// WarmCache persists DB entries to a local SQLite file between restarts.
type WarmCache struct {
	db *sql.DB
}

// OpenWarmCache opens (creating if needed) the warm-cache file at path.
func OpenWarmCache(path string) (*WarmCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("warm cache: open: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS entries (
	addr INTEGER PRIMARY KEY,
	registration TEXT,
	type_code TEXT,
	type_long TEXT,
	year TEXT,
	owner_op TEXT,
	db_flags INTEGER
)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("warm cache: create schema: %w", err)
	}
	return &WarmCache{db: db}, nil
}

// Close releases the underlying database handle.
func (w *WarmCache) Close() error {
	return w.db.Close()
}

// Save persists every live entry of db, replacing the prior contents in a
// single transaction so a reader never observes a partially written table.
func (w *WarmCache) Save(db *DB) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("warm cache: begin: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		tx.Rollback()
		return fmt.Errorf("warm cache: clear: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO entries
		(addr, registration, type_code, type_long, year, owner_op, db_flags)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("warm cache: prepare: %w", err)
	}
	defer stmt.Close()

	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, head := range db.buckets {
		for d := head; d != nil; d = d.next {
			if _, err := stmt.Exec(d.Addr, d.Registration, d.TypeCode, d.TypeLong, d.Year, d.OwnerOp, d.DBFlags); err != nil {
				tx.Rollback()
				return fmt.Errorf("warm cache: insert: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Load populates db's live generation directly from the warm cache,
// bypassing the CSV entirely -- used at startup before the first gzip
// fetch completes. Returns the number of entries loaded.
func (w *WarmCache) Load(db *DB) (int, error) {
	rows, err := w.db.Query(`SELECT addr, registration, type_code, type_long, year, owner_op, db_flags FROM entries`)
	if err != nil {
		return 0, fmt.Errorf("warm cache: query: %w", err)
	}
	defer rows.Close()

	var loaded [dbBuckets]*DBEntry
	count := 0
	for rows.Next() {
		d := &DBEntry{}
		var addr int64
		var flags int64
		if err := rows.Scan(&addr, &d.Registration, &d.TypeCode, &d.TypeLong, &d.Year, &d.OwnerOp, &flags); err != nil {
			return count, fmt.Errorf("warm cache: scan: %w", err)
		}
		d.Addr = uint32(addr)
		d.DBFlags = uint8(flags)
		dbPut(&loaded, d)
		count++
	}
	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("warm cache: rows: %w", err)
	}

	db.mu.Lock()
	db.buckets = loaded
	db.count = count
	db.mu.Unlock()

	return count, nil
}
