// Package store persists cache snapshots to SQLite so a process restart
// keeps its semantic working set, embeddings included — without the mirror's
// Redis dependency.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Keksclan/goRawrCache/cache"
)

// Store is a snapshot file for cache entries. A snapshot is written whole:
// Save replaces the previous snapshot atomically within one transaction, and
// Load returns the entries in the order they were exported (most recently
// used first), ready for cache.Import.
type Store struct {
	db *sql.DB
}

const createSnapshotTable = `
CREATE TABLE IF NOT EXISTS snapshot_entries (
	position INTEGER PRIMARY KEY,
	key TEXT NOT NULL,
	query TEXT NOT NULL,
	response TEXT NOT NULL,
	embedding BLOB NOT NULL,
	token_cost INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	ttl_ns INTEGER NOT NULL,
	usage_count INTEGER NOT NULL,
	last_used_at INTEGER NOT NULL
);
`

// Open creates or opens a snapshot file at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	if _, err := db.Exec(createSnapshotTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate snapshot db: %w", err)
	}
	return &Store{db: db}, nil
}

// Save replaces the stored snapshot with the given entries.
func (s *Store) Save(entries []cache.Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM snapshot_entries`); err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO snapshot_entries
		(position, key, query, response, embedding, token_cost, created_at, ttl_ns, usage_count, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		vec, err := json.Marshal(e.Embedding)
		if err != nil {
			return fmt.Errorf("snapshot save: encode embedding for %q: %w", e.Key, err)
		}
		if _, err := stmt.Exec(
			i, e.Key, e.Query, e.Response, vec, e.TokenCost,
			e.CreatedAt.UnixNano(), int64(e.TTL), e.UsageCount, e.LastUsedAt.UnixNano(),
		); err != nil {
			return fmt.Errorf("snapshot save: insert %q: %w", e.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}
	return nil
}

// Load returns the stored snapshot in saved order.
func (s *Store) Load() ([]cache.Entry, error) {
	rows, err := s.db.Query(`SELECT key, query, response, embedding, token_cost, created_at, ttl_ns, usage_count, last_used_at
		FROM snapshot_entries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("snapshot load: %w", err)
	}
	defer rows.Close()

	var out []cache.Entry
	for rows.Next() {
		var (
			e          cache.Entry
			vec        []byte
			createdAt  int64
			ttl        int64
			lastUsedAt int64
		)
		if err := rows.Scan(&e.Key, &e.Query, &e.Response, &vec, &e.TokenCost,
			&createdAt, &ttl, &e.UsageCount, &lastUsedAt); err != nil {
			return nil, fmt.Errorf("snapshot load: %w", err)
		}
		if err := json.Unmarshal(vec, &e.Embedding); err != nil {
			return nil, fmt.Errorf("snapshot load: decode embedding for %q: %w", e.Key, err)
		}
		e.CreatedAt = time.Unix(0, createdAt)
		e.TTL = time.Duration(ttl)
		e.LastUsedAt = time.Unix(0, lastUsedAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot load: %w", err)
	}
	return out, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
