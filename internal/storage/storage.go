// Package storage implements the Storage Adapter (§6 "Persisted state
// layout"): a generic collection-keyed KV store over a single SQLite
// database, generalized from the teacher's fixed-table schema (see
// Vitadek-OwnWorld/db.go) into one (collection, key, value, updated_at)
// table shared by every named collection (match_saves, lmp_data, crafts,
// screenshots, flags, bans, admins, configuration).
package storage

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
	_ "modernc.org/sqlite"

	"lunamatch/internal/logging"
)

// Store is a concurrency-safe KV store over SQLite (§5: "Multiple matches
// ... share only the Storage Adapter, which must be concurrency-safe
// internally"). database/sql's *DB already pools and synchronizes
// connections, so no additional locking is added here.
type Store struct {
	db     *sql.DB
	logger *logging.Logger
}

// Open opens (creating if needed) the SQLite database at dsn and ensures
// the generic collection schema exists.
func Open(dsn string, logger *logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: one writer keeps WAL contention away

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS collection_entries (
			collection TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      BLOB NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (collection, key)
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(raw []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

// Put serializes value as JSON, gzip-compresses it (§1 ambient stack:
// `klauspost/compress/gzip`, re-homed from the teacher's unwired gRPC
// compression dependency), and upserts it under (collection, key).
func (s *Store) Put(collection, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: marshal: %w", err)
	}
	compressed, err := compress(raw)
	if err != nil {
		return fmt.Errorf("storage: compress: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO collection_entries (collection, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		collection, key, compressed, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("storage: put %s/%s: %w", collection, key, err)
	}
	return nil
}

// Get decodes the value stored under (collection, key) into dst. Returns
// found=false (no error) if the key does not exist.
func (s *Store) Get(collection, key string, dst any) (bool, error) {
	var compressed []byte
	err := s.db.QueryRow(`SELECT value FROM collection_entries WHERE collection = ? AND key = ?`, collection, key).Scan(&compressed)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: get %s/%s: %w", collection, key, err)
	}
	raw, err := decompress(compressed)
	if err != nil {
		return false, fmt.Errorf("storage: decompress %s/%s: %w", collection, key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("storage: unmarshal %s/%s: %w", collection, key, err)
	}
	return true, nil
}

// Delete removes a (collection, key) entry, if present.
func (s *Store) Delete(collection, key string) error {
	_, err := s.db.Exec(`DELETE FROM collection_entries WHERE collection = ? AND key = ?`, collection, key)
	if err != nil {
		return fmt.Errorf("storage: delete %s/%s: %w", collection, key, err)
	}
	return nil
}

// List returns every key currently stored in a collection, ordered by
// mtime ascending (oldest first) — used by the Asset Broker's FIFO
// eviction (§4.9).
func (s *Store) List(collection string) ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM collection_entries WHERE collection = ? ORDER BY updated_at ASC`, collection)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", collection, err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("storage: list %s scan: %w", collection, err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
