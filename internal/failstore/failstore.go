// Package failstore implements FailureStore (spec §4.2): a persistent set of
// (sequence, failure-key) pairs with an in-memory index, backed by SQLite —
// grounded on the teacher's internal/store sqlite wiring (pragmas, schema
// version, prepared statements).
package failstore

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver, as in the teacher's internal/store

	"github.com/kestrelsec/munge/internal/errs"
)

// Kind distinguishes which core recorded a failure, so one backing store can
// serve create_munge_fail_db, create_btr_fail_db and BTRR's equivalent
// without three separate files (SPEC_FULL.md §C).
type Kind string

const (
	KindMunge Kind = "munge"
	KindBTR   Kind = "btr"
	KindBTRR  Kind = "btrr"
)

const schemaVersion = 1

// Store is the FailureStore: an in-memory index hydrated from, and kept in
// sync with, a SQLite-backed BTRFailSequences table (spec §6).
type Store struct {
	mu    sync.Mutex
	db    *sql.DB
	path  string
	index map[string]map[string]bool // base64(sequence) -> set<failure_key>
	// createIfMissing controls whether record_bad persists to the backing
	// store or only updates the in-memory index (spec §4.2).
	createIfMissing bool
}

// Open opens path (the SQLite file and its table are created if absent,
// whatever createIfMissing says; createIfMissing only decides whether
// RecordBad persists rows) and hydrates the in-memory index from existing
// rows. Calling Open again on the same Store
// with a different path clears the index and rebinds, per spec §4.2.
func (s *Store) Open(ctx context.Context, path string, createIfMissing bool) error {
	if path == "" {
		return fmt.Errorf("%w: failstore: path is empty", errs.ErrStoreIO)
	}

	if s.db != nil {
		_ = s.closeLocked()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("%w: open sqlite: %w", errs.ErrStoreIO, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return fmt.Errorf("%w: ping sqlite: %w", errs.ErrStoreIO, err)
	}

	if _, err := db.ExecContext(ctx, `
		PRAGMA busy_timeout = 10000;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
	`); err != nil {
		_ = db.Close()

		return fmt.Errorf("%w: apply pragmas: %w", errs.ErrStoreIO, err)
	}

	version, err := userVersion(ctx, db)
	if err != nil {
		_ = db.Close()

		return fmt.Errorf("%w: %w", errs.ErrStoreIO, err)
	}

	if version != schemaVersion {
		if err := createSchema(ctx, db); err != nil {
			_ = db.Close()

			return fmt.Errorf("%w: %w", errs.ErrStoreIO, err)
		}
	}

	s.db = db
	s.path = path
	s.createIfMissing = createIfMissing
	s.index = make(map[string]map[string]bool)

	if err := s.hydrate(ctx); err != nil {
		_ = s.closeLocked()

		return fmt.Errorf("%w: hydrate index: %w", errs.ErrStoreIO, err)
	}

	return nil
}

func userVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}

	return v, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS BTRFailSequences (
			Sequence BLOB NOT NULL,
			FailureKey TEXT NOT NULL,
			Kind TEXT NOT NULL DEFAULT 'munge',
			PRIMARY KEY(Sequence, FailureKey)
		)`,
		fmt.Sprintf("PRAGMA user_version = %d", schemaVersion),
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}

	return nil
}

func (s *Store) hydrate(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, "SELECT Sequence, FailureKey FROM BTRFailSequences")
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var seq []byte

		var key string

		if err := rows.Scan(&seq, &key); err != nil {
			return fmt.Errorf("scan: %w", err)
		}

		s.addToIndex(seq, key)
	}

	return rows.Err()
}

func (s *Store) addToIndex(sequence []byte, key string) {
	enc := base64.StdEncoding.EncodeToString(sequence)

	set, ok := s.index[enc]
	if !ok {
		set = make(map[string]bool)
		s.index[enc] = set
	}

	set[key] = true
}

// IsBad performs a constant-time-shaped check (a plain map lookup; the
// index is not attacker-facing) against the in-memory index.
func (s *Store) IsBad(sequence []uint8, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		return false, fmt.Errorf("%w: %w: is_bad called before open", errs.ErrStoreIO, ErrNotOpen)
	}

	enc := base64.StdEncoding.EncodeToString(toBytes(sequence))

	set, ok := s.index[enc]
	if !ok {
		return false, nil
	}

	return set[key], nil
}

// RecordBad inserts (sequence, key) into the index and, if the store was
// opened with createIfMissing, appends a row to the backing database.
func (s *Store) RecordBad(ctx context.Context, sequence []uint8, key string, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		return fmt.Errorf("%w: %w: record_bad called before open", errs.ErrStoreIO, ErrNotOpen)
	}

	raw := toBytes(sequence)
	s.addToIndex(raw, key)

	if !s.createIfMissing {
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO BTRFailSequences (Sequence, FailureKey, Kind) VALUES (?, ?, ?)",
		raw, key, string(kind))
	if err != nil {
		return fmt.Errorf("%w: insert failure row: %w", errs.ErrStoreIO, err)
	}

	return nil
}

// Count returns how many distinct sequences are recorded bad under key.
func (s *Store) Count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0

	for _, set := range s.index {
		if set[key] {
			n++
		}
	}

	return n
}

// Close releases the backing database handle. Safe to call on an unopened
// or already-closed Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closeLocked()
}

func (s *Store) closeLocked() error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil

	if err != nil {
		return fmt.Errorf("%w: close: %w", errs.ErrStoreIO, err)
	}

	return nil
}

func toBytes(seq []uint8) []byte {
	return append([]byte(nil), seq...)
}

// ErrNotOpen is returned by operations attempted before Open.
var ErrNotOpen = errors.New("failstore: not open")
