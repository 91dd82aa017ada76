// Package store implements the main relational store (spec.md §4.3):
// identity tables, event tables, content-addressed blobs, the FTS index,
// and the live-session tables. Opening semantics, the busy-retry wrapper,
// and the migration style are grounded on beads' internal/storage/sqlite
// package: apply the schema once on a fresh file, then run a sequence of
// small, idempotent migrations (internal/store/migrations) the way
// beads layers numbered migration files rather than hand-editing the
// base schema.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"

	"github.com/kgruel/siftd-sub000/internal/store/migrations"
	"github.com/kgruel/siftd-sub000/internal/telemetry"
)

// Store wraps the main database connection.
type Store struct {
	db       *sql.DB
	readOnly bool
}

// Open opens (creating if necessary) the main store at path. readOnly
// opens a read-only connection for query/search/doctor/peek commands,
// matching spec.md §5's "multi-reader via read-only connections".
func Open(path string, readOnly bool) (*Store, error) {
	isNew := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// A read-only connection cannot create the file, so a missing
		// store is opened read-write and gets the schema either way.
		isNew = true
		readOnly = false
	}

	dsn := path
	if readOnly {
		dsn = "file:" + path + "?mode=ro"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening main store: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer model (spec.md §5)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enabling foreign_keys: %w", err)
	}
	if !readOnly {
		if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
			return nil, fmt.Errorf("enabling WAL: %w", err)
		}
	}

	s := &Store{db: db, readOnly: readOnly}

	if !readOnly {
		if isNew {
			if _, err := db.Exec(schemaSQL); err != nil {
				return nil, fmt.Errorf("applying schema: %w", err)
			}
		}
		if err := migrations.Run(db); err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		if err := seedCanonicalTools(db); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the raw *sql.DB for packages (ingest, retrieval, doctor,
// backfill) that need direct query access beyond this package's surface.
func (s *Store) DB() *sql.DB { return s.db }

// canonicalTools seeds a handful of well-known tool names so fetch_top_tools
// and tool-alias resolution have stable canonical rows to reference even
// before any adapter-specific alias is registered.
var canonicalTools = []string{
	"file.read", "file.write", "file.edit", "shell.execute",
	"search.grep", "search.glob", "web.fetch", "web.search",
}

func seedCanonicalTools(db *sql.DB) error {
	for _, name := range canonicalTools {
		if _, err := db.Exec(`INSERT OR IGNORE INTO tools (id, name) VALUES (lower(hex(randomblob(16))), ?)`, name); err != nil {
			return fmt.Errorf("seeding canonical tool %q: %w", name, err)
		}
	}
	return nil
}

// retryPolicy governs SQLITE_BUSY retries around writer transactions,
// grounded on beads' newServerRetryBackoff (internal/storage/dolt/store.go),
// which wraps an exponential backoff.BackOff with a bounded elapsed time
// instead of retrying forever.
func retryPolicy() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 5 * time.Second
	return bo
}

func isBusyErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "busy")
}

// WithTx runs fn inside a transaction, retrying on SQLITE_BUSY and
// rolling back on any error (spec.md §4.2 "Per-file is atomic").
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx, span := telemetry.StartSpan(ctx, "store.with_tx")
	defer span.End()

	operation := func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			if isBusyErr(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if isBusyErr(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if err := tx.Commit(); err != nil {
			if isBusyErr(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	return backoff.Retry(operation, retryPolicy())
}
