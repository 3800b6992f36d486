/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package store is the persistent data store: durable keyed storage of
// folders, images and analysis results in a single SQLite file, with
// secondary indices, atomic multi-record transactions, cascading deletion
// and aggregate statistics. It is opened once per process and injected into
// everything that needs it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	applog "imagevault/internal/log"
	"imagevault/internal/version"
	"log/slog"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// SchemaVersion tracks the SQLite schema. Bump when performing breaking
// schema changes and add a migration step.
const SchemaVersion = 1

// Store wraps the SQLite database. All repository operations hang off it.
// The zero value is not usable; construct with Open.
type Store struct {
	db   *sql.DB
	path string

	// now and rnd exist so tests can pin timestamps and folder colors.
	now func() time.Time
	rnd *rand.Rand
}

// Open opens (creating if absent) the database at path, enables WAL mode,
// and ensures the schema exists at the current version, upgrading in place
// if it is older. Every failure is reported as a *StoreOpenError; nothing
// else works until a retry succeeds.
func Open(path string) (*Store, error) {
	l := applog.WithOperation(applog.WithComponent("store"), "open").With(slog.String("path", path))
	if path == "" {
		return nil, &StoreOpenError{Path: path, Err: errors.New("path is required")}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			l.Error("create store dir failed", slog.Any("err", err))
			return nil, &StoreOpenError{Path: path, Err: err}
		}
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, &StoreOpenError{Path: path, Err: err}
	}
	// Single connection: the store is the single logical writer, and SQLite
	// serializes overlapping transactions for us.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, &StoreOpenError{Path: path, Err: fmt.Errorf("enable WAL: %w", err)}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure version failed", slog.Any("err", err))
		return nil, &StoreOpenError{Path: path, Err: err}
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, &StoreOpenError{Path: path, Err: err}
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, &StoreOpenError{Path: path, Err: err}
	}

	l.Info("store ready")
	return &Store{
		db:   db,
		path: path,
		now:  func() time.Time { return time.Now().UTC() },
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file path the store was opened with.
func (s *Store) Path() string { return s.path }

// ensureVersion creates the single-row version table and seeds or refreshes it.
func ensureVersion(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS version (
		id          INTEGER PRIMARY KEY CHECK(id=1),
		schema      INTEGER NOT NULL,
		app         TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);`); err != nil {
		return fmt.Errorf("create version table: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, SchemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; migrations own the schema column.
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// ensureSchema creates the three record collections and their secondary
// indices if they do not exist. Idempotent: re-running is a no-op.
func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// AUTOINCREMENT keeps identities monotonic and never reused, even
		// after deletes.
		`CREATE TABLE IF NOT EXISTS folders (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			name         TEXT    NOT NULL,
			description  TEXT    NOT NULL DEFAULT '',
			color        TEXT    NOT NULL,
			image_count  INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT    NOT NULL,
			updated_at   TEXT    NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_folders_name ON folders(name);`,
		`CREATE INDEX IF NOT EXISTS idx_folders_created ON folders(created_at);`,

		`CREATE TABLE IF NOT EXISTS images (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			folder_id     INTEGER NOT NULL REFERENCES folders(id),
			name          TEXT    NOT NULL,
			original_name TEXT    NOT NULL,
			size          INTEGER NOT NULL,
			mime_type     TEXT    NOT NULL,
			data          BLOB,
			thumbnail     TEXT,
			processed     INTEGER NOT NULL DEFAULT 0,
			processed_at  TEXT,
			created_at    TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_images_folder ON images(folder_id);`,
		`CREATE INDEX IF NOT EXISTS idx_images_name ON images(name);`,
		`CREATE INDEX IF NOT EXISTS idx_images_created ON images(created_at);`,

		`CREATE TABLE IF NOT EXISTS results (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			image_id    INTEGER NOT NULL REFERENCES images(id),
			folder_id   INTEGER NOT NULL,
			data        TEXT    NOT NULL,
			created_at  TEXT    NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_results_image ON results(image_id);`,
		`CREATE INDEX IF NOT EXISTS idx_results_folder ON results(folder_id);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to SchemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > SchemaVersion {
		// Do not downgrade.
		return nil
	}
	for cur < SchemaVersion {
		next := cur + 1
		switch next {
		// Future steps go here, one case per version bump, each inside
		// its own transaction and ending with an UPDATE of version.schema.
		default:
		}
		cur = next
	}
	return nil
}

// withTx runs fn with read-write access inside a single transaction. All of
// fn's mutations either all become visible or none do. Typed domain errors
// (not found, duplicates) pass through untouched; any other failure rolls
// back and is reported as a *TransactionAbortedError.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &TransactionAbortedError{Op: op, Err: err}
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if isDomainError(err) {
			return err
		}
		return &TransactionAbortedError{Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &TransactionAbortedError{Op: op, Err: err}
	}
	return nil
}

func isDomainError(err error) bool {
	var nf *NotFoundError
	var dn *DuplicateNameError
	var dr *DuplicateResultError
	return errors.As(err, &nf) || errors.As(err, &dn) || errors.As(err, &dr)
}

// ClearAll empties all three collections atomically in one transaction.
// Identity counters are untouched, so ids are never reused across a clear.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.withTx(ctx, "clear_all", func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM results;`,
			`DELETE FROM images;`,
			`DELETE FROM folders;`,
		} {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return err
			}
		}
		return nil
	})
}

// Timestamps are stored as RFC3339Nano UTC text.
func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
