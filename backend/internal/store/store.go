// Package store persists castings, story plots, story blocks and universe
// folders in SQLite. The graph half of the system lives in internal/graph;
// this package owns the relational half, including the position-indexed
// block tree.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"owing/backend/pkg/logger"
)

// Store wraps the SQLite handle
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens the SQLite store and applies the schema. Safe to call on an
// existing database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, logger: logger.Get()}, nil
}

// Close closes the SQLite handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func nowMillis() int64 {
	return toMillis(time.Now())
}

// withTx runs fn inside a transaction, rolling back on error. Multi-step
// tree mutations go through here so concurrent moves against the same
// parent serialize on the database write lock.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS castings (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	age         INTEGER NOT NULL DEFAULT 0,
	gender      TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL DEFAULT '',
	detail      TEXT NOT NULL DEFAULT '',
	image_url   TEXT NOT NULL DEFAULT '',
	coord_x     INTEGER NOT NULL DEFAULT 0,
	coord_y     INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	deleted_at  INTEGER
);

CREATE TABLE IF NOT EXISTS story_plots (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id  INTEGER NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL,
	text_count  INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	deleted_at  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_plots_project ON story_plots(project_id, position);

CREATE TABLE IF NOT EXISTS story_blocks (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	story_plot_id   INTEGER NOT NULL REFERENCES story_plots(id),
	parent_block_id INTEGER REFERENCES story_blocks(id),
	block_type      TEXT NOT NULL DEFAULT '',
	props           TEXT NOT NULL DEFAULT '{}',
	contents        TEXT NOT NULL DEFAULT '[]',
	text_len        INTEGER NOT NULL DEFAULT 0,
	position        INTEGER NOT NULL,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blocks_siblings
	ON story_blocks(story_plot_id, parent_block_id, position);

CREATE TABLE IF NOT EXISTS universe_folders (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id  INTEGER NOT NULL,
	name        TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	deleted_at  INTEGER
);
`
