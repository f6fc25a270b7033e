package store

import (
	"context"
	"fmt"

	"github.com/iksnae/claude-memory/internal"
)

// schemaVersion is recorded in PRAGMA user_version
const schemaVersion = 1

// The FTS tables are not external-content tables: each index row carries its
// own copy of the text and shares its rowid with the base row. Every write
// path rewrites the index row in the same transaction as the base row.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id     TEXT NOT NULL UNIQUE,
		project_path   TEXT NOT NULL,
		source_format  TEXT NOT NULL,
		started_at     TEXT NOT NULL,
		ended_at       TEXT NOT NULL,
		turn_count     INTEGER NOT NULL,
		title          TEXT NOT NULL,
		body           TEXT NOT NULL,
		model          TEXT NOT NULL DEFAULT '',
		git_branch     TEXT NOT NULL DEFAULT '',
		files_modified TEXT NOT NULL DEFAULT '[]',
		files_read     TEXT NOT NULL DEFAULT '[]',
		commands_run   TEXT NOT NULL DEFAULT '[]',
		git_commits    TEXT NOT NULL DEFAULT '[]',
		tool_counts    TEXT NOT NULL DEFAULT '{}',
		input_tokens   INTEGER NOT NULL DEFAULT 0,
		output_tokens  INTEGER NOT NULL DEFAULT 0,
		user_turns     INTEGER NOT NULL DEFAULT 0,
		ingested_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS notes (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		note_id    TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL DEFAULT '',
		content    TEXT NOT NULL,
		tags       TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notes_created ON notes(created_at DESC)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS sessions_fts USING fts5(
		session_id UNINDEXED,
		title,
		body,
		tokenize = 'porter unicode61'
	)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
		note_id UNINDEXED,
		content,
		tags,
		tokenize = 'porter unicode61'
	)`,
}

// initSchema creates the schema if it is missing. It runs under the write
// lock so two processes opening a fresh store at once serialise here.
func (s *Store) initSchema(ctx context.Context) error {
	err := s.write(ctx, "init schema", func(q querier) error {
		var version int
		if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
			return fmt.Errorf("read user_version: %w", err)
		}
		if version > schemaVersion {
			return fmt.Errorf("store schema version %d is newer than supported version %d", version, schemaVersion)
		}
		if version == schemaVersion {
			return nil
		}

		for _, stmt := range schemaStatements {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		if _, err := q.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
		internal.Logger().Debug("initialized memory store", "path", s.path, "version", schemaVersion)
		return nil
	})
	if err != nil {
		return &internal.SchemaInitError{Path: s.path, Err: err}
	}
	return nil
}
