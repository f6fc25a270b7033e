package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/iksnae/claude-memory/internal"
)

const noteColumns = `n.note_id, n.session_id, n.content, n.tags, n.created_at`

// CreateNote inserts a note and its index entry. CreatedAt is stamped by
// the store when zero.
func (s *Store) CreateNote(ctx context.Context, note *internal.Note) error {
	if strings.TrimSpace(note.ID) == "" {
		return internal.Validation("note_id", "must not be empty")
	}
	if strings.TrimSpace(note.Content) == "" {
		return internal.Validation("content", "must not be empty")
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}

	return s.write(ctx, "create note", func(q querier) error {
		created := formatTime(note.CreatedAt)
		if note.CreatedAt.IsZero() {
			created = s.now()
		}
		res, err := q.ExecContext(ctx,
			`INSERT INTO notes (note_id, session_id, content, tags, created_at) VALUES (?, ?, ?, ?, ?)`,
			note.ID, note.SessionID, note.Content, jsonText(note.Tags, "[]"), created)
		if err != nil {
			return fmt.Errorf("insert note: %w", err)
		}
		rowid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx,
			`INSERT INTO notes_fts (rowid, note_id, content, tags) VALUES (?, ?, ?, ?)`,
			rowid, note.ID, note.Content, strings.Join(note.Tags, " ")); err != nil {
			return fmt.Errorf("index note: %w", err)
		}
		note.CreatedAt = parseTime(created)
		return nil
	})
}

// SearchNotes runs a compiled FTS5 match over note content and tags
func (s *Store) SearchNotes(ctx context.Context, match string, limit int) ([]*internal.Note, error) {
	return s.queryNotes(ctx, "search notes", `
		SELECT `+noteColumns+`
		FROM notes_fts
		JOIN notes n ON n.id = notes_fts.rowid
		WHERE notes_fts MATCH ?
		ORDER BY bm25(notes_fts, 0.0, 1.0, 1.0), n.created_at DESC
		LIMIT ?`, limit, match)
}

// NotesByTag returns notes carrying exactly tag, newest first
func (s *Store) NotesByTag(ctx context.Context, tag string, limit int) ([]*internal.Note, error) {
	return s.queryNotes(ctx, "notes by tag", `
		SELECT `+noteColumns+`
		FROM notes n
		WHERE EXISTS (SELECT 1 FROM json_each(n.tags) WHERE json_each.value = ?)
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT ?`, limit, tag)
}

// RecentNotes returns the newest notes
func (s *Store) RecentNotes(ctx context.Context, limit int) ([]*internal.Note, error) {
	return s.queryNotes(ctx, "recent notes", `
		SELECT `+noteColumns+`
		FROM notes n
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT ?`, limit)
}

func (s *Store) queryNotes(ctx context.Context, op, query string, limit int, args ...any) ([]*internal.Note, error) {
	if limit < 1 {
		return nil, internal.Validation("limit", "must be a positive integer, got %d", limit)
	}
	args = append(args, limit)

	var notes []*internal.Note
	err := s.read(ctx, op, func(q querier) error {
		notes = notes[:0]
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				n       internal.Note
				tags    string
				created string
			)
			if err := rows.Scan(&n.ID, &n.SessionID, &n.Content, &tags, &created); err != nil {
				return err
			}
			decodeColumn(n.ID, "tags", tags, &n.Tags)
			if n.Tags == nil {
				n.Tags = []string{}
			}
			n.CreatedAt = parseTime(created)
			notes = append(notes, &n)
		}
		return rows.Err()
	})
	return notes, err
}
