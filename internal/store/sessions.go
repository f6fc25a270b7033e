package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iksnae/claude-memory/internal"
)

const sessionColumns = `session_id, project_path, source_format, started_at, ended_at,
	turn_count, title, body, model, git_branch, files_modified, files_read,
	commands_run, git_commits, tool_counts, input_tokens, output_tokens,
	user_turns, ingested_at`

// UpsertSession inserts the session or replaces the row with the same
// session_id, rewriting its index entry in the same transaction. It reports
// whether a new row was created.
func (s *Store) UpsertSession(ctx context.Context, sess *internal.Session) (bool, error) {
	if strings.TrimSpace(sess.ID) == "" {
		return false, internal.Validation("session_id", "must not be empty")
	}
	if sess.TurnCount < 1 {
		return false, &internal.EmptySessionError{SessionID: sess.ID}
	}
	if sess.EndedAt.Before(sess.StartedAt) {
		return false, internal.Validation("ended_at", "precedes started_at")
	}

	meta := sess.Metadata
	args := []any{
		sess.ProjectPath, string(sess.SourceFormat),
		formatTime(sess.StartedAt), formatTime(sess.EndedAt),
		sess.TurnCount, sess.Title, sess.Body, sess.Model, meta.GitBranch,
		jsonText(meta.FilesModified, "[]"), jsonText(meta.FilesRead, "[]"),
		jsonText(meta.CommandsRun, "[]"), jsonText(meta.GitCommits, "[]"),
		jsonText(meta.ToolCounts, "{}"),
		meta.InputTokens, meta.OutputTokens, meta.UserTurns,
	}

	created := false
	err := s.write(ctx, "upsert session", func(q querier) error {
		ingested := s.now()

		var rowid int64
		err := q.QueryRowContext(ctx, `SELECT id FROM sessions WHERE session_id = ?`, sess.ID).Scan(&rowid)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			created = true
			res, err := q.ExecContext(ctx, `INSERT INTO sessions (`+sessionColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				append(append([]any{sess.ID}, args...), ingested)...)
			if err != nil {
				return fmt.Errorf("insert session: %w", err)
			}
			if rowid, err = res.LastInsertId(); err != nil {
				return err
			}
		case err != nil:
			return fmt.Errorf("lookup session: %w", err)
		default:
			created = false
			_, err := q.ExecContext(ctx, `UPDATE sessions SET
				project_path = ?, source_format = ?, started_at = ?, ended_at = ?,
				turn_count = ?, title = ?, body = ?, model = ?, git_branch = ?,
				files_modified = ?, files_read = ?, commands_run = ?, git_commits = ?,
				tool_counts = ?, input_tokens = ?, output_tokens = ?, user_turns = ?,
				ingested_at = ?
				WHERE id = ?`, append(args, ingested, rowid)...)
			if err != nil {
				return fmt.Errorf("update session: %w", err)
			}
		}

		return indexSession(ctx, q, rowid, sess.ID, sess.Title, sess.Body)
	})
	if err != nil {
		return false, err
	}

	internal.Logger().Debug("session stored", "session_id", sess.ID, "created", created, "turns", sess.TurnCount)
	return created, nil
}

func indexSession(ctx context.Context, q querier, rowid int64, id, title, body string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM sessions_fts WHERE rowid = ?`, rowid); err != nil {
		return fmt.Errorf("clear session index: %w", err)
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO sessions_fts (rowid, session_id, title, body) VALUES (?, ?, ?, ?)`,
		rowid, id, title, body); err != nil {
		return fmt.Errorf("index session: %w", err)
	}
	return nil
}

// GetSession loads one session by id
func (s *Store) GetSession(ctx context.Context, id string) (*internal.Session, error) {
	var sess *internal.Session
	err := s.read(ctx, "get session", func(q querier) error {
		row := q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, id)
		got, err := scanSession(row)
		if errors.Is(err, sql.ErrNoRows) {
			return &internal.NotFoundError{Kind: "session", ID: id}
		}
		sess = got
		return err
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ListOptions filters and pages ListSessions. From is inclusive, To is
// exclusive; zero values leave that side open.
type ListOptions struct {
	Limit  int
	Offset int
	From   time.Time
	To     time.Time
}

// ListSessions returns sessions most recent first
func (s *Store) ListSessions(ctx context.Context, opts ListOptions) ([]*internal.Session, error) {
	if opts.Limit < 1 {
		return nil, internal.Validation("limit", "must be a positive integer, got %d", opts.Limit)
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1 = 1`
	var args []any
	if !opts.From.IsZero() {
		query += ` AND started_at >= ?`
		args = append(args, formatTime(opts.From))
	}
	if !opts.To.IsZero() {
		query += ` AND started_at < ?`
		args = append(args, formatTime(opts.To))
	}
	query += ` ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	var out []*internal.Session
	err := s.read(ctx, "list sessions", func(q querier) error {
		out = out[:0]
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			sess, err := scanSession(rows)
			if err != nil {
				return err
			}
			out = append(out, sess)
		}
		return rows.Err()
	})
	return out, err
}

// SessionHit is one full-text match against the session index
type SessionHit struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	StartedAt time.Time `json:"started_at"`
	Snippet   string    `json:"snippet"`
	TurnCount int       `json:"turn_count"`
	Model     string    `json:"model,omitempty"`
	GitBranch string    `json:"git_branch,omitempty"`
	Score     float64   `json:"score"`
}

// SearchSessions runs an already-compiled FTS5 match expression. Titles
// weigh twice as much as bodies; ties go to the more recent session.
func (s *Store) SearchSessions(ctx context.Context, match string, limit int) ([]SessionHit, error) {
	if limit < 1 {
		return nil, internal.Validation("limit", "must be a positive integer, got %d", limit)
	}

	const query = `
		SELECT s.session_id, s.title, s.started_at, s.turn_count, s.model, s.git_branch,
		       snippet(sessions_fts, 2, '**', '**', '…', 12),
		       bm25(sessions_fts, 0.0, 2.0, 1.0) AS score
		FROM sessions_fts
		JOIN sessions s ON s.id = sessions_fts.rowid
		WHERE sessions_fts MATCH ?
		ORDER BY score, s.started_at DESC
		LIMIT ?`

	var hits []SessionHit
	err := s.read(ctx, "search sessions", func(q querier) error {
		hits = hits[:0]
		rows, err := q.QueryContext(ctx, query, match, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var h SessionHit
			var started string
			if err := rows.Scan(&h.SessionID, &h.Title, &started, &h.TurnCount,
				&h.Model, &h.GitBranch, &h.Snippet, &h.Score); err != nil {
				return err
			}
			h.StartedAt = parseTime(started)
			hits = append(hits, h)
		}
		return rows.Err()
	})
	return hits, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*internal.Session, error) {
	var (
		sess                             internal.Session
		format, started, ended, ingested string
		modified, read, cmds, commits    string
		tools                            string
	)
	err := row.Scan(&sess.ID, &sess.ProjectPath, &format, &started, &ended,
		&sess.TurnCount, &sess.Title, &sess.Body, &sess.Model, &sess.Metadata.GitBranch,
		&modified, &read, &cmds, &commits, &tools,
		&sess.Metadata.InputTokens, &sess.Metadata.OutputTokens, &sess.Metadata.UserTurns,
		&ingested)
	if err != nil {
		return nil, err
	}

	sess.SourceFormat = internal.Format(format)
	sess.StartedAt = parseTime(started)
	sess.EndedAt = parseTime(ended)
	sess.IngestedAt = parseTime(ingested)
	decodeColumn(sess.ID, "files_modified", modified, &sess.Metadata.FilesModified)
	decodeColumn(sess.ID, "files_read", read, &sess.Metadata.FilesRead)
	decodeColumn(sess.ID, "commands_run", cmds, &sess.Metadata.CommandsRun)
	decodeColumn(sess.ID, "git_commits", commits, &sess.Metadata.GitCommits)
	decodeColumn(sess.ID, "tool_counts", tools, &sess.Metadata.ToolCounts)
	return &sess, nil
}

// decodeColumn unmarshals a JSON text column. A corrupt value leaves dst
// untouched and is logged rather than failing the read.
func decodeColumn(id, column, text string, dst any) {
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		internal.Logger().Debug("undecodable column", "row", id, "column", column, "err", err)
	}
}

// jsonText encodes v for a JSON text column, using empty when v is nil.
func jsonText(v any, empty string) string {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return empty
	}
	return string(data)
}
