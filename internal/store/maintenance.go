package store

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/iksnae/claude-memory/internal"
)

// Stats summarises a store for the status command
type Stats struct {
	Path          string
	SizeBytes     int64
	Sessions      int
	Notes         int
	IndexEntries  int
	OldestSession time.Time
	NewestSession time.Time
	TotalTurns    int
	InputTokens   int64
	OutputTokens  int64
}

// IndexConsistent reports whether every base row has exactly one index entry
func (st Stats) IndexConsistent() bool {
	return st.IndexEntries == st.Sessions+st.Notes
}

// Stats gathers row counts and totals
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Path: s.path}
	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}

	err := s.readSnapshot(ctx, "stats", func(q querier) error {
		var oldest, newest string
		row := q.QueryRowContext(ctx, `
			SELECT count(*), COALESCE(min(started_at), ''), COALESCE(max(started_at), ''),
			       COALESCE(sum(turn_count), 0), COALESCE(sum(input_tokens), 0), COALESCE(sum(output_tokens), 0)
			FROM sessions`)
		if err := row.Scan(&st.Sessions, &oldest, &newest, &st.TotalTurns, &st.InputTokens, &st.OutputTokens); err != nil {
			return err
		}
		if oldest != "" {
			st.OldestSession = parseTime(oldest)
			st.NewestSession = parseTime(newest)
		}
		if err := q.QueryRowContext(ctx, `SELECT count(*) FROM notes`).Scan(&st.Notes); err != nil {
			return err
		}
		var sfts, nfts int
		if err := q.QueryRowContext(ctx, `SELECT count(*) FROM sessions_fts`).Scan(&sfts); err != nil {
			return err
		}
		if err := q.QueryRowContext(ctx, `SELECT count(*) FROM notes_fts`).Scan(&nfts); err != nil {
			return err
		}
		st.IndexEntries = sfts + nfts
		return nil
	})
	return st, err
}

// IndexProblem describes one disagreement between base rows and the index
type IndexProblem struct {
	Table string // "sessions" or "notes"
	ID    string
	Issue string // "missing", "orphaned", "stale"
}

func (p IndexProblem) String() string {
	return fmt.Sprintf("%s %s: %s index entry", p.Table, p.ID, p.Issue)
}

// indexedTags renders a note's JSON tag array the way it is indexed
const indexedTags = `(SELECT COALESCE(group_concat(value, ' '), '') FROM json_each(n.tags))`

// CheckIndex compares every base row against its index entry
func (s *Store) CheckIndex(ctx context.Context) ([]IndexProblem, error) {
	checks := []struct {
		table string
		query string
	}{
		{"sessions", `
			SELECT s.session_id, CASE
				WHEN f.rowid IS NULL THEN 'missing'
				WHEN f.session_id != s.session_id OR f.title != s.title OR f.body != s.body THEN 'stale'
			END
			FROM sessions s LEFT JOIN sessions_fts f ON f.rowid = s.id
			WHERE f.rowid IS NULL OR f.session_id != s.session_id OR f.title != s.title OR f.body != s.body
			UNION ALL
			SELECT f.session_id, 'orphaned' FROM sessions_fts f
			WHERE NOT EXISTS (SELECT 1 FROM sessions s WHERE s.id = f.rowid)`},
		{"notes", `
			SELECT n.note_id, CASE
				WHEN f.rowid IS NULL THEN 'missing'
				WHEN f.note_id != n.note_id OR f.content != n.content OR f.tags != ` + indexedTags + ` THEN 'stale'
			END
			FROM notes n LEFT JOIN notes_fts f ON f.rowid = n.id
			WHERE f.rowid IS NULL OR f.note_id != n.note_id OR f.content != n.content OR f.tags != ` + indexedTags + `
			UNION ALL
			SELECT f.note_id, 'orphaned' FROM notes_fts f
			WHERE NOT EXISTS (SELECT 1 FROM notes n WHERE n.id = f.rowid)`},
	}

	var problems []IndexProblem
	err := s.readSnapshot(ctx, "check index", func(q querier) error {
		problems = problems[:0]
		for _, c := range checks {
			rows, err := q.QueryContext(ctx, c.query)
			if err != nil {
				return fmt.Errorf("check %s index: %w", c.table, err)
			}
			for rows.Next() {
				p := IndexProblem{Table: c.table}
				if err := rows.Scan(&p.ID, &p.Issue); err != nil {
					rows.Close()
					return err
				}
				problems = append(problems, p)
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return err
			}
			if err := rows.Close(); err != nil {
				return err
			}
		}
		return nil
	})
	return problems, err
}

// RebuildIndex discards and regenerates every index entry from the base
// rows in one transaction.
func (s *Store) RebuildIndex(ctx context.Context) error {
	err := s.write(ctx, "rebuild index", func(q querier) error {
		stmts := []string{
			`DELETE FROM sessions_fts`,
			`INSERT INTO sessions_fts (rowid, session_id, title, body)
				SELECT id, session_id, title, body FROM sessions`,
			`DELETE FROM notes_fts`,
		}
		for _, stmt := range stmts {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("rebuild index: %w", err)
			}
		}

		// tags are stored as a JSON array but indexed space-separated
		rows, err := q.QueryContext(ctx, `SELECT id, note_id, content, tags FROM notes`)
		if err != nil {
			return err
		}
		type noteRow struct {
			rowid                int64
			id, content, tagJSON string
		}
		var pending []noteRow
		for rows.Next() {
			var r noteRow
			if err := rows.Scan(&r.rowid, &r.id, &r.content, &r.tagJSON); err != nil {
				rows.Close()
				return err
			}
			pending = append(pending, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		if err := rows.Close(); err != nil {
			return err
		}
		for _, r := range pending {
			var tags []string
			decodeColumn(r.id, "tags", r.tagJSON, &tags)
			if _, err := q.ExecContext(ctx,
				`INSERT INTO notes_fts (rowid, note_id, content, tags) VALUES (?, ?, ?, ?)`,
				r.rowid, r.id, r.content, strings.Join(tags, " ")); err != nil {
				return fmt.Errorf("rebuild note index: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	internal.Logger().Info("search index rebuilt", "path", s.path)
	return nil
}
