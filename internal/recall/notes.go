package recall

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/iksnae/claude-memory/internal"
)

func newNoteID() string {
	return uuid.NewString()
}

// LogNoteRequest is a note to append
type LogNoteRequest struct {
	Content   string   `json:"content"`
	Tags      []string `json:"tags,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
}

// LogNote stores a new note. The session link is not checked against
// stored sessions.
func (e *Engine) LogNote(ctx context.Context, req LogNoteRequest) (*internal.Note, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, internal.Validation("content", "must not be empty")
	}

	note := &internal.Note{
		ID:        e.newID(),
		SessionID: strings.TrimSpace(req.SessionID),
		Content:   req.Content,
		Tags:      NormalizeTags(req.Tags),
		CreatedAt: e.now().UTC(),
	}
	if err := e.store.CreateNote(ctx, note); err != nil {
		return nil, err
	}
	internal.Logger().Debug("note logged", "note_id", note.ID, "tags", len(note.Tags))
	return note, nil
}

// NormalizeTags trims each tag, drops empties and removes repeats, keeping
// the first occurrence. Case is preserved.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NoteQuery searches notes by text, by exact tag, or both
type NoteQuery struct {
	Query string `json:"query,omitempty"`
	Tag   string `json:"tag,omitempty"`
	Limit *int   `json:"limit,omitempty"`
}

// SearchNotes returns text matches ranked first, then tag matches newest
// first, without duplicates. With neither a query nor a tag it returns the
// most recent notes.
func (e *Engine) SearchNotes(ctx context.Context, req NoteQuery) ([]*internal.Note, error) {
	limit, err := e.notes.Clamp("limit", req.Limit)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Query)
	tag := strings.TrimSpace(req.Tag)

	if text == "" && tag == "" {
		notes, err := e.store.RecentNotes(ctx, limit)
		return orEmpty(notes), err
	}

	var merged []*internal.Note
	seen := make(map[string]struct{})
	add := func(notes []*internal.Note) {
		for _, n := range notes {
			if _, dup := seen[n.ID]; dup || len(merged) >= limit {
				continue
			}
			seen[n.ID] = struct{}{}
			merged = append(merged, n)
		}
	}

	if text != "" {
		q, err := CompileQuery(text)
		if err != nil {
			return nil, err
		}
		notes, err := e.store.SearchNotes(ctx, q.Match, limit)
		if err != nil {
			return nil, err
		}
		add(notes)
	}
	if tag != "" {
		notes, err := e.store.NotesByTag(ctx, tag, limit)
		if err != nil {
			return nil, err
		}
		add(notes)
	}
	return orEmpty(merged), nil
}

func orEmpty(notes []*internal.Note) []*internal.Note {
	if notes == nil {
		return []*internal.Note{}
	}
	return notes
}
