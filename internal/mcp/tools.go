package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/iksnae/claude-memory/internal"
	"github.com/iksnae/claude-memory/internal/recall"
)

// Recaller is the memory surface the tools are served from
type Recaller interface {
	Search(ctx context.Context, req recall.SearchRequest) (*recall.SearchResult, error)
	ListSessions(ctx context.Context, req recall.ListRequest) ([]*internal.Session, error)
	GetSession(ctx context.Context, id string) (*internal.Session, error)
	LogNote(ctx context.Context, req recall.LogNoteRequest) (*internal.Note, error)
	SearchNotes(ctx context.Context, req recall.NoteQuery) ([]*internal.Note, error)
}

// argDecoder unmarshals a tool's validated arguments into dst
type argDecoder func(dst any) error

type handlerFunc func(ctx context.Context, decode argDecoder) (text string, structured any, err error)

// Tool is one entry of the tools/list registry
type Tool struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`

	resolved *jsonschema.Resolved
	handle   handlerFunc
}

// arguments checks raw arguments against the tool's schema and returns
// them re-encoded, so integral numbers such as 2.0 come back as 2. Absent
// arguments are treated as an empty object.
func (t *Tool) arguments(raw json.RawMessage) (json.RawMessage, error) {
	var instance any = map[string]any{}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &instance); err != nil {
			return nil, &internal.SchemaViolationError{Tool: t.Name, Err: err}
		}
	}
	if err := t.resolved.Validate(instance); err != nil {
		return nil, &internal.SchemaViolationError{Tool: t.Name, Err: err}
	}
	args, err := json.Marshal(instance)
	if err != nil {
		return nil, &internal.SchemaViolationError{Tool: t.Name, Err: err}
	}
	return args, nil
}

// decoder unmarshals validated arguments. A value the schema accepts but
// Go cannot hold, like an integer beyond int64, is still a violation.
func (t *Tool) decoder(args json.RawMessage) argDecoder {
	return func(dst any) error {
		if err := json.Unmarshal(args, dst); err != nil {
			return &internal.SchemaViolationError{Tool: t.Name, Err: err}
		}
		return nil
	}
}

func closed(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}

func str(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func nonEmpty(desc string) *jsonschema.Schema {
	one := 1
	return &jsonschema.Schema{Type: "string", Description: desc, MinLength: &one}
}

func integer(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: desc}
}

func stringList(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Description: desc, Items: &jsonschema.Schema{Type: "string"}}
}

func newTools(r Recaller) ([]*Tool, error) {
	tools := []*Tool{
		{
			Name:        "recall",
			Description: "Full-text search over past sessions in this project. Terms are ANDed; use OR, \"phrases\" and prefix* as needed.",
			InputSchema: closed(map[string]*jsonschema.Schema{
				"query": nonEmpty("search terms"),
				"limit": integer("maximum number of sessions to return"),
			}, "query"),
			handle: recallHandler(r),
		},
		{
			Name:        "list_sessions",
			Description: "List recent sessions, newest first, optionally within a date range (YYYY-MM-DD or RFC 3339).",
			InputSchema: closed(map[string]*jsonschema.Schema{
				"limit":     integer("maximum number of sessions to return"),
				"date_from": str("inclusive lower bound on the session start"),
				"date_to":   str("upper bound on the session start; a bare date includes the whole day"),
			}),
			handle: listSessionsHandler(r),
		},
		{
			Name:        "get_session",
			Description: "Fetch one session with its full transcript.",
			InputSchema: closed(map[string]*jsonschema.Schema{
				"session_id": nonEmpty("session identifier"),
			}, "session_id"),
			handle: getSessionHandler(r),
		},
		{
			Name:        "log_note",
			Description: "Record a note for future sessions, optionally tagged and linked to a session.",
			InputSchema: closed(map[string]*jsonschema.Schema{
				"content":    nonEmpty("note text"),
				"tags":       stringList("free-form tags"),
				"session_id": str("session the note relates to"),
			}, "content"),
			handle: logNoteHandler(r),
		},
		{
			Name:        "search_notes",
			Description: "Search notes by text and/or exact tag. With neither, returns the most recent notes.",
			InputSchema: closed(map[string]*jsonschema.Schema{
				"query": str("full-text search terms"),
				"tag":   str("exact tag to match"),
				"limit": integer("maximum number of notes to return"),
			}),
			handle: searchNotesHandler(r),
		},
	}

	for _, t := range tools {
		resolved, err := t.InputSchema.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("resolve %s schema: %w", t.Name, err)
		}
		t.resolved = resolved
	}
	return tools, nil
}

func recallHandler(r Recaller) handlerFunc {
	return func(ctx context.Context, decode argDecoder) (string, any, error) {
		var req recall.SearchRequest
		if err := decode(&req); err != nil {
			return "", nil, err
		}
		res, err := r.Search(ctx, req)
		if err != nil {
			return "", nil, err
		}
		return formatHits(res), res, nil
	}
}

type listArgs struct {
	Limit    *int   `json:"limit"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

// sessionSummary is the list_sessions view of a session, without its body
type sessionSummary struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	TurnCount int       `json:"turn_count"`
	Model     string    `json:"model,omitempty"`
	GitBranch string    `json:"git_branch,omitempty"`
}

func summarize(s *internal.Session) sessionSummary {
	return sessionSummary{
		SessionID: s.ID,
		Title:     s.Title,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		TurnCount: s.TurnCount,
		Model:     s.Model,
		GitBranch: s.Metadata.GitBranch,
	}
}

func listSessionsHandler(r Recaller) handlerFunc {
	return func(ctx context.Context, decode argDecoder) (string, any, error) {
		var a listArgs
		if err := decode(&a); err != nil {
			return "", nil, err
		}
		sessions, err := r.ListSessions(ctx, recall.ListRequest{Limit: a.Limit, DateFrom: a.DateFrom, DateTo: a.DateTo})
		if err != nil {
			return "", nil, err
		}
		out := make([]sessionSummary, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, summarize(s))
		}
		return formatSessions(out), map[string]any{"sessions": out}, nil
	}
}

func getSessionHandler(r Recaller) handlerFunc {
	return func(ctx context.Context, decode argDecoder) (string, any, error) {
		var a struct {
			SessionID string `json:"session_id"`
		}
		if err := decode(&a); err != nil {
			return "", nil, err
		}
		s, err := r.GetSession(ctx, a.SessionID)
		if err != nil {
			return "", nil, err
		}
		text, err := formatSession(s)
		if err != nil {
			return "", nil, err
		}
		return text, s, nil
	}
}

func logNoteHandler(r Recaller) handlerFunc {
	return func(ctx context.Context, decode argDecoder) (string, any, error) {
		var req recall.LogNoteRequest
		if err := decode(&req); err != nil {
			return "", nil, err
		}
		note, err := r.LogNote(ctx, req)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Saved note %s.", note.ID), note, nil
	}
}

func searchNotesHandler(r Recaller) handlerFunc {
	return func(ctx context.Context, decode argDecoder) (string, any, error) {
		var q recall.NoteQuery
		if err := decode(&q); err != nil {
			return "", nil, err
		}
		notes, err := r.SearchNotes(ctx, q)
		if err != nil {
			return "", nil, err
		}
		return formatNotes(notes), map[string]any{"notes": notes}, nil
	}
}
