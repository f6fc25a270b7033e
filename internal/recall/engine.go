// Package recall answers search, listing and note requests against a
// project store.
package recall

import (
	"context"
	"strings"
	"time"

	"github.com/iksnae/claude-memory/internal"
	"github.com/iksnae/claude-memory/internal/store"
)

// Store is the subset of *store.Store the engine reads and writes
type Store interface {
	GetSession(ctx context.Context, id string) (*internal.Session, error)
	ListSessions(ctx context.Context, opts store.ListOptions) ([]*internal.Session, error)
	SearchSessions(ctx context.Context, match string, limit int) ([]store.SessionHit, error)
	CreateNote(ctx context.Context, note *internal.Note) error
	SearchNotes(ctx context.Context, match string, limit int) ([]*internal.Note, error)
	NotesByTag(ctx context.Context, tag string, limit int) ([]*internal.Note, error)
	RecentNotes(ctx context.Context, limit int) ([]*internal.Note, error)
}

// Engine serves recall and note requests. It holds no state besides the
// store handle and its limits.
type Engine struct {
	store  Store
	recall internal.LimitConfig
	list   internal.LimitConfig
	notes  internal.LimitConfig
	now    func() time.Time
	newID  func() string
}

// Option configures an Engine
type Option func(*Engine)

// WithClock sets the time source used to stamp notes
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the note id generator
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// NewEngine creates an Engine over s using the limits in cfg
func NewEngine(s Store, cfg internal.Config, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		recall: cfg.Recall,
		list:   cfg.List,
		notes:  cfg.Notes,
		now:    time.Now,
		newID:  newNoteID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SearchRequest is a recall query. A nil Limit means the default.
type SearchRequest struct {
	Query string `json:"query"`
	Limit *int   `json:"limit,omitempty"`
}

// SearchResult holds ranked hits. Fallback is set when the AND query
// matched nothing and the hits come from retrying with OR.
type SearchResult struct {
	Query    string             `json:"query"`
	Fallback bool               `json:"fallback"`
	Results  []store.SessionHit `json:"results"`
}

// Search runs a full-text recall query over session titles and bodies
func (e *Engine) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	q, err := CompileQuery(req.Query)
	if err != nil {
		return nil, err
	}
	limit, err := e.recall.Clamp("limit", req.Limit)
	if err != nil {
		return nil, err
	}

	hits, err := e.store.SearchSessions(ctx, q.Match, limit)
	if err != nil {
		return nil, err
	}
	res := &SearchResult{Query: req.Query, Results: hits}

	if len(hits) == 0 && q.CanFallback() {
		internal.LogDebug("no results for %s, retrying as %s", q.Match, q.AnyOf())
		hits, err = e.store.SearchSessions(ctx, q.AnyOf(), limit)
		if err != nil {
			return nil, err
		}
		res.Results = hits
		res.Fallback = len(hits) > 0
	}
	if res.Results == nil {
		res.Results = []store.SessionHit{}
	}
	return res, nil
}

// ListRequest selects recent sessions. Dates are YYYY-MM-DD (whole day,
// inclusive) or RFC 3339 timestamps (DateTo exclusive).
type ListRequest struct {
	Limit    *int   `json:"limit,omitempty"`
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
}

// ListSessions returns sessions most recent first
func (e *Engine) ListSessions(ctx context.Context, req ListRequest) ([]*internal.Session, error) {
	limit, err := e.list.Clamp("limit", req.Limit)
	if err != nil {
		return nil, err
	}
	from, _, err := parseDate("date_from", req.DateFrom)
	if err != nil {
		return nil, err
	}
	to, dayOnly, err := parseDate("date_to", req.DateTo)
	if err != nil {
		return nil, err
	}
	if dayOnly {
		to = to.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, internal.Validation("date_from", "must be before date_to")
	}

	sessions, err := e.store.ListSessions(ctx, store.ListOptions{Limit: limit, From: from, To: to})
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []*internal.Session{}
	}
	return sessions, nil
}

// GetSession returns one full session
func (e *Engine) GetSession(ctx context.Context, id string) (*internal.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, internal.Validation("session_id", "must not be empty")
	}
	return e.store.GetSession(ctx, id)
}

func parseDate(field, s string) (t time.Time, dayOnly bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), false, nil
	}
	return time.Time{}, false, internal.Validation(field, "%q is not a YYYY-MM-DD date or RFC 3339 timestamp", s)
}
