// Package ingest turns a session-end hook payload into a stored session.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iksnae/claude-memory/internal"
	"github.com/iksnae/claude-memory/internal/store"
)

// Envelope is the payload written to stdin by the session-end hook. When
// Format is set the whole payload is a tagged transcript of that format;
// otherwise the transcript is read from TranscriptPath.
type Envelope struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`
	HookEventName  string `json:"hook_event_name,omitempty"`
	Format         string `json:"format,omitempty"`
}

// Result describes a completed ingestion
type Result struct {
	SessionID   string
	TurnCount   int
	Created     bool
	ProjectRoot string
	StorePath   string
}

// Ingester runs the decode, normalize and store pipeline
type Ingester struct {
	normalizer *internal.Normalizer
	config     *internal.Config
	newID      func() string
}

// Option configures an Ingester
type Option func(*Ingester)

// WithNormalizer replaces the default normalizer, e.g. to pin its clock
func WithNormalizer(n *internal.Normalizer) Option {
	return func(i *Ingester) { i.normalizer = n }
}

// WithConfig uses cfg instead of loading the project's config
func WithConfig(cfg internal.Config) Option {
	return func(i *Ingester) { i.config = &cfg }
}

// WithClock pins the time used for payloads without timestamps
func WithClock(now func() time.Time) Option {
	return func(i *Ingester) { i.normalizer = internal.NewNormalizer(internal.WithClock(now)) }
}

// New creates an Ingester
func New(opts ...Option) *Ingester {
	i := &Ingester{
		normalizer: internal.NewNormalizer(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ingest stores the session described by payload and reports what it did
func (i *Ingester) Ingest(ctx context.Context, payload []byte) (*Result, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, &internal.ParseError{Source: "envelope", Err: err}
	}

	session, err := i.normalize(payload, env)
	if err != nil {
		return nil, err
	}

	// the envelope's id wins over the transcript's
	switch {
	case strings.TrimSpace(env.SessionID) != "":
		session.ID = strings.TrimSpace(env.SessionID)
	case session.ID == "":
		session.ID = i.newID()
	}

	root, err := projectRoot(env.Cwd, session.ProjectPath)
	if err != nil {
		return nil, err
	}
	cfg, err := i.configFor(root)
	if err != nil {
		return nil, err
	}
	paths, err := internal.ResolveProjectPaths(root, cfg.StateDir, cfg.DBName)
	if err != nil {
		return nil, err
	}
	session.ProjectPath = paths.Root

	s, err := store.Open(ctx, paths.DBPath, store.OptionsFromConfig(cfg.Storage))
	if err != nil {
		return nil, err
	}
	defer s.Close()

	created, err := s.UpsertSession(ctx, session)
	if err != nil {
		return nil, err
	}

	internal.Logger().Info("session ingested",
		"session_id", session.ID, "turns", session.TurnCount, "created", created, "store", paths.DBPath)

	return &Result{
		SessionID:   session.ID,
		TurnCount:   session.TurnCount,
		Created:     created,
		ProjectRoot: paths.Root,
		StorePath:   paths.DBPath,
	}, nil
}

func (i *Ingester) normalize(payload []byte, env Envelope) (*internal.Session, error) {
	if env.Format != "" {
		format, err := internal.ParseFormat(env.Format)
		if err != nil {
			return nil, err
		}
		return i.normalizer.Normalize(payload, format)
	}

	if strings.TrimSpace(env.TranscriptPath) == "" {
		return nil, &internal.ParseError{Source: "envelope", Key: "transcript_path", Err: fmt.Errorf("missing")}
	}
	data, err := os.ReadFile(env.TranscriptPath)
	if err != nil {
		return nil, &internal.ParseError{Source: "envelope", Key: env.TranscriptPath, Err: err}
	}
	return i.normalizer.Normalize(data, internal.FormatClaudeJSONL)
}

// projectRoot picks the store a session belongs to. A directory reported by
// the hook or the transcript decides it; the environment override only
// applies when neither names one.
func projectRoot(cwd, transcriptCwd string) (string, error) {
	for _, dir := range []string{cwd, transcriptCwd} {
		if strings.TrimSpace(dir) != "" {
			return internal.FindProjectRoot(dir)
		}
	}
	return internal.DetectProjectRoot("")
}

func (i *Ingester) configFor(root string) (internal.Config, error) {
	if i.config != nil {
		return *i.config, nil
	}
	return internal.LoadConfig(root)
}
