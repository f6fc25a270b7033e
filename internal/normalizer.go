package internal

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Format tags a transcript payload shape
type Format string

const (
	FormatClaudeJSONL Format = "claude-jsonl"
	FormatCopilot     Format = "copilot"
)

// transcript is what a format parser hands back before the shared
// post-processing turns it into a Session.
type transcript struct {
	sessionID  string
	cwd        string
	model      string
	turns      []Turn
	timestamps []time.Time
	meta       Metadata
}

type parseFunc func(payload []byte) (*transcript, error)

var parsers = map[Format]parseFunc{
	FormatClaudeJSONL: parseClaudeJSONL,
	FormatCopilot:     parseCopilot,
}

// Formats lists the supported format tags in a stable order
func Formats() []Format {
	out := make([]Format, 0, len(parsers))
	for f := range parsers {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseFormat validates a format tag
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimSpace(s))
	if _, ok := parsers[f]; !ok {
		return "", &UnknownFormatError{Format: s}
	}
	return f, nil
}

// Normalizer converts raw transcript payloads to Sessions
type Normalizer struct {
	now func() time.Time
}

// NormalizerOption configures a Normalizer
type NormalizerOption func(*Normalizer)

// WithClock sets the time source used when a payload carries no timestamps.
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *Normalizer) {
		n.now = now
	}
}

// NewNormalizer creates a new Normalizer
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize parses payload as the given format and produces a Session.
// SessionID and ProjectPath are taken from the payload when present and
// may be empty; the caller decides how to fill them.
func (n *Normalizer) Normalize(payload []byte, format Format) (*Session, error) {
	parse, ok := parsers[format]
	if !ok {
		return nil, &UnknownFormatError{Format: string(format)}
	}

	tr, err := parse(payload)
	if err != nil {
		return nil, err
	}

	turns := make([]Turn, 0, len(tr.turns))
	userTurns := 0
	for _, t := range tr.turns {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		if t.Role == RoleUser {
			userTurns++
		}
		t.Ordinal = len(turns)
		turns = append(turns, t)
	}
	if userTurns == 0 {
		return nil, &EmptySessionError{SessionID: tr.sessionID}
	}

	started, ended := timeBounds(tr.timestamps)
	if started.IsZero() {
		now := n.now().UTC()
		started, ended = now, now
	}

	meta := tr.meta
	meta.UserTurns = userTurns

	LogDebug("normalized %s session %q: %d turns", format, tr.sessionID, len(turns))

	return &Session{
		ID:           tr.sessionID,
		ProjectPath:  tr.cwd,
		SourceFormat: format,
		StartedAt:    started,
		EndedAt:      ended,
		TurnCount:    len(turns),
		Title:        Title(turns),
		Body:         RenderBody(turns),
		Model:        tr.model,
		Metadata:     meta,
		Turns:        turns,
	}, nil
}

func timeBounds(ts []time.Time) (time.Time, time.Time) {
	var lo, hi time.Time
	for _, t := range ts {
		if lo.IsZero() || t.Before(lo) {
			lo = t
		}
		if hi.IsZero() || t.After(hi) {
			hi = t
		}
	}
	return lo.UTC(), hi.UTC()
}

// parseTimestamp accepts RFC 3339 with or without fractional seconds.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func newParseError(format Format, key string, err error) error {
	return &ParseError{Source: string(format), Key: key, Err: err}
}

var errNoRecords = fmt.Errorf("no valid records")
