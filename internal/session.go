package internal

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Role identifies who produced a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a normalized session. Turns are rendered into the
// session body and are not stored individually.
type Turn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
	Ordinal int    `json:"ordinal" yaml:"ordinal"`
}

// Session represents a normalized assistant conversation
type Session struct {
	ID           string    `json:"session_id" yaml:"session_id"`
	ProjectPath  string    `json:"project_path" yaml:"project_path"`
	SourceFormat Format    `json:"source_format" yaml:"source_format"`
	StartedAt    time.Time `json:"started_at" yaml:"started_at"`
	EndedAt      time.Time `json:"ended_at" yaml:"ended_at"`
	TurnCount    int       `json:"turn_count" yaml:"turn_count"`
	Title        string    `json:"title" yaml:"title"`
	Body         string    `json:"body" yaml:"body"`
	Model        string    `json:"model,omitempty" yaml:"model,omitempty"`
	Metadata     Metadata  `json:"metadata" yaml:"metadata"`
	IngestedAt   time.Time `json:"ingested_at,omitempty" yaml:"ingested_at,omitempty"`

	// Turns is only populated on the normalization path.
	Turns []Turn `json:"-" yaml:"-"`
}

// Metadata holds descriptive session details harvested from tool calls.
// None of it is indexed.
type Metadata struct {
	GitBranch     string         `json:"git_branch,omitempty" yaml:"git_branch,omitempty"`
	FilesModified []string       `json:"files_modified,omitempty" yaml:"files_modified,omitempty"`
	FilesRead     []string       `json:"files_read,omitempty" yaml:"files_read,omitempty"`
	CommandsRun   []string       `json:"commands_run,omitempty" yaml:"commands_run,omitempty"`
	GitCommits    []string       `json:"git_commits,omitempty" yaml:"git_commits,omitempty"`
	ToolCounts    map[string]int `json:"tool_counts,omitempty" yaml:"tool_counts,omitempty"`
	InputTokens   int64          `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens  int64          `json:"output_tokens" yaml:"output_tokens"`
	UserTurns     int            `json:"user_turns" yaml:"user_turns"`
}

// Duration returns ended minus started.
func (s *Session) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// Note is a free-form annotation, optionally linked to a session
type Note struct {
	ID        string    `json:"note_id" yaml:"note_id"`
	SessionID string    `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Content   string    `json:"content" yaml:"content"`
	Tags      []string  `json:"tags" yaml:"tags"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

const (
	TitleMaxRunes = 80
	ellipsis      = "…"
)

// CollapseWhitespace replaces every run of whitespace with a single space
// and trims both ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// Truncate cuts s to at most max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:max-1]), unicode.IsSpace) + ellipsis
}

// Title derives a session title from its first non-empty user turn.
func Title(turns []Turn) string {
	for _, t := range turns {
		if t.Role != RoleUser {
			continue
		}
		if c := CollapseWhitespace(t.Content); c != "" {
			return Truncate(c, TitleMaxRunes)
		}
	}
	return ""
}

// Transcript returns the session's turns, recovering them from the stored
// body when the session was loaded from the store.
func (s *Session) Transcript() []Turn {
	if len(s.Turns) > 0 {
		return s.Turns
	}
	return SplitBody(s.Body)
}

// SplitBody reverses RenderBody. A block boundary is a blank line followed
// by a role marker, so content that itself contains "\n\n[user] " splits
// early.
func SplitBody(body string) []Turn {
	var turns []Turn
	rest := body
	for rest != "" {
		role, content, ok := cutRole(rest)
		if !ok {
			if len(turns) == 0 {
				return nil
			}
			break
		}
		next := len(content)
		for _, r := range []Role{RoleUser, RoleAssistant} {
			if i := strings.Index(content, "\n\n["+string(r)+"] "); i >= 0 && i < next {
				next = i
			}
		}
		turns = append(turns, Turn{Role: role, Content: content[:next], Ordinal: len(turns)})
		if next == len(content) {
			break
		}
		rest = content[next+2:]
	}
	return turns
}

func cutRole(s string) (Role, string, bool) {
	for _, r := range []Role{RoleUser, RoleAssistant} {
		if after, ok := strings.CutPrefix(s, "["+string(r)+"] "); ok {
			return r, after, true
		}
	}
	return "", "", false
}

// RenderBody joins turns as "[role] content" blocks in ordinal order.
func RenderBody(turns []Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[")
		b.WriteString(string(t.Role))
		b.WriteString("] ")
		b.WriteString(t.Content)
	}
	return b.String()
}
