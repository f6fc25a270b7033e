package internal

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/claude-memory/testutil"
)

var fixedClock = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"claude-jsonl", FormatClaudeJSONL, false},
		{"copilot", FormatCopilot, false},
		{" copilot ", FormatCopilot, false},
		{"gemini", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeUnknownFormat(t *testing.T) {
	n := NewNormalizer()
	_, err := n.Normalize([]byte(`{}`), Format("gemini"))
	var ufe *UnknownFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("Normalize() error = %v, want UnknownFormatError", err)
	}
}

func TestNormalizeClaudeJSONL(t *testing.T) {
	payload := testutil.NewTranscript("s1", "/work/app").
		User("fix  bug\n").
		ToolUse("Read", map[string]interface{}{"file_path": "/work/app/main.go"}).
		ToolResult("package main").
		ToolUse("Edit", map[string]interface{}{"file_path": "/work/app/main.go"}).
		ToolUse("Bash", map[string]interface{}{"command": `git commit -m "fix nil deref"`}).
		Assistant("Fixed the nil dereference.").
		Raw(`{"type":"user","message":{"content":"<command-name>/clear</command-name>"}}`).
		Raw(`not json at all`).
		Bytes()

	session, err := NewNormalizer(WithClock(fixedClock)).Normalize(payload, FormatClaudeJSONL)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if session.ID != "s1" {
		t.Errorf("ID = %q, want s1", session.ID)
	}
	if session.ProjectPath != "/work/app" {
		t.Errorf("ProjectPath = %q, want /work/app", session.ProjectPath)
	}
	if session.Title != "fix bug" {
		t.Errorf("Title = %q, want %q", session.Title, "fix bug")
	}
	if session.TurnCount != 2 {
		t.Errorf("TurnCount = %d, want 2", session.TurnCount)
	}
	wantBody := "[user] fix  bug\n\n\n[assistant] Fixed the nil dereference."
	if session.Body != wantBody {
		t.Errorf("Body = %q, want %q", session.Body, wantBody)
	}
	if session.Model != "claude-sonnet-4" {
		t.Errorf("Model = %q", session.Model)
	}
	if !session.EndedAt.After(session.StartedAt) {
		t.Errorf("EndedAt %v should be after StartedAt %v", session.EndedAt, session.StartedAt)
	}
	if session.StartedAt.Equal(fixedClock()) {
		t.Error("StartedAt should come from record timestamps, not the clock")
	}

	meta := session.Metadata
	if meta.GitBranch != "main" {
		t.Errorf("GitBranch = %q", meta.GitBranch)
	}
	if len(meta.FilesModified) != 1 || meta.FilesModified[0] != "/work/app/main.go" {
		t.Errorf("FilesModified = %v", meta.FilesModified)
	}
	if len(meta.FilesRead) != 1 {
		t.Errorf("FilesRead = %v", meta.FilesRead)
	}
	if len(meta.GitCommits) != 1 || meta.GitCommits[0] != "fix nil deref" {
		t.Errorf("GitCommits = %v", meta.GitCommits)
	}
	if meta.ToolCounts["Read"] != 1 || meta.ToolCounts["Edit"] != 1 || meta.ToolCounts["Bash"] != 1 {
		t.Errorf("ToolCounts = %v", meta.ToolCounts)
	}
	if meta.InputTokens != 100 || meta.OutputTokens != 50 {
		t.Errorf("tokens = %d/%d, want 100/50", meta.InputTokens, meta.OutputTokens)
	}
	if meta.UserTurns != 1 {
		t.Errorf("UserTurns = %d, want 1", meta.UserTurns)
	}
}

func TestNormalizeClaudeJSONLErrors(t *testing.T) {
	n := NewNormalizer(WithClock(fixedClock))

	tests := []struct {
		name    string
		payload []byte
		check   func(error) bool
	}{
		{
			name:    "empty payload",
			payload: nil,
			check:   func(err error) bool { var pe *ParseError; return errors.As(err, &pe) },
		},
		{
			name:    "only garbage lines",
			payload: []byte("{{{\nnope\n"),
			check:   func(err error) bool { var pe *ParseError; return errors.As(err, &pe) },
		},
		{
			name: "assistant only",
			payload: testutil.NewTranscript("s2", "/w").
				Assistant("unprompted").Bytes(),
			check: func(err error) bool { var ee *EmptySessionError; return errors.As(err, &ee) },
		},
		{
			name: "tool results are not prompts",
			payload: testutil.NewTranscript("s3", "/w").
				ToolResult("output").Assistant("ok").Bytes(),
			check: func(err error) bool { var ee *EmptySessionError; return errors.As(err, &ee) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.payload, FormatClaudeJSONL)
			if err == nil || !tt.check(err) {
				t.Errorf("Normalize() error = %v", err)
			}
		})
	}
}

func TestNormalizeCopilot(t *testing.T) {
	captured := time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)
	payload := testutil.CopilotPayload(t, "abc-123", "/home/dev/project", captured,
		"How do I fix the lifetime error?",
		"You need to annotate the lifetime...",
		"   ",
		"The borrow checker ensures...",
	)

	session, err := NewNormalizer(WithClock(fixedClock)).Normalize(payload, FormatCopilot)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if session.TurnCount != 3 {
		t.Errorf("TurnCount = %d, want 3 (blank turn dropped)", session.TurnCount)
	}
	if !session.StartedAt.Equal(captured) || !session.EndedAt.Equal(captured) {
		t.Errorf("timestamps = %v..%v, want %v", session.StartedAt, session.EndedAt, captured)
	}
	if session.Model != "gpt-4o" {
		t.Errorf("Model = %q", session.Model)
	}
	if session.SourceFormat != FormatCopilot {
		t.Errorf("SourceFormat = %q", session.SourceFormat)
	}
	for i, turn := range session.Turns {
		if turn.Ordinal != i {
			t.Errorf("Turns[%d].Ordinal = %d", i, turn.Ordinal)
		}
	}
}

func TestNormalizeCopilotErrors(t *testing.T) {
	n := NewNormalizer(WithClock(fixedClock))

	if _, err := n.Normalize([]byte(`{"turns": [`), FormatCopilot); err == nil {
		t.Error("Normalize() should fail on truncated JSON")
	} else {
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("Normalize() error = %T, want *ParseError", err)
		}
	}

	_, err := n.Normalize([]byte(`{"session_id":"x","turns":[]}`), FormatCopilot)
	var ee *EmptySessionError
	if !errors.As(err, &ee) {
		t.Errorf("Normalize() error = %v, want EmptySessionError", err)
	}
}

func TestNormalizeUsesClockWithoutTimestamps(t *testing.T) {
	payload := []byte(`{"format":"copilot","turns":[{"role":"user","content":"hi"}]}`)
	session, err := NewNormalizer(WithClock(fixedClock)).Normalize(payload, FormatCopilot)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !session.StartedAt.Equal(fixedClock()) || !session.EndedAt.Equal(fixedClock()) {
		t.Errorf("timestamps = %v..%v, want clock time", session.StartedAt, session.EndedAt)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	payload := testutil.NewTranscript("det", "/w").
		User("refactor the parser").
		Assistant("done").
		User("now add tests").
		Bytes()

	n := NewNormalizer(WithClock(fixedClock))
	a, err := n.Normalize(payload, FormatClaudeJSONL)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	b, _ := n.Normalize(payload, FormatClaudeJSONL)
	if a.Title != b.Title || a.Body != b.Body || a.TurnCount != b.TurnCount {
		t.Error("Normalize() is not deterministic for identical input")
	}
}

func TestTitle(t *testing.T) {
	long := strings.Repeat("word ", 40)
	tests := []struct {
		name  string
		turns []Turn
		want  string
	}{
		{"collapses whitespace", []Turn{{Role: RoleUser, Content: "  fix\t\tbug \n"}}, "fix bug"},
		{"skips assistant", []Turn{{Role: RoleAssistant, Content: "hi"}, {Role: RoleUser, Content: "q"}}, "q"},
		{"skips blank user", []Turn{{Role: RoleUser, Content: "   "}, {Role: RoleUser, Content: "second"}}, "second"},
		{"no user", []Turn{{Role: RoleAssistant, Content: "hi"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title(tt.turns); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}

	got := Title([]Turn{{Role: RoleUser, Content: long}})
	if n := len([]rune(got)); n > TitleMaxRunes {
		t.Errorf("Title() length = %d runes, want <= %d", n, TitleMaxRunes)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("Title() = %q, want ellipsis suffix", got)
	}
}

func TestCommitMessage(t *testing.T) {
	tests := []struct {
		cmd    string
		want   string
		wantOK bool
	}{
		{`git commit -m "add feature"`, "add feature", true},
		{`git commit -a -m 'quick fix'`, "quick fix", true},
		{`git commit -m "unterminated`, "", false},
		{`git commit`, "", false},
	}
	for _, tt := range tests {
		got, ok := commitMessage(tt.cmd)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("commitMessage(%q) = %q, %v, want %q, %v", tt.cmd, got, ok, tt.want, tt.wantOK)
		}
	}
}
