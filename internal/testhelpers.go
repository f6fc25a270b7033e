package internal

import (
	"time"
)

// CreateTestSession creates a normalized session with a two-turn body
func CreateTestSession(id string) *Session {
	return CreateTestSessionWithTurns(id, time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC), []Turn{
		{Role: RoleUser, Content: "Hello, how are you?"},
		{Role: RoleAssistant, Content: "I'm doing well, thank you!"},
	})
}

// CreateTestSessionWithTurns creates a session from custom turns starting at started
func CreateTestSessionWithTurns(id string, started time.Time, turns []Turn) *Session {
	users := 0
	for i := range turns {
		turns[i].Ordinal = i
		if turns[i].Role == RoleUser {
			users++
		}
	}
	return &Session{
		ID:           id,
		ProjectPath:  "/tmp/test-project",
		SourceFormat: FormatClaudeJSONL,
		StartedAt:    started.UTC(),
		EndedAt:      started.UTC().Add(time.Duration(len(turns)) * time.Minute),
		TurnCount:    len(turns),
		Title:        Title(turns),
		Body:         RenderBody(turns),
		Model:        "claude-sonnet-4",
		Metadata: Metadata{
			GitBranch: "main",
			UserTurns: users,
		},
		Turns: turns,
	}
}
