package testutil

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

// Transcript builds a line-delimited assistant transcript for tests
type Transcript struct {
	SessionID string
	Cwd       string
	Branch    string
	Model     string
	Start     time.Time

	lines [][]byte
	step  int
}

// NewTranscript starts a transcript whose records are one minute apart
func NewTranscript(sessionID, cwd string) *Transcript {
	return &Transcript{
		SessionID: sessionID,
		Cwd:       cwd,
		Branch:    "main",
		Model:     "claude-sonnet-4",
		Start:     time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC),
	}
}

func (tr *Transcript) record(typ string, message map[string]interface{}) *Transcript {
	rec := map[string]interface{}{
		"type":      typ,
		"sessionId": tr.SessionID,
		"cwd":       tr.Cwd,
		"gitBranch": tr.Branch,
		"timestamp": tr.Start.Add(time.Duration(tr.step) * time.Minute).Format(time.RFC3339),
		"message":   message,
	}
	tr.step++
	data, _ := json.Marshal(rec)
	tr.lines = append(tr.lines, data)
	return tr
}

// User appends a plain-text user prompt
func (tr *Transcript) User(text string) *Transcript {
	return tr.record("user", map[string]interface{}{"role": "user", "content": text})
}

// Assistant appends an assistant reply with token usage
func (tr *Transcript) Assistant(text string) *Transcript {
	return tr.record("assistant", map[string]interface{}{
		"role":  "assistant",
		"model": tr.Model,
		"content": []interface{}{
			map[string]interface{}{"type": "text", "text": text},
		},
		"usage": map[string]interface{}{"input_tokens": 100, "output_tokens": 50},
	})
}

// ToolUse appends an assistant record containing a single tool call
func (tr *Transcript) ToolUse(name string, input map[string]interface{}) *Transcript {
	return tr.record("assistant", map[string]interface{}{
		"role":  "assistant",
		"model": tr.Model,
		"content": []interface{}{
			map[string]interface{}{"type": "tool_use", "id": "toolu_1", "name": name, "input": input},
		},
	})
}

// ToolResult appends a user record that only carries a tool result
func (tr *Transcript) ToolResult(output string) *Transcript {
	return tr.record("user", map[string]interface{}{
		"role": "user",
		"content": []interface{}{
			map[string]interface{}{"type": "tool_result", "tool_use_id": "toolu_1", "content": output},
		},
	})
}

// Raw appends a line verbatim
func (tr *Transcript) Raw(line string) *Transcript {
	tr.lines = append(tr.lines, []byte(line))
	return tr
}

// Bytes renders the transcript as JSONL
func (tr *Transcript) Bytes() []byte {
	return append(bytes.Join(tr.lines, []byte{'\n'}), '\n')
}

// Write stores the transcript under dir and returns its path
func (tr *Transcript) Write(t *testing.T, dir string) string {
	t.Helper()
	return WriteFile(t, dir, tr.SessionID+".jsonl", tr.Bytes())
}

// CopilotPayload builds a tagged turn-array payload. turns alternates
// user, assistant, user, ...
func CopilotPayload(t *testing.T, sessionID, cwd string, capturedAt time.Time, turns ...string) []byte {
	t.Helper()
	items := make([]map[string]string, 0, len(turns))
	for i, c := range turns {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		items = append(items, map[string]string{"role": role, "content": c})
	}
	return JSONMarshal(t, map[string]interface{}{
		"format":      "copilot",
		"session_id":  sessionID,
		"cwd":         cwd,
		"captured_at": capturedAt.UTC().Format(time.RFC3339),
		"model":       "gpt-4o",
		"turns":       items,
	})
}

// HookEnvelope builds the default session-end hook payload
func HookEnvelope(t *testing.T, sessionID, transcriptPath, cwd string) []byte {
	t.Helper()
	return JSONMarshal(t, map[string]interface{}{
		"session_id":      sessionID,
		"transcript_path": transcriptPath,
		"cwd":             cwd,
		"hook_event_name": "SessionEnd",
	})
}
