package internal

import (
	"encoding/json"
)

// copilotTranscript is the single-document shape written by the editor
// chat extension.
type copilotTranscript struct {
	Format     string        `json:"format"`
	SessionID  string        `json:"session_id"`
	Cwd        string        `json:"cwd"`
	CapturedAt string        `json:"captured_at"`
	Model      string        `json:"model"`
	Turns      []copilotTurn `json:"turns"`
}

type copilotTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func parseCopilot(payload []byte) (*transcript, error) {
	var doc copilotTranscript
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, newParseError(FormatCopilot, "", err)
	}

	tr := &transcript{
		sessionID: doc.SessionID,
		cwd:       doc.Cwd,
		model:     doc.Model,
	}
	// a single snapshot: captured_at is both start and end
	if ts, ok := parseTimestamp(doc.CapturedAt); ok {
		tr.timestamps = append(tr.timestamps, ts)
	}

	for _, t := range doc.Turns {
		role := Role(t.Role)
		if role != RoleUser && role != RoleAssistant {
			continue
		}
		tr.turns = append(tr.turns, Turn{Role: role, Content: t.Content})
	}
	return tr, nil
}
