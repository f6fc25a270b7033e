package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/claude-memory/internal"
)

// JSONLExporter exports sessions in JSONL format (one turn per line)
type JSONLExporter struct{}

type jsonlTurn struct {
	SessionID string        `json:"session_id"`
	Ordinal   int           `json:"ordinal"`
	Role      internal.Role `json:"role"`
	Content   string        `json:"content"`
}

// Export exports a session to JSONL format
func (e *JSONLExporter) Export(session *internal.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for _, turn := range session.Transcript() {
		line := jsonlTurn{
			SessionID: session.ID,
			Ordinal:   turn.Ordinal,
			Role:      turn.Role,
			Content:   turn.Content,
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode turn %d: %w", turn.Ordinal, err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
