package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/claude-memory/internal"
)

// JSONExporter exports sessions in JSON format (pretty-printed)
type JSONExporter struct{}

// Export writes the session and its turns as one indented document
func (e *JSONExporter) Export(session *internal.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(newDocument(session))
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
