package export

import (
	"io"
	"strings"

	"github.com/iksnae/claude-memory/internal"
)

// Exporter writes one stored session in a particular format
type Exporter interface {
	Export(session *internal.Session, w io.Writer) error
	Extension() string
}

// Formats lists the accepted export format names
func Formats() []string {
	return []string{"json", "yaml", "jsonl", "md"}
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, internal.Validation("format", "unsupported %q (supported: %s)", format, strings.Join(Formats(), ", "))
	}
}

// pathUnsafe rewrites the parts of a session id that could leave the
// export directory.
var pathUnsafe = strings.NewReplacer("/", "_", "\\", "_", "..", "_", "\x00", "_")

// Filename returns the file name a session is exported to. It is always a
// single path element, whatever the session id contains.
func Filename(session *internal.Session, e Exporter) string {
	name := pathUnsafe.Replace(strings.TrimSpace(session.ID))
	if name == "" || name == "." {
		name = "session"
	}
	return name + "." + e.Extension()
}

// document is the serialized form used by the structured exporters. It
// carries the turns recovered from the body alongside the stored fields.
type document struct {
	internal.Session `yaml:",inline"`
	Turns            []internal.Turn `json:"turns" yaml:"turns"`
}

func newDocument(session *internal.Session) document {
	turns := session.Transcript()
	if turns == nil {
		turns = []internal.Turn{}
	}
	return document{Session: *session, Turns: turns}
}
