package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/iksnae/claude-memory/internal"
)

// MarkdownExporter exports sessions in Markdown format
type MarkdownExporter struct{}

// Export exports a session to Markdown format
func (e *MarkdownExporter) Export(session *internal.Session, w io.Writer) error {
	title := session.Title
	if title == "" {
		title = "Session " + session.ID
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", escapeMarkdown(title))

	_, _ = fmt.Fprintf(w, "**Session:** %s  \n", session.ID)
	if session.ProjectPath != "" {
		_, _ = fmt.Fprintf(w, "**Project:** %s  \n", session.ProjectPath)
	}
	_, _ = fmt.Fprintf(w, "**Source:** %s  \n", session.SourceFormat)
	_, _ = fmt.Fprintf(w, "**Started:** %s  \n", session.StartedAt.UTC().Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "**Duration:** %s  \n", session.Duration().Round(time.Second))
	if session.Model != "" {
		_, _ = fmt.Fprintf(w, "**Model:** %s  \n", session.Model)
	}
	if session.Metadata.GitBranch != "" {
		_, _ = fmt.Fprintf(w, "**Branch:** %s  \n", session.Metadata.GitBranch)
	}
	if in, out := session.Metadata.InputTokens, session.Metadata.OutputTokens; in+out > 0 {
		_, _ = fmt.Fprintf(w, "**Tokens:** %s in / %s out  \n", humanize.Comma(in), humanize.Comma(out))
	}
	_, _ = fmt.Fprintf(w, "**Turns:** %d\n\n", session.TurnCount)

	writeList(w, "Files modified", session.Metadata.FilesModified)
	writeList(w, "Commits", session.Metadata.GitCommits)

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Transcript\n\n")

	turns := session.Transcript()
	for i, turn := range turns {
		_, _ = fmt.Fprintf(w, "**%s:**\n\n%s\n\n", turn.Role, escapeMarkdown(turn.Content))

		if i < len(turns)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

func writeList(w io.Writer, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "### %s\n\n", heading)
	for _, item := range items {
		_, _ = fmt.Fprintf(w, "- %s\n", item)
	}
	_, _ = fmt.Fprintln(w)
}

// escapeMarkdown escapes bold and underline markers outside fenced code
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "```"):
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		case inCodeBlock:
			result = append(result, line)
		default:
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
