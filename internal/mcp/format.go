package mcp

import (
	"fmt"
	"strings"

	"github.com/iksnae/claude-memory/internal"
	"github.com/iksnae/claude-memory/internal/export"
	"github.com/iksnae/claude-memory/internal/recall"
)

const dateLayout = "2006-01-02 15:04"

func formatHits(res *recall.SearchResult) string {
	if len(res.Results) == 0 {
		return fmt.Sprintf("No sessions matched %q.", res.Query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d session(s) for %q", len(res.Results), res.Query)
	if res.Fallback {
		b.WriteString(" (no session matched every term, showing sessions matching any term)")
	}
	b.WriteString(":\n")
	for i, hit := range res.Results {
		fmt.Fprintf(&b, "\n%d. **%s** `%s` %s\n", i+1, hit.Title, hit.SessionID, hit.StartedAt.UTC().Format(dateLayout))
		if hit.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", internal.CollapseWhitespace(hit.Snippet))
		}
	}
	return b.String()
}

func formatSessions(sessions []sessionSummary) string {
	if len(sessions) == 0 {
		return "No sessions recorded."
	}
	var b strings.Builder
	for _, s := range sessions {
		fmt.Fprintf(&b, "- `%s` %s %s (%d turns)\n", s.SessionID, s.StartedAt.UTC().Format(dateLayout), s.Title, s.TurnCount)
	}
	return b.String()
}

func formatSession(s *internal.Session) (string, error) {
	var b strings.Builder
	if err := (&export.MarkdownExporter{}).Export(s, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func formatNotes(notes []*internal.Note) string {
	if len(notes) == 0 {
		return "No notes found."
	}
	var b strings.Builder
	for _, n := range notes {
		b.WriteString("- ")
		if len(n.Tags) > 0 {
			fmt.Fprintf(&b, "[%s] ", strings.Join(n.Tags, ", "))
		}
		fmt.Fprintf(&b, "%s (`%s`, %s)\n", n.Content, n.ID, n.CreatedAt.UTC().Format(dateLayout))
	}
	return b.String()
}
