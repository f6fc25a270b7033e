package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/claude-memory/internal"
	"github.com/iksnae/claude-memory/internal/recall"
	"github.com/spf13/cobra"
)

var (
	noteTags    []string
	noteSession string

	notesQuery string
	notesTag   string
	notesLimit int
)

var noteCmd = &cobra.Command{
	Use:   "note <content>",
	Short: "Record a note in the project's memory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		note, err := newEngine(s).LogNote(cmd.Context(), recall.LogNoteRequest{
			Content:   strings.Join(args, " "),
			Tags:      noteTags,
			SessionID: noteSession,
		})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Saved note ")+idStyle.Render(note.ID))
		return nil
	},
}

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Search notes by text or tag",
	Long: `Search notes by full text (-q), by exact tag (-t), or both. With neither,
the most recent notes are shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openExistingStore(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		notes, err := newEngine(s).SearchNotes(cmd.Context(), recall.NoteQuery{
			Query: notesQuery,
			Tag:   notesTag,
			Limit: intFlag(cmd, "limit", notesLimit),
		})
		if err != nil {
			return err
		}
		displayNotes(cmd.OutOrStdout(), notes, time.Now())
		return nil
	},
}

func displayNotes(out io.Writer, notes []*internal.Note, now time.Time) {
	if len(notes) == 0 {
		_, _ = fmt.Fprintln(out, headerStyle.Render("No notes found"))
		return
	}
	for _, n := range notes {
		line := dateStyle.Render(formatWhen(n.CreatedAt, now)) + "  "
		for _, tag := range n.Tags {
			line += tagStyle.Render("#"+tag) + " "
		}
		_, _ = fmt.Fprintln(out, line+n.Content)
		if n.SessionID != "" {
			_, _ = fmt.Fprintln(out, idStyle.Render("    session "+n.SessionID))
		}
	}
}

func init() {
	rootCmd.AddCommand(noteCmd)
	noteCmd.Flags().StringSliceVarP(&noteTags, "tag", "t", nil, "Tag the note (repeatable or comma-separated)")
	noteCmd.Flags().StringVar(&noteSession, "session", "", "Link the note to a session ID")

	rootCmd.AddCommand(notesCmd)
	notesCmd.Flags().StringVarP(&notesQuery, "query", "q", "", "Full-text query")
	notesCmd.Flags().StringVarP(&notesTag, "tag", "t", "", "Exact tag")
	notesCmd.Flags().IntVarP(&notesLimit, "limit", "l", 10, "Maximum number of notes")
}
