package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/iksnae/claude-memory/internal/store"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where this project's memory lives and what it holds",
	Long: `Report the detected project root, the store location, and counts of
sessions, notes and search index entries.

This command is useful for checking that the session-end hook is storing
sessions where you expect.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, sectionStyle.Render("claude-memory status"))
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintf(out, "Project: %s\n", project.Root)
		_, _ = fmt.Fprintf(out, "Store:   %s\n", project.DBPath)

		if !project.StoreExists() {
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintln(out, warningStyle.Render("No memory store yet. Sessions appear here after the first ingest."))
			return nil
		}

		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		st, err := s.Stats(cmd.Context())
		if err != nil {
			return err
		}
		displayStats(out, st, time.Now())
		return nil
	},
}

func displayStats(out io.Writer, st store.Stats, now time.Time) {
	_, _ = fmt.Fprintf(out, "Size:    %s\n", humanize.Bytes(uint64(st.SizeBytes)))
	_, _ = fmt.Fprintln(out)

	_, _ = fmt.Fprintf(out, "Sessions: %s\n", countStyle.Render(humanize.Comma(int64(st.Sessions))))
	if st.Sessions > 0 {
		_, _ = fmt.Fprintf(out, "  newest  %s\n", dateStyle.Render(humanize.RelTime(st.NewestSession, now, "ago", "from now")))
		_, _ = fmt.Fprintf(out, "  oldest  %s\n", dateStyle.Render(humanize.RelTime(st.OldestSession, now, "ago", "from now")))
		_, _ = fmt.Fprintf(out, "  turns   %s\n", humanize.Comma(int64(st.TotalTurns)))
		_, _ = fmt.Fprintf(out, "  tokens  %s in / %s out\n", humanize.Comma(st.InputTokens), humanize.Comma(st.OutputTokens))
	}
	_, _ = fmt.Fprintf(out, "Notes:    %s\n", countStyle.Render(humanize.Comma(int64(st.Notes))))
	_, _ = fmt.Fprintln(out)

	if st.IndexConsistent() {
		_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Search index OK (%d entries)", st.IndexEntries)))
	} else {
		_, _ = fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("Search index has %d entries for %d rows; run `claude-memory reindex`",
			st.IndexEntries, st.Sessions+st.Notes)))
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
