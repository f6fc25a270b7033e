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

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over past sessions",
	Long: `Search session titles and transcripts. Terms are ANDed; use OR between
terms for either, "quotes" for phrases and a trailing * for prefixes.
When no session matches every term the search is retried with OR.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openExistingStore(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		res, err := newEngine(s).Search(cmd.Context(), recall.SearchRequest{
			Query: strings.Join(args, " "),
			Limit: &searchLimit,
		})
		if err != nil {
			return err
		}

		displayHits(cmd.OutOrStdout(), res, time.Now())
		return nil
	},
}

func displayHits(out io.Writer, res *recall.SearchResult, now time.Time) {
	if len(res.Results) == 0 {
		_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("No sessions matched %q", res.Query)))
		return
	}

	_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Found %d session(s) for %q", len(res.Results), res.Query)))
	if res.Fallback {
		_, _ = fmt.Fprintln(out, warningStyle.Render("  no session matched every term; showing sessions matching any"))
	}
	_, _ = fmt.Fprintln(out)

	for i, hit := range res.Results {
		_, _ = fmt.Fprintf(out, "%2d. %s %s %s\n", i+1,
			titleStyle.Render(displayTitle(hit.Title, 70)),
			idStyle.Render(hit.SessionID),
			dateStyle.Render(formatWhen(hit.StartedAt, now)))
		if hit.Snippet != "" {
			_, _ = fmt.Fprintln(out, snippetStyle.Render(internal.CollapseWhitespace(hit.Snippet)))
		}
	}
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 5, "Maximum number of sessions")
}
