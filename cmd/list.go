package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/claude-memory/internal"
	"github.com/iksnae/claude-memory/internal/recall"
	"github.com/spf13/cobra"
)

var (
	listLimit int
	listFrom  string
	listTo    string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	Long: `List the project's sessions, most recent first.

--from and --to accept YYYY-MM-DD or RFC 3339; a bare --to date includes
that whole day.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openExistingStore(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		sessions, err := newEngine(s).ListSessions(cmd.Context(), recall.ListRequest{
			Limit:    intFlag(cmd, "limit", listLimit),
			DateFrom: listFrom,
			DateTo:   listTo,
		})
		if err != nil {
			return err
		}

		displaySessions(cmd.OutOrStdout(), sessions, time.Now())
		return nil
	},
}

func displaySessions(out io.Writer, sessions []*internal.Session, now time.Time) {
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(out, headerStyle.Render("No sessions found"))
		return
	}

	_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Found %d session(s)", len(sessions))))
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Turns")+"\t"+titleStyle.Render("Started")+"\t"+titleStyle.Render("Branch")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, sess := range sessions {
		branch := dateStyle.Render("—")
		if sess.Metadata.GitBranch != "" {
			branch = branchStyle.Render(internal.Truncate(sess.Metadata.GitBranch, 25))
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(shortID(sess.ID)),
			displayTitle(sess.Title, 50),
			countStyle.Render(fmt.Sprint(sess.TurnCount)),
			dateStyle.Render(formatWhen(sess.StartedAt, now)),
			branch,
		)
	}

	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, idStyle.Render("Tip: use the full ID (e.g., ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(sessions[0].ID)+
		idStyle.Render(") with `claude-memory show <id>`"))
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 10, "Maximum number of sessions")
	listCmd.Flags().StringVar(&listFrom, "from", "", "Only sessions started on or after this date")
	listCmd.Flags().StringVar(&listTo, "to", "", "Only sessions started before the end of this date")
}
