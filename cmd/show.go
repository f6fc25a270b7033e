package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/iksnae/claude-memory/internal"
	"github.com/iksnae/claude-memory/internal/export"
	"github.com/spf13/cobra"
)

var (
	showRaw   bool
	showWidth int
)

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session",
	Long: `Render a stored session as markdown. Output is styled when stdout is a
terminal; use --raw for plain markdown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openExistingStore(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		session, err := newEngine(s).GetSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		var md strings.Builder
		if err := (&export.MarkdownExporter{}).Export(session, &md); err != nil {
			return err
		}

		out := md.String()
		if !showRaw && internal.IsTerminal() {
			out, err = renderMarkdown(out, showWidth)
			if err != nil {
				internal.LogDebug("markdown rendering failed, printing raw: %v", err)
				out = md.String()
			}
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

func renderMarkdown(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print plain markdown")
	showCmd.Flags().IntVar(&showWidth, "width", 100, "Wrap width for styled output")
}
