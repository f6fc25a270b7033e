package cmd

import (
	"fmt"

	"github.com/iksnae/claude-memory/internal"
	"github.com/spf13/cobra"
)

var reindexCheck bool

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the full-text search index",
	Long: `Rebuild the session and note search index from the stored rows.
With --check, only report disagreements between rows and index.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openExistingStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		if reindexCheck {
			problems, err := s.CheckIndex(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(problems) == 0 {
				_, _ = fmt.Fprintln(out, successStyle.Render("Search index is consistent"))
				return nil
			}
			for _, p := range problems {
				_, _ = fmt.Fprintln(out, warningStyle.Render("!")+" "+p.String())
			}
			return fmt.Errorf("search index has %d problem(s); run `claude-memory reindex` to rebuild", len(problems))
		}

		if err := internal.ShowProgress(ctx, "Rebuilding search index", func() error {
			return s.RebuildIndex(ctx)
		}); err != nil {
			return err
		}
		internal.PrintSuccess("Search index rebuilt")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
	reindexCmd.Flags().BoolVar(&reindexCheck, "check", false, "Only check the index")
}
