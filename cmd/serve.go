package cmd

import (
	"github.com/iksnae/claude-memory/internal"
	"github.com/iksnae/claude-memory/internal/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recall and notes over MCP on stdio",
	Long: `Run the MCP server for the current project. Requests are read as
line-delimited JSON-RPC from stdin and answered on stdout; logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		srv, err := mcp.NewServer(newEngine(s), mcp.WithVersion(version))
		if err != nil {
			return err
		}

		internal.Logger().Info("serving", "project", project.Root, "store", project.DBPath)
		return srv.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
