package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/iksnae/claude-memory/internal"
	"github.com/iksnae/claude-memory/internal/recall"
	"github.com/iksnae/claude-memory/internal/store"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	projectDir string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// resolved once per invocation by PersistentPreRunE
var (
	cfg     internal.Config
	project internal.ProjectPaths
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "claude-memory",
	Short: "Per-project memory for AI coding assistant sessions",
	Long: `claude-memory keeps a searchable history of your assistant sessions
next to each project, in <project>/.claude/memory.db.

A session-end hook pipes each finished transcript into 'claude-memory ingest';
'claude-memory serve' exposes recall and notes to the assistant over MCP.

Quick Start:
  claude-memory ingest < hook.json        # Store a finished session
  claude-memory search "flaky test"       # Search past sessions
  claude-memory list                      # Recent sessions
  claude-memory show <session-id>         # Read one session
  claude-memory serve                     # Run the MCP server on stdio`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		root, err := internal.DetectProjectRoot(projectDir)
		if err != nil {
			return err
		}
		cfg, err = internal.LoadConfig(root)
		if err != nil {
			return err
		}
		internal.SetLogLevel(internal.ParseLogLevel(cfg.LogLevel))
		if verbose {
			internal.SetVerbose(true)
		}
		project, err = internal.ResolveProjectPaths(root, cfg.StateDir, cfg.DBName)
		if err != nil {
			return err
		}
		internal.LogDebug("project root %s, store %s", project.Root, project.DBPath)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		internal.PrintError(fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&projectDir, "project", "", "Directory to detect the project root from (default: current directory)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// openStore opens the project's store, creating it on first use
func openStore(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, project.DBPath, store.OptionsFromConfig(cfg.Storage))
}

// openExistingStore is openStore for read-only commands, which should not
// leave an empty store behind in a project that never ingested anything.
func openExistingStore(ctx context.Context) (*store.Store, error) {
	if !project.StoreExists() {
		return nil, &internal.NotFoundError{Kind: "memory store", ID: project.DBPath}
	}
	return openStore(ctx)
}

func newEngine(s *store.Store) *recall.Engine {
	return recall.NewEngine(s, cfg)
}

func intFlag(cmd *cobra.Command, name string, v int) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}
