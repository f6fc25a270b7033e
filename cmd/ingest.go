package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/iksnae/claude-memory/internal"
	"github.com/iksnae/claude-memory/internal/ingest"
	"github.com/spf13/cobra"
)

var ingestFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Store a finished session from a hook payload",
	Long: `Read a session-end hook payload from stdin (or --file) and store the
session in the memory of the project it ran in.

The payload is either the hook envelope
  {"session_id": "...", "transcript_path": "...", "cwd": "..."}
or a tagged transcript such as {"format": "copilot", ...}.

Re-ingesting the same session replaces it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			payload []byte
			err     error
		)
		if ingestFile != "" {
			payload, err = os.ReadFile(ingestFile)
		} else {
			payload, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("failed to read payload: %w", err)
		}

		res, err := ingest.New().Ingest(cmd.Context(), payload)
		if err != nil {
			return err
		}

		verb := "Updated"
		if res.Created {
			verb = "Stored"
		}
		internal.LogInfo("%s session %s (%d turns) in %s", verb, res.SessionID, res.TurnCount, res.StorePath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "Read the payload from a file instead of stdin")
}
