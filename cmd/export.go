package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/claude-memory/internal"
	"github.com/iksnae/claude-memory/internal/export"
	"github.com/iksnae/claude-memory/internal/store"
	"github.com/spf13/cobra"
)

var (
	format      string
	outputDir   string
	sessionID   string
	exportBatch = 100
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions to files",
	Long: `Export stored sessions to json, yaml, jsonl or md, one file per session.

Export everything, or a single session with --session-id.
Use 'claude-memory list' to see available session IDs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		s, err := openExistingStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		var sessions []*internal.Session
		if sessionID != "" {
			sess, err := s.GetSession(ctx, sessionID)
			if err != nil {
				return err
			}
			sessions = append(sessions, sess)
		} else {
			for offset := 0; ; offset += exportBatch {
				page, err := s.ListSessions(ctx, store.ListOptions{Limit: exportBatch, Offset: offset})
				if err != nil {
					return err
				}
				sessions = append(sessions, page...)
				if len(page) < exportBatch {
					break
				}
			}
		}

		if len(sessions) == 0 {
			internal.PrintInfo("No sessions to export")
			return nil
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return &internal.ExportError{Format: format, Path: outputDir, Err: err}
		}

		err = internal.ShowProgress(ctx, fmt.Sprintf("Exporting %d session(s) to %s", len(sessions), outputDir), func() error {
			for _, sess := range sessions {
				if err := exportSession(exporter, sess, outputDir); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		internal.PrintSuccess(fmt.Sprintf("Export complete: %d session(s) exported to %s", len(sessions), outputDir))
		return nil
	},
}

func exportSession(exporter export.Exporter, sess *internal.Session, dir string) (err error) {
	path := filepath.Join(dir, export.Filename(sess, exporter))
	f, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &internal.ExportError{Format: exporter.Extension(), Path: path, Err: cerr}
		}
	}()

	if err := exporter.Export(sess, f); err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	internal.LogDebug("exported %s", path)
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "md", "Export format (json, yaml, jsonl, md)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVar(&sessionID, "session-id", "", "Export a specific session by ID")
}
