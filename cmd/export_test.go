package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/iksnae/claude-memory/internal"
	"github.com/iksnae/claude-memory/internal/export"
	"github.com/iksnae/claude-memory/testutil"
)

func TestExportCommand(t *testing.T) {
	root := newProject(t)
	ingestSession(t, root, "s1", "first session")
	ingestSession(t, root, "s2", "second session")

	tests := []struct {
		name      string
		args      []string
		wantFiles []string
		wantErr   bool
	}{
		{name: "all sessions as markdown", args: []string{"-f", "md"}, wantFiles: []string{"s1.md", "s2.md"}},
		{name: "all sessions as jsonl", args: []string{"--format", "jsonl"}, wantFiles: []string{"s1.jsonl", "s2.jsonl"}},
		{name: "single session as yaml", args: []string{"-f", "yaml", "--session-id", "s2"}, wantFiles: []string{"s2.yaml"}},
		{name: "invalid format", args: []string{"--format", "invalid"}, wantErr: true},
		{name: "unknown session", args: []string{"--session-id", "nope"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "exports")
			args := append([]string{"--project", root, "export", "-o", dir}, tt.args...)
			_, err := runCmd(t, "", args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("export error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatalf("ReadDir() error = %v", err)
			}
			if len(entries) != len(tt.wantFiles) {
				t.Errorf("exported %d files, want %d", len(entries), len(tt.wantFiles))
			}
			for _, name := range tt.wantFiles {
				data, err := os.ReadFile(filepath.Join(dir, name))
				if err != nil {
					t.Errorf("missing export %s: %v", name, err)
					continue
				}
				if len(data) == 0 {
					t.Errorf("export %s is empty", name)
				}
			}
		})
	}
}

func TestExportCommand_Paginates(t *testing.T) {
	root := newProject(t)
	for _, id := range []string{"a", "b", "c"} {
		ingestSession(t, root, id, "session "+id)
	}

	old := exportBatch
	exportBatch = 2
	t.Cleanup(func() { exportBatch = old })

	dir := t.TempDir()
	if _, err := runCmd(t, "", "--project", root, "export", "-f", "json", "-o", dir); err != nil {
		t.Fatalf("export error = %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 3 {
		t.Errorf("exported %d files across pages, want 3", len(entries))
	}
}

func TestExportSession_BadDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing", "dir")
	err := exportSession(&export.JSONExporter{}, internal.CreateTestSession("s1"), dir)

	var exportErr *internal.ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("exportSession() error = %v, want *ExportError", err)
	}
	if exportErr.Path != filepath.Join(dir, "s1.json") {
		t.Errorf("ExportError.Path = %q", exportErr.Path)
	}
}

func TestExportCommand_UnsafeSessionIDs(t *testing.T) {
	root := newProject(t)
	for i, id := range []string{"../../escaped", "team/a"} {
		path := testutil.NewTranscript(fmt.Sprintf("t%d", i), root).
			User("session " + id).
			Assistant("done").
			Write(t, testutil.CreateTempDir(t))
		if _, err := runCmd(t, string(testutil.HookEnvelope(t, id, path, root)), "--project", root, "ingest"); err != nil {
			t.Fatalf("ingest %s error = %v", id, err)
		}
	}

	base := t.TempDir()
	dir := filepath.Join(base, "a", "b")
	if _, err := runCmd(t, "", "--project", root, "export", "-f", "json", "-o", dir); err != nil {
		t.Fatalf("export error = %v", err)
	}

	for _, name := range []string{"____escaped.json", "team_a.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing export %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(base, "escaped.json")); err == nil {
		t.Error("export escaped the output directory")
	}
}
