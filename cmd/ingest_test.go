package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/claude-memory/testutil"
)

// ingestSession stores a two-turn session in root through the ingest command
func ingestSession(t *testing.T, root, id, prompt string) {
	t.Helper()
	path := testutil.NewTranscript(id, root).
		User(prompt).
		Assistant("done").
		Write(t, testutil.CreateTempDir(t))
	if _, err := runCmd(t, string(testutil.HookEnvelope(t, id, path, root)), "--project", root, "ingest"); err != nil {
		t.Fatalf("ingest %s error = %v", id, err)
	}
}

func TestIngestCommand(t *testing.T) {
	root := newProject(t)
	ingestSession(t, root, "s1", "fix bug in parser")

	if _, err := os.Stat(filepath.Join(root, ".claude", "memory.db")); err != nil {
		t.Fatalf("store not created: %v", err)
	}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "search", args: []string{"search", "bug"}, want: []string{"Found 1 session(s)", "fix bug in parser", "s1"}},
		{name: "search miss", args: []string{"search", "kubernetes"}, want: []string{`No sessions matched "kubernetes"`}},
		{name: "list", args: []string{"list", "-l", "5"}, want: []string{"Found 1 session(s)", "fix bug in parser"}},
		{name: "show raw", args: []string{"show", "s1", "--raw"}, want: []string{"# fix bug in parser", "## Transcript", "done"}},
		{name: "status", args: []string{"status"}, want: []string{"Sessions:", "Search index OK (1 entries)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCmd(t, "", append([]string{"--project", root}, tt.args...)...)
			if err != nil {
				t.Fatalf("%v error = %v", tt.args, err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("%v output should contain %q\nOutput:\n%s", tt.args, want, out)
				}
			}
		})
	}
}

func TestIngestCommand_FromFile(t *testing.T) {
	root := newProject(t)
	payload := testutil.CopilotPayload(t, "cp-1", root, time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC), "explain lifetimes", "ok")
	file := testutil.WriteFile(t, testutil.CreateTempDir(t), "payload.json", payload)

	if _, err := runCmd(t, "", "ingest", "--file", file); err != nil {
		t.Fatalf("ingest --file error = %v", err)
	}
	out, err := runCmd(t, "", "--project", root, "show", "cp-1", "--raw")
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	if !strings.Contains(out, "**Source:** copilot") {
		t.Errorf("show output = %q", out)
	}
}

func TestIngestCommand_Errors(t *testing.T) {
	root := newProject(t)
	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{name: "invalid json", stdin: "{not json"},
		{name: "empty stdin", stdin: ""},
		{name: "unknown format", stdin: `{"format":"gemini"}`},
		{name: "missing file", args: []string{"--file", filepath.Join(root, "missing.json")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--project", root, "ingest"}, tt.args...)
			if _, err := runCmd(t, tt.stdin, args...); err == nil {
				t.Error("ingest should fail")
			}
		})
	}
}
