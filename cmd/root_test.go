package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/claude-memory/internal"
	"github.com/iksnae/claude-memory/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags puts every flag back to its default so executions do not
// leak state into each other through the shared command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command with args and returns what it wrote to
// its output stream.
func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	err := rootCmd.Execute()
	return stdout.String(), err
}

// newProject creates an isolated project root for a command test
func newProject(t *testing.T) string {
	t.Helper()
	t.Setenv(internal.ProjectEnvVar, "")
	return testutil.CreateProjectDir(t)
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "version flag", args: []string{"--version"}, want: "dev (commit: unknown"},
		{name: "help flag", args: []string{"--help"}, want: "claude-memory"},
		{name: "unknown command", args: []string{"nonexistent-command"}, wantErr: true},
		{name: "search needs a query", args: []string{"search"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCmd(t, "", tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("rootCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want != "" && !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want it to contain %q", out, tt.want)
			}
		})
	}
}

func TestRootCommand_ProjectFlag(t *testing.T) {
	root := newProject(t)
	file := testutil.WriteFile(t, root, "pkg/file.go", []byte("package pkg"))

	out, err := runCmd(t, "", "--project", filepath.Dir(file), "status")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if project.Root != root {
		t.Errorf("project root = %q, want %q", project.Root, root)
	}
	if !strings.Contains(out, "No memory store yet") {
		t.Errorf("status output = %q", out)
	}
}

func TestRootCommand_ConfigLogLevel(t *testing.T) {
	root := newProject(t)
	testutil.WriteFile(t, root, ".claude/memory.yaml", []byte("log_level: debug\ndb_name: other.db\n"))

	if _, err := runCmd(t, "", "--project", root, "status"); err != nil {
		t.Fatalf("status error = %v", err)
	}
	if project.DBPath != filepath.Join(root, ".claude", "other.db") {
		t.Errorf("DBPath = %q, want the configured db name", project.DBPath)
	}
	internal.SetLogLevel(internal.LogLevelInfo)
}

func TestReadCommandsRequireStore(t *testing.T) {
	root := newProject(t)
	for _, args := range [][]string{
		{"list"},
		{"search", "anything"},
		{"show", "s1"},
		{"notes"},
		{"reindex", "--check"},
		{"export", "-o", filepath.Join(root, "out")},
	} {
		_, err := runCmd(t, "", append([]string{"--project", root}, args...)...)
		if !internal.IsNotFound(err) {
			t.Errorf("%v error = %v, want not found", args, err)
		}
	}
	if (internal.ProjectPaths{DBPath: filepath.Join(root, ".claude", "memory.db")}).StoreExists() {
		t.Error("read commands should not create a store")
	}
}
