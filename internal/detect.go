package internal

import (
	"fmt"
	"os"
	"path/filepath"
)

// ProjectEnvVar overrides project root detection when set.
const ProjectEnvVar = "CLAUDE_MEMORY_PROJECT"

const (
	DefaultStateDir = ".claude"
	DefaultDBName   = "memory.db"
	ConfigFileName  = "memory.yaml"
)

// ProjectPaths holds the detected locations for one project's memory
type ProjectPaths struct {
	Root     string // project root directory
	StateDir string // <root>/.claude
	DBPath   string // <root>/.claude/memory.db
}

// DetectProjectRoot finds the project root for dir. The
// CLAUDE_MEMORY_PROJECT environment variable takes precedence; otherwise
// it is FindProjectRoot(dir), with an empty dir meaning the working
// directory.
func DetectProjectRoot(dir string) (string, error) {
	if env := os.Getenv(ProjectEnvVar); env != "" {
		return filepath.Abs(env)
	}
	return FindProjectRoot(dir)
}

// FindProjectRoot walks up from dir looking for a .git entry. When none is
// found dir itself is the root. The environment is not consulted.
func FindProjectRoot(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	for cur := abs; ; {
		if _, err := os.Stat(filepath.Join(cur, ".git")); err == nil {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	return abs, nil
}

// ResolveProjectPaths lays out the state directory of an already detected
// project root. Empty stateDir or dbName fall back to the defaults.
func ResolveProjectPaths(root, stateDir, dbName string) (ProjectPaths, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	if stateDir == "" {
		stateDir = DefaultStateDir
	}
	if dbName == "" {
		dbName = DefaultDBName
	}
	state := stateDir
	if !filepath.IsAbs(state) {
		state = filepath.Join(root, stateDir)
	}
	return ProjectPaths{
		Root:     root,
		StateDir: state,
		DBPath:   filepath.Join(state, dbName),
	}, nil
}

// StoreExists reports whether the project already has a memory store
func (p ProjectPaths) StoreExists() bool {
	info, err := os.Stat(p.DBPath)
	return err == nil && !info.IsDir()
}

// ConfigPath returns the per-project config file location
func (p ProjectPaths) ConfigPath() string {
	return filepath.Join(p.StateDir, ConfigFileName)
}
