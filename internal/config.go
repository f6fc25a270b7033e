package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// CLAUDE_MEMORY_STORAGE_MAX_ELAPSED=2s.
const EnvPrefix = "CLAUDE_MEMORY"

// Config holds all runtime settings
type Config struct {
	StateDir string        `mapstructure:"state_dir"`
	DBName   string        `mapstructure:"db_name"`
	LogLevel string        `mapstructure:"log_level"`
	Storage  StorageConfig `mapstructure:"storage"`
	Recall   LimitConfig   `mapstructure:"recall"`
	List     LimitConfig   `mapstructure:"list"`
	Notes    LimitConfig   `mapstructure:"notes"`
}

// StorageConfig controls how long writers wait on a busy store
type StorageConfig struct {
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxElapsed      time.Duration `mapstructure:"max_elapsed"`
}

// LimitConfig is the default and ceiling for a result count
type LimitConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// Clamp applies the default when requested is nil and caps at the ceiling.
// An explicit value below one is rejected.
func (l LimitConfig) Clamp(field string, requested *int) (int, error) {
	if requested == nil {
		return l.DefaultLimit, nil
	}
	n := *requested
	if n < 1 {
		return 0, Validation(field, "must be a positive integer, got %d", n)
	}
	if l.MaxLimit > 0 && n > l.MaxLimit {
		return l.MaxLimit, nil
	}
	return n, nil
}

// Validate checks that the config is usable
func (c Config) Validate() error {
	if strings.TrimSpace(c.DBName) == "" {
		return fmt.Errorf("db_name is required")
	}
	if c.Storage.MaxElapsed <= 0 {
		return fmt.Errorf("storage.max_elapsed must be greater than zero")
	}
	for name, l := range map[string]LimitConfig{"recall": c.Recall, "list": c.List, "notes": c.Notes} {
		if l.DefaultLimit < 1 || l.MaxLimit < l.DefaultLimit {
			return fmt.Errorf("%s limits must satisfy 1 <= default_limit <= max_limit", name)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("state_dir", DefaultStateDir)
	v.SetDefault("db_name", DefaultDBName)
	v.SetDefault("log_level", "info")

	v.SetDefault("storage.busy_timeout", 100*time.Millisecond)
	v.SetDefault("storage.initial_interval", 25*time.Millisecond)
	v.SetDefault("storage.max_interval", 500*time.Millisecond)
	v.SetDefault("storage.max_elapsed", 5*time.Second)

	v.SetDefault("recall.default_limit", 5)
	v.SetDefault("recall.max_limit", 20)
	v.SetDefault("list.default_limit", 10)
	v.SetDefault("list.max_limit", 50)
	v.SetDefault("notes.default_limit", 10)
	v.SetDefault("notes.max_limit", 50)
}

// DefaultConfig returns the built-in settings with no file or env applied
func DefaultConfig() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

// LoadConfig merges defaults, <projectRoot>/.claude/memory.yaml when it
// exists, and CLAUDE_MEMORY_* environment variables, in that order.
func LoadConfig(projectRoot string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if projectRoot != "" {
		path := filepath.Join(projectRoot, DefaultStateDir, ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
			}
			LogDebug("loaded config from %s", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
