package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/st3v3nmw/raftcheck/internal/harness"
	"github.com/st3v3nmw/raftcheck/internal/oracle"
	"github.com/st3v3nmw/raftcheck/internal/registry"
	"github.com/st3v3nmw/raftcheck/internal/replog"
)

// DefaultPath is read when no --config is given.
const DefaultPath = "raftcheck.yaml"

// NoLauncher as sut.launcher starts the binary without a process launcher.
const NoLauncher = "none"

// SUT describes how to launch the system under test. Empty fields keep the harness defaults.
type SUT struct {
	Launcher     string   `yaml:"launcher,omitempty"`
	LauncherArgs []string `yaml:"launcher_args,omitempty"`
	Binary       string   `yaml:"binary,omitempty"`
	Dir          string   `yaml:"dir,omitempty"`
	LogsDir      string   `yaml:"logs_dir,omitempty"`
	ExitCommand  string   `yaml:"exit_command,omitempty"`
	// Timeout bounds one scenario, e.g. "90s". Empty waits forever.
	Timeout string `yaml:"timeout,omitempty"`
}

type Config struct {
	SUT            SUT            `yaml:"sut"`
	Schema         replog.Schema  `yaml:"schema"`
	LogFilePattern string         `yaml:"log_file_pattern"`
	Entries        int            `yaml:"entries"`
	Scenarios      string         `yaml:"scenarios"`
	ErrorDir       string         `yaml:"error_dir"`
	History        string         `yaml:"history,omitempty"`
	Generate       registry.Sweep `yaml:"generate"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	oc := oracle.DefaultConfig()

	return &Config{
		Schema:         oc.Schema,
		LogFilePattern: oc.LogFilePattern,
		Entries:        oc.Entries,
		Scenarios:      "scenarios",
		ErrorDir:       "error_logs",
		Generate:       registry.DefaultSweep(),
	}
}

// Load reads path over the defaults. An empty path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}

		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(bytes, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validation
	if _, err := cfg.Harness(); err != nil {
		return nil, err
	}

	if strings.Count(cfg.LogFilePattern, "%d") != 1 {
		return nil, fmt.Errorf("log_file_pattern must contain exactly one %%d, got %q", cfg.LogFilePattern)
	}

	if cfg.Entries < 1 {
		return nil, fmt.Errorf("entries must be positive, got %d", cfg.Entries)
	}

	return cfg, nil
}

// SaveTo writes cfg as YAML.
func SaveTo(cfg *Config, path string) error {
	bytes, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, bytes, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Harness returns the orchestrator configuration.
func (c *Config) Harness() (*harness.Config, error) {
	var timeout time.Duration
	if c.SUT.Timeout != "" {
		d, err := time.ParseDuration(c.SUT.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid sut.timeout %q: %w", c.SUT.Timeout, err)
		}

		if d < 0 {
			return nil, fmt.Errorf("sut.timeout cannot be negative: %s", d)
		}

		timeout = d
	}

	merged := harness.Merge(&harness.Config{
		Launcher:     c.SUT.Launcher,
		LauncherArgs: c.SUT.LauncherArgs,
		Binary:       c.SUT.Binary,
		Dir:          c.SUT.Dir,
		LogsDir:      c.SUT.LogsDir,
		ExitCommand:  c.SUT.ExitCommand,
		Timeout:      timeout,
	})

	if c.SUT.Launcher == NoLauncher {
		merged.Launcher = ""
		merged.LauncherArgs = nil
	}

	return merged, nil
}

// Oracle returns the log check configuration.
func (c *Config) Oracle() *oracle.Config {
	return &oracle.Config{
		Schema:         c.Schema,
		LogFilePattern: c.LogFilePattern,
		Entries:        c.Entries,
	}
}
