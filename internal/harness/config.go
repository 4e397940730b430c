package harness

import "time"

// ProcsPlaceholder is replaced by the process group size in LauncherArgs.
const ProcsPlaceholder = "{procs}"

// Config holds configuration options for the orchestrator.
type Config struct {
	// Launcher starts the process group. Empty runs Binary directly.
	Launcher string
	// LauncherArgs precede Binary on the launcher command line.
	LauncherArgs []string
	// Binary is the system under test.
	Binary string

	// Dir is the working directory of the SUT.
	Dir string
	// LogsDir is where the SUT persists replica state, relative to Dir.
	LogsDir string

	// ExitCommand terminates the SUT.
	ExitCommand string

	// Timeout bounds a whole scenario run. Zero waits for the SUT forever.
	Timeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Launcher:     "mpirun",
		LauncherArgs: []string{"--oversubscribe", "-np", ProcsPlaceholder},
		Binary:       "./build/algorep",
		Dir:          ".",
		LogsDir:      "logs",
		ExitCommand:  "EXIT",
	}
}

// Merge returns the defaults overridden by every non-zero field of config.
func Merge(config *Config) *Config {
	merged := DefaultConfig()
	if config == nil {
		return merged
	}

	if config.Launcher != "" {
		merged.Launcher = config.Launcher
	}

	if config.LauncherArgs != nil {
		merged.LauncherArgs = config.LauncherArgs
	}

	if config.Binary != "" {
		merged.Binary = config.Binary
	}

	if config.Dir != "" {
		merged.Dir = config.Dir
	}

	if config.LogsDir != "" {
		merged.LogsDir = config.LogsDir
	}

	if config.ExitCommand != "" {
		merged.ExitCommand = config.ExitCommand
	}

	if config.Timeout != 0 {
		merged.Timeout = config.Timeout
	}

	return merged
}
