package config_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	. "github.com/st3v3nmw/raftcheck/internal/config"
	"github.com/st3v3nmw/raftcheck/internal/registry"
	"github.com/st3v3nmw/raftcheck/internal/replog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "raftcheck.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Scenarios != "scenarios" || cfg.ErrorDir != "error_logs" || cfg.History != "" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}

	if cfg.Generate != registry.DefaultSweep() {
		t.Errorf("Generate = %+v, want defaults", cfg.Generate)
	}

	hc, err := cfg.Harness()
	if err != nil {
		t.Fatalf("Harness failed: %v", err)
	}

	if hc.Launcher != "mpirun" || hc.Binary != "./build/algorep" || hc.Timeout != 0 {
		t.Errorf("unexpected harness config: %+v", hc)
	}

	oc := cfg.Oracle()
	if oc.LogFilePattern != "server_%d.data" || oc.Entries != 10 || oc.Schema != replog.DefaultSchema() {
		t.Errorf("unexpected oracle config: %+v", oc)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
sut:
  launcher: none
  binary: ./sut
  timeout: 90s
schema:
  entry_command: 7
log_file_pattern: node-%d.bin
error_dir: failures
history: .raftcheck.db
generate:
  leader_max_servers: 4
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	hc, err := cfg.Harness()
	if err != nil {
		t.Fatalf("Harness failed: %v", err)
	}

	if hc.Launcher != "" || hc.LauncherArgs != nil {
		t.Errorf("launcher none should start the binary directly: %+v", hc)
	}

	if hc.Binary != "./sut" || hc.Timeout != 90*time.Second || hc.ExitCommand != "EXIT" {
		t.Errorf("unexpected harness config: %+v", hc)
	}

	if cfg.Schema.EntryCommand != 7 || cfg.Schema.EntryTerm != 2 {
		t.Errorf("schema should merge over defaults: %+v", cfg.Schema)
	}

	if cfg.Generate.LeaderMaxServers != 4 || cfg.Generate.CrashMaxServers != 15 {
		t.Errorf("generate should merge over defaults: %+v", cfg.Generate)
	}

	if cfg.ErrorDir != "failures" || cfg.History != ".raftcheck.db" || cfg.Scenarios != "scenarios" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Bad Timeout", "sut:\n  timeout: soon\n"},
		{"Negative Timeout", "sut:\n  timeout: -1s\n"},
		{"Pattern Without Id", "log_file_pattern: server.data\n"},
		{"Zero Entries", "entries: 0\n"},
		{"Not YAML", "sut: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected an error")
			}
		})
	}

	t.Run("Explicit Path Missing", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("expected an error for a missing explicit config")
		}
	})
}

func TestSaveTo(t *testing.T) {
	cfg := Default()
	cfg.SUT.LauncherArgs = []string{"-np", "{procs}"}
	cfg.History = "history.db"

	path := filepath.Join(t.TempDir(), "raftcheck.yaml")
	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !slices.Equal(loaded.SUT.LauncherArgs, cfg.SUT.LauncherArgs) || loaded.History != "history.db" {
		t.Errorf("loaded %+v, want %+v", loaded, cfg)
	}
}
