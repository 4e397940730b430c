package oracle_test

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/st3v3nmw/raftcheck/internal/harness"
	. "github.com/st3v3nmw/raftcheck/internal/oracle"
	"github.com/st3v3nmw/raftcheck/internal/replog"
	"github.com/st3v3nmw/raftcheck/internal/scenario"
)

func TestRoles(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		n     int
		want  []Role
	}{
		{
			name: "Last Announcement Wins",
			lines: []string{
				"Server 1 becomes candidate",
				"Server 2 becomes follower",
				"Server 1 becomes leader",
				"Server 3 becomes follower",
			},
			n:    3,
			want: []Role{Leader, Follower, Follower},
		},
		{
			name:  "Never Observed",
			lines: []string{"Server 2 becomes leader"},
			n:     3,
			want:  []Role{Unobserved, Leader, Unobserved},
		},
		{
			name:  "Whole Words Only",
			lines: []string{"Server 1 leadership", "Server 2 followers", "Server 3 is leader."},
			n:     3,
			want:  []Role{Unobserved, Unobserved, Unobserved},
		},
		{
			name:  "Later Keyword Wins On One Line",
			lines: []string{"Server 1 leader lost, now follower"},
			n:     1,
			want:  []Role{Follower},
		},
		{
			name:  "First Number Is The Ordinal",
			lines: []string{"term 4 : Server 2 becomes leader"},
			n:     5,
			want:  []Role{Unobserved, Unobserved, Unobserved, Leader, Unobserved},
		},
		{
			name:  "Out Of Range And Missing Ordinals Skipped",
			lines: []string{"Server 0 becomes leader", "Server 9 becomes leader", "someone becomes leader"},
			n:     2,
			want:  []Role{Unobserved, Unobserved},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Roles(tt.lines, tt.n); !slices.Equal(got, tt.want) {
				t.Errorf("Roles() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckElection(t *testing.T) {
	tests := []struct {
		name   string
		lines  []string
		n      int
		ignore []int
		passed bool
		reason string
	}{
		{
			name:   "Single Leader",
			lines:  []string{"Server 1 becomes leader", "Server 2 becomes follower", "Server 3 becomes follower"},
			n:      3,
			passed: true,
		},
		{
			name:   "Two Leaders",
			lines:  []string{"Server 1 becomes leader", "Server 2 becomes leader", "Server 3 becomes follower"},
			n:      3,
			reason: "leaders: expected 1, got 2",
		},
		{
			name:   "No Leader",
			lines:  []string{"Server 1 becomes follower", "Server 2 becomes follower"},
			n:      2,
			reason: "leaders: expected 1, got 0",
		},
		{
			name:   "Silent Server Fails",
			lines:  []string{"Server 1 becomes leader", "Server 2 becomes follower"},
			n:      3,
			reason: "server 3 role: expected one of [leader follower], got unobserved",
		},
		{
			name:   "Stuck Candidate",
			lines:  []string{"Server 1 becomes leader", "Server 2 becomes candidate"},
			n:      2,
			reason: "server 2 role: expected one of [leader follower], got candidate",
		},
		{
			name: "Crashed Leader Ignored",
			lines: []string{
				"Server 1 becomes leader",
				"Server 2 becomes follower",
				"Server 3 becomes follower",
				"Server 2 becomes leader",
			},
			n:      3,
			ignore: []int{1},
			passed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := CheckElection(tt.lines, tt.n, tt.ignore...)

			if v.Passed != tt.passed {
				t.Fatalf("Passed = %v, want %v (reason %q)", v.Passed, tt.passed, v.Reason)
			}

			if v.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", v.Reason, tt.reason)
			}
		})
	}
}

func entries(commands ...string) []replog.Entry {
	var out []replog.Entry
	for i, c := range commands {
		out = append(out, replog.Entry{Index: uint64(i), Term: 1, Command: c})
	}

	return out
}

func tenCommands() []string {
	var out []string
	for i := 1; i <= 10; i++ {
		out = append(out, fmt.Sprintf("command_%d", i))
	}

	return out
}

func writeLogs(t *testing.T, dir string, logs map[string][]replog.Entry) {
	t.Helper()

	for name, e := range logs {
		data := replog.Encode(&replog.State{CurrentTerm: 1, Entries: e}, replog.DefaultSchema())
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func newOracle() *Oracle {
	logger := logrus.New()
	logger.Out = io.Discard
	return New(DefaultConfig(), logrus.NewEntry(logger))
}

func TestCheckLogs(t *testing.T) {
	full := entries(tenCommands()...)
	short := entries(tenCommands()[:9]...)

	swapped := entries(tenCommands()...)
	swapped[3], swapped[4] = swapped[4], swapped[3]

	tests := []struct {
		name   string
		logs   map[string][]replog.Entry
		n      int
		ignore []string
		passed bool
		reason string
	}{
		{
			name:   "Identical Logs",
			logs:   map[string][]replog.Entry{"server_1.data": full, "server_2.data": full, "server_3.data": full},
			n:      3,
			passed: true,
		},
		{
			name:   "Missing File",
			logs:   map[string][]replog.Entry{"server_1.data": full, "server_2.data": full},
			n:      3,
			reason: "persisted logs: expected 3, got 2",
		},
		{
			name:   "No Files",
			n:      3,
			reason: "persisted logs: expected not 0, got 0",
		},
		{
			name:   "Short First Log",
			logs:   map[string][]replog.Entry{"server_1.data": short, "server_2.data": short},
			n:      2,
			reason: "server_1.data entries: expected 10, got 9",
		},
		{
			name:   "Diverging Order",
			logs:   map[string][]replog.Entry{"server_1.data": full, "server_2.data": swapped},
			n:      2,
			reason: "server_2.data diverges",
		},
		{
			name: "Crashed Server Ignored",
			logs: map[string][]replog.Entry{
				"server_1.data": short,
				"server_2.data": full,
				"server_3.data": full,
			},
			n:      3,
			ignore: []string{"server_1.data"},
			passed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeLogs(t, dir, tt.logs)

			v := newOracle().CheckLogs(harness.NewWorkspace(dir), tt.n, tt.ignore...)

			if v.Passed != tt.passed {
				t.Fatalf("Passed = %v, want %v (reason %q)", v.Passed, tt.passed, v.Reason)
			}

			if !strings.HasPrefix(v.Reason, tt.reason) {
				t.Errorf("Reason = %q, want prefix %q", v.Reason, tt.reason)
			}
		})
	}
}

func TestCheckLogsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	writeLogs(t, dir, map[string][]replog.Entry{"server_1.data": entries(tenCommands()...)})
	if err := os.WriteFile(filepath.Join(dir, "server_2.data"), []byte{0x1a, 0x05, 0x0a}, 0644); err != nil {
		t.Fatal(err)
	}

	v := newOracle().CheckLogs(harness.NewWorkspace(dir), 2)
	if v.Passed {
		t.Error("a truncated state file must fail the check")
	}
}

func TestEvaluate(t *testing.T) {
	dir := t.TempDir()
	full := entries(tenCommands()...)
	writeLogs(t, dir, map[string][]replog.Entry{
		"server_1.data": entries("command_1"),
		"server_2.data": full,
		"server_3.data": full,
	})
	ws := harness.NewWorkspace(dir)

	electedTwo := &harness.Capture{Stdout: "Server 1 becomes leader\nServer 2 becomes leader\nServer 3 becomes follower\n"}

	crash := []scenario.Command{scenario.NewCommand(2, "CRASH 1")}

	tests := []struct {
		name     string
		scenario *scenario.Scenario
		passed   bool
	}{
		{
			name:     "Leader Test Sees Two Leaders",
			scenario: &scenario.Scenario{NbServers: 3, TestType: scenario.LeaderTest},
		},
		{
			name:     "Crash Leader Test Ignores Crashed Server",
			scenario: &scenario.Scenario{NbServers: 3, CommandList: crash, TestType: scenario.CrashLeaderTest},
			passed:   true,
		},
		{
			name:     "Log Test Sees Stale File",
			scenario: &scenario.Scenario{NbServers: 3, TestType: scenario.LogTest},
		},
		{
			name:     "Crash Log Test Ignores Crashed File",
			scenario: &scenario.Scenario{NbServers: 3, CommandList: crash, TestType: scenario.CrashLogTest},
			passed:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := newOracle().Evaluate(tt.scenario, electedTwo, ws)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}

			if v.Passed != tt.passed {
				t.Errorf("Passed = %v, want %v (reason %q)", v.Passed, tt.passed, v.Reason)
			}
		})
	}

	_, err := newOracle().Evaluate(&scenario.Scenario{NbServers: 3, TestType: "SPLIT_BRAIN_TEST"}, electedTwo, ws)
	if !errors.Is(err, ErrUnhandledTestType) {
		t.Errorf("expected ErrUnhandledTestType, got %v", err)
	}
}

func TestLogFile(t *testing.T) {
	if got := newOracle().LogFile(4); got != "server_4.data" {
		t.Errorf("LogFile(4) = %q", got)
	}
}
