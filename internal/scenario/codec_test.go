package scenario_test

import (
	"errors"
	"path/filepath"
	"testing"

	. "github.com/st3v3nmw/raftcheck/internal/scenario"
)

func crashScenario() *Scenario {
	return &Scenario{
		NbServers: 3,
		NbClients: 1,
		CommandList: []Command{
			NewCommand(0, "SPEED 1 HIGH"),
			NewCommand(0, "SET_ELECTION_TIMEOUT 1 140"),
			NewCommand(0, "START_SERVERS"),
			NewCommand(2, "START 1"),
			NewCommand(0.1, "SEND_COMMAND 1 command_1"),
			NewCommand(1.25, "CRASH 1"),
		},
		TimeBeforeKill: 2,
		TestType:       CrashLogTest,
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		scenario *Scenario
	}{
		{
			name:     "Crash Log",
			scenario: crashScenario(),
		},
		{
			name: "No Commands",
			scenario: &Scenario{
				NbServers:   2,
				CommandList: []Command{},
				TestType:    LeaderTest,
			},
		},
		{
			name: "Fractional Waits",
			scenario: &Scenario{
				NbServers: 4,
				NbClients: 2,
				CommandList: []Command{
					NewCommand(0.3333333333333333, "SEND_COMMAND 1 command_2"),
					NewCommand(0.6666666666666666, "SEND_COMMAND 1 command_3"),
				},
				TimeBeforeKill: 0.5,
				TestType:       LogTest,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.scenario)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			decoded, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if !decoded.Equal(tt.scenario) {
				t.Errorf("decode(encode(s)) != s\n  want: %+v\n  got:  %+v", tt.scenario, decoded)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		check   func(*testing.T, *Scenario)
	}{
		{
			name: "Source Format",
			input: `{"nb_servers": 5, "nb_clients": 0, "time_before_kill": 2, "test_type": "LEADER_TEST",
				"command_list": [{"wait_time": 0, "command": "SPEED 1 HIGH\n"}, {"wait_time": 0, "command": "START_SERVERS\n"}]}`,
			check: func(t *testing.T, s *Scenario) {
				if s.NbServers != 5 || s.TestType != LeaderTest || len(s.CommandList) != 2 {
					t.Errorf("unexpected scenario: %+v", s)
				}
				if s.CommandList[1].Command != "START_SERVERS\n" {
					t.Errorf("command = %q", s.CommandList[1].Command)
				}
			},
		},
		{
			name: "Unknown Fields Ignored",
			input: `{"nb_servers": 3, "nb_clients": 0, "time_before_kill": 2, "test_type": "CRASH_LEADER_TEST",
				"author": "ci", "command_list": [{"wait_time": 2, "command": "CRASH 1", "note": "x"}]}`,
			check: func(t *testing.T, s *Scenario) {
				if s.CommandList[0].Command != "CRASH 1\n" {
					t.Errorf("missing newline should be added, got %q", s.CommandList[0].Command)
				}
			},
		},
		{
			name:    "Invalid JSON",
			input:   `{"nb_servers": 3,`,
			wantErr: ErrMalformed,
		},
		{
			name:    "Missing Field",
			input:   `{"nb_servers": 3, "nb_clients": 0, "test_type": "LOG_TEST", "command_list": []}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "Wrong Type",
			input:   `{"nb_servers": "3", "nb_clients": 0, "time_before_kill": 2, "test_type": "LOG_TEST", "command_list": []}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "Fractional Server Count",
			input:   `{"nb_servers": 3.5, "nb_clients": 0, "time_before_kill": 2, "test_type": "LOG_TEST", "command_list": []}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "Unknown Test Type",
			input:   `{"nb_servers": 3, "nb_clients": 0, "time_before_kill": 2, "test_type": "PARTITION_TEST", "command_list": []}`,
			wantErr: ErrUnknownTestType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Decode([]byte(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, s)
		})
	}
}

func TestPeek(t *testing.T) {
	data, err := Encode(crashScenario())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	summary, err := Peek(data)
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}

	if summary.TestType != "CRASH_LOG_TEST" || summary.NbServers != 3 || summary.NbClients != 1 ||
		summary.Commands != 6 || summary.Grace != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crash.json")

	if err := WriteFile(path, crashScenario()); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	s, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if !s.Equal(crashScenario()) {
		t.Errorf("file round trip changed the scenario: %+v", s)
	}

	invalid := crashScenario()
	invalid.NbServers = 2
	if err := WriteFile(path, invalid); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for a 2-server crash scenario, got %v", err)
	}
}
