package scenario

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnknownTestType is returned for a test_type outside the supported set.
	ErrUnknownTestType = errors.New("unknown test type")
	// ErrInvalid is returned when a scenario breaks one of its invariants.
	ErrInvalid = errors.New("invalid scenario")
)

// TestType selects the pass criterion of a scenario.
type TestType string

const (
	LeaderTest      TestType = "LEADER_TEST"
	LogTest         TestType = "LOG_TEST"
	CrashLeaderTest TestType = "CRASH_LEADER_TEST"
	CrashLogTest    TestType = "CRASH_LOG_TEST"
)

// TestTypes lists every supported test type.
var TestTypes = []TestType{LeaderTest, LogTest, CrashLeaderTest, CrashLogTest}

// ParseTestType validates a raw test_type value.
func ParseTestType(s string) (TestType, error) {
	for _, t := range TestTypes {
		if string(t) == s {
			return t, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownTestType, s)
}

// ChecksElection reports whether the election oracle runs for this type.
func (t TestType) ChecksElection() bool {
	return t == LeaderTest || t == CrashLeaderTest
}

// Stdin verbs understood by the SUT controller.
const (
	VerbSpeed           = "SPEED"
	VerbElectionTimeout = "SET_ELECTION_TIMEOUT"
	VerbStartServers    = "START_SERVERS"
	VerbStart           = "START"
	VerbSendCommand     = "SEND_COMMAND"
	VerbCrash           = "CRASH"
	VerbRecover         = "RECOVER"
)

// Command is one line written to the SUT after sleeping WaitTime seconds.
type Command struct {
	WaitTime float64
	Command  string
}

// NewCommand builds a command whose text ends with exactly one newline.
func NewCommand(wait float64, text string) Command {
	return Command{WaitTime: wait, Command: strings.TrimRight(text, "\r\n") + "\n"}
}

// Delay returns the wait as a duration.
func (c Command) Delay() time.Duration {
	return time.Duration(c.WaitTime * float64(time.Second))
}

// Verb returns the first word of the command.
func (c Command) Verb() string {
	fields := strings.Fields(c.Command)
	if len(fields) == 0 {
		return ""
	}

	return fields[0]
}

// Target returns the node id addressed by the command, if any.
func (c Command) Target() (int, bool) {
	fields := strings.Fields(c.Command)
	if len(fields) < 2 {
		return 0, false
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}

	return id, true
}

// Scenario is one self-contained test case.
type Scenario struct {
	NbServers      int
	NbClients      int
	CommandList    []Command
	TimeBeforeKill float64
	TestType       TestType
}

// Processes returns the process group size: servers, clients and the controller rank.
func (s *Scenario) Processes() int {
	return s.NbServers + s.NbClients + 1
}

// GracePeriod returns TimeBeforeKill as a duration.
func (s *Scenario) GracePeriod() time.Duration {
	return time.Duration(s.TimeBeforeKill * float64(time.Second))
}

// Crashed returns the ids of servers crashed and not recovered afterwards, in crash order.
func (s *Scenario) Crashed() []int {
	var order []int
	down := make(map[int]bool)

	for _, c := range s.CommandList {
		id, ok := c.Target()
		if !ok {
			continue
		}

		switch c.Verb() {
		case VerbCrash:
			if !down[id] {
				order = append(order, id)
			}
			down[id] = true
		case VerbRecover, VerbStart:
			down[id] = false
		}
	}

	crashed := []int{}
	for _, id := range order {
		if down[id] {
			crashed = append(crashed, id)
		}
	}

	return crashed
}

// Validate checks the structural invariants of the scenario.
func (s *Scenario) Validate() error {
	if _, err := ParseTestType(string(s.TestType)); err != nil {
		return err
	}

	if s.NbServers < 1 {
		return fmt.Errorf("%w: nb_servers must be positive, got %d", ErrInvalid, s.NbServers)
	}

	if s.NbClients < 0 {
		return fmt.Errorf("%w: nb_clients must be non-negative, got %d", ErrInvalid, s.NbClients)
	}

	if s.TimeBeforeKill < 0 {
		return fmt.Errorf("%w: time_before_kill must be non-negative, got %v", ErrInvalid, s.TimeBeforeKill)
	}

	// A quorum needs two participants
	if s.TestType.ChecksElection() && s.NbServers < 2 {
		return fmt.Errorf("%w: %s needs at least 2 servers, got %d", ErrInvalid, s.TestType, s.NbServers)
	}

	for i, c := range s.CommandList {
		if c.WaitTime < 0 {
			return fmt.Errorf("%w: command %d has negative wait_time %v", ErrInvalid, i, c.WaitTime)
		}

		if !strings.HasSuffix(c.Command, "\n") || strings.HasSuffix(c.Command, "\n\n") {
			return fmt.Errorf("%w: command %d must end with exactly one newline: %q", ErrInvalid, i, c.Command)
		}

		// The quorum must survive one failure
		if c.Verb() == VerbCrash && s.NbServers < 3 {
			return fmt.Errorf("%w: CRASH needs at least 3 servers, got %d", ErrInvalid, s.NbServers)
		}
	}

	return nil
}

// Equal reports whether two scenarios have identical field values and command order.
func (s *Scenario) Equal(o *Scenario) bool {
	if s.NbServers != o.NbServers || s.NbClients != o.NbClients ||
		s.TimeBeforeKill != o.TimeBeforeKill || s.TestType != o.TestType ||
		len(s.CommandList) != len(o.CommandList) {
		return false
	}

	for i := range s.CommandList {
		if s.CommandList[i] != o.CommandList[i] {
			return false
		}
	}

	return true
}
