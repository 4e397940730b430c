// Package oracle decides whether a scenario run passed, from the SUT's captured output and
// from the state files its replicas persisted.
package oracle

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/st3v3nmw/raftcheck/internal/harness"
	"github.com/st3v3nmw/raftcheck/internal/replog"
	"github.com/st3v3nmw/raftcheck/internal/scenario"
)

// ErrUnhandledTestType is returned by Evaluate for a test type it has no checks for.
var ErrUnhandledTestType = errors.New("unhandled test type")

// Verdict is the outcome of a check.
type Verdict struct {
	Passed bool
	// Reason explains a failure. Empty when Passed.
	Reason string
}

// Pass returns a passing verdict.
func Pass() Verdict {
	return Verdict{Passed: true}
}

// Fail returns a failing verdict with a formatted reason.
func Fail(format string, args ...any) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...)}
}

// Role is the last role a server announced.
type Role string

const (
	Unobserved Role = ""
	Leader     Role = "leader"
	Candidate  Role = "candidate"
	Follower   Role = "follower"
)

// keywords are applied in this order, so a later keyword on the same line wins.
var keywords = []Role{Leader, Candidate, Follower}

func (r Role) String() string {
	if r == Unobserved {
		return "unobserved"
	}

	return string(r)
}

// Roles returns the final role of servers 1..n (index 0 is server 1). A line counts when
// one of its whitespace-separated words is a role keyword; the first all-digit word is the
// server ordinal. Lines without an ordinal in 1..n are skipped.
func Roles(lines []string, n int) []Role {
	roles := make([]Role, n)

	for _, line := range lines {
		words := strings.Fields(line)

		role := Unobserved
		for _, keyword := range keywords {
			for _, word := range words {
				if word == string(keyword) {
					role = keyword
					break
				}
			}
		}

		if role == Unobserved {
			continue
		}

		id, ok := ordinal(words)
		if !ok || id < 1 || id > n {
			continue
		}

		roles[id-1] = role
	}

	return roles
}

func ordinal(words []string) (int, bool) {
	for _, word := range words {
		if !isDigits(word) {
			continue
		}

		id, err := strconv.Atoi(word)
		if err != nil {
			return 0, false
		}

		return id, true
	}

	return 0, false
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return s != ""
}

// CheckElection passes iff exactly one of the n servers ended as leader and every other
// ended as follower. Servers in ignore are treated as followers.
func CheckElection(lines []string, n int, ignore ...int) Verdict {
	roles := Roles(lines, n)
	for _, id := range ignore {
		if id >= 1 && id <= n {
			roles[id-1] = Follower
		}
	}

	settled := OneOf(Leader, Follower)
	leaders := 0
	for i, role := range roles {
		if v := checkAll(expectation[Role]{fmt.Sprintf("server %d role", i+1), role, settled}); !v.Passed {
			return v
		}

		if role == Leader {
			leaders++
		}
	}

	return checkAll(
		expectation[int]{"leaders", leaders, Is(1)},
		expectation[int]{"followers", n - leaders, Is(n - 1)},
	)
}

// Config holds the persisted-log expectations.
type Config struct {
	Schema replog.Schema
	// LogFilePattern names a server's state file; %d is the server id.
	LogFilePattern string
	// Entries is the number of committed entries every scenario ends with.
	Entries int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Schema:         replog.DefaultSchema(),
		LogFilePattern: "server_%d.data",
		Entries:        10,
	}
}

// Oracle evaluates scenarios.
type Oracle struct {
	config *Config
	log    *logrus.Entry
}

// New creates an oracle.
func New(config *Config, log *logrus.Entry) *Oracle {
	return &Oracle{config: config, log: log}
}

// LogFile returns the state file name of server id.
func (o *Oracle) LogFile(id int) string {
	return fmt.Sprintf(o.config.LogFilePattern, id)
}

// CheckLogs passes iff the workspace holds one state file per non-ignored server, the
// first file holds exactly the expected number of entries and every file carries the
// same command sequence.
func (o *Oracle) CheckLogs(ws *harness.Workspace, n int, ignore ...string) Verdict {
	files, err := ws.LogFiles(ignore...)
	if err != nil {
		return Fail("cannot list persisted logs: %v", err)
	}

	if v := checkAll(
		expectation[int]{"persisted logs", len(files), Not[int](Is(0))},
		expectation[int]{"persisted logs", len(files), Is(n - len(ignore))},
	); !v.Passed {
		return v
	}

	first, err := replog.ReadFile(files[0], o.config.Schema)
	if err != nil {
		return Fail("%v", err)
	}

	if v := checkAll(expectation[int]{
		filepath.Base(files[0]) + " entries", len(first.Entries), Is(o.config.Entries),
	}); !v.Passed {
		return v
	}

	for _, file := range files[1:] {
		state, err := replog.ReadFile(file, o.config.Schema)
		if err != nil {
			return Fail("%v", err)
		}

		if !replog.Identical(first.Entries, state.Entries) {
			return Fail("%s diverges from %s: %v vs %v",
				filepath.Base(file), filepath.Base(files[0]), state.Commands(), first.Commands())
		}

		o.log.Debugf("%s matches %s", filepath.Base(file), filepath.Base(files[0]))
	}

	return Pass()
}

// Evaluate runs the checks selected by the scenario's test type.
func (o *Oracle) Evaluate(s *scenario.Scenario, capture *harness.Capture, ws *harness.Workspace) (Verdict, error) {
	switch s.TestType {
	case scenario.LeaderTest:
		return CheckElection(capture.Lines(), s.NbServers), nil
	case scenario.LogTest:
		return o.CheckLogs(ws, s.NbServers), nil
	case scenario.CrashLeaderTest:
		return CheckElection(capture.Lines(), s.NbServers, s.Crashed()...), nil
	case scenario.CrashLogTest:
		var ignore []string
		for _, id := range s.Crashed() {
			ignore = append(ignore, o.LogFile(id))
		}

		return o.CheckLogs(ws, s.NbServers, ignore...), nil
	default:
		return Verdict{}, errors.Wrapf(ErrUnhandledTestType, "%q", s.TestType)
	}
}
