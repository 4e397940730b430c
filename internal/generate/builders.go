package generate

// Timing assumptions baked into the builders:
//   - A pinned election timeout of 140ms (100ms/145ms for the crash-log pair) beats the
//     300ms given to every other server, making the leader deterministic.
//   - Two seconds is enough for an election to settle on fast servers.
//   - Clients need 0.1s after START before they accept commands.

import (
	"fmt"

	"github.com/st3v3nmw/raftcheck/internal/scenario"
)

// Speed is the relative speed class of a server.
type Speed string

const (
	Low    Speed = "LOW"
	Medium Speed = "MEDIUM"
	High   Speed = "HIGH"
)

// Speeds lists the speed classes swept over.
var Speeds = []Speed{Low, Medium, High}

const (
	gracePeriod     = 2
	settleTime      = 2
	clientWarmup    = 0.1
	logCommands     = 10
	batchCommands   = 5
	pinnedTimeout   = 140
	firstTimeout    = 100
	secondTimeout   = 145
	defaultTimeouts = 300
)

func cmd(wait float64, format string, args ...any) scenario.Command {
	return scenario.NewCommand(wait, fmt.Sprintf(format, args...))
}

func payload(i int) string {
	return fmt.Sprintf("command_%d", i)
}

func allSpeed(n int, speed Speed) []scenario.Command {
	commands := make([]scenario.Command, 0, n)
	for i := 0; i < n; i++ {
		commands = append(commands, cmd(0, "%s %d %s", scenario.VerbSpeed, i+1, speed))
	}

	return commands
}

// LeaderCheck gives every server the same speed and starts the cluster.
func LeaderCheck(n int, speed Speed) *scenario.Scenario {
	commands := allSpeed(n, speed)
	commands = append(commands, cmd(0, scenario.VerbStartServers))

	return &scenario.Scenario{
		NbServers:      n,
		CommandList:    commands,
		TimeBeforeKill: gracePeriod,
		TestType:       scenario.LeaderTest,
	}
}

// speedPattern returns the cycle used by LeaderNonUniformSpeed. An empty dominant speed
// yields an even mix.
func speedPattern(dominant Speed) []Speed {
	switch dominant {
	case High:
		return []Speed{High, Medium, High, Low}
	case Medium:
		return []Speed{High, Medium, Low, Medium}
	case Low:
		return []Speed{High, Low, Medium, Low}
	default:
		return []Speed{High, Medium, Low}
	}
}

// LeaderNonUniformSpeed cycles a speed pattern weighted towards dominant across servers.
func LeaderNonUniformSpeed(n int, dominant Speed) *scenario.Scenario {
	pattern := speedPattern(dominant)

	commands := make([]scenario.Command, 0, n+1)
	for i := 0; i < n; i++ {
		commands = append(commands, cmd(0, "%s %d %s", scenario.VerbSpeed, i+1, pattern[i%len(pattern)]))
	}
	commands = append(commands, cmd(0, scenario.VerbStartServers))

	return &scenario.Scenario{
		NbServers:      n,
		CommandList:    commands,
		TimeBeforeKill: gracePeriod,
		TestType:       scenario.LeaderTest,
	}
}

// LogCheck pins server 1 as leader, starts the clients and sends ten commands gap seconds apart.
func LogCheck(nServers, nClients int, gap float64) *scenario.Scenario {
	commands := allSpeed(nServers, High)
	commands = append(commands,
		cmd(0, "%s 1 %d", scenario.VerbElectionTimeout, pinnedTimeout),
		cmd(0, scenario.VerbStartServers),
	)

	for i := 0; i < nClients; i++ {
		wait := 0.0
		if i == 0 {
			wait = settleTime
		}
		commands = append(commands, cmd(wait, "%s %d", scenario.VerbStart, i+1))
	}

	for i := 0; i < logCommands; i++ {
		wait := gap
		if i == 0 {
			wait = clientWarmup
		}
		commands = append(commands, cmd(wait, "%s 1 %s", scenario.VerbSendCommand, payload(i+1)))
	}

	return &scenario.Scenario{
		NbServers:      nServers,
		NbClients:      nClients,
		CommandList:    commands,
		TimeBeforeKill: gracePeriod,
		TestType:       scenario.LogTest,
	}
}

func crashOne(n, leader int) *scenario.Scenario {
	commands := allSpeed(n, High)
	commands = append(commands,
		cmd(0, "%s %d %d", scenario.VerbElectionTimeout, leader, pinnedTimeout),
		cmd(0, scenario.VerbStartServers),
		cmd(settleTime, "%s 1", scenario.VerbCrash),
	)

	return &scenario.Scenario{
		NbServers:      n,
		CommandList:    commands,
		TimeBeforeKill: gracePeriod,
		TestType:       scenario.CrashLeaderTest,
	}
}

// CrashLeader crashes server 1 after it has been elected.
func CrashLeader(n int) *scenario.Scenario {
	return crashOne(n, 1)
}

// CrashFollower pins server 2 as leader and crashes follower 1.
func CrashFollower(n int) *scenario.Scenario {
	return crashOne(n, 2)
}

func sendBatch(target, first int) []scenario.Command {
	commands := make([]scenario.Command, 0, batchCommands)
	for i := 0; i < batchCommands; i++ {
		wait := 0.0
		if i == 0 {
			wait = settleTime
		}
		commands = append(commands, cmd(wait, "%s %d %s", scenario.VerbSendCommand, target, payload(first+i)))
	}

	return commands
}

// CrashLogContinuity sends five commands to server 1, crashes it and sends five more to
// server 2, its deterministic successor.
func CrashLogContinuity(n int) *scenario.Scenario {
	commands := allSpeed(n, High)
	commands = append(commands,
		cmd(0, "%s 1 %d", scenario.VerbElectionTimeout, firstTimeout),
		cmd(0, "%s 2 %d", scenario.VerbElectionTimeout, secondTimeout),
	)
	for i := 2; i < n; i++ {
		commands = append(commands, cmd(0, "%s %d %d", scenario.VerbElectionTimeout, i+1, defaultTimeouts))
	}
	commands = append(commands, cmd(0, scenario.VerbStartServers))

	commands = append(commands, sendBatch(1, 1)...)
	commands = append(commands, cmd(settleTime, "%s 1", scenario.VerbCrash))
	commands = append(commands, sendBatch(2, batchCommands+1)...)

	return &scenario.Scenario{
		NbServers:      n,
		CommandList:    commands,
		TimeBeforeKill: gracePeriod,
		TestType:       scenario.CrashLogTest,
	}
}

// CrashLogRecovery is CrashLogContinuity followed by recovering server 1.
func CrashLogRecovery(n int) *scenario.Scenario {
	s := CrashLogContinuity(n)
	s.CommandList = append(s.CommandList, cmd(settleTime, "%s 1", scenario.VerbRecover))
	s.TestType = scenario.LogTest

	return s
}
