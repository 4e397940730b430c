package generate

import (
	"fmt"
	"strconv"

	"github.com/st3v3nmw/raftcheck/internal/registry"
)

// Election needs at least 2 servers, a crash needs 3 for the quorum to survive.
const (
	minElectionServers = 2
	minCrashServers    = 3
	minLogServers      = 4
)

func init() {
	registry.RegisterFamily("leader", &registry.Family{
		Name:    "Leader Election",
		Summary: "Uniform, dominant and mixed server speeds for every cluster size",
		Fn:      LeaderSweep,
	})
	registry.RegisterFamily("log", &registry.Family{
		Name:    "Log Replication",
		Summary: "Ten client commands over varying cluster sizes, client counts and cadences",
		Fn:      LogSweep,
	})
	registry.RegisterFamily("crash", &registry.Family{
		Name:    "Crash",
		Summary: "Leader crash, follower crash and log continuity across a leader change",
		Fn:      CrashSweep,
	})
	registry.RegisterFamily("recovery", &registry.Family{
		Name:    "Recovery",
		Summary: "A crashed leader rejoins and catches up to the committed log",
		Fn:      RecoverySweep,
	})
}

func LeaderSweep(sw registry.Sweep) []registry.Named {
	var out []registry.Named

	for n := minElectionServers; n <= sw.LeaderMaxServers; n++ {
		for _, speed := range Speeds {
			out = append(out,
				registry.Named{
					Filename: fmt.Sprintf("leader_test_%d_uniform_speed_%s.json", n, speed),
					Scenario: LeaderCheck(n, speed),
				},
				registry.Named{
					Filename: fmt.Sprintf("leader_test_%d_speed_most_%s.json", n, speed),
					Scenario: LeaderNonUniformSpeed(n, speed),
				},
			)
		}

		out = append(out, registry.Named{
			Filename: fmt.Sprintf("leader_test_%d_mixed_speed.json", n),
			Scenario: LeaderNonUniformSpeed(n, ""),
		})
	}

	return out
}

func LogSweep(sw registry.Sweep) []registry.Named {
	var out []registry.Named

	for servers := minLogServers; servers < minLogServers+sw.LogServerVariants; servers++ {
		for clients := 1; clients <= sw.LogClientVariants; clients++ {
			for step := 0; step < sw.LogSubdivisions; step++ {
				gap := float64(step) / float64(sw.LogSubdivisions)
				out = append(out, registry.Named{
					Filename: fmt.Sprintf("log_test_%d_servers_%d_clients_%ss_between_messages.json",
						servers, clients, strconv.FormatFloat(gap, 'f', -1, 64)),
					Scenario: LogCheck(servers, clients, gap),
				})
			}
		}
	}

	return out
}

func CrashSweep(sw registry.Sweep) []registry.Named {
	var out []registry.Named

	for n := minCrashServers; n <= sw.CrashMaxServers; n++ {
		out = append(out,
			registry.Named{
				Filename: fmt.Sprintf("crash_test_%d_servers_new_leader_elected.json", n),
				Scenario: CrashLeader(n),
			},
			registry.Named{
				Filename: fmt.Sprintf("crash_test_%d_servers_crash_follower.json", n),
				Scenario: CrashFollower(n),
			},
			registry.Named{
				Filename: fmt.Sprintf("crash_test_%d_servers_crash_log_continuity.json", n),
				Scenario: CrashLogContinuity(n),
			},
		)
	}

	return out
}

func RecoverySweep(sw registry.Sweep) []registry.Named {
	var out []registry.Named

	for n := minCrashServers; n <= sw.RecoveryMaxServers; n++ {
		out = append(out, registry.Named{
			Filename: fmt.Sprintf("crash_test_%d_servers_crash_log_recovery.json", n),
			Scenario: CrashLogRecovery(n),
		})
	}

	return out
}
