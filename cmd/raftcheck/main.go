package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	commands "github.com/urfave/cli/v3"

	"github.com/st3v3nmw/raftcheck/internal/cli"
	"github.com/st3v3nmw/raftcheck/internal/runner"
)

func main() {
	cmd := &commands.Command{
		Name:  "raftcheck",
		Usage: "Drive a Raft cluster through timed scenarios and check its safety",
		Flags: []commands.Flag{
			&commands.StringFlag{
				Name:    "config",
				Usage:   "Path to raftcheck.yaml",
				Aliases: []string{"c"},
			},
			&commands.BoolFlag{
				Name:    "verbose",
				Usage:   "Log every command sent to the SUT",
				Aliases: []string{"v"},
				Value:   false,
			},
		},
		Before: cli.SetupLogging,
		Commands: []*commands.Command{
			{
				Name:      "init",
				Usage:     "Write a default raftcheck.yaml",
				ArgsUsage: "[path]",
				Action:    cli.InitConfig,
			},
			{
				Name:  "generate",
				Usage: "Generate scenario files",
				Flags: []commands.Flag{
					&commands.StringFlag{
						Name:    "out",
						Usage:   "Output directory (recreated)",
						Aliases: []string{"o"},
					},
					&commands.StringSliceFlag{
						Name:    "family",
						Usage:   "Only generate these families",
						Aliases: []string{"f"},
					},
				},
				Action: cli.GenerateScenarios,
			},
			{
				Name:      "run",
				Usage:     "Run every scenario under a root directory",
				ArgsUsage: "[root]",
				Flags: []commands.Flag{
					&commands.BoolFlag{
						Name:  "strict",
						Usage: "Abort at the first invalid scenario file",
					},
				},
				Action: cli.RunScenarios,
			},
			{
				Name:      "check",
				Usage:     "Run a single scenario and explain its verdict",
				ArgsUsage: "<file>",
				Flags: []commands.Flag{
					&commands.BoolFlag{
						Name:  "output",
						Usage: "Print the captured SUT output",
					},
				},
				Action: cli.CheckScenario,
			},
			{
				Name:      "list",
				Usage:     "Summarize scenario files",
				ArgsUsage: "[root]",
				Flags: []commands.Flag{
					&commands.BoolFlag{
						Name:  "families",
						Usage: "List the scenario families instead",
					},
				},
				Action: cli.ListScenarios,
			},
			{
				Name:      "dump",
				Usage:     "Decode the persisted replica logs",
				ArgsUsage: "[dir]",
				Action:    cli.DumpLogs,
			},
			{
				Name:      "history",
				Usage:     "Show recorded outcomes",
				ArgsUsage: "[scenario]",
				Flags: []commands.Flag{
					&commands.BoolFlag{
						Name:  "flaky",
						Usage: "Only show scenarios that both passed and failed",
					},
				},
				Action: cli.ShowHistory,
			},
			{
				Name:      "watch",
				Usage:     "Run scenario files as they are written",
				ArgsUsage: "[root]",
				Flags: []commands.Flag{
					&commands.DurationFlag{
						Name:  "debounce",
						Usage: "Quiet period before a changed file runs",
						Value: runner.DefaultDebounce,
					},
				},
				Action: cli.WatchScenarios,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
