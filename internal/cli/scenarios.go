package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	commands "github.com/urfave/cli/v3"

	"github.com/st3v3nmw/raftcheck/internal/config"
	"github.com/st3v3nmw/raftcheck/internal/generate"
	"github.com/st3v3nmw/raftcheck/internal/registry"
	"github.com/st3v3nmw/raftcheck/internal/runner"
	"github.com/st3v3nmw/raftcheck/internal/scenario"
)

func InitConfig(ctx context.Context, cmd *commands.Command) error {
	path := config.DefaultPath
	if cmd.NArg() > 0 {
		path = filepath.Join(cmd.Args().First(), config.DefaultPath)
		if err := os.MkdirAll(cmd.Args().First(), 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", cmd.Args().First(), err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	if err := config.SaveTo(config.Default(), path); err != nil {
		return err
	}

	fmt.Printf("Created %s\n", path)
	fmt.Println()
	fmt.Println("Point sut.binary at your build, then run 'raftcheck generate' and 'raftcheck run'.")

	return nil
}

func GenerateScenarios(ctx context.Context, cmd *commands.Command) error {
	e, err := load(cmd)
	if err != nil {
		return err
	}

	out := cmd.String("out")
	if out == "" {
		out = e.cfg.Scenarios
	}

	families := cmd.StringSlice("family")
	for _, key := range families {
		if _, err := registry.GetFamily(key); err != nil {
			return fmt.Errorf("unknown family: %s\nRun 'raftcheck list --families' to see them", key)
		}
	}

	paths, err := generate.Write(out, e.cfg.Generate, families...)
	if err != nil {
		return err
	}

	fmt.Printf("Generated %d scenarios in %s\n", len(paths), out)
	return nil
}

func ListScenarios(ctx context.Context, cmd *commands.Command) error {
	if cmd.Bool("families") {
		fmt.Println("Available families:")
		fmt.Println()

		for _, key := range registry.Keys() {
			family, _ := registry.GetFamily(key)
			fmt.Printf("  %-10s - %s: %s\n", key, family.Name, family.Summary)
		}

		fmt.Println()
		fmt.Println("Generate with: raftcheck generate --family <name>")
		return nil
	}

	e, err := load(cmd)
	if err != nil {
		return err
	}

	root, err := e.root(cmd, "raftcheck list [root]")
	if err != nil {
		return err
	}

	files, err := runner.Discover(root)
	if err != nil {
		return err
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		summary, err := scenario.Peek(data)
		if err != nil {
			fmt.Printf("%-70s %v\n", path, err)
			continue
		}

		fmt.Printf("%-70s %-18s %3d servers %3d clients %3d commands\n",
			path, summary.TestType, summary.NbServers, summary.NbClients, summary.Commands)
	}

	fmt.Printf("\n%d scenario files\n", len(files))
	return nil
}
