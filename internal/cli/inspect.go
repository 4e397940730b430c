package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	commands "github.com/urfave/cli/v3"

	"github.com/st3v3nmw/raftcheck/internal/harness"
	"github.com/st3v3nmw/raftcheck/internal/history"
	"github.com/st3v3nmw/raftcheck/internal/replog"
)

func DumpLogs(ctx context.Context, cmd *commands.Command) error {
	e, err := load(cmd)
	if err != nil {
		return err
	}

	dir := harness.LogsPath(e.harness)
	if cmd.NArg() > 0 {
		dir = cmd.Args().First()
	}

	files, err := harness.NewWorkspace(dir).LogFiles()
	if err != nil {
		return fmt.Errorf("no logs to dump: %w", err)
	}

	for _, file := range files {
		state, err := replog.ReadFile(file, e.cfg.Schema)
		if err != nil {
			fmt.Printf("%s: %v\n\n", filepath.Base(file), err)
			continue
		}

		voted := "none"
		if state.VotedFor != nil {
			voted = fmt.Sprint(*state.VotedFor)
		}

		fmt.Printf("%s  term=%d voted_for=%s entries=%d\n",
			filepath.Base(file), state.CurrentTerm, voted, len(state.Entries))
		for _, entry := range state.Entries {
			fmt.Printf("  %4d  term %-4d %s\n", entry.Index, entry.Term, entry.Command)
		}
		fmt.Println()
	}

	return nil
}

func ShowHistory(ctx context.Context, cmd *commands.Command) error {
	e, err := load(cmd)
	if err != nil {
		return err
	}

	if e.cfg.History == "" {
		return fmt.Errorf("history is not enabled\nSet 'history' in raftcheck.yaml to record outcomes")
	}

	store, err := history.Open(e.cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	// raftcheck history <scenario>
	if cmd.NArg() > 0 {
		records, err := store.Records(cmd.Args().First())
		if err != nil {
			return err
		}

		for _, r := range records {
			fmt.Printf("%s  %-16s %-10s %8s  %s\n",
				r.At.Local().Format(time.DateTime), r.RunID, r.Outcome, r.Duration.Round(time.Millisecond), r.Reason)
		}
		return nil
	}

	summaries, err := store.Summaries()
	if err != nil {
		return err
	}

	flaky := 0
	for _, s := range summaries {
		if cmd.Bool("flaky") && !s.Flaky() {
			continue
		}

		marker := "  "
		if s.Flaky() {
			marker = "~ "
			flaky++
		}

		fmt.Printf("%s%-70s %3d/%-3d passed  last %s\n", marker, s.Path, s.Passes, s.Runs, s.Last)
	}

	fmt.Printf("\n%d scenarios recorded, %d flaky\n", len(summaries), flaky)
	return nil
}
