package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	commands "github.com/urfave/cli/v3"

	"github.com/st3v3nmw/raftcheck/internal/config"
	"github.com/st3v3nmw/raftcheck/internal/harness"
	"github.com/st3v3nmw/raftcheck/internal/history"
	"github.com/st3v3nmw/raftcheck/internal/oracle"
	"github.com/st3v3nmw/raftcheck/internal/runner"
)

// SetupLogging configures the diagnostic logger shared by every command.
func SetupLogging(ctx context.Context, cmd *commands.Command) (context.Context, error) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04.000",
	})

	if cmd.Bool("verbose") {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	return ctx, nil
}

// env is everything a command needs once the configuration is loaded.
type env struct {
	cfg     *config.Config
	log     *logrus.Entry
	harness *harness.Config
	history *history.Store
}

func load(cmd *commands.Command) (*env, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	hc, err := cfg.Harness()
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:     cfg,
		log:     logrus.WithField("cmd", cmd.Name),
		harness: hc,
	}, nil
}

// runner builds the run driver, opening the history store when one is configured.
func (e *env) runner(strict bool, out io.Writer) (*runner.Runner, error) {
	ws := harness.NewWorkspace(harness.LogsPath(e.harness))
	r := runner.New(
		&runner.Config{ErrorDir: e.cfg.ErrorDir, Strict: strict, Out: out},
		harness.NewOrchestrator(e.harness, ws, e.log),
		oracle.New(e.cfg.Oracle(), e.log),
		e.log,
	)

	if e.cfg.History != "" {
		store, err := history.Open(e.cfg.History)
		if err != nil {
			return nil, err
		}
		e.history = store
		r.WithHistory(store)
	}

	return r, nil
}

func (e *env) close() {
	if e.history != nil {
		if err := e.history.Close(); err != nil {
			e.log.WithError(err).Warn("Failed to close history")
		}
	}
}

// root returns the scenario root from the arguments or the configuration.
func (e *env) root(cmd *commands.Command, usage string) (string, error) {
	switch cmd.NArg() {
	case 0:
		return e.cfg.Scenarios, nil
	case 1:
		return cmd.Args().First(), nil
	default:
		return "", fmt.Errorf("too many arguments\nUsage: %s", usage)
	}
}

func RunScenarios(ctx context.Context, cmd *commands.Command) error {
	e, err := load(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	root, err := e.root(cmd, "raftcheck run [root]")
	if err != nil {
		return err
	}

	files, err := runner.Discover(root)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no scenario files in %s\nRun 'raftcheck generate' first", root)
	}

	r, err := e.runner(cmd.Bool("strict"), os.Stdout)
	if err != nil {
		return err
	}

	// Scenario failures are reported, not returned
	_, err = r.Run(ctx, files)
	return err
}

func CheckScenario(ctx context.Context, cmd *commands.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("scenario file is required\nUsage: raftcheck check <file>")
	}
	path := cmd.Args().First()

	e, err := load(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	r, err := e.runner(false, os.Stdout)
	if err != nil {
		return err
	}

	ws := harness.NewWorkspace(harness.LogsPath(e.harness))
	if err := ws.Lock(); err != nil {
		return err
	}
	defer ws.Unlock()

	result, err := r.RunOne(ctx, path)
	if err != nil {
		return err
	}

	if cmd.Bool("output") && result.Capture != nil {
		fmt.Print(result.Capture.Stdout)
		fmt.Fprint(os.Stderr, result.Capture.Stderr)
		fmt.Println()
	}

	runner.PrintResult(os.Stdout, result)
	return nil
}

func WatchScenarios(ctx context.Context, cmd *commands.Command) error {
	e, err := load(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	root, err := e.root(cmd, "raftcheck watch [root]")
	if err != nil {
		return err
	}

	r, err := e.runner(false, os.Stdout)
	if err != nil {
		return err
	}

	return r.Watch(ctx, root, cmd.Duration("debounce"))
}
