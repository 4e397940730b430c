package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/sirupsen/logrus"

	"github.com/st3v3nmw/raftcheck/internal/harness"
	"github.com/st3v3nmw/raftcheck/internal/history"
	"github.com/st3v3nmw/raftcheck/internal/oracle"
	"github.com/st3v3nmw/raftcheck/internal/scenario"
)

// Outcome classifies a scenario run.
type Outcome int

const (
	Pass Outcome = iota
	// Fail is an oracle-detected invariant violation.
	Fail
	// SUTError means the SUT wrote to stderr.
	SUTError
	// Timeout means the scenario ran past the configured timeout.
	Timeout
	// Invalid means the scenario file could not be used at all.
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case SUTError:
		return "sut error"
	case Timeout:
		return "timeout"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Failed reports whether the outcome counts as a scenario failure.
func (o Outcome) Failed() bool {
	return o == Fail || o == SUTError || o == Timeout
}

// Result is the outcome of one scenario file.
type Result struct {
	Path     string
	Outcome  Outcome
	Reason   string
	Capture  *harness.Capture
	Duration time.Duration
	// Artifacts are the files the captured output was saved to.
	Artifacts []string
}

// Config holds configuration options for the run driver.
type Config struct {
	// ErrorDir receives the output of failing scenarios. It is recreated by every batch.
	ErrorDir string
	// Strict aborts the batch at the first invalid scenario file.
	Strict bool
	// Out receives progress and the report.
	Out io.Writer
}

// Runner executes scenario files one at a time.
type Runner struct {
	config       *Config
	orchestrator *harness.Orchestrator
	oracle       *oracle.Oracle
	history      *history.Store
	log          *logrus.Entry
	runID        string
}

// New creates a runner.
func New(config *Config, orchestrator *harness.Orchestrator, o *oracle.Oracle, log *logrus.Entry) *Runner {
	if config.Out == nil {
		config.Out = os.Stdout
	}

	return &Runner{
		config:       config,
		orchestrator: orchestrator,
		oracle:       o,
		log:          log,
		runID:        time.Now().UTC().Format("20060102T150405"),
	}
}

// WithHistory records every result in store.
func (r *Runner) WithHistory(store *history.Store) *Runner {
	r.history = store
	return r
}

// RunOne decodes, executes and evaluates a single scenario file. Scenario problems are
// reported in the result; the error is reserved for cancellation and harness failures.
func (r *Runner) RunOne(ctx context.Context, path string) (*Result, error) {
	log := r.log.WithField("scenario", path)
	result := &Result{Path: path}

	s, err := scenario.ReadFile(path)
	if err == nil {
		err = s.Validate()
	}
	if err != nil {
		result.Outcome = Invalid
		result.Reason = err.Error()
		return result, nil
	}

	capture, err := r.orchestrator.Run(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	result.Capture = capture
	result.Duration = capture.Duration

	switch {
	case capture.TimedOut:
		result.Outcome = Timeout
		result.Reason = fmt.Sprintf("still running after %s", capture.Duration.Round(time.Millisecond))
	case capture.Stderr != "":
		result.Outcome = SUTError
		result.Reason = "SUT wrote to stderr"
	default:
		verdict, err := r.oracle.Evaluate(s, capture, r.orchestrator.Workspace())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		result.Outcome = Pass
		if !verdict.Passed {
			result.Outcome = Fail
			result.Reason = verdict.Reason
		}
	}

	log.WithField("outcome", result.Outcome).Debugf("Finished in %s", result.Duration.Round(time.Millisecond))
	return result, nil
}

// Run executes every file in order and prints a report. Failing scenarios never stop the
// batch; an invalid file does so only in strict mode.
func (r *Runner) Run(ctx context.Context, files []string) (*Report, error) {
	ws := r.orchestrator.Workspace()
	if err := ws.Lock(); err != nil {
		return nil, err
	}
	defer ws.Unlock()

	if err := os.RemoveAll(r.config.ErrorDir); err != nil {
		return nil, fmt.Errorf("failed to clear %s: %w", r.config.ErrorDir, err)
	}

	if err := os.MkdirAll(r.config.ErrorDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", r.config.ErrorDir, err)
	}

	report := &Report{Total: len(files)}
	out := r.config.Out

	for i, path := range files {
		fmt.Fprintf(out, "\rScenario %d/%d", i+1, len(files))

		result, err := r.RunOne(ctx, path)
		if err != nil {
			fmt.Fprintln(out)
			return report, err
		}
		report.Results = append(report.Results, result)

		switch {
		case result.Outcome == Invalid:
			fmt.Fprintf(out, "\n%s %s: %s\n", crossMark, path, result.Reason)
			if r.config.Strict {
				return report, fmt.Errorf("invalid scenario %s", path)
			}
		case result.Outcome == SUTError:
			fmt.Fprintf(out, "\n%s %s: error occurred\n%s\n", crossMark, path, strings.TrimRight(result.Capture.Stderr, "\n"))
		}

		if result.Outcome.Failed() {
			if err := r.saveArtifacts(result); err != nil {
				return report, err
			}
		}

		r.record(result)
	}
	fmt.Fprintln(out)

	report.Print(out)

	if len(report.Failed()) == 0 {
		if err := ws.Remove(); err != nil {
			r.log.WithError(err).Warn("Failed to remove the logs directory")
		}
	} else {
		r.log.Infof("Keeping %s for inspection", ws.Dir())
	}

	return report, nil
}

// artifactName maps a scenario path to its artifact path under the error directory.
func (r *Runner) artifactName(path, suffix string) string {
	name := filepath.ToSlash(filepath.Clean(path))
	for strings.HasPrefix(name, "../") || strings.HasPrefix(name, "/") {
		name = strings.TrimPrefix(strings.TrimPrefix(name, "../"), "/")
	}

	name = strings.TrimSuffix(name, filepath.Ext(name)) + suffix
	return filepath.Join(r.config.ErrorDir, filepath.FromSlash(name))
}

func (r *Runner) saveArtifacts(result *Result) error {
	streams := []struct {
		suffix string
		text   string
	}{
		{".txt", result.Capture.Stdout},
		{".stderr.txt", result.Capture.Stderr},
	}

	for i, stream := range streams {
		// stdout is always kept, even when empty
		if i > 0 && stream.text == "" {
			continue
		}

		path := r.artifactName(result.Path, stream.suffix)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create artifact directory: %w", err)
		}

		if err := atomic.WriteFile(path, strings.NewReader(stream.text)); err != nil {
			return fmt.Errorf("failed to save artifact: %w", err)
		}

		result.Artifacts = append(result.Artifacts, path)
	}

	return nil
}

func (r *Runner) record(result *Result) {
	if r.history == nil {
		return
	}

	err := r.history.Add(history.Record{
		RunID:    r.runID,
		Path:     result.Path,
		Outcome:  result.Outcome.String(),
		Passed:   result.Outcome == Pass,
		Reason:   result.Reason,
		Duration: result.Duration,
		At:       time.Now(),
	})
	if err != nil {
		r.log.WithError(err).Warn("Failed to record history")
	}
}
