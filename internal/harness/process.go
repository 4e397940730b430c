package harness

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/st3v3nmw/raftcheck/internal/scenario"
)

// Capture is everything the SUT printed during one scenario.
type Capture struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
	// TimedOut is set when the run exceeded Config.Timeout and the group was killed.
	TimedOut bool
	// InputClosed is set when the SUT stopped reading stdin before the script ended.
	InputClosed bool
}

// Lines splits stdout into lines, dropping the empty tail left by a final newline.
func (c *Capture) Lines() []string {
	return splitLines(c.Stdout)
}

// ErrLines splits stderr the same way as Lines.
func (c *Capture) ErrLines() []string {
	return splitLines(c.Stderr)
}

func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}

	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// Orchestrator runs one scenario at a time against a live SUT process group.
type Orchestrator struct {
	config    *Config
	workspace *Workspace
	log       *logrus.Entry
}

// NewOrchestrator creates an orchestrator writing SUT state into workspace.
func NewOrchestrator(config *Config, workspace *Workspace, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{config: config, workspace: workspace, log: log}
}

// Workspace returns the logs directory handle.
func (o *Orchestrator) Workspace() *Workspace {
	return o.workspace
}

// commandLine builds the launcher invocation for a scenario.
func (o *Orchestrator) commandLine(s *scenario.Scenario) (string, []string) {
	sut := []string{o.config.Binary,
		"--servers", strconv.Itoa(s.NbServers),
		"--clients", strconv.Itoa(s.NbClients)}

	if o.config.Launcher == "" {
		return sut[0], sut[1:]
	}

	procs := strconv.Itoa(s.Processes())
	args := make([]string, 0, len(o.config.LauncherArgs)+len(sut))
	for _, arg := range o.config.LauncherArgs {
		args = append(args, strings.ReplaceAll(arg, ProcsPlaceholder, procs))
	}

	return o.config.Launcher, append(args, sut...)
}

// Run launches the SUT, feeds it the scenario script on schedule and waits for it to exit.
// Sleeps are blocking: command ordering is enforced here, not by the SUT.
func (o *Orchestrator) Run(ctx context.Context, s *scenario.Scenario) (*Capture, error) {
	if err := o.workspace.Reset(); err != nil {
		return nil, err
	}

	runCtx := ctx
	var cancel context.CancelFunc = func() {}
	if o.config.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, o.config.Timeout)
	}
	defer cancel()

	name, args := o.commandLine(s)
	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = o.config.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Kill the whole group, not only the launcher
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "open stdin")
	}

	log := o.log.WithFields(logrus.Fields{"servers": s.NbServers, "clients": s.NbClients})
	log.Debugf("Launching %s %s", name, strings.Join(args, " "))

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start %s", name)
	}

	waited := false
	defer func() {
		if !waited {
			_ = stdin.Close()
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			_ = cmd.Wait()
		}
	}()

	capture := &Capture{}
	w := bufio.NewWriter(stdin)

	feed := func(wait time.Duration, line string) bool {
		if !sleep(runCtx, wait) {
			return false
		}

		_, err := io.WriteString(w, line)
		if err == nil {
			err = w.Flush()
		}
		if err != nil {
			log.WithError(err).Warnf("SUT stopped reading stdin before %q", strings.TrimSpace(line))
			capture.InputClosed = true
			return false
		}

		log.Debugf("Sent %q", strings.TrimSpace(line))
		return true
	}

	sent := true
	for _, c := range s.CommandList {
		if sent = feed(c.Delay(), c.Command); !sent {
			break
		}
	}

	if sent {
		feed(s.GracePeriod(), o.config.ExitCommand+"\n")
	}

	_ = stdin.Close()
	waitErr := cmd.Wait()
	waited = true

	capture.Stdout = stdout.String()
	capture.Stderr = stderr.String()
	capture.Duration = time.Since(start)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		capture.TimedOut = true
		log.Warnf("Scenario exceeded %s, process group killed", o.config.Timeout)
		return capture, nil
	}

	if ctx.Err() != nil {
		return capture, ctx.Err()
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return capture, errors.Wrap(waitErr, "wait for SUT")
	}

	log.Debugf("SUT exited after %s", capture.Duration.Round(time.Millisecond))
	return capture, nil
}

// sleep blocks for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// LogsPath joins the SUT directory and its logs directory.
func LogsPath(config *Config) string {
	return filepath.Join(config.Dir, config.LogsDir)
}
