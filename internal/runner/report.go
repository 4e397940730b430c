package runner

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

var (
	green     = color.New(color.FgGreen).SprintFunc()
	red       = color.New(color.FgRed).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()
	bold      = color.New(color.Bold).SprintFunc()
	checkMark = green("✓")
	crossMark = red("✗")
)

// Report aggregates the results of a batch.
type Report struct {
	Total   int
	Results []*Result
}

// Failed returns the results that count as scenario failures.
func (r *Report) Failed() []*Result {
	return r.filter(func(o Outcome) bool { return o.Failed() })
}

// Invalid returns the results whose file could not be used.
func (r *Report) Invalid() []*Result {
	return r.filter(func(o Outcome) bool { return o == Invalid })
}

// Passed returns the number of passing scenarios.
func (r *Report) Passed() int {
	return len(r.filter(func(o Outcome) bool { return o == Pass }))
}

// Successful reports whether every scenario ran and passed.
func (r *Report) Successful() bool {
	return r.Passed() == r.Total
}

func (r *Report) filter(keep func(Outcome) bool) []*Result {
	out := []*Result{}
	for _, result := range r.Results {
		if keep(result.Outcome) {
			out = append(out, result)
		}
	}

	return out
}

// Print writes the end-of-batch summary.
func (r *Report) Print(w io.Writer) {
	if r.Successful() {
		fmt.Fprintf(w, "%s All %d scenarios successful\n", checkMark, r.Total)
		return
	}

	failed := r.Failed()
	if len(failed) > 0 {
		fmt.Fprintln(w, "Some scenarios failed, check their logs")
		for _, result := range failed {
			fmt.Fprintf(w, "%s %s [%s]\n", crossMark, result.Path, result.Outcome)
			if result.Reason != "" {
				fmt.Fprintf(w, "    %s\n", result.Reason)
			}
			if len(result.Artifacts) > 0 {
				fmt.Fprintf(w, "    output: %s\n", strings.Join(result.Artifacts, ", "))
			}
		}
		fmt.Fprintln(w)
	}

	if invalid := r.Invalid(); len(invalid) > 0 {
		fmt.Fprintf(w, "%s %d invalid scenario files skipped\n", yellow("!"), len(invalid))
	}

	fmt.Fprintf(w, "%s %d/%d passed, %d failed\n", bold("FAILED"), r.Passed(), r.Total, len(failed))
}

// PrintResult writes the detailed verdict of a single scenario, the way a test suite ends.
func PrintResult(w io.Writer, result *Result) {
	if result.Outcome == Pass {
		fmt.Fprintf(w, "%s %s (%s)\n", checkMark, result.Path, result.Duration.Round(time.Millisecond))
		fmt.Fprintf(w, "\n%s %s\n", bold("PASSED"), checkMark)
		return
	}

	fmt.Fprintf(w, "%s %s [%s]\n", crossMark, result.Path, result.Outcome)
	if result.Reason != "" {
		fmt.Fprintf(w, "\n  %s\n", strings.ReplaceAll(result.Reason, "\n", "\n  "))
	}
	fmt.Fprintf(w, "\n%s %s\n", bold("FAILED"), crossMark)
}
