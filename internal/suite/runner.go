// Package suite runs the zcheck verification checks.
//
// A Runner executes an ordered list of Checks. Each check runs inside its own fault
// boundary: a returned error or a panic marks that check as failed, prints an
// "ERROR: <message>" line, and the runner moves on to the next check. The runner
// itself never fails; the Summary is the only aggregate signal.
package suite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/aalhour/zcheck/internal/logging"
)

// ErrCheckPanicked wraps a panic recovered from a check.
var ErrCheckPanicked = errors.New("check panicked")

// DefaultTitle is the banner printed above the results.
const DefaultTitle = "WALI zlib Test Suite"

const ruleWidth = 50

// Check is one named verification step.
// Run reports whether the check passed; a non-nil error always counts as a failure.
type Check struct {
	Name string
	Run  func(ctx context.Context, r *Reporter) (bool, error)
}

// Result is the outcome of one check.
type Result struct {
	Name    string
	Passed  bool
	Err     error
	Elapsed time.Duration
}

// Summary aggregates the results of a run in check order.
type Summary struct {
	Results []Result
}

// Passed returns the number of checks that passed.
func (s Summary) Passed() int {
	return lo.CountBy(s.Results, func(r Result) bool { return r.Passed })
}

// Total returns the number of checks that ran or were skipped.
func (s Summary) Total() int {
	return len(s.Results)
}

// OK reports whether every check passed.
func (s Summary) OK() bool {
	return s.Passed() == s.Total()
}

// Failed returns the names of checks that did not pass.
func (s Summary) Failed() []string {
	return lo.FilterMap(s.Results, func(r Result, _ int) (string, bool) {
		return r.Name, !r.Passed
	})
}

// String returns the summary line, e.g. "Results: 4/4 tests passed".
func (s Summary) String() string {
	return fmt.Sprintf("Results: %d/%d tests passed", s.Passed(), s.Total())
}

// Options configures a Runner.
type Options struct {
	// Out receives the human-readable diagnostics. Defaults to os.Stdout.
	Out io.Writer
	// Logger receives structured progress logs. Defaults to logging.Discard.
	Logger logging.Logger
	// Verbose enables the extra diagnostic lines emitted through Reporter.Verbosef.
	Verbose bool
	// Title is printed in the banner. Defaults to DefaultTitle.
	Title string
}

// Runner executes checks sequentially.
type Runner struct {
	out     io.Writer
	logger  logging.Logger
	verbose bool
	title   string
}

// NewRunner creates a Runner from opts.
func NewRunner(opts Options) *Runner {
	r := &Runner{
		out:     opts.Out,
		logger:  opts.Logger,
		verbose: opts.Verbose,
		title:   opts.Title,
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	if logging.IsNil(r.logger) {
		r.logger = logging.Discard
	}
	if r.title == "" {
		r.title = DefaultTitle
	}
	return r
}

// Run executes checks in order and prints the banner, each section and the summary.
// Once ctx is done, the remaining checks are recorded as failed without running.
func (r *Runner) Run(ctx context.Context, checks []Check) Summary {
	rule := strings.Repeat("=", ruleWidth)
	r.printf("%s\n%s\n%s\n", rule, r.title, rule)
	r.logger.Infof("%srunning %d checks", logging.NSSuite, len(checks))

	summary := Summary{Results: make([]Result, 0, len(checks))}
	for _, c := range checks {
		r.printf("\n--- %s ---\n", c.Name)

		var res Result
		if err := ctx.Err(); err != nil {
			res = Result{Name: c.Name, Err: err}
			r.printf("ERROR: %v\n", err)
		} else {
			res = r.runOne(ctx, c)
		}

		if res.Passed {
			r.logger.Debugf("%s%s passed in %v", logging.NSSuite, c.Name, res.Elapsed)
		} else {
			r.logger.Warnf("%s%s failed: %v", logging.NSSuite, c.Name, res.Err)
		}
		summary.Results = append(summary.Results, res)
	}

	r.printf("\n%s\n%s\n%s\n", rule, summary, rule)
	return summary
}

// runOne executes a single check inside its fault boundary.
func (r *Runner) runOne(ctx context.Context, c Check) (res Result) {
	res.Name = c.Name
	start := time.Now()
	rep := NewReporter(r.out, r.verbose)
	rep.logger = r.logger

	defer func() {
		res.Elapsed = time.Since(start)
		if p := recover(); p != nil {
			res.Passed = false
			res.Err = fmt.Errorf("%w: %v", ErrCheckPanicked, p)
		}
		if res.Err != nil {
			res.Passed = false
			r.printf("ERROR: %v\n", res.Err)
		}
	}()

	res.Passed, res.Err = c.Run(ctx, rep)
	return res
}

func (r *Runner) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Reporter writes a check's diagnostic lines.
type Reporter struct {
	w       io.Writer
	verbose bool
	logger  logging.Logger
}

// NewReporter returns a Reporter writing to w.
func NewReporter(w io.Writer, verbose bool) *Reporter {
	return &Reporter{w: w, verbose: verbose}
}

// Printf writes one line; a trailing newline is added.
func (r *Reporter) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.w, format+"\n", args...)
}

// Verbosef writes one line only in verbose mode.
func (r *Reporter) Verbosef(format string, args ...any) {
	if r.verbose {
		r.Printf(format, args...)
	}
}

// Logger returns the runner's logger, or logging.Discard outside a runner.
func (r *Reporter) Logger() logging.Logger {
	if logging.IsNil(r.logger) {
		return logging.Discard
	}
	return r.logger
}

// Verbose reports whether verbose output is enabled.
func (r *Reporter) Verbose() bool {
	return r.verbose
}

// HexPrefix formats up to the first n bytes of data as space-separated hex,
// followed by "..." when data is longer.
func HexPrefix(data []byte, n int) string {
	var sb strings.Builder
	for i := 0; i < len(data) && i < n; i++ {
		fmt.Fprintf(&sb, "%02x ", data[i])
	}
	if len(data) > n {
		sb.WriteString("...")
	}
	return strings.TrimRight(sb.String(), " ")
}
