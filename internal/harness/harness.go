package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Runner executes a catalog strictly in declaration order.
type Runner struct {
	env    *Env
	out    io.Writer
	logger *slog.Logger
	notify func(Outcome)
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sets the destination of the line report. Defaults to
// io.Discard.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithNotify registers a callback invoked after every case reaches a
// terminal state.
func WithNotify(fn func(Outcome)) Option {
	return func(r *Runner) { r.notify = fn }
}

// NewRunner creates a runner over env.
func NewRunner(env *Env, opts ...Option) *Runner {
	r := &Runner{env: env, out: io.Discard, logger: env.Logger}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		env.Logger = r.logger
	}
	if env.Wait <= 0 {
		env.Wait = DefaultWait
	}
	if env.Out == nil {
		env.Out = io.Discard
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes cases and returns the result. The error is non-nil only when
// an UnrecoverableError aborted the run; the result then covers the cases
// executed so far, including the one that aborted.
func (r *Runner) Run(cases []Case) (*Result, error) {
	res := &Result{}
	for i := range cases {
		out, abort := r.runCase(i+1, &cases[i])
		res.Outcomes = append(res.Outcomes, out)
		res.Ledger.record(out.Status)
		r.print(out)
		if r.notify != nil {
			r.notify(out)
		}
		if abort != nil {
			r.logger.Error("run aborted", "case", out.Name, "error", abort)
			res.Aborted = abort
			fmt.Fprintf(r.out, "ABORTED: %v\n", abort)
			break
		}
	}
	r.Summary(res.Ledger)
	return res, res.Aborted
}

// runCase drives one case through its lifecycle.
func (r *Runner) runCase(index int, c *Case) (out Outcome, abort error) {
	out = Outcome{Index: index, Name: c.Name, Component: c.Component, Status: Pending}

	if !c.applies(r.env.Caps) {
		out.Status = Skipped
		out.Reason = c.skipReason()
		r.logger.Debug("case skipped", "case", c.Name, "reason", out.Reason)
		return out, nil
	}

	out.Status = Running
	r.logger.Debug("case running", "case", c.Name, "component", c.Component)
	if c.Cleanup != nil {
		defer c.Cleanup(r.env)
	}

	fail := func(err error) (Outcome, error) {
		out.Status = Failed
		var ue *UnrecoverableError
		if errors.As(err, &ue) {
			if ue.Case == "" {
				ue.Case = c.Name
			}
			out.Failures = []string{err.Error()}
			return out, err
		}
		out.Failures = failureLines(err)
		r.logger.Debug("case failed", "case", c.Name, "failures", len(out.Failures))
		return out, nil
	}

	if c.Setup != nil {
		if err := c.Setup(r.env); err != nil {
			return fail(fmt.Errorf("setup: %w", err))
		}
	}

	obs := Observation{}
	r.env.Obs.Arm()
	if c.Stimulus != nil {
		if err := c.Stimulus(r.env, &obs); err != nil {
			obs.Trap = r.env.Obs.Read()
			out.Trap = obs.Trap
			return fail(err)
		}
	}
	obs.Trap = r.env.Obs.Read()
	out.Trap = obs.Trap

	if c.Assert != nil {
		if err := c.Assert(r.env, obs); err != nil {
			return fail(err)
		}
	}

	out.Status = Passed
	return out, nil
}

func (r *Runner) print(out Outcome) {
	switch out.Status {
	case Skipped:
		fmt.Fprintf(r.out, "[%d] %s: skipped (%s)\n", out.Index, out.Name, out.Reason)
	case Passed:
		fmt.Fprintf(r.out, "[%d] %s: ok\n", out.Index, out.Name)
	case Failed:
		fmt.Fprintf(r.out, "[%d] %s: FAIL\n", out.Index, out.Name)
		for _, f := range out.Failures {
			fmt.Fprintf(r.out, "    %s\n", f)
		}
	}
}

// Summary writes the two-line pass/fail summary.
func (r *Runner) Summary(l Ledger) {
	fmt.Fprintf(r.out, "PASS: %d/%d\n", l.Passed, l.Total)
	fmt.Fprintf(r.out, "FAIL: %d/%d\n", l.Failed, l.Total)
}

// FormatResult renders res the way the runner prints it.
func FormatResult(res *Result) string {
	var b strings.Builder
	r := &Runner{out: &b}
	for _, out := range res.Outcomes {
		r.print(out)
	}
	if res.Aborted != nil {
		fmt.Fprintf(&b, "ABORTED: %v\n", res.Aborted)
	}
	r.Summary(res.Ledger)
	return b.String()
}
