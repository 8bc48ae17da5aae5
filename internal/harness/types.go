package harness

import (
	"io"
	"log/slog"

	"github.com/roach88/hartcheck/internal/capability"
	"github.com/roach88/hartcheck/internal/hart"
	"github.com/roach88/hartcheck/internal/report"
	"github.com/roach88/hartcheck/internal/trap"
)

// DefaultWait is the number of idle instructions a stimulus waits for an
// interrupt to propagate.
const DefaultWait = 4

// DefaultSkipReason is printed for skipped cases that do not name a reason.
const DefaultSkipReason = "n.a."

// Env is what a case works with.
type Env struct {
	Hart   hart.Hart
	Obs    *trap.Observatory
	Caps   capability.Set
	Logger *slog.Logger

	// Wait is the propagation window in instructions.
	Wait int

	// Out receives free-form output such as the counter report.
	Out io.Writer
}

// Settle idles for the propagation window, or for n instructions when n is
// larger.
func (e *Env) Settle(n int) {
	if e.Wait > n {
		n = e.Wait
	}
	e.Hart.Nop(n)
}

// Observation is the state a case captured.
type Observation struct {
	// Trap is the observatory record read right after the stimulus.
	Trap trap.Record
	// Values holds named register or memory values read by the stimulus.
	Values map[string]uint32
}

// Set records a named value.
func (o *Observation) Set(name string, v uint32) {
	if o.Values == nil {
		o.Values = make(map[string]uint32)
	}
	o.Values[name] = v
}

// Value returns a named value, 0 when it was never set.
func (o Observation) Value(name string) uint32 { return o.Values[name] }

// Status is the state of a case in the lifecycle.
type Status int

const (
	Pending Status = iota
	Running
	Skipped
	Passed
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Skipped:
		return report.StatusSkipped
	case Passed:
		return report.StatusPassed
	case Failed:
		return report.StatusFailed
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool { return s == Skipped || s == Passed || s == Failed }

// Outcome is the result of one case.
type Outcome struct {
	Index     int
	Name      string
	Component string
	Status    Status
	Reason    string
	Trap      trap.Record
	Failures  []string
}

// Ledger holds the run counters. Counters only ever grow.
type Ledger struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

func (l *Ledger) record(s Status) {
	switch s {
	case Skipped:
		l.Skipped++
	case Passed:
		l.Total++
		l.Passed++
	case Failed:
		l.Total++
		l.Failed++
	}
}

// ExitCode returns the process status of the run: the failed count.
func (l Ledger) ExitCode() int { return l.Failed }

// Result is the outcome of running a catalog.
type Result struct {
	Outcomes []Outcome
	Ledger   Ledger
	// Aborted is set when an UnrecoverableError stopped the run.
	Aborted error
}

// Vector returns the status of every executed case in catalog order.
func (r *Result) Vector() []Status {
	v := make([]Status, len(r.Outcomes))
	for i, o := range r.Outcomes {
		v[i] = o.Status
	}
	return v
}

// ReportOutcomes converts the result into report outcomes.
func (r *Result) ReportOutcomes() []report.Outcome {
	out := make([]report.Outcome, len(r.Outcomes))
	for i, o := range r.Outcomes {
		ro := report.Outcome{
			Index:     o.Index,
			Name:      o.Name,
			Component: o.Component,
			Status:    o.Status.String(),
			Reason:    o.Reason,
			Failures:  o.Failures,
		}
		if o.Trap.Occurred {
			ro.Cause = o.Trap.Cause.String()
		}
		out[i] = ro
	}
	return out
}
