package harness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/hartcheck/internal/hart"
	"github.com/roach88/hartcheck/internal/trap"
)

// AssertionError is returned when a check fails. It carries the trap record
// the case observed for context.
type AssertionError struct {
	Check    string      // What was checked
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Trap     trap.Record // Observed trap state
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nTrap record:\n")
	if e.Trap.Occurred {
		fmt.Fprintf(&buf, "  cause=%s mcause=0x%08x mtval=0x%08x from=%s count=%d\n",
			e.Trap.Cause, e.Trap.Mcause, e.Trap.Aux, e.Trap.FromMode, e.Trap.Count)
	} else {
		fmt.Fprintf(&buf, "  none\n")
	}

	return buf.String()
}

// Summary is the single-line form used in reports.
func (e *AssertionError) Summary() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Check, e.Expected, e.Actual)
}

// UnrecoverableError aborts a run: a stimulus could not be issued and the
// device under test is no longer trusted.
type UnrecoverableError struct {
	Case string
	Err  error
}

func (e *UnrecoverableError) Error() string {
	if e.Case == "" {
		return fmt.Sprintf("unrecoverable: %v", e.Err)
	}
	return fmt.Sprintf("unrecoverable in %q: %v", e.Case, e.Err)
}

func (e *UnrecoverableError) Unwrap() error { return e.Err }

// IsUnrecoverable reports whether err is or wraps an UnrecoverableError.
func IsUnrecoverable(err error) bool {
	var ue *UnrecoverableError
	return errors.As(err, &ue)
}

// Check accumulates assertion failures against one observation.
type Check struct {
	obs      Observation
	failures []*AssertionError
}

// Expect starts a check of obs.
func Expect(obs Observation) *Check {
	return &Check{obs: obs}
}

func (c *Check) fail(check, expected, actual string) *Check {
	c.failures = append(c.failures, &AssertionError{
		Check:    check,
		Expected: expected,
		Actual:   actual,
		Trap:     c.obs.Trap,
	})
	return c
}

func describe(rec trap.Record) string {
	if !rec.Occurred {
		return "no trap"
	}
	return fmt.Sprintf("%s (mcause 0x%08x)", rec.Cause, rec.Mcause)
}

// Trap checks that exactly the given cause was recorded.
func (c *Check) Trap(want trap.Cause) *Check {
	rec := c.obs.Trap
	if !rec.Occurred || rec.Cause != want {
		return c.fail("cause", want.String(), describe(rec))
	}
	return c
}

// TrapAny checks that one of the given causes was recorded.
func (c *Check) TrapAny(want ...trap.Cause) *Check {
	rec := c.obs.Trap
	if rec.Occurred {
		for _, w := range want {
			if rec.Cause == w {
				return c
			}
		}
	}
	names := make([]string, len(want))
	for i, w := range want {
		names[i] = w.String()
	}
	return c.fail("cause", "one of "+strings.Join(names, ", "), describe(rec))
}

// NoTrap checks that nothing trapped.
func (c *Check) NoTrap() *Check {
	if c.obs.Trap.Occurred {
		return c.fail("cause", "no trap", describe(c.obs.Trap))
	}
	return c
}

// Aux checks mtval.
func (c *Check) Aux(want uint32) *Check {
	return c.Equal("mtval", want, c.obs.Trap.Aux)
}

// FromMode checks the privilege level the trap was taken from.
func (c *Check) FromMode(want hart.Mode) *Check {
	if got := c.obs.Trap.FromMode; !c.obs.Trap.Occurred || got != want {
		return c.fail("previous mode", want.String(), got.String())
	}
	return c
}

// Value checks a named observed value.
func (c *Check) Value(name string, want uint32) *Check {
	got, ok := c.obs.Values[name]
	if !ok {
		return c.fail(name, fmt.Sprintf("0x%08x", want), "not observed")
	}
	return c.Equal(name, want, got)
}

// Equal checks two words.
func (c *Check) Equal(name string, want, got uint32) *Check {
	if want != got {
		return c.fail(name, fmt.Sprintf("0x%08x", want), fmt.Sprintf("0x%08x", got))
	}
	return c
}

// True checks an arbitrary condition.
func (c *Check) True(name string, cond bool, expected, actual string) *Check {
	if !cond {
		return c.fail(name, expected, actual)
	}
	return c
}

// Err returns nil when every check held, otherwise the joined failures.
func (c *Check) Err() error {
	if len(c.failures) == 0 {
		return nil
	}
	errs := make([]error, len(c.failures))
	for i, f := range c.failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// failureLines flattens an assertion error into report lines.
func failureLines(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var lines []string
		for _, e := range joined.Unwrap() {
			lines = append(lines, failureLines(e)...)
		}
		return lines
	}
	var ae *AssertionError
	if errors.As(err, &ae) {
		return []string{ae.Summary()}
	}
	return []string{err.Error()}
}
