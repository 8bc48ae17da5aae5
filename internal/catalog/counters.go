package catalog

import (
	"fmt"
	"io"

	"github.com/roach88/hartcheck/internal/harness"
	"github.com/roach88/hartcheck/internal/hart"
	"github.com/roach88/hartcheck/internal/sandbox"
)

// hpmEvents is the event assigned to mhpmcounter3 onwards.
var hpmEvents = []struct {
	event int
	name  string
}{
	{hart.HPMEventCIR, "compressed instructions"},
	{hart.HPMEventWaitIF, "instruction fetch wait"},
	{hart.HPMEventWaitII, "instruction issue wait"},
	{hart.HPMEventWaitMC, "multi-cycle ALU wait"},
	{hart.HPMEventLoad, "loads"},
	{hart.HPMEventStore, "stores"},
	{hart.HPMEventWaitLS, "load/store wait"},
	{hart.HPMEventJump, "jumps"},
	{hart.HPMEventBranch, "branches"},
	{hart.HPMEventTBranch, "taken branches"},
	{hart.HPMEventTrap, "traps"},
	{hart.HPMEventIllegal, "illegal instructions"},
}

func configuredHPM(n int) int {
	if n > len(hpmEvents) {
		return len(hpmEvents)
	}
	return n
}

func counterCases() []harness.Case {
	return []harness.Case{
		{
			Name:      "cycle carry",
			Component: compCounters,
			Stimulus: func(env *harness.Env, obs *harness.Observation) error {
				h := env.Hart
				h.WriteCSR(hart.CSRMcycleh, 0)
				h.WriteCSR(hart.CSRMcycle, 0xFFFFFFFF)
				obs.Set("mcycleh", h.ReadCSR(hart.CSRMcycleh))
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				return harness.Expect(obs).NoTrap().Value("mcycleh", 1).Err()
			},
		},
		{
			Name:      "instret carry",
			Component: compCounters,
			Stimulus: func(env *harness.Env, obs *harness.Observation) error {
				h := env.Hart
				h.WriteCSR(hart.CSRMinstreth, 0)
				h.WriteCSR(hart.CSRMinstret, 0xFFFFFFFF)
				obs.Set("instreth", h.ReadCSR(hart.CSRInstreth))
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				return harness.Expect(obs).NoTrap().Value("instreth", 1).Err()
			},
		},
		{
			Name:      "mcountinhibit freezes cycle",
			Component: compCounters,
			Stimulus: func(env *harness.Env, obs *harness.Observation) error {
				h := env.Hart
				h.SetCSR(hart.CSRMcountinhibit, hart.CounterCY)
				first := h.ReadCSR(hart.CSRCycle)
				h.Nop(2)
				obs.Set("first", first)
				obs.Set("second", h.ReadCSR(hart.CSRCycle))
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				first := obs.Value("first")
				return harness.Expect(obs).NoTrap().
					Value("second", first).
					True("first", first != 0, "non-zero", "0").
					Err()
			},
			Cleanup: func(env *harness.Env) {
				env.Hart.ClearCSR(hart.CSRMcountinhibit, hart.CounterCY)
			},
		},
		{
			Name:       "mcounteren denies user cycle",
			Component:  compSandbox,
			Applies:    userMode,
			SkipReason: "no user mode",
			Setup: func(env *harness.Env) error {
				env.Hart.ClearCSR(hart.CSRMcounteren, hart.CounterCY)
				return nil
			},
			Stimulus: func(env *harness.Env, obs *harness.Observation) error {
				var v uint32 = 0xFFFFFFFF
				sandbox.RunReduced(env.Hart, env.Obs, func() { v = env.Hart.ReadCSR(hart.CSRCycle) })
				obs.Set("cycle", v)
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				return harness.Expect(obs).Trap(trapIllegal).FromMode(hart.User).Value("cycle", 0).Err()
			},
			Cleanup: func(env *harness.Env) {
				env.Hart.SetCSR(hart.CSRMcounteren, hart.CounterCY)
			},
		},
		{
			Name:       "hpm event configuration",
			Component:  compCounters,
			Applies:    hpm,
			SkipReason: "no hpm counters",
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				h := env.Hart
				for i := 0; i < configuredHPM(env.Caps.HPMCounters); i++ {
					n := 3 + i
					h.WriteCSR(hart.Mhpmcounter(n), 0)
					h.WriteCSR(hart.Mhpmcounterh(n), 0)
					h.WriteCSR(hart.Mhpmevent(n), 1<<hpmEvents[i].event)
				}
				h.WriteCSR(hart.CSRMcountinhibit, 0)
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				return harness.Expect(obs).NoTrap().Err()
			},
		},
	}
}

// CounterReport freezes every counter and writes their values to w.
func CounterReport(env *harness.Env, w io.Writer) {
	h := env.Hart
	h.WriteCSR(hart.CSRMcountinhibit, 0xFFFFFFFF)

	fmt.Fprintf(w, "HPM counters:\n")
	fmt.Fprintf(w, "  instret: %d\n", readCounter(h, hart.CSRInstreth, hart.CSRInstret))
	fmt.Fprintf(w, "  cycle:   %d\n", readCounter(h, hart.CSRCycleh, hart.CSRCycle))
	for i := 0; i < configuredHPM(env.Caps.HPMCounters); i++ {
		n := 3 + i
		fmt.Fprintf(w, "  hpm%-2d %-24s %d\n", n, hpmEvents[i].name+":",
			readCounter(h, hart.Mhpmcounterh(n), hart.Mhpmcounter(n)))
	}
}

func readCounter(h hart.Hart, hi, lo hart.CSR) uint64 {
	return uint64(h.ReadCSR(hi))<<32 | uint64(h.ReadCSR(lo))
}
