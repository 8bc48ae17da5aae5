// Package catalog is the ordered list of processor compliance cases.
//
// The catalog is data: every case is a harness.Case with an applicability
// predicate over the capability set and setup/stimulus/assert/cleanup
// procedures. Cases run in declaration order against one hart that Prepare
// has brought into a known state.
package catalog

import (
	"path"

	"github.com/roach88/hartcheck/internal/capability"
	"github.com/roach88/hartcheck/internal/harness"
	"github.com/roach88/hartcheck/internal/hart"
)

// Memory used by the cases.
const (
	// ScratchCode holds small programs copied in by a case.
	ScratchCode = hart.DMEMBase + 0x800
	// AtomicWord is the word shared by the reservation scenarios.
	AtomicWord = hart.DMEMBase + 0x1000
)

// Component names.
const (
	compCounters = "counters"
	compShim     = "shim"
	compTrap     = "trap"
	compInject   = "inject"
	compIO       = "peripherals"
	compSandbox  = "sandbox"
	compPMP      = "pmp"
	compLRSC     = "lrsc"
)

// Cases returns the catalog in declaration order.
func Cases() []harness.Case {
	var cases []harness.Case
	cases = append(cases, counterCases()...)
	cases = append(cases, exceptionCases()...)
	cases = append(cases, interruptCases()...)
	cases = append(cases, privilegeCases()...)
	cases = append(cases, protectionCases()...)
	cases = append(cases, atomicCases()...)
	return cases
}

// Filter keeps the cases whose name matches the glob pattern. An empty
// pattern keeps everything.
func Filter(cases []harness.Case, pattern string) ([]harness.Case, error) {
	if pattern == "" {
		return cases, nil
	}
	var out []harness.Case
	for _, c := range cases {
		ok, err := path.Match(pattern, c.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Prepare brings the hart into the state every case assumes: counters
// cleared and accessible from user mode, the system timer parked, the
// primary UART in simulation mode, default handlers on every vector and the
// machine software, timer and external interrupts enabled.
func Prepare(env *harness.Env) {
	h := env.Hart

	h.WriteCSR(hart.CSRMcountinhibit, 0)
	h.WriteCSR(hart.CSRMcycleh, 0)
	h.WriteCSR(hart.CSRMcycle, 0)
	h.WriteCSR(hart.CSRMinstreth, 0)
	h.WriteCSR(hart.CSRMinstret, 0)
	h.WriteCSR(hart.CSRMcounteren, hart.CounterCY|hart.CounterTM|hart.CounterIR)

	setTimeCmp(h, ^uint64(0))
	setTime(h, 0)

	if env.Caps.Has(hart.FeatureUART0) {
		h.Store(hart.UART0CT, hart.UARTCtEnable|hart.UARTCtSimMode)
		if env.Caps.Has(hart.FeatureUART1) {
			h.Store(hart.UART1CT, h.Load(hart.UART0CT))
		}
	}

	env.Obs.InstallDefaults()
	h.WriteCSR(hart.CSRMip, 0)
	h.WriteCSR(hart.CSRMie, hart.MieMSIE|hart.MieMTIE|hart.MieMEIE)
	h.SetCSR(hart.CSRMstatus, hart.MstatusMIE)
}

// Predicates.
func userMode(caps capability.Set) bool      { return caps.User }
func compressed(caps capability.Set) bool    { return caps.Compressed }
func notCompressed(caps capability.Set) bool { return !caps.Compressed }
func atomic(caps capability.Set) bool        { return caps.Atomic }
func hpm(caps capability.Set) bool           { return caps.HPMCounters > 0 }
func pmpPresent(caps capability.Set) bool    { return caps.PMPRegions > 0 }
func never(capability.Set) bool              { return false }

func feature(bit uint32) func(capability.Set) bool {
	return func(caps capability.Set) bool { return caps.Has(bit) }
}

// setTime writes mtime. The low half is cleared first so the high half
// cannot carry in between.
func setTime(h hart.Hart, t uint64) {
	h.Store(hart.MTIMELo, 0)
	h.Store(hart.MTIMEHi, uint32(t>>32))
	h.Store(hart.MTIMELo, uint32(t))
}

// setTimeCmp writes mtimecmp without passing through a smaller value.
func setTimeCmp(h hart.Hart, cmp uint64) {
	h.Store(hart.MTIMECmpLo, 0xFFFFFFFF)
	h.Store(hart.MTIMECmpHi, uint32(cmp>>32))
	h.Store(hart.MTIMECmpLo, uint32(cmp))
}

// readTime returns mtime, rereading when the low half wrapped.
func readTime(h hart.Hart) uint64 {
	for {
		hi := h.Load(hart.MTIMEHi)
		lo := h.Load(hart.MTIMELo)
		if h.Load(hart.MTIMEHi) == hi {
			return uint64(hi)<<32 | uint64(lo)
		}
	}
}

// busyLimit bounds every wait on a peripheral busy flag.
const busyLimit = 1024

// waitIdle polls addr until bit clears or the bound runs out.
func waitIdle(h hart.Hart, addr, bit uint32) {
	for i := 0; i < busyLimit; i++ {
		if h.Load(addr)&bit == 0 {
			return
		}
	}
}
