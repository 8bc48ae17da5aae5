// Package inject drives the simulation-only interrupt side channel.
//
// A store to hart.SimIRQ asserts testbench interrupt lines without any real
// peripheral: bit 0 is the non-maskable interrupt, the remaining bits follow
// the mie layout (MSIE, MEIE, fast interrupt enables).
package inject

import (
	"fmt"

	"github.com/roach88/hartcheck/internal/harness"
	"github.com/roach88/hartcheck/internal/hart"
	"github.com/roach88/hartcheck/internal/trap"
)

// Lines that can be asserted.
const (
	NMI = hart.SimLineNMI
	MSI = hart.SimLineMSI
	MEI = hart.SimLineMEI
)

// Trigger asserts the lines in mask. Success is observed through the
// observatory after a propagation wait. A store that faults means the side
// channel is not mapped and the run cannot continue.
func Trigger(h hart.Hart, obs *trap.Observatory, mask uint32) error {
	before := obs.Read()
	h.Store(hart.SimIRQ, mask)
	after := obs.Read()
	if after.Count > before.Count && after.Cause == trap.StoreAccess && after.Aux == hart.SimIRQ {
		return &harness.UnrecoverableError{
			Err: fmt.Errorf("interrupt side channel at 0x%08x is not mapped", hart.SimIRQ),
		}
	}
	return nil
}
