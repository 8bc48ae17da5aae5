// Package sandbox runs code at reduced privilege and guarantees the hart is
// back in machine mode afterwards.
package sandbox

import (
	"github.com/roach88/hartcheck/internal/hart"
	"github.com/roach88/hartcheck/internal/trap"
)

// RunReduced drops h to user mode, runs block and returns to machine mode.
//
// The observatory is armed in machine mode before the drop, so the record
// returned holds only what block produced. A trap taken inside block returns
// to machine mode through the observatory. When block completes without
// trapping, the hart is still in user mode and an escape ecall is issued with
// the observatory muted.
//
// Harts without user mode run block in machine mode.
func RunReduced(h hart.Hart, obs *trap.Observatory, block func()) trap.Record {
	obs.Arm()
	h.EnterUser()
	block()
	rec := obs.Read()
	if h.Mode() != hart.Machine {
		obs.Mute(func() { h.Exec(hart.InsnECALL) })
	}
	return rec
}
