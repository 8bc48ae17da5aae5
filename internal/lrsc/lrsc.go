// Package lrsc verifies load-reserved/store-conditional semantics.
//
// Every scenario works on one word. The reservation itself is hardware state
// and is only observed through the status returned by sc.w and the memory
// contents afterwards.
package lrsc

import (
	"github.com/roach88/hartcheck/internal/hart"
	"github.com/roach88/hartcheck/internal/trap"
)

// Scenario values.
const (
	Initial     uint32 = 0x11223344
	Conditional uint32 = 0x22446688
	Intervening uint32 = 0xCAFECAFE
)

// Result is what one scenario observed.
type Result struct {
	// Reserved is the value returned by lr.w.
	Reserved uint32
	// Status is the sc.w result: 0 on success.
	Status uint32
	// Final is the word after the scenario.
	Final uint32
	// Trap is the observatory record after the scenario.
	Trap trap.Record
}

// Succeeded reports whether the conditional store took effect.
func (r Result) Succeeded() bool { return r.Status == 0 }

// Verifier runs the scenarios against one word.
type Verifier struct {
	h    hart.Hart
	obs  *trap.Observatory
	addr uint32
}

// New creates a verifier using the word at addr.
func New(h hart.Hart, obs *trap.Observatory, addr uint32) *Verifier {
	return &Verifier{h: h, obs: obs, addr: addr}
}

// Reset stores the initial value without any reservation in flight.
func (v *Verifier) Reset() {
	v.h.Store(v.addr, Initial)
}

// Succeed reserves, then stores conditionally with nothing in between.
func (v *Verifier) Succeed() Result {
	v.Reset()
	v.obs.Arm()
	var r Result
	r.Reserved = v.h.LoadReserved(v.addr)
	r.Status = v.h.StoreConditional(v.addr, Conditional)
	r.Final = v.h.Load(v.addr)
	r.Trap = v.obs.Read()
	return r
}

// FailAfterStore reserves, overwrites the word with a plain store and then
// stores conditionally.
func (v *Verifier) FailAfterStore() Result {
	v.Reset()
	v.obs.Arm()
	var r Result
	r.Reserved = v.h.LoadReserved(v.addr)
	v.h.Store(v.addr, Intervening)
	r.Status = v.h.StoreConditional(v.addr, Conditional)
	r.Final = v.h.Load(v.addr)
	r.Trap = v.obs.Read()
	return r
}

// FailAfterTrap reserves, takes a trap and then stores conditionally. The
// trap record holds the intervening trap.
func (v *Verifier) FailAfterTrap() Result {
	v.Reset()
	v.obs.Arm()
	var r Result
	r.Reserved = v.h.LoadReserved(v.addr)
	v.h.Exec(hart.InsnECALL)
	r.Status = v.h.StoreConditional(v.addr, Conditional)
	r.Final = v.h.Load(v.addr)
	r.Trap = v.obs.Read()
	return r
}
