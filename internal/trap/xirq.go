package trap

import (
	"fmt"

	"github.com/roach88/hartcheck/internal/hart"
)

// InstallXIRQ binds fn to an external interrupt controller channel. Channel
// handlers run from the XIRQ fast interrupt vector, one channel per trap, in
// the order the controller reports them.
func (o *Observatory) InstallXIRQ(channel int, fn func()) error {
	if channel < 0 || channel >= hart.NumXIRQ {
		return &InstallError{Vector: FIRQ(hart.FIRQXIRQ), Reason: fmt.Sprintf("xirq channel %d out of range", channel)}
	}
	if fn == nil {
		return &InstallError{Vector: FIRQ(hart.FIRQXIRQ), Reason: "nil xirq handler"}
	}
	o.xirq[channel] = fn
	return o.Install(FIRQ(hart.FIRQXIRQ), o.dispatchXIRQ)
}

// ClearXIRQ removes every channel handler and restores the default handler
// on the XIRQ vector.
func (o *Observatory) ClearXIRQ() {
	o.xirq = [hart.NumXIRQ]func(){}
	o.vectors[FIRQ(hart.FIRQXIRQ)] = Default
}

// dispatchXIRQ serves the channel the controller selects, clears its pending
// bit and acknowledges.
func (o *Observatory) dispatchXIRQ(Record) {
	ch := o.h.Load(hart.XIRQSCR)
	if ch < hart.NumXIRQ && o.xirq[ch] != nil {
		o.xirq[ch]()
	} else {
		o.logger.Warn("xirq channel without handler", "channel", ch)
	}
	o.h.Store(hart.XIRQIPR, ^(uint32(1) << (ch % hart.NumXIRQ)))
	o.h.Store(hart.XIRQSCR, 0)
}

// Accumulator is the shared value the two ordering handlers transform.
type Accumulator struct {
	Value uint32
	// Order lists the channels in the order they were served.
	Order []int
}

// InstallOrdering binds the ordering proof handlers: channel 0 adds 2 and
// channel 1 doubles. Served 0 then 1 from zero, the value ends at 4.
func (o *Observatory) InstallOrdering(acc *Accumulator) error {
	if err := o.InstallXIRQ(0, func() {
		acc.Value += 2
		acc.Order = append(acc.Order, 0)
	}); err != nil {
		return err
	}
	return o.InstallXIRQ(1, func() {
		acc.Value *= 2
		acc.Order = append(acc.Order, 1)
	})
}
