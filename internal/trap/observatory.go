package trap

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/hartcheck/internal/hart"
)

// Record is the architectural state captured by the last trap.
type Record struct {
	// Cause is the decoded trap cause; None while armed.
	Cause Cause
	// Mcause is the raw mcause value.
	Mcause uint32
	// Aux is mtval: the faulting address or instruction word.
	Aux uint32
	// Occurred distinguishes "no trap" from instruction misalignment, which
	// shares mcause 0.
	Occurred bool
	// FromMode is the privilege level reported by mstatus.MPP on entry,
	// before the observatory repairs it.
	FromMode hart.Mode
	// Count is the number of traps since Arm.
	Count int
}

// Handler is the body run for one vector. The observatory has already
// recorded the trap when a handler runs.
type Handler func(rec Record)

// Observatory is the trap entry point and vector dispatch table.
type Observatory struct {
	h       hart.Hart
	logger  *slog.Logger
	vectors [NumVectors + 1]Handler
	rec     Record
	muted   bool
	xirq    [hart.NumXIRQ]func()
	unknown int
}

// New creates an observatory and installs it as the trap entry of h. All
// vectors start uninstalled and fall back to the debug handler.
func New(h hart.Hart, logger *slog.Logger) *Observatory {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	o := &Observatory{h: h, logger: logger}
	h.SetTrapEntry(o.enter)
	return o
}

// Default leaves the trap with no further action.
func Default(Record) {}

// Install binds handler to vector.
func (o *Observatory) Install(vector Cause, handler Handler) error {
	if !vector.Valid() {
		return &InstallError{Vector: vector, Reason: fmt.Sprintf("vector out of range 1..%d", NumVectors)}
	}
	if handler == nil {
		return &InstallError{Vector: vector, Reason: "nil handler"}
	}
	o.vectors[vector] = handler
	return nil
}

// Uninstall reverts vector to the debug handler.
func (o *Observatory) Uninstall(vector Cause) error {
	if !vector.Valid() {
		return &InstallError{Vector: vector, Reason: fmt.Sprintf("vector out of range 1..%d", NumVectors)}
	}
	o.vectors[vector] = nil
	return nil
}

// InstallDefaults binds the default handler to every vector.
func (o *Observatory) InstallDefaults() {
	for c := Cause(1); int(c) <= NumVectors; c++ {
		o.vectors[c] = Default
	}
}

// Installed reports whether vector has a handler other than the debug
// fallback.
func (o *Observatory) Installed(vector Cause) bool {
	return vector.Valid() && o.vectors[vector] != nil
}

// Arm clears the record and mcause before a stimulus.
func (o *Observatory) Arm() {
	o.rec = Record{}
	o.h.WriteCSR(hart.CSRMcause, 0)
}

// Read returns the record captured since the last Arm.
func (o *Observatory) Read() Record { return o.rec }

// Mute runs fn with recording suspended. Traps still dispatch and still
// return to machine mode.
func (o *Observatory) Mute(fn func()) {
	o.muted = true
	defer func() { o.muted = false }()
	fn()
}

// Unknown returns the number of traps whose mcause could not be decoded.
func (o *Observatory) Unknown() int { return o.unknown }

// enter is the hart's trap entry.
func (o *Observatory) enter() {
	mcause := o.h.ReadCSR(hart.CSRMcause)
	mtval := o.h.ReadCSR(hart.CSRMtval)
	mstatus := o.h.ReadCSR(hart.CSRMstatus)

	cause, ok := FromMcause(mcause)
	if !ok {
		o.unknown++
		o.logger.Warn("unknown trap cause", "mcause", hex32(mcause))
	}

	if !o.muted {
		o.rec = Record{
			Cause:    cause,
			Mcause:   mcause,
			Aux:      mtval,
			Occurred: true,
			FromMode: hart.Mode(mstatus >> hart.MstatusMPPShift & 3),
			Count:    o.rec.Count + 1,
		}
	}

	switch {
	case !ok:
		o.debug(mcause, mtval)
	case o.vectors[cause] == nil:
		o.debug(mcause, mtval)
	default:
		o.vectors[cause](o.rec)
	}

	// Resume at the supervising level whatever the trap left in MPP.
	o.h.SetCSR(hart.CSRMstatus, hart.MstatusMPP)
}

// debug is the fallback for uninstalled vectors: it only reports the trap.
func (o *Observatory) debug(mcause, mtval uint32) {
	cause, _ := FromMcause(mcause)
	o.logger.Info("trap on uninstalled vector",
		"cause", cause.String(),
		"mcause", hex32(mcause),
		"mepc", hex32(o.h.ReadCSR(hart.CSRMepc)),
		"mtval", hex32(mtval))
}

func hex32(v uint32) string { return fmt.Sprintf("0x%08x", v) }
