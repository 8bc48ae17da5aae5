// Package trap implements the trap observatory: the single entry point that
// the hart enters on every exception and interrupt.
//
// On entry the observatory captures mcause, mtval and the privilege level the
// trap was taken from into a Record, dispatches to the handler installed for
// the decoded vector and finally forces mstatus.MPP back to machine mode so
// the runner always resumes at the supervising privilege level.
//
// Handlers run on the hart's implicit control transfer. They must not block
// and must not provoke secondary traps; the hart ignores nested traps.
//
// Typical use:
//
//	obs := trap.New(h, logger)
//	obs.InstallDefaults()
//	obs.Arm()
//	h.Exec(hart.InsnEBREAK)
//	rec := obs.Read() // rec.Cause == trap.Breakpoint
package trap
