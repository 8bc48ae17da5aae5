// Package harness runs an ordered catalog of compliance cases against a hart
// and keeps the ledger.
//
// # Case Lifecycle
//
// Every case moves through a fixed state machine:
//
//	Pending -> Applicable? -> Skipped
//	                       -> Running -> Passed | Failed
//
// Skipped, Passed and Failed are terminal and no case re-enters Running. A
// case is Skipped when its applicability predicate rejects the capability
// set; skipped cases do not count towards the ledger total.
//
// Running a case means, in order:
//
//  1. Setup (optional)
//  2. Arm the trap observatory so the record starts at "none"
//  3. Stimulus, which may fill in observed values
//  4. Read the trap record into the observation
//  5. Assert against the observation
//  6. Cleanup (optional, always runs once the case started)
//
// # Failures
//
// An assertion mismatch marks the case Failed and the runner moves on to the
// next case; a run never stops early because of a failed case. The only
// exception is an UnrecoverableError: when a stimulus cannot be issued at all
// the device under test is no longer trusted and the run aborts.
//
// # Output
//
// The runner writes one line per case and a two-line summary:
//
//	[1] cycle carry: ok
//	[2] cfs firq: skipped (n.a.)
//	[3] pmp read: FAIL
//	    value: expected 0x00000000, got 0xcafecafe
//	PASS: 1/2
//	FAIL: 1/2
//
// The failed count is the process exit status of a run.
package harness
