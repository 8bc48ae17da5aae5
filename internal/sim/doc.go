// Package sim is a behavioural model of a small RV32 machine/user hart with
// the peripherals the processor check talks to. It implements hart.Hart so the
// check can run end to end without hardware.
//
// The model is instruction granular, not cycle accurate: every shim call is
// one instruction, counters advance by a fixed CPI before it executes, and
// pending interrupts are taken at instruction boundaries. Peripherals finish
// their transfers after a fixed number of instructions.
//
// Faults switches deliberately break one architectural rule each so that the
// check's negative assertions can be exercised.
package sim
