// Package hart defines the register and privilege access contract that the
// compliance engine drives.
//
// A Hart executes one instruction-level stimulus per method call: CSR
// accesses, loads and stores, reservation pairs, raw instruction words, calls
// into memory and idle cycles. Traps are never reported through return values.
// The hart delivers them to the entry installed with SetTrapEntry, exactly as
// real hardware transfers control to mtvec, and the engine observes them there.
//
// The package also carries the architectural constants the engine needs:
// CSR numbers, mstatus/mie/mcounteren bits, RV32 cause codes, raw instruction
// encodings and the I/O address map of the processor under test.
package hart
