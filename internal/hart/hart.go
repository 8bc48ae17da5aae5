package hart

// Mode is a RISC-V privilege level.
type Mode uint8

// Privilege levels.
const (
	User    Mode = 0
	Machine Mode = 3
)

func (m Mode) String() string {
	switch m {
	case User:
		return "user"
	case Machine:
		return "machine"
	default:
		return "reserved"
	}
}

// Hart is the opaque instruction-level API of the processor under test.
//
// Every method models a single instruction (Nop models n of them). Faulting
// instructions do not return errors: the hart takes the trap, runs the entry
// installed via SetTrapEntry in machine mode and resumes after the faulting
// instruction. Reads that fault return 0.
type Hart interface {
	// ReadCSR is csrr rd, csr.
	ReadCSR(csr CSR) uint32
	// WriteCSR is csrw csr, rs1.
	WriteCSR(csr CSR, v uint32)
	// SetCSR is csrrs rd, csr, rs1. A zero mask models rs1 = x0, which reads
	// without attempting a write.
	SetCSR(csr CSR, mask uint32) uint32
	// ClearCSR is csrrc rd, csr, rs1. A zero mask models rs1 = x0.
	ClearCSR(csr CSR, mask uint32) uint32

	// Load is lw.
	Load(addr uint32) uint32
	// Store is sw.
	Store(addr, v uint32)
	// LoadReserved is lr.w.
	LoadReserved(addr uint32) uint32
	// StoreConditional is sc.w and returns 0 on success.
	StoreConditional(addr, v uint32) uint32

	// Exec executes one raw 32-bit instruction word in place.
	Exec(insn uint32)
	// Call is jalr ra, addr: code at addr runs until it returns or traps.
	Call(addr uint32)
	// Nop idles for n instructions so pending interrupts can propagate.
	Nop(n int)

	// EnterUser drops to user mode (mstatus.MPP = U, mret). Harts without
	// user mode stay in machine mode.
	EnterUser()
	// Mode reports the current privilege level.
	Mode() Mode

	// SetTrapEntry installs the single trap entry point (mtvec).
	SetTrapEntry(entry func())
}
