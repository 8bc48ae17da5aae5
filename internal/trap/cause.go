package trap

import (
	"fmt"

	"github.com/roach88/hartcheck/internal/hart"
)

// Cause identifies which trap occurred. Exactly one value is active at a
// time; None is the armed state.
type Cause int

// Trap causes. The numbering doubles as the vector identifier.
const (
	None Cause = iota
	InsnMisaligned
	InsnAccess
	Illegal
	Breakpoint
	LoadMisaligned
	LoadAccess
	StoreMisaligned
	StoreAccess
	EcallM
	EcallU
	MSI
	MTI
	MEI
	NMI
	FIRQ0
)

// NumVectors is the number of installable vectors (every cause but None).
const NumVectors = int(FIRQ0) - 1 + hart.NumFIRQ

// FIRQ returns the cause of fast interrupt channel n.
func FIRQ(n int) Cause { return FIRQ0 + Cause(n) }

var causeNames = map[Cause]string{
	None:            "none",
	InsnMisaligned:  "instruction misaligned",
	InsnAccess:      "instruction access fault",
	Illegal:         "illegal instruction",
	Breakpoint:      "breakpoint",
	LoadMisaligned:  "load misaligned",
	LoadAccess:      "load access fault",
	StoreMisaligned: "store misaligned",
	StoreAccess:     "store access fault",
	EcallM:          "environment call from M-mode",
	EcallU:          "environment call from U-mode",
	MSI:             "machine software interrupt",
	MTI:             "machine timer interrupt",
	MEI:             "machine external interrupt",
	NMI:             "non-maskable interrupt",
}

func (c Cause) String() string {
	if c >= FIRQ0 && c < FIRQ0+hart.NumFIRQ {
		return fmt.Sprintf("fast interrupt %d", int(c-FIRQ0))
	}
	if name, ok := causeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("cause(%d)", int(c))
}

// Valid reports whether c names an installable vector.
func (c Cause) Valid() bool {
	return c > None && int(c) <= NumVectors
}

var rawCauses = map[uint32]Cause{
	hart.CauseInsnMisaligned:  InsnMisaligned,
	hart.CauseInsnAccess:      InsnAccess,
	hart.CauseIllegal:         Illegal,
	hart.CauseBreakpoint:      Breakpoint,
	hart.CauseLoadMisaligned:  LoadMisaligned,
	hart.CauseLoadAccess:      LoadAccess,
	hart.CauseStoreMisaligned: StoreMisaligned,
	hart.CauseStoreAccess:     StoreAccess,
	hart.CauseEcallM:          EcallM,
	hart.CauseEcallU:          EcallU,
	hart.CauseMSI:             MSI,
	hart.CauseMTI:             MTI,
	hart.CauseMEI:             MEI,
	hart.CauseNMI:             NMI,
}

// FromMcause decodes an mcause value. Unknown codes report false.
func FromMcause(raw uint32) (Cause, bool) {
	if c, ok := rawCauses[raw]; ok {
		return c, true
	}
	if raw&hart.CauseInterrupt != 0 {
		if n := int(raw &^ hart.CauseInterrupt) - 16; n >= 0 && n < hart.NumFIRQ {
			return FIRQ(n), true
		}
	}
	return None, false
}

// Mcause returns the architectural code of c.
func (c Cause) Mcause() uint32 {
	if c >= FIRQ0 && c < FIRQ0+hart.NumFIRQ {
		return hart.CauseFIRQ(int(c - FIRQ0))
	}
	for raw, cause := range rawCauses {
		if cause == c {
			return raw
		}
	}
	return 0
}
