package hart

// CauseInterrupt is the mcause interrupt flag on RV32.
const CauseInterrupt uint32 = 1 << 31

// RV32 mcause values.
const (
	CauseInsnMisaligned  uint32 = 0
	CauseInsnAccess      uint32 = 1
	CauseIllegal         uint32 = 2
	CauseBreakpoint      uint32 = 3
	CauseLoadMisaligned  uint32 = 4
	CauseLoadAccess      uint32 = 5
	CauseStoreMisaligned uint32 = 6
	CauseStoreAccess     uint32 = 7
	CauseEcallU          uint32 = 8
	CauseEcallM          uint32 = 11

	CauseNMI uint32 = CauseInterrupt | 0
	CauseMSI uint32 = CauseInterrupt | 3
	CauseMTI uint32 = CauseInterrupt | 7
	CauseMEI uint32 = CauseInterrupt | 11
)

// CauseFIRQ returns the mcause of fast interrupt channel n.
func CauseFIRQ(n int) uint32 { return CauseInterrupt | uint32(16+n) }
