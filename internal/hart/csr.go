package hart

import "fmt"

// CSR is a 12-bit control and status register number.
type CSR uint16

// Machine-level CSRs.
const (
	CSRMstatus       CSR = 0x300
	CSRMisa          CSR = 0x301
	CSRMie           CSR = 0x304
	CSRMtvec         CSR = 0x305
	CSRMcounteren    CSR = 0x306
	CSRMcountinhibit CSR = 0x320
	CSRMhpmevent3    CSR = 0x323
	CSRMscratch      CSR = 0x340
	CSRMepc          CSR = 0x341
	CSRMcause        CSR = 0x342
	CSRMtval         CSR = 0x343
	CSRMip           CSR = 0x344
	CSRPmpcfg0       CSR = 0x3A0
	CSRPmpaddr0      CSR = 0x3B0
	CSRMcycle        CSR = 0xB00
	CSRMinstret      CSR = 0xB02
	CSRMhpmcounter3  CSR = 0xB03
	CSRMcycleh       CSR = 0xB80
	CSRMinstreth     CSR = 0xB82
	CSRMhpmcounter3h CSR = 0xB83
	CSRMvendorid     CSR = 0xF11
	CSRMarchid       CSR = 0xF12
	CSRMimpid        CSR = 0xF13
	CSRMhartid       CSR = 0xF14
)

// User-level counter aliases.
const (
	CSRCycle    CSR = 0xC00
	CSRTime     CSR = 0xC01
	CSRInstret  CSR = 0xC02
	CSRCycleh   CSR = 0xC80
	CSRTimeh    CSR = 0xC81
	CSRInstreth CSR = 0xC82
)

// CSRUnimplemented is guaranteed not to exist on the processor under test.
const CSRUnimplemented CSR = 0xFFF

// Number of PMP entries addressable through pmpcfg0..3 / pmpaddr0..15.
const PMPMaxRegions = 16

// Number of programmable HPM counters (mhpmcounter3..31).
const HPMMaxCounters = 29

// Pmpcfg returns pmpcfgN.
func Pmpcfg(n int) CSR { return CSRPmpcfg0 + CSR(n) }

// Pmpaddr returns pmpaddrN.
func Pmpaddr(n int) CSR { return CSRPmpaddr0 + CSR(n) }

// Mhpmcounter returns mhpmcounterN for N in 3..31.
func Mhpmcounter(n int) CSR { return CSRMhpmcounter3 + CSR(n-3) }

// Mhpmcounterh returns mhpmcounterNh for N in 3..31.
func Mhpmcounterh(n int) CSR { return CSRMhpmcounter3h + CSR(n-3) }

// Mhpmevent returns mhpmeventN for N in 3..31.
func Mhpmevent(n int) CSR { return CSRMhpmevent3 + CSR(n-3) }

// Privilege returns the lowest privilege allowed to access the CSR.
func (c CSR) Privilege() Mode { return Mode((c >> 8) & 3) }

// ReadOnly reports whether the CSR number lies in a read-only range.
func (c CSR) ReadOnly() bool { return c>>10 == 3 }

func (c CSR) String() string {
	if name, ok := csrNames[c]; ok {
		return name
	}
	return fmt.Sprintf("csr 0x%03x", uint16(c))
}

var csrNames = map[CSR]string{
	CSRMstatus:       "mstatus",
	CSRMisa:          "misa",
	CSRMie:           "mie",
	CSRMtvec:         "mtvec",
	CSRMcounteren:    "mcounteren",
	CSRMcountinhibit: "mcountinhibit",
	CSRMscratch:      "mscratch",
	CSRMepc:          "mepc",
	CSRMcause:        "mcause",
	CSRMtval:         "mtval",
	CSRMip:           "mip",
	CSRMcycle:        "mcycle",
	CSRMinstret:      "minstret",
	CSRMcycleh:       "mcycleh",
	CSRMinstreth:     "minstreth",
	CSRCycle:         "cycle",
	CSRTime:          "time",
	CSRInstret:       "instret",
	CSRCycleh:        "cycleh",
	CSRTimeh:         "timeh",
	CSRInstreth:      "instreth",
}

// mstatus fields.
const (
	MstatusMIE      uint32 = 1 << 3
	MstatusMPIE     uint32 = 1 << 7
	MstatusMPPShift        = 11
	MstatusMPP      uint32 = 3 << MstatusMPPShift
	MstatusTW       uint32 = 1 << 21
)

// mie / mip bits. Fast interrupt channel n uses bit 16+n.
const (
	MieMSIE   uint32 = 1 << 3
	MieMTIE   uint32 = 1 << 7
	MieMEIE   uint32 = 1 << 11
	MieFIRQ0E        = 16
)

// NumFIRQ is the number of fast interrupt channels.
const NumFIRQ = 16

// FIRQEnable returns the mie bit of fast interrupt channel n.
func FIRQEnable(n int) uint32 { return 1 << (MieFIRQ0E + n) }

// misa extension bits.
const (
	MisaA     uint32 = 1 << 0
	MisaC     uint32 = 1 << 2
	MisaI     uint32 = 1 << 8
	MisaM     uint32 = 1 << 12
	MisaU     uint32 = 1 << 20
	MisaMXL32 uint32 = 1 << 30
)

// mcounteren and mcountinhibit bits.
const (
	CounterCY uint32 = 1 << 0
	CounterTM uint32 = 1 << 1
	CounterIR uint32 = 1 << 2
)

// HPM event selectors (mhpmeventN bit positions).
const (
	HPMEventCY = iota
	_
	HPMEventIR
	HPMEventCIR
	HPMEventWaitIF
	HPMEventWaitII
	HPMEventWaitMC
	HPMEventLoad
	HPMEventStore
	HPMEventWaitLS
	HPMEventJump
	HPMEventBranch
	HPMEventTBranch
	HPMEventTrap
	HPMEventIllegal
)

// PMP configuration byte fields.
const (
	PMPRead      uint8 = 1 << 0
	PMPWrite     uint8 = 1 << 1
	PMPExec      uint8 = 1 << 2
	PMPModeOff   uint8 = 0 << 3
	PMPModeTOR   uint8 = 1 << 3
	PMPModeNA4   uint8 = 2 << 3
	PMPModeNAPOT uint8 = 3 << 3
	PMPModeMask  uint8 = 3 << 3
	PMPLock      uint8 = 1 << 7
)
