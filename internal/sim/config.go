package sim

import "github.com/roach88/hartcheck/internal/hart"

// Config describes the device build.
type Config struct {
	// ISA extensions.
	Compressed bool
	User       bool
	Atomic     bool

	// HPMCounters is the number of implemented mhpmcounter3.. registers.
	HPMCounters int

	// PMPRegions is the number of implemented PMP entries and
	// PMPGranularity the minimal region size in bytes.
	PMPRegions     int
	PMPGranularity uint32

	// ExtMem maps external memory at hart.ExtMemBase.
	ExtMem bool

	// Testbench maps the simulation IRQ side channel at hart.SimIRQ.
	Testbench bool

	Peripherals Peripherals

	// CPI is the number of clock cycles every instruction accounts for.
	CPI uint32

	// Latency is the number of instructions a peripheral transfer takes.
	Latency int

	Faults Faults
}

// Peripherals selects the optional I/O devices.
type Peripherals struct {
	WDT    bool
	CFS    bool
	UART0  bool
	UART1  bool
	SPI    bool
	TWI    bool
	XIRQ   bool
	NEOLED bool
	SLINK  bool
}

// Faults breaks architectural rules on purpose.
type Faults struct {
	// LeakOnFault returns the real data for loads and CSR reads that trap.
	LeakOnFault bool
	// KeepReservationOnStore keeps an LR reservation across a plain store.
	KeepReservationOnStore bool
	// KeepReservationOnTrap keeps an LR reservation across trap entry.
	KeepReservationOnTrap bool
	// IgnorePMPLock lets locked PMP entries be rewritten.
	IgnorePMPLock bool
	// ReverseXIRQPriority serves the highest pending XIRQ channel first.
	ReverseXIRQPriority bool
	// DropNMI ignores the non-maskable interrupt line.
	DropNMI bool
	// IgnoreCounteren lets user mode read counters regardless of mcounteren.
	IgnoreCounteren bool
	// WrongPreviousMode records machine mode in mstatus.MPP for every trap.
	WrongPreviousMode bool
}

// Sizes of the internal memories.
const (
	IMEMSize   uint32 = 32 * 1024
	DMEMSize   uint32 = 16 * 1024
	ExtMemSize uint32 = 64 * 1024
)

// DefaultConfig returns a fully featured device without faults.
func DefaultConfig() Config {
	return Config{
		Compressed:     true,
		User:           true,
		Atomic:         true,
		HPMCounters:    12,
		PMPRegions:     8,
		PMPGranularity: 64,
		ExtMem:         true,
		Testbench:      true,
		Peripherals: Peripherals{
			WDT:    true,
			CFS:    false,
			UART0:  true,
			UART1:  true,
			SPI:    true,
			TWI:    true,
			XIRQ:   true,
			NEOLED: true,
			SLINK:  true,
		},
		CPI:     4,
		Latency: 8,
	}
}

func (c Config) features() uint32 {
	var f uint32
	set := func(on bool, bit uint32) {
		if on {
			f |= bit
		}
	}
	set(c.ExtMem, hart.FeatureExtMem)
	set(c.Peripherals.UART0, hart.FeatureUART0)
	set(c.Peripherals.SPI, hart.FeatureSPI)
	set(c.Peripherals.TWI, hart.FeatureTWI)
	set(c.Peripherals.WDT, hart.FeatureWDT)
	set(c.Peripherals.CFS, hart.FeatureCFS)
	set(c.Peripherals.SLINK, hart.FeatureSLINK)
	set(c.Peripherals.UART1, hart.FeatureUART1)
	set(c.Peripherals.NEOLED, hart.FeatureNEOLED)
	set(c.Peripherals.XIRQ, hart.FeatureXIRQ)
	return f
}

func (c Config) misa() uint32 {
	v := hart.MisaMXL32 | hart.MisaI | hart.MisaM
	if c.Compressed {
		v |= hart.MisaC
	}
	if c.User {
		v |= hart.MisaU
	}
	if c.Atomic {
		v |= hart.MisaA
	}
	return v
}
