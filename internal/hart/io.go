package hart

// Memory map of the processor under test.
const (
	IMEMBase   uint32 = 0x00000000
	DMEMBase   uint32 = 0x80000000
	ExtMemBase uint32 = 0xF0000000
	IOBase     uint32 = 0xFFFFFE00

	// AddrUnaligned is reachable but not word aligned.
	AddrUnaligned uint32 = 0x00000002
	// AddrUnreachable is word aligned and decoded by nothing.
	AddrUnreachable uint32 = IOBase - 4

	// SimIRQ is the testbench side channel that drives interrupt lines. It is
	// only mapped in simulation.
	SimIRQ uint32 = 0xFF000000
)

// I/O registers.
const (
	CFSBase uint32 = 0xFFFFFE00
	CFSSize uint32 = 0x80

	SLINKCT     uint32 = 0xFFFFFEC0
	SLINKStatus uint32 = 0xFFFFFED0
	SLINKData0  uint32 = 0xFFFFFEE0

	XIRQIER uint32 = 0xFFFFFF80
	XIRQIPR uint32 = 0xFFFFFF84
	XIRQSCR uint32 = 0xFFFFFF88

	MTIMELo    uint32 = 0xFFFFFF90
	MTIMEHi    uint32 = 0xFFFFFF94
	MTIMECmpLo uint32 = 0xFFFFFF98
	MTIMECmpHi uint32 = 0xFFFFFF9C

	UART0CT    uint32 = 0xFFFFFFA0
	UART0Data  uint32 = 0xFFFFFFA4
	SPICT      uint32 = 0xFFFFFFA8
	SPIData    uint32 = 0xFFFFFFAC
	TWICT      uint32 = 0xFFFFFFB0
	TWIData    uint32 = 0xFFFFFFB4
	WDTCT      uint32 = 0xFFFFFFBC
	GPIOIn     uint32 = 0xFFFFFFC0
	GPIOOut    uint32 = 0xFFFFFFC8
	UART1CT    uint32 = 0xFFFFFFD0
	UART1Data  uint32 = 0xFFFFFFD4
	NEOLEDCT   uint32 = 0xFFFFFFD8
	NEOLEDData uint32 = 0xFFFFFFDC

	SysinfoClk        uint32 = 0xFFFFFFE0
	SysinfoFeatures   uint32 = 0xFFFFFFE4
	SysinfoISpaceBase uint32 = 0xFFFFFFF0
	SysinfoDSpaceBase uint32 = 0xFFFFFFF4
	SysinfoDMEMSize   uint32 = 0xFFFFFFF8
)

// SYSINFO feature flags.
const (
	FeatureExtMem uint32 = 1 << 1
	FeatureUART0  uint32 = 1 << 16
	FeatureSPI    uint32 = 1 << 17
	FeatureTWI    uint32 = 1 << 18
	FeatureWDT    uint32 = 1 << 20
	FeatureCFS    uint32 = 1 << 23
	FeatureSLINK  uint32 = 1 << 24
	FeatureUART1  uint32 = 1 << 25
	FeatureNEOLED uint32 = 1 << 26
	FeatureXIRQ   uint32 = 1 << 27
)

// Simulation side-channel lines. Bits follow the mie layout; bit 0 is the
// non-maskable interrupt.
const (
	SimLineNMI uint32 = 1 << 0
	SimLineMSI uint32 = MieMSIE
	SimLineMEI uint32 = MieMEIE
)

// Peripheral control bits.
const (
	UARTCtSimMode uint32 = 1 << 12
	UARTCtEnable  uint32 = 1 << 28
	UARTCtTxBusy  uint32 = 1 << 31

	SPICtEnable uint32 = 1 << 0
	SPICtBusy   uint32 = 1 << 31

	TWICtEnable uint32 = 1 << 0
	TWICtStart  uint32 = 1 << 1
	TWICtStop   uint32 = 1 << 2
	TWICtBusy   uint32 = 1 << 31

	WDTCtEnable    uint32 = 1 << 0
	WDTCtPrscShift        = 1
	WDTCtModeReset uint32 = 1 << 4
	WDTCtForce     uint32 = 1 << 7
	WDTCtLock      uint32 = 1 << 8

	NEOLEDCtEnable uint32 = 1 << 0
	NEOLEDCtBusy   uint32 = 1 << 31

	SLINKCtEnable      uint32 = 1 << 31
	SLINKStatusRX0     uint32 = 1 << 0
	SLINKStatusTX0Free uint32 = 1 << 8
)

// FIRQ channel assignment.
const (
	FIRQWDT     = 0
	FIRQCFS     = 1
	FIRQUART0RX = 2
	FIRQUART0TX = 3
	FIRQUART1RX = 4
	FIRQUART1TX = 5
	FIRQSPI     = 6
	FIRQTWI     = 7
	FIRQXIRQ    = 8
	FIRQNEOLED  = 9
	FIRQSLINKRX = 10
	FIRQSLINKTX = 11
)

// NumXIRQ is the number of external interrupt controller channels.
const NumXIRQ = 32
