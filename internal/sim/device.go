package sim

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/hartcheck/internal/hart"
)

// runnerBase is where the synthetic program counter of shim instructions
// starts. It only shows up in mepc.
const runnerBase uint32 = 0x00000200

// wfiLimit bounds how many instructions a WFI may sleep.
const wfiLimit = 1 << 20

// callLimit bounds how many instructions called code may execute.
const callLimit = 4096

// exception is a synchronous trap raised while executing an instruction.
type exception struct {
	cause uint32
	tval  uint32
}

func (e *exception) Error() string {
	return fmt.Sprintf("exception: cause=%d tval=0x%08x", e.cause, e.tval)
}

func raise(cause, tval uint32) *exception {
	return &exception{cause: cause, tval: tval}
}

// Device is the reference hart. It is not safe for concurrent use; the hart
// model is single threaded like the hardware it stands in for.
type Device struct {
	cfg    Config
	logger *slog.Logger

	priv hart.Mode
	pc   uint32
	regs [32]uint32

	mstatus       uint32
	mie           uint32
	mtvec         uint32
	mscratch      uint32
	mepc          uint32
	mcause        uint32
	mtval         uint32
	mcounteren    uint32
	mcountinhibit uint32

	cycle      uint64
	instret    uint64
	hpmCounter [hart.HPMMaxCounters]uint64
	hpmEvent   [hart.HPMMaxCounters]uint32

	// pending holds the edge-latched interrupt lines in mip layout.
	pending uint32
	nmi     bool

	pmpcfg  [hart.PMPMaxRegions]uint8
	pmpaddr [hart.PMPMaxRegions]uint32

	imem   []byte
	dmem   []byte
	extmem []byte

	resValid bool
	resAddr  uint32

	io *peripherals

	entry  func()
	inTrap bool
}

// New returns a device in its reset state. A nil logger discards output.
func New(cfg Config, logger *slog.Logger) *Device {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.CPI == 0 {
		cfg.CPI = 1
	}
	if cfg.Latency <= 0 {
		cfg.Latency = 1
	}
	if cfg.HPMCounters > hart.HPMMaxCounters {
		cfg.HPMCounters = hart.HPMMaxCounters
	}
	if cfg.PMPRegions > hart.PMPMaxRegions {
		cfg.PMPRegions = hart.PMPMaxRegions
	}

	d := &Device{
		cfg:    cfg,
		logger: logger,
		imem:   make([]byte, IMEMSize),
		dmem:   make([]byte, DMEMSize),
	}
	if cfg.ExtMem {
		d.extmem = make([]byte, ExtMemSize)
	}
	d.io = newPeripherals(d)
	d.Reset()
	return d
}

// Reset puts the hart and its peripherals back into the reset state. Memory
// contents survive, like on the real part.
func (d *Device) Reset() {
	d.priv = hart.Machine
	d.pc = runnerBase
	d.regs = [32]uint32{}
	d.mstatus = uint32(hart.Machine) << hart.MstatusMPPShift
	d.mie = 0
	d.mtvec = 0
	d.mscratch = 0
	d.mepc = 0
	d.mcause = 0
	d.mtval = 0
	d.mcounteren = 0
	d.mcountinhibit = 0
	d.cycle = 0
	d.instret = 0
	d.hpmCounter = [hart.HPMMaxCounters]uint64{}
	d.hpmEvent = [hart.HPMMaxCounters]uint32{}
	d.pending = 0
	d.nmi = false
	d.pmpcfg = [hart.PMPMaxRegions]uint8{}
	d.pmpaddr = [hart.PMPMaxRegions]uint32{}
	d.resValid = false
	d.inTrap = false
	d.io.reset()
}

// Config returns the build the device was created with.
func (d *Device) Config() Config { return d.cfg }

// Console returns everything written to a UART in simulation mode.
func (d *Device) Console() string { return d.io.console.String() }

// Cycles returns the raw cycle counter.
func (d *Device) Cycles() uint64 { return d.cycle }

// SetTrapEntry installs the trap entry point.
func (d *Device) SetTrapEntry(entry func()) { d.entry = entry }

// Mode reports the current privilege level.
func (d *Device) Mode() hart.Mode { return d.priv }

// ReadCSR implements hart.Hart.
func (d *Device) ReadCSR(csr hart.CSR) uint32 {
	var v uint32
	d.instruction(func() *exception {
		insn := hart.EncodeCSR(hart.Funct3CSRRS, csr, 0, 10)
		var err *exception
		v, err = d.csrOp(insn, csr, hart.Funct3CSRRS, 0, false)
		return err
	})
	return v
}

// WriteCSR implements hart.Hart.
func (d *Device) WriteCSR(csr hart.CSR, v uint32) {
	d.instruction(func() *exception {
		insn := hart.EncodeCSR(hart.Funct3CSRRW, csr, 11, 0)
		_, err := d.csrOp(insn, csr, hart.Funct3CSRRW, v, true)
		return err
	})
}

// SetCSR implements hart.Hart.
func (d *Device) SetCSR(csr hart.CSR, mask uint32) uint32 {
	return d.modifyCSR(hart.Funct3CSRRS, csr, mask)
}

// ClearCSR implements hart.Hart.
func (d *Device) ClearCSR(csr hart.CSR, mask uint32) uint32 {
	return d.modifyCSR(hart.Funct3CSRRC, csr, mask)
}

func (d *Device) modifyCSR(funct3 int, csr hart.CSR, mask uint32) uint32 {
	var v uint32
	d.instruction(func() *exception {
		rs1 := uint32(11)
		if mask == 0 {
			rs1 = 0
		}
		insn := hart.EncodeCSR(funct3, csr, rs1, 10)
		var err *exception
		v, err = d.csrOp(insn, csr, funct3, mask, mask != 0)
		return err
	})
	return v
}

// Load implements hart.Hart.
func (d *Device) Load(addr uint32) uint32 {
	var v uint32
	d.instruction(func() *exception {
		var err *exception
		v, err = d.load(addr)
		return err
	})
	return v
}

// Store implements hart.Hart.
func (d *Device) Store(addr, v uint32) {
	d.instruction(func() *exception {
		if err := d.store(addr, v); err != nil {
			return err
		}
		if d.resValid && d.resAddr == addr && !d.cfg.Faults.KeepReservationOnStore {
			d.resValid = false
		}
		return nil
	})
}

// LoadReserved implements hart.Hart.
func (d *Device) LoadReserved(addr uint32) uint32 {
	var v uint32
	d.instruction(func() *exception {
		if !d.cfg.Atomic {
			return raise(hart.CauseIllegal, hart.InsnLRW)
		}
		var err *exception
		if v, err = d.load(addr); err != nil {
			return err
		}
		d.resValid = true
		d.resAddr = addr
		return nil
	})
	return v
}

// StoreConditional implements hart.Hart.
func (d *Device) StoreConditional(addr, v uint32) uint32 {
	status := uint32(1)
	d.instruction(func() *exception {
		if !d.cfg.Atomic {
			return raise(hart.CauseIllegal, hart.InsnSCW)
		}
		if addr&3 != 0 {
			return raise(hart.CauseStoreMisaligned, addr)
		}
		valid := d.resValid && d.resAddr == addr
		d.resValid = false
		if !valid {
			return nil
		}
		if err := d.store(addr, v); err != nil {
			return err
		}
		status = 0
		return nil
	})
	return status
}

// Exec implements hart.Hart.
func (d *Device) Exec(insn uint32) {
	d.instruction(func() *exception {
		_, err := d.execute(insn)
		return err
	})
}

// Nop implements hart.Hart.
func (d *Device) Nop(n int) {
	for i := 0; i < n; i++ {
		d.instruction(func() *exception { return nil })
	}
}

// EnterUser implements hart.Hart. Interrupt enables are left untouched.
func (d *Device) EnterUser() {
	d.instruction(func() *exception {
		if !d.cfg.User {
			return nil
		}
		d.mstatus &^= hart.MstatusMPP
		d.priv = hart.User
		return nil
	})
}

// Call implements hart.Hart.
func (d *Device) Call(addr uint32) {
	d.instruction(func() *exception {
		d.event(hart.HPMEventJump)
		return nil
	})
	d.run(addr)
}

// instruction executes one shim instruction: counters advance, the body
// runs, a synchronous trap is taken if it raised one, and finally a pending
// interrupt is taken at the instruction boundary.
func (d *Device) instruction(body func() *exception) {
	d.advance(d.pc)
	if err := body(); err != nil {
		d.trap(err.cause, err.tval)
	}
	d.pc += 4
	if d.pc >= runnerBase+0x1000 {
		d.pc = runnerBase
	}
	d.interrupt()
}

// advance accounts one instruction at pc.
func (d *Device) advance(pc uint32) {
	cpi := uint64(d.cfg.CPI)
	if d.mcountinhibit&hart.CounterCY == 0 {
		d.cycle += cpi
	}
	if d.mcountinhibit&hart.CounterIR == 0 {
		d.instret++
	}
	for i := 0; i < d.cfg.HPMCounters; i++ {
		if d.mcountinhibit&(1<<(3+i)) != 0 {
			continue
		}
		ev := d.hpmEvent[i]
		if ev&(1<<hart.HPMEventCY) != 0 {
			d.hpmCounter[i] += cpi
		}
		if ev&(1<<hart.HPMEventIR) != 0 {
			d.hpmCounter[i]++
		}
	}
	d.pc = pc
	d.io.tick(d.cfg.CPI)
}

// event counts one occurrence of an HPM event.
func (d *Device) event(e int) {
	for i := 0; i < d.cfg.HPMCounters; i++ {
		if d.mcountinhibit&(1<<(3+i)) == 0 && d.hpmEvent[i]&(1<<e) != 0 {
			d.hpmCounter[i]++
		}
	}
}

// raiseIRQ latches an interrupt line given as its mip bit.
func (d *Device) raiseIRQ(bit uint32) {
	d.pending |= bit
}

func (d *Device) mip() uint32 {
	p := d.pending
	if d.io.xirq.level() {
		p |= hart.FIRQEnable(hart.FIRQXIRQ)
	}
	return p
}

// interruptOrder is the priority of the standard and fast interrupt lines.
var interruptOrder = func() []uint32 {
	order := []uint32{11, 3, 7}
	for n := 0; n < hart.NumFIRQ; n++ {
		order = append(order, uint32(hart.MieFIRQ0E+n))
	}
	return order
}()

// interrupt takes the highest priority pending interrupt, if any.
func (d *Device) interrupt() {
	if d.inTrap {
		return
	}
	if d.nmi {
		d.nmi = false
		d.trap(hart.CauseNMI, 0)
		return
	}
	if d.priv == hart.Machine && d.mstatus&hart.MstatusMIE == 0 {
		return
	}
	active := d.mip() & d.mie
	if active == 0 {
		return
	}
	for _, bit := range interruptOrder {
		if active&(1<<bit) == 0 {
			continue
		}
		d.pending &^= 1 << bit
		d.trap(hart.CauseInterrupt|bit, 0)
		return
	}
}

// wakeup reports whether a sleeping hart has a reason to resume.
func (d *Device) wakeup() bool {
	return d.nmi || d.mip()&d.mie != 0
}

// trap enters machine mode, runs the installed entry and returns with mret.
func (d *Device) trap(cause, tval uint32) {
	if d.inTrap {
		d.logger.Warn("trap inside trap handler ignored", "mcause", hex32(cause), "mtval", hex32(tval))
		return
	}

	d.mepc = d.pc
	d.mcause = cause
	d.mtval = tval

	if d.mstatus&hart.MstatusMIE != 0 {
		d.mstatus |= hart.MstatusMPIE
	} else {
		d.mstatus &^= hart.MstatusMPIE
	}
	d.mstatus &^= hart.MstatusMIE

	prev := d.priv
	if d.cfg.Faults.WrongPreviousMode {
		prev = hart.Machine
	}
	d.mstatus &^= hart.MstatusMPP
	d.mstatus |= uint32(prev) << hart.MstatusMPPShift
	d.priv = hart.Machine

	if !d.cfg.Faults.KeepReservationOnTrap {
		d.resValid = false
	}
	d.event(hart.HPMEventTrap)
	if cause == hart.CauseIllegal {
		d.event(hart.HPMEventIllegal)
	}

	d.logger.Debug("trap", "mcause", hex32(cause), "mepc", hex32(d.mepc), "mtval", hex32(tval))

	d.inTrap = true
	if d.entry != nil {
		d.entry()
	}
	d.inTrap = false
	d.mret()
}

// mret returns from a trap to the privilege level held in mstatus.MPP.
func (d *Device) mret() {
	mpp := hart.Mode((d.mstatus & hart.MstatusMPP) >> hart.MstatusMPPShift)
	if mpp != hart.User || !d.cfg.User {
		mpp = hart.Machine
	}
	d.priv = mpp
	if d.mstatus&hart.MstatusMPIE != 0 {
		d.mstatus |= hart.MstatusMIE
	} else {
		d.mstatus &^= hart.MstatusMIE
	}
	d.mstatus |= hart.MstatusMPIE
	d.mstatus &^= hart.MstatusMPP
	if !d.cfg.User {
		d.mstatus |= hart.MstatusMPP
	}
}

// wfi sleeps until an interrupt is pending and enabled, or the bound runs out.
func (d *Device) wfi() *exception {
	if d.priv == hart.User && d.mstatus&hart.MstatusTW != 0 {
		return raise(hart.CauseIllegal, hart.InsnWFI)
	}
	for i := 0; i < wfiLimit && !d.wakeup(); i++ {
		d.advance(d.pc)
	}
	if !d.wakeup() {
		d.logger.Warn("wfi timed out", "instructions", wfiLimit)
	}
	return nil
}

func hex32(v uint32) string { return fmt.Sprintf("0x%08x", v) }

// String renders the architectural state for debugging.
func (d *Device) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "priv=%s pc=%s\n", d.priv, hex32(d.pc))
	fmt.Fprintf(&b, "mstatus=%s mie=%s mip=%s\n", hex32(d.mstatus), hex32(d.mie), hex32(d.mip()))
	fmt.Fprintf(&b, "mcause=%s mepc=%s mtval=%s\n", hex32(d.mcause), hex32(d.mepc), hex32(d.mtval))
	return b.String()
}

var _ hart.Hart = (*Device)(nil)
