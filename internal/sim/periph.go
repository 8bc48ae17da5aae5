package sim

import (
	"strings"

	"github.com/roach88/hartcheck/internal/hart"
)

const (
	clockHz   uint32 = 100000000
	slinkFIFO        = 4
)

// peripherals is the I/O space of the device.
type peripherals struct {
	d       *Device
	console strings.Builder

	timer  mtimer
	uart0  uart
	uart1  uart
	spi    transfer
	twi    transfer
	neoled transfer
	wdt    watchdog
	gpio   uint32
	xirq   xirq
	slink  slink
	cfs    [hart.CFSSize / 4]uint32
}

func newPeripherals(d *Device) *peripherals {
	return &peripherals{d: d}
}

func (p *peripherals) reset() {
	p.timer = mtimer{cmp: ^uint64(0)}
	p.uart0 = uart{rx: hart.FIRQUART0RX, tx: hart.FIRQUART0TX}
	p.uart1 = uart{rx: hart.FIRQUART1RX, tx: hart.FIRQUART1TX}
	p.spi = transfer{firq: hart.FIRQSPI}
	p.twi = transfer{firq: hart.FIRQTWI}
	p.neoled = transfer{firq: hart.FIRQNEOLED}
	p.wdt = watchdog{}
	p.gpio = 0
	p.xirq = xirq{}
	p.slink = slink{}
	p.cfs = [hart.CFSSize / 4]uint32{}
}

func (p *peripherals) firq(n int) {
	p.d.raiseIRQ(hart.FIRQEnable(n))
}

// tick advances time-driven state by one instruction.
func (p *peripherals) tick(cycles uint32) {
	if p.timer.tick(uint64(cycles)) {
		p.d.raiseIRQ(hart.MieMTIE)
	}
	p.uart0.tick(p)
	p.uart1.tick(p)
	p.spi.tick(p)
	p.twi.tick(p)
	p.neoled.tick(p)
}

func (p *peripherals) read(addr uint32) (uint32, bool) {
	per := p.d.cfg.Peripherals
	switch {
	case per.CFS && addr >= hart.CFSBase && addr < hart.CFSBase+hart.CFSSize:
		return p.cfs[(addr-hart.CFSBase)/4], true
	case addr == hart.MTIMELo:
		return uint32(p.timer.time), true
	case addr == hart.MTIMEHi:
		return uint32(p.timer.time >> 32), true
	case addr == hart.MTIMECmpLo:
		return uint32(p.timer.cmp), true
	case addr == hart.MTIMECmpHi:
		return uint32(p.timer.cmp >> 32), true
	case per.UART0 && addr == hart.UART0CT:
		return p.uart0.status(), true
	case per.UART0 && addr == hart.UART0Data:
		return p.uart0.receive(), true
	case per.UART1 && addr == hart.UART1CT:
		return p.uart1.status(), true
	case per.UART1 && addr == hart.UART1Data:
		return p.uart1.receive(), true
	case per.SPI && addr == hart.SPICT:
		return p.spi.status(hart.SPICtBusy), true
	case per.SPI && addr == hart.SPIData:
		return p.spi.data, true
	case per.TWI && addr == hart.TWICT:
		return p.twi.status(hart.TWICtBusy), true
	case per.TWI && addr == hart.TWIData:
		return p.twi.data, true
	case per.NEOLED && addr == hart.NEOLEDCT:
		return p.neoled.status(hart.NEOLEDCtBusy), true
	case per.WDT && addr == hart.WDTCT:
		return p.wdt.ct, true
	case addr == hart.GPIOIn, addr == hart.GPIOOut:
		// The testbench loops the output port back to the input port.
		return p.gpio, true
	case per.XIRQ && addr == hart.XIRQIER:
		return p.xirq.ier, true
	case per.XIRQ && addr == hart.XIRQIPR:
		return p.xirq.ipr, true
	case per.XIRQ && addr == hart.XIRQSCR:
		return p.xirq.source(p.d.cfg.Faults.ReverseXIRQPriority), true
	case per.SLINK && addr == hart.SLINKCT:
		return p.slink.ct, true
	case per.SLINK && addr == hart.SLINKStatus:
		return p.slink.status(), true
	case per.SLINK && addr == hart.SLINKData0:
		return p.slink.pop(), true
	case addr == hart.SysinfoClk:
		return clockHz, true
	case addr == hart.SysinfoFeatures:
		return p.d.cfg.features(), true
	case addr == hart.SysinfoISpaceBase:
		return hart.IMEMBase, true
	case addr == hart.SysinfoDSpaceBase:
		return hart.DMEMBase, true
	case addr == hart.SysinfoDMEMSize:
		return DMEMSize, true
	}
	return 0, false
}

func (p *peripherals) write(addr, v uint32) bool {
	per := p.d.cfg.Peripherals
	lat := p.d.cfg.Latency
	switch {
	case per.CFS && addr >= hart.CFSBase && addr < hart.CFSBase+hart.CFSSize:
		p.cfs[(addr-hart.CFSBase)/4] = v
	case addr == hart.MTIMELo:
		p.timer.time = p.timer.time&^0xFFFFFFFF | uint64(v)
	case addr == hart.MTIMEHi:
		p.timer.time = p.timer.time&0xFFFFFFFF | uint64(v)<<32
	case addr == hart.MTIMECmpLo:
		p.timer.cmp = p.timer.cmp&^0xFFFFFFFF | uint64(v)
	case addr == hart.MTIMECmpHi:
		p.timer.cmp = p.timer.cmp&0xFFFFFFFF | uint64(v)<<32
	case per.UART0 && addr == hart.UART0CT:
		p.uart0.ct = v &^ hart.UARTCtTxBusy
	case per.UART0 && addr == hart.UART0Data:
		p.uart0.send(p, v, lat)
	case per.UART1 && addr == hart.UART1CT:
		p.uart1.ct = v &^ hart.UARTCtTxBusy
	case per.UART1 && addr == hart.UART1Data:
		p.uart1.send(p, v, lat)
	case per.SPI && addr == hart.SPICT:
		p.spi.ct = v &^ hart.SPICtBusy
	case per.SPI && addr == hart.SPIData:
		p.spi.start(v, hart.SPICtEnable, lat)
	case per.TWI && addr == hart.TWICT:
		p.twi.ct = v &^ (hart.TWICtStart | hart.TWICtStop | hart.TWICtBusy)
		if v&(hart.TWICtStart|hart.TWICtStop) != 0 {
			p.twi.start(p.twi.data, hart.TWICtEnable, lat)
		}
	case per.TWI && addr == hart.TWIData:
		p.twi.start(v, hart.TWICtEnable, lat)
	case per.NEOLED && addr == hart.NEOLEDCT:
		p.neoled.ct = v &^ hart.NEOLEDCtBusy
	case per.NEOLED && addr == hart.NEOLEDData:
		p.neoled.start(v, hart.NEOLEDCtEnable, lat)
	case per.WDT && addr == hart.WDTCT:
		if p.wdt.write(v) {
			p.d.logger.Debug("watchdog timeout", "mode_reset", p.wdt.ct&hart.WDTCtModeReset != 0)
			if p.wdt.ct&hart.WDTCtModeReset == 0 {
				p.firq(hart.FIRQWDT)
			}
		}
	case addr == hart.GPIOOut:
		rising := v &^ p.gpio
		p.gpio = v
		if per.XIRQ {
			p.xirq.trigger(rising)
		}
	case per.XIRQ && addr == hart.XIRQIER:
		p.xirq.ier = v
	case per.XIRQ && addr == hart.XIRQIPR:
		p.xirq.ipr &= v
	case per.XIRQ && addr == hart.XIRQSCR:
		// Acknowledge only.
	case per.SLINK && addr == hart.SLINKCT:
		p.slink.ct = v
		if v&hart.SLINKCtEnable == 0 {
			p.slink.fifo = nil
		}
	case per.SLINK && addr == hart.SLINKData0:
		if p.slink.push(v) {
			p.firq(hart.FIRQSLINKTX)
			p.firq(hart.FIRQSLINKRX)
		}
	default:
		return false
	}
	return true
}

// mtimer is the machine system timer. The interrupt latches on the rising
// edge of time >= cmp.
type mtimer struct {
	time  uint64
	cmp   uint64
	level bool
}

func (t *mtimer) tick(cycles uint64) bool {
	t.time += cycles
	level := t.time >= t.cmp
	rising := level && !t.level
	t.level = level
	return rising
}

// uart is a serial port with the testbench looping TX back to RX. In
// simulation mode characters go to the console and raise nothing.
type uart struct {
	ct      uint32
	busy    int
	pending uint32
	rxData  uint32
	rx, tx  int
}

func (u *uart) status() uint32 {
	if u.busy > 0 {
		return u.ct | hart.UARTCtTxBusy
	}
	return u.ct
}

func (u *uart) send(p *peripherals, v uint32, latency int) {
	if u.ct&hart.UARTCtEnable == 0 {
		return
	}
	if u.ct&hart.UARTCtSimMode != 0 {
		p.console.WriteByte(byte(v))
		return
	}
	u.pending = v & 0xFF
	u.busy = latency
}

func (u *uart) receive() uint32 { return u.rxData }

func (u *uart) tick(p *peripherals) {
	if u.busy == 0 {
		return
	}
	u.busy--
	if u.busy == 0 {
		u.rxData = u.pending
		p.firq(u.tx)
		p.firq(u.rx)
	}
}

// transfer is a peripheral that completes one job after a fixed latency and
// then raises its fast interrupt.
type transfer struct {
	ct   uint32
	data uint32
	busy int
	firq int
}

func (t *transfer) status(busyBit uint32) uint32 {
	if t.busy > 0 {
		return t.ct | busyBit
	}
	return t.ct
}

func (t *transfer) start(v, enable uint32, latency int) {
	if t.ct&enable == 0 {
		return
	}
	t.data = v
	t.busy = latency
}

func (t *transfer) tick(p *peripherals) {
	if t.busy == 0 {
		return
	}
	t.busy--
	if t.busy == 0 {
		p.firq(t.firq)
	}
}

// watchdog only models forced timeouts; a natural timeout would take
// billions of instructions at the prescalers the check uses.
type watchdog struct {
	ct uint32
}

// write updates the control register and reports a forced timeout. A locked
// watchdog ignores everything but the force bit.
func (w *watchdog) write(v uint32) bool {
	if w.ct&hart.WDTCtLock == 0 {
		w.ct = v &^ hart.WDTCtForce
	}
	return v&hart.WDTCtForce != 0 && w.ct&hart.WDTCtEnable != 0
}

// xirq is the external interrupt controller. Inputs latch on a rising edge;
// its fast interrupt line is level sensitive.
type xirq struct {
	ier uint32
	ipr uint32
}

func (x *xirq) trigger(rising uint32) {
	x.ipr |= rising & x.ier
}

func (x *xirq) level() bool {
	return x.ipr&x.ier != 0
}

// source returns the channel to serve next: the lowest pending one.
func (x *xirq) source(reverse bool) uint32 {
	active := x.ipr & x.ier
	if active == 0 {
		return 0
	}
	if reverse {
		for ch := hart.NumXIRQ - 1; ch >= 0; ch-- {
			if active&(1<<ch) != 0 {
				return uint32(ch)
			}
		}
	}
	for ch := 0; ch < hart.NumXIRQ; ch++ {
		if active&(1<<ch) != 0 {
			return uint32(ch)
		}
	}
	return 0
}

// slink is stream link 0 with the testbench looping TX back to RX.
type slink struct {
	ct   uint32
	fifo []uint32
}

func (s *slink) status() uint32 {
	var v uint32
	if len(s.fifo) > 0 {
		v |= hart.SLINKStatusRX0
	}
	if len(s.fifo) < slinkFIFO {
		v |= hart.SLINKStatusTX0Free
	}
	return v
}

func (s *slink) push(v uint32) bool {
	if s.ct&hart.SLINKCtEnable == 0 || len(s.fifo) >= slinkFIFO {
		return false
	}
	s.fifo = append(s.fifo, v)
	return true
}

func (s *slink) pop() uint32 {
	if len(s.fifo) == 0 {
		return 0
	}
	v := s.fifo[0]
	s.fifo = s.fifo[1:]
	return v
}
