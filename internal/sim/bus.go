package sim

import (
	"encoding/binary"

	"github.com/roach88/hartcheck/internal/hart"
)

// memory returns the backing store that holds addr and the offset into it.
func (d *Device) memory(addr uint32) ([]byte, uint32, bool) {
	switch {
	case addr < hart.IMEMBase+IMEMSize:
		return d.imem, addr - hart.IMEMBase, true
	case addr >= hart.DMEMBase && addr < hart.DMEMBase+DMEMSize:
		return d.dmem, addr - hart.DMEMBase, true
	case d.extmem != nil && addr >= hart.ExtMemBase && addr < hart.ExtMemBase+ExtMemSize:
		return d.extmem, addr - hart.ExtMemBase, true
	}
	return nil, 0, false
}

// busRead performs a word read without protection checks.
func (d *Device) busRead(addr uint32) (uint32, bool) {
	if mem, off, ok := d.memory(addr); ok && off+4 <= uint32(len(mem)) {
		return binary.LittleEndian.Uint32(mem[off:]), true
	}
	if addr >= hart.IOBase {
		return d.io.read(addr)
	}
	return 0, false
}

// busWrite performs a word write without protection checks.
func (d *Device) busWrite(addr, v uint32) bool {
	if mem, off, ok := d.memory(addr); ok && off+4 <= uint32(len(mem)) {
		binary.LittleEndian.PutUint32(mem[off:], v)
		return true
	}
	if addr == hart.SimIRQ && d.cfg.Testbench {
		d.simIRQ(v)
		return true
	}
	if addr >= hart.IOBase {
		return d.io.write(addr, v)
	}
	return false
}

// load is lw: alignment, protection, then the bus.
func (d *Device) load(addr uint32) (uint32, *exception) {
	if addr&3 != 0 {
		return 0, raise(hart.CauseLoadMisaligned, addr)
	}
	d.event(hart.HPMEventLoad)
	d.event(hart.HPMEventWaitLS)
	if !d.pmpAllows(addr, hart.PMPRead) {
		var leaked uint32
		if d.cfg.Faults.LeakOnFault {
			leaked, _ = d.busRead(addr)
		}
		return leaked, raise(hart.CauseLoadAccess, addr)
	}
	v, ok := d.busRead(addr)
	if !ok {
		return 0, raise(hart.CauseLoadAccess, addr)
	}
	return v, nil
}

// store is sw: alignment, protection, then the bus.
func (d *Device) store(addr, v uint32) *exception {
	if addr&3 != 0 {
		return raise(hart.CauseStoreMisaligned, addr)
	}
	d.event(hart.HPMEventStore)
	d.event(hart.HPMEventWaitLS)
	if !d.pmpAllows(addr, hart.PMPWrite) {
		return raise(hart.CauseStoreAccess, addr)
	}
	if !d.busWrite(addr, v) {
		return raise(hart.CauseStoreAccess, addr)
	}
	return nil
}

// fetch reads an instruction parcel. Only memories are executable.
func (d *Device) fetch(addr uint32) (uint16, *exception) {
	if !d.pmpAllows(addr, hart.PMPExec) {
		return 0, raise(hart.CauseInsnAccess, addr)
	}
	mem, off, ok := d.memory(addr)
	if !ok || off+2 > uint32(len(mem)) {
		return 0, raise(hart.CauseInsnAccess, addr)
	}
	return binary.LittleEndian.Uint16(mem[off:]), nil
}

// simIRQ drives the testbench interrupt lines. Bit 0 is the NMI, the other
// bits follow the mie layout.
func (d *Device) simIRQ(sel uint32) {
	if sel&hart.SimLineNMI != 0 && !d.cfg.Faults.DropNMI {
		d.nmi = true
	}
	d.raiseIRQ(sel &^ hart.SimLineNMI)
}

// Poke writes memory directly, bypassing the hart. Intended for loading
// fixtures.
func (d *Device) Poke(addr, v uint32) bool {
	mem, off, ok := d.memory(addr)
	if !ok || off+4 > uint32(len(mem)) {
		return false
	}
	binary.LittleEndian.PutUint32(mem[off:], v)
	return true
}

// Peek reads memory directly, bypassing the hart.
func (d *Device) Peek(addr uint32) (uint32, bool) {
	mem, off, ok := d.memory(addr)
	if !ok || off+4 > uint32(len(mem)) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(mem[off:]), true
}
