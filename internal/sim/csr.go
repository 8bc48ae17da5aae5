package sim

import (
	"github.com/roach88/hartcheck/internal/hart"
)

const (
	marchID uint32 = 19
	mimpID  uint32 = 0x01050000
)

// mieMask is the set of writable interrupt enable bits.
const mieMask = hart.MieMSIE | hart.MieMTIE | hart.MieMEIE | 0xFFFF0000

// csrOp executes a Zicsr instruction. writes is false for the csrrs/csrrc
// forms whose source is x0; those never fault on read-only registers.
func (d *Device) csrOp(insn uint32, csr hart.CSR, funct3 int, operand uint32, writes bool) (uint32, *exception) {
	illegal := raise(hart.CauseIllegal, insn)

	if d.priv < csr.Privilege() {
		return d.leak(csr), illegal
	}
	if !d.counterAccessible(csr) {
		return d.leak(csr), illegal
	}
	old, ok := d.csrRead(csr)
	if !ok {
		return 0, illegal
	}
	if !writes {
		return old, nil
	}
	if csr.ReadOnly() {
		return old, illegal
	}

	var v uint32
	switch funct3 {
	case hart.Funct3CSRRW, hart.Funct3CSRRWI:
		v = operand
	case hart.Funct3CSRRS, hart.Funct3CSRRSI:
		v = old | operand
	case hart.Funct3CSRRC, hart.Funct3CSRRCI:
		v = old &^ operand
	default:
		return 0, illegal
	}
	d.csrWrite(csr, v)
	return old, nil
}

// leak returns what a faulting CSR read hands back to the program.
func (d *Device) leak(csr hart.CSR) uint32 {
	if !d.cfg.Faults.LeakOnFault {
		return 0
	}
	v, _ := d.csrRead(csr)
	return v
}

// counterAccessible applies mcounteren to user access of the counter aliases.
func (d *Device) counterAccessible(csr hart.CSR) bool {
	if d.priv == hart.Machine || d.cfg.Faults.IgnoreCounteren {
		return true
	}
	switch csr {
	case hart.CSRCycle, hart.CSRCycleh:
		return d.mcounteren&hart.CounterCY != 0
	case hart.CSRTime, hart.CSRTimeh:
		return d.mcounteren&hart.CounterTM != 0
	case hart.CSRInstret, hart.CSRInstreth:
		return d.mcounteren&hart.CounterIR != 0
	}
	return true
}

// csrRead returns the value of csr and whether it exists.
func (d *Device) csrRead(csr hart.CSR) (uint32, bool) {
	switch {
	case csr >= hart.CSRPmpcfg0 && csr < hart.CSRPmpcfg0+4:
		return d.pmpcfgRead(int(csr - hart.CSRPmpcfg0)), true
	case csr >= hart.CSRPmpaddr0 && csr < hart.CSRPmpaddr0+hart.PMPMaxRegions:
		return d.pmpaddrRead(int(csr - hart.CSRPmpaddr0)), true
	case csr >= hart.CSRMhpmevent3 && csr < hart.CSRMhpmevent3+hart.HPMMaxCounters:
		return d.hpmEvent[csr-hart.CSRMhpmevent3], true
	case csr >= hart.CSRMhpmcounter3 && csr < hart.CSRMhpmcounter3+hart.HPMMaxCounters:
		return uint32(d.hpmCounter[csr-hart.CSRMhpmcounter3]), true
	case csr >= hart.CSRMhpmcounter3h && csr < hart.CSRMhpmcounter3h+hart.HPMMaxCounters:
		return uint32(d.hpmCounter[csr-hart.CSRMhpmcounter3h] >> 32), true
	}

	switch csr {
	case hart.CSRMstatus:
		return d.mstatus, true
	case hart.CSRMisa:
		return d.cfg.misa(), true
	case hart.CSRMie:
		return d.mie, true
	case hart.CSRMtvec:
		return d.mtvec, true
	case hart.CSRMcounteren:
		return d.mcounteren, true
	case hart.CSRMcountinhibit:
		return d.mcountinhibit, true
	case hart.CSRMscratch:
		return d.mscratch, true
	case hart.CSRMepc:
		return d.mepc, true
	case hart.CSRMcause:
		return d.mcause, true
	case hart.CSRMtval:
		return d.mtval, true
	case hart.CSRMip:
		return d.mip(), true
	case hart.CSRMcycle, hart.CSRCycle:
		return uint32(d.cycle), true
	case hart.CSRMcycleh, hart.CSRCycleh:
		return uint32(d.cycle >> 32), true
	case hart.CSRMinstret, hart.CSRInstret:
		return uint32(d.instret), true
	case hart.CSRMinstreth, hart.CSRInstreth:
		return uint32(d.instret >> 32), true
	case hart.CSRTime:
		return uint32(d.io.timer.time), true
	case hart.CSRTimeh:
		return uint32(d.io.timer.time >> 32), true
	case hart.CSRMvendorid, hart.CSRMhartid:
		return 0, true
	case hart.CSRMarchid:
		return marchID, true
	case hart.CSRMimpid:
		return mimpID, true
	}
	return 0, false
}

// csrWrite stores v with the register's WARL rules applied. The register is
// known to exist and to be writable.
func (d *Device) csrWrite(csr hart.CSR, v uint32) {
	switch {
	case csr >= hart.CSRPmpcfg0 && csr < hart.CSRPmpcfg0+4:
		d.pmpcfgWrite(int(csr-hart.CSRPmpcfg0), v)
		return
	case csr >= hart.CSRPmpaddr0 && csr < hart.CSRPmpaddr0+hart.PMPMaxRegions:
		d.pmpaddrWrite(int(csr-hart.CSRPmpaddr0), v)
		return
	case csr >= hart.CSRMhpmevent3 && csr < hart.CSRMhpmevent3+hart.HPMMaxCounters:
		if i := int(csr - hart.CSRMhpmevent3); i < d.cfg.HPMCounters {
			d.hpmEvent[i] = v
		}
		return
	case csr >= hart.CSRMhpmcounter3 && csr < hart.CSRMhpmcounter3+hart.HPMMaxCounters:
		if i := int(csr - hart.CSRMhpmcounter3); i < d.cfg.HPMCounters {
			d.hpmCounter[i] = d.hpmCounter[i]&^0xFFFFFFFF | uint64(v)
		}
		return
	case csr >= hart.CSRMhpmcounter3h && csr < hart.CSRMhpmcounter3h+hart.HPMMaxCounters:
		if i := int(csr - hart.CSRMhpmcounter3h); i < d.cfg.HPMCounters {
			d.hpmCounter[i] = d.hpmCounter[i]&0xFFFFFFFF | uint64(v)<<32
		}
		return
	}

	switch csr {
	case hart.CSRMstatus:
		d.writeMstatus(v)
	case hart.CSRMie:
		d.mie = v & mieMask
	case hart.CSRMtvec:
		d.mtvec = v &^ 3
	case hart.CSRMcounteren:
		d.mcounteren = v & (hart.CounterCY | hart.CounterTM | hart.CounterIR)
	case hart.CSRMcountinhibit:
		d.mcountinhibit = v & d.inhibitMask()
	case hart.CSRMscratch:
		d.mscratch = v
	case hart.CSRMepc:
		d.mepc = v &^ 1
	case hart.CSRMcause:
		d.mcause = v
	case hart.CSRMtval:
		d.mtval = v
	case hart.CSRMip:
		// Pending lines can be cleared, never set.
		d.pending &= v
	case hart.CSRMcycle:
		d.cycle = d.cycle&^0xFFFFFFFF | uint64(v)
	case hart.CSRMcycleh:
		d.cycle = d.cycle&0xFFFFFFFF | uint64(v)<<32
	case hart.CSRMinstret:
		d.instret = d.instret&^0xFFFFFFFF | uint64(v)
	case hart.CSRMinstreth:
		d.instret = d.instret&0xFFFFFFFF | uint64(v)<<32
	}
}

func (d *Device) writeMstatus(v uint32) {
	mask := hart.MstatusMIE | hart.MstatusMPIE | hart.MstatusMPP | hart.MstatusTW
	v &= mask
	mpp := hart.Mode((v & hart.MstatusMPP) >> hart.MstatusMPPShift)
	if mpp != hart.Machine && (mpp != hart.User || !d.cfg.User) {
		v = v&^hart.MstatusMPP | uint32(hart.Machine)<<hart.MstatusMPPShift
	}
	d.mstatus = v
}

// inhibitMask returns the implemented mcountinhibit bits.
func (d *Device) inhibitMask() uint32 {
	mask := hart.CounterCY | hart.CounterIR
	for i := 0; i < d.cfg.HPMCounters; i++ {
		mask |= 1 << (3 + i)
	}
	return mask
}
