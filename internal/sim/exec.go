package sim

import (
	"github.com/roach88/hartcheck/internal/hart"
)

// callFaultLimit is the number of exceptions after which a call is abandoned.
const callFaultLimit = 4

const (
	opcodeSystem  = 0x73
	opcodeMiscMem = 0x0F
	opcodeOpImm   = 0x13
)

// execute runs one 32-bit instruction word and reports whether it returned
// from called code.
func (d *Device) execute(insn uint32) (bool, *exception) {
	rd := (insn >> 7) & 0x1F
	funct3 := int(insn>>12) & 7
	rs1 := (insn >> 15) & 0x1F

	switch insn & 0x7F {
	case opcodeSystem:
		if funct3 == 0 {
			return false, d.system(insn)
		}
		csr := hart.CSR(insn >> 20)
		operand := rs1
		if funct3 < 4 {
			operand = d.regs[rs1]
		}
		writes := funct3 == hart.Funct3CSRRW || funct3 == hart.Funct3CSRRWI || rs1 != 0
		v, err := d.csrOp(insn, csr, funct3, operand, writes)
		if err != nil {
			return false, err
		}
		d.setReg(rd, v)
		return false, nil

	case opcodeMiscMem:
		if funct3 > 1 {
			return false, raise(hart.CauseIllegal, insn)
		}
		return false, nil

	case opcodeOpImm:
		if funct3 != 0 {
			return false, raise(hart.CauseIllegal, insn)
		}
		imm := uint32(int32(insn) >> 20)
		d.setReg(rd, d.regs[rs1]+imm)
		return false, nil
	}

	if insn == hart.InsnRET {
		d.event(hart.HPMEventJump)
		return true, nil
	}
	return false, raise(hart.CauseIllegal, insn)
}

func (d *Device) system(insn uint32) *exception {
	switch insn {
	case hart.InsnECALL:
		if d.priv == hart.User {
			return raise(hart.CauseEcallU, 0)
		}
		return raise(hart.CauseEcallM, 0)
	case hart.InsnEBREAK:
		return raise(hart.CauseBreakpoint, d.pc)
	case hart.InsnMRET:
		if d.priv != hart.Machine {
			return raise(hart.CauseIllegal, insn)
		}
		d.mret()
		return nil
	case hart.InsnWFI:
		return d.wfi()
	}
	return raise(hart.CauseIllegal, insn)
}

func (d *Device) setReg(rd, v uint32) {
	if rd != 0 {
		d.regs[rd] = v
	}
}

// run fetches and executes code at addr until it returns with ret or c.jr ra.
// Synchronous exceptions resume after the faulting instruction; a fetch that
// faults, or too many exceptions, abandon the call.
func (d *Device) run(addr uint32) {
	caller := d.pc
	defer func() { d.pc = caller }()

	pc := addr
	faults := 0
	for n := 0; n < callLimit; n++ {
		d.advance(pc)

		align := uint32(3)
		if d.cfg.Compressed {
			align = 1
		}
		if pc&align != 0 {
			d.trap(hart.CauseInsnMisaligned, pc)
			d.interrupt()
			return
		}

		lo, err := d.fetch(pc)
		if err != nil {
			d.trap(err.cause, err.tval)
			d.interrupt()
			return
		}

		var done bool
		var size uint32 = 4
		if lo&3 != 3 && d.cfg.Compressed {
			size = 2
			d.event(hart.HPMEventCIR)
			done, err = d.executeCompressed(lo)
		} else {
			hi, ferr := d.fetch(pc + 2)
			if ferr != nil {
				d.trap(ferr.cause, ferr.tval)
				d.interrupt()
				return
			}
			done, err = d.execute(uint32(lo) | uint32(hi)<<16)
		}

		if err != nil {
			d.trap(err.cause, err.tval)
			faults++
		}
		d.interrupt()
		if done {
			return
		}
		if faults >= callFaultLimit {
			d.logger.Warn("called code keeps faulting", "addr", hex32(addr), "pc", hex32(pc))
			return
		}
		pc += size
	}
	d.logger.Warn("called code did not return", "addr", hex32(addr), "limit", callLimit)
}

// executeCompressed covers the few RVC parcels the check relies on.
func (d *Device) executeCompressed(parcel uint16) (bool, *exception) {
	switch parcel {
	case hart.InsnCNOP:
		return false, nil
	case hart.InsnCJRRA:
		d.event(hart.HPMEventJump)
		return true, nil
	}
	return false, raise(hart.CauseIllegal, uint32(parcel))
}
