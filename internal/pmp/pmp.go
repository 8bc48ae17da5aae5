// Package pmp verifies physical memory protection.
//
// Regions are programmed through the pmpcfg/pmpaddr CSRs in machine mode;
// enforcement is checked from user mode through the privilege sandbox.
package pmp

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/roach88/hartcheck/internal/hart"
	"github.com/roach88/hartcheck/internal/sandbox"
	"github.com/roach88/hartcheck/internal/trap"
)

// Permission bits of a region.
type Perm uint8

const (
	R Perm = Perm(hart.PMPRead)
	W Perm = Perm(hart.PMPWrite)
	X Perm = Perm(hart.PMPExec)
)

// Region is a naturally aligned protected region.
type Region struct {
	Index int
	Base  uint32
	Size  uint32
	Perm  Perm
	Lock  bool
}

// ConfigError reports an invalid region.
type ConfigError struct {
	Region int
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("pmp region %d: %s", e.Region, e.Reason)
}

// IsConfigError reports whether err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Verifier programs and checks the regions of one hart.
type Verifier struct {
	h           hart.Hart
	obs         *trap.Observatory
	regions     int
	granularity uint32
}

// New creates a verifier for a hart with the given number of regions and
// granularity in bytes.
func New(h hart.Hart, obs *trap.Observatory, regions int, granularity uint32) *Verifier {
	if granularity < 4 {
		granularity = 4
	}
	return &Verifier{h: h, obs: obs, regions: regions, granularity: granularity}
}

// cfgByte encodes the configuration byte of r.
func (r Region) cfgByte() uint8 {
	cfg := uint8(r.Perm) & (hart.PMPRead | hart.PMPWrite | hart.PMPExec)
	if r.Size == 4 {
		cfg |= hart.PMPModeNA4
	} else {
		cfg |= hart.PMPModeNAPOT
	}
	if r.Lock {
		cfg |= hart.PMPLock
	}
	return cfg
}

// addr encodes the pmpaddr value of r.
func (r Region) addr() uint32 {
	if r.Size == 4 {
		return r.Base >> 2
	}
	return r.Base>>2 | (r.Size>>3 - 1)
}

// Validate checks r against the implemented region count.
func (v *Verifier) Validate(r Region) error {
	switch {
	case r.Index < 0 || r.Index >= v.regions:
		return &ConfigError{Region: r.Index, Reason: fmt.Sprintf("index out of range (%d regions implemented)", v.regions)}
	case r.Size < 4 || bits.OnesCount32(r.Size) != 1:
		return &ConfigError{Region: r.Index, Reason: fmt.Sprintf("size %d is not a power of two >= 4", r.Size)}
	case r.Size < v.granularity:
		return &ConfigError{Region: r.Index, Reason: fmt.Sprintf("size %d below granularity %d", r.Size, v.granularity)}
	case r.Base&(r.Size-1) != 0:
		return &ConfigError{Region: r.Index, Reason: fmt.Sprintf("base 0x%08x not aligned to size %d", r.Base, r.Size)}
	}
	return nil
}

// Configure programs r. Reprogramming a region with the same values is a
// no-op.
func (v *Verifier) Configure(r Region) error {
	if err := v.Validate(r); err != nil {
		return err
	}
	v.h.WriteCSR(hart.Pmpaddr(r.Index), r.addr())

	csr := hart.Pmpcfg(r.Index / 4)
	shift := 8 * uint(r.Index%4)
	cfg := v.h.ReadCSR(csr)
	cfg &^= 0xFF << shift
	cfg |= uint32(r.cfgByte()) << shift
	v.h.WriteCSR(csr, cfg)
	return nil
}

// Clear turns region index off.
func (v *Verifier) Clear(index int) error {
	if index < 0 || index >= v.regions {
		return &ConfigError{Region: index, Reason: "index out of range"}
	}
	csr := hart.Pmpcfg(index / 4)
	shift := 8 * uint(index%4)
	v.h.WriteCSR(csr, v.h.ReadCSR(csr)&^(0xFF<<shift))
	v.h.WriteCSR(hart.Pmpaddr(index), 0)
	return nil
}

// Access is the outcome of one user-mode access attempt.
type Access struct {
	Trap  trap.Record
	Value uint32
}

// Execute jumps to addr from user mode.
func (v *Verifier) Execute(addr uint32) Access {
	rec := sandbox.RunReduced(v.h, v.obs, func() { v.h.Call(addr) })
	return Access{Trap: rec}
}

// Read loads addr from user mode. A denied read must yield 0.
func (v *Verifier) Read(addr uint32) Access {
	var val uint32
	rec := sandbox.RunReduced(v.h, v.obs, func() { val = v.h.Load(addr) })
	return Access{Trap: rec, Value: val}
}

// Write stores val to addr from user mode.
func (v *Verifier) Write(addr, val uint32) Access {
	rec := sandbox.RunReduced(v.h, v.obs, func() { v.h.Store(addr, val) })
	return Access{Trap: rec}
}

// LockProbe is the read-back of a locked entry before and after an attempt
// to rewrite it.
type LockProbe struct {
	CfgBefore, CfgAfter   uint32
	AddrBefore, AddrAfter uint32
}

// Unchanged reports whether the rewrite left the entry intact.
func (p LockProbe) Unchanged() bool {
	return p.CfgBefore == p.CfgAfter && p.AddrBefore == p.AddrAfter
}

// LockTestAddr is the pmpaddr value written to a locked entry.
const LockTestAddr = 0xABABCDCD

// lockedOff is a locked, inactive entry with read permission.
const lockedOff = uint32(hart.PMPLock | hart.PMPRead)

// LockTest locks entry 0 while it is off, then tries to make it a NAPOT RWX
// region at LockTestAddr. Both writes are valid machine-mode instructions and
// must not trap; the entry must keep its values.
func (v *Verifier) LockTest() (LockProbe, error) {
	if v.regions < 1 {
		return LockProbe{}, &ConfigError{Region: 0, Reason: "no regions implemented"}
	}
	cfg0 := hart.Pmpcfg(0)
	addr0 := hart.Pmpaddr(0)

	v.h.WriteCSR(cfg0, lockedOff)
	p := LockProbe{
		CfgBefore:  v.h.ReadCSR(cfg0) & 0xFF,
		AddrBefore: v.h.ReadCSR(addr0),
	}

	rwx := uint32(hart.PMPModeNAPOT | hart.PMPRead | hart.PMPWrite | hart.PMPExec)
	v.h.WriteCSR(cfg0, v.h.ReadCSR(cfg0)&^0xFF|rwx)
	v.h.WriteCSR(addr0, LockTestAddr)

	p.CfgAfter = v.h.ReadCSR(cfg0) & 0xFF
	p.AddrAfter = v.h.ReadCSR(addr0)
	return p, nil
}
