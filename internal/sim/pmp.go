package sim

import (
	"math/bits"

	"github.com/roach88/hartcheck/internal/hart"
)

// pmpG returns log2(granularity) - 2.
func (d *Device) pmpG() int {
	if d.cfg.PMPGranularity < 4 {
		return 0
	}
	return bits.TrailingZeros32(d.cfg.PMPGranularity) - 2
}

func (d *Device) pmpLocked(i int) bool {
	return d.pmpcfg[i]&hart.PMPLock != 0 && !d.cfg.Faults.IgnorePMPLock
}

func (d *Device) pmpcfgRead(reg int) uint32 {
	var v uint32
	for b := 0; b < 4; b++ {
		if i := reg*4 + b; i < d.cfg.PMPRegions {
			v |= uint32(d.pmpcfg[i]) << (8 * b)
		}
	}
	return v
}

func (d *Device) pmpcfgWrite(reg int, v uint32) {
	for b := 0; b < 4; b++ {
		i := reg*4 + b
		if i >= d.cfg.PMPRegions || d.pmpLocked(i) {
			continue
		}
		cfg := uint8(v >> (8 * b))
		// NA4 is not selectable once the granularity exceeds four bytes.
		if cfg&hart.PMPModeMask == hart.PMPModeNA4 && d.pmpG() >= 1 {
			cfg &^= hart.PMPModeMask
		}
		d.pmpcfg[i] = cfg
	}
}

func (d *Device) pmpaddrRead(i int) uint32 {
	if i >= d.cfg.PMPRegions {
		return 0
	}
	a := d.pmpaddr[i]
	g := d.pmpG()
	mode := d.pmpcfg[i] & hart.PMPModeMask
	switch {
	case mode == hart.PMPModeNAPOT && g >= 2:
		a |= 1<<(g-1) - 1
	case mode != hart.PMPModeNAPOT && g >= 1:
		a &^= 1<<g - 1
	}
	return a
}

func (d *Device) pmpaddrWrite(i int, v uint32) {
	if i >= d.cfg.PMPRegions || d.pmpLocked(i) {
		return
	}
	// A locked TOR entry also freezes the address below it.
	if n := i + 1; n < d.cfg.PMPRegions && d.pmpLocked(n) && d.pmpcfg[n]&hart.PMPModeMask == hart.PMPModeTOR {
		return
	}
	d.pmpaddr[i] = v
}

// pmpRange returns the byte range [lo, hi) matched by entry i.
func (d *Device) pmpRange(i int) (lo, hi uint64, ok bool) {
	a := uint64(d.pmpaddrRead(i))
	switch d.pmpcfg[i] & hart.PMPModeMask {
	case hart.PMPModeTOR:
		if i > 0 {
			lo = uint64(d.pmpaddrRead(i-1)) << 2
		}
		return lo, a << 2, true
	case hart.PMPModeNA4:
		return a << 2, a<<2 + 4, true
	case hart.PMPModeNAPOT:
		t := bits.TrailingZeros64(^a)
		if t >= 32 {
			return 0, 1 << 34, true
		}
		lo = (a &^ (1<<(t+1) - 1)) << 2
		return lo, lo + 8<<t, true
	}
	return 0, 0, false
}

// pmpAllows applies the first matching entry. Machine mode is only bound by
// locked entries and an access without a matching entry is allowed.
func (d *Device) pmpAllows(addr uint32, perm uint8) bool {
	for i := 0; i < d.cfg.PMPRegions; i++ {
		lo, hi, ok := d.pmpRange(i)
		if !ok || uint64(addr) < lo || uint64(addr) >= hi {
			continue
		}
		if d.priv == hart.Machine && d.pmpcfg[i]&hart.PMPLock == 0 {
			return true
		}
		return d.pmpcfg[i]&perm != 0
	}
	return true
}
