// Package capability queries the optional features of the hart under test.
//
// The Set is probed once, before any case runs, and is read-only for the rest
// of the run. Cases never infer features on their own: an absent feature makes
// a case Skipped through its applicability predicate.
package capability

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/roach88/hartcheck/internal/hart"
)

// Set is the capability snapshot of one hart.
type Set struct {
	Compressed bool `json:"compressed"`
	User       bool `json:"user"`
	Atomic     bool `json:"atomic"`

	// HPMCounters is the number of implemented mhpmcounterN registers.
	HPMCounters int `json:"hpm_counters"`
	// PMPRegions is the number of implemented PMP entries.
	PMPRegions int `json:"pmp_regions"`
	// PMPGranularity is the smallest protectable region in bytes (0 without PMP).
	PMPGranularity uint32 `json:"pmp_granularity"`

	// Features is the raw SYSINFO feature word.
	Features uint32 `json:"features"`
	// DSpaceBase is the start of the data address space.
	DSpaceBase uint32 `json:"dspace_base"`
}

// Has reports whether the SYSINFO feature bit is set.
func (s Set) Has(feature uint32) bool { return s.Features&feature != 0 }

// Probe queries h. It must run in machine mode before any PMP entry is locked;
// every register it touches is restored.
func Probe(h hart.Hart) Set {
	misa := h.ReadCSR(hart.CSRMisa)
	s := Set{
		Compressed: misa&hart.MisaC != 0,
		User:       misa&hart.MisaU != 0,
		Atomic:     misa&hart.MisaA != 0,
		Features:   h.Load(hart.SysinfoFeatures),
		DSpaceBase: h.Load(hart.SysinfoDSpaceBase),
	}
	s.HPMCounters = probeHPM(h)
	s.PMPRegions = probePMPRegions(h)
	if s.PMPRegions > 0 {
		s.PMPGranularity = probePMPGranularity(h)
	}
	return s
}

// probeHPM counts the writable mhpmcounter inhibit bits.
func probeHPM(h hart.Hart) int {
	saved := h.ReadCSR(hart.CSRMcountinhibit)
	h.WriteCSR(hart.CSRMcountinhibit, ^uint32(0))
	v := h.ReadCSR(hart.CSRMcountinhibit)
	h.WriteCSR(hart.CSRMcountinhibit, saved)
	return bits.OnesCount32(v >> 3)
}

// probePMPRegions writes a non-zero, inactive configuration to every entry
// and counts the bytes that stick.
func probePMPRegions(h hart.Hart) int {
	n := 0
	for reg := 0; reg < hart.PMPMaxRegions/4; reg++ {
		csr := hart.Pmpcfg(reg)
		saved := h.ReadCSR(csr)
		h.WriteCSR(csr, 0x07070707)
		v := h.ReadCSR(csr)
		h.WriteCSR(csr, saved)
		for b := 0; b < 4; b++ {
			if v>>(8*b)&0xFF != 0 {
				n++
			}
		}
	}
	return n
}

// probePMPGranularity relies on an OFF entry clearing the address bits below
// the granularity.
func probePMPGranularity(h hart.Hart) uint32 {
	csr := hart.Pmpaddr(0)
	saved := h.ReadCSR(csr)
	h.WriteCSR(csr, ^uint32(0))
	v := h.ReadCSR(csr)
	h.WriteCSR(csr, saved)
	if v == 0 {
		return 0
	}
	return 1 << (bits.TrailingZeros32(v) + 2)
}

var featureNames = []struct {
	bit  uint32
	name string
}{
	{hart.FeatureExtMem, "extmem"},
	{hart.FeatureUART0, "uart0"},
	{hart.FeatureSPI, "spi"},
	{hart.FeatureTWI, "twi"},
	{hart.FeatureWDT, "wdt"},
	{hart.FeatureCFS, "cfs"},
	{hart.FeatureSLINK, "slink"},
	{hart.FeatureUART1, "uart1"},
	{hart.FeatureNEOLED, "neoled"},
	{hart.FeatureXIRQ, "xirq"},
}

// Peripherals lists the names of the present optional peripherals.
func (s Set) Peripherals() []string {
	var names []string
	for _, f := range featureNames {
		if s.Has(f.bit) {
			names = append(names, f.name)
		}
	}
	return names
}

// ISA returns the extension string, e.g. "rv32imacu".
func (s Set) ISA() string {
	var b strings.Builder
	b.WriteString("rv32im")
	if s.Atomic {
		b.WriteByte('a')
	}
	if s.Compressed {
		b.WriteByte('c')
	}
	if s.User {
		b.WriteByte('u')
	}
	return b.String()
}

func (s Set) String() string {
	return fmt.Sprintf("%s hpm=%d pmp=%d/%dB peripherals=%s",
		s.ISA(), s.HPMCounters, s.PMPRegions, s.PMPGranularity, strings.Join(s.Peripherals(), ","))
}
