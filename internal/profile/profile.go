// Package profile loads and validates run profiles.
//
// A profile is a YAML document with three sections:
//
//	device:  the reference device build (extensions, PMP, peripherals, timing)
//	faults:  rule violations injected into the reference device
//	run:     runner settings (propagation wait, case filter, repeat count)
//
// Missing fields keep their defaults, unknown fields are rejected, and the
// decoded profile is validated against an embedded CUE schema.
package profile

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/hartcheck/internal/harness"
	"github.com/roach88/hartcheck/internal/sim"
)

//go:embed schema.cue
var schemaSource string

// Profile is one run configuration.
type Profile struct {
	Name   string `yaml:"name" json:"name"`
	Device Device `yaml:"device" json:"device"`
	Faults Faults `yaml:"faults" json:"faults"`
	Run    Run    `yaml:"run" json:"run"`
}

// Device describes the reference device build.
type Device struct {
	Compressed     bool        `yaml:"compressed" json:"compressed"`
	User           bool        `yaml:"user" json:"user"`
	Atomic         bool        `yaml:"atomic" json:"atomic"`
	HPMCounters    int         `yaml:"hpm_counters" json:"hpm_counters"`
	PMPRegions     int         `yaml:"pmp_regions" json:"pmp_regions"`
	PMPGranularity uint32      `yaml:"pmp_granularity" json:"pmp_granularity"`
	ExtMem         bool        `yaml:"ext_mem" json:"ext_mem"`
	Testbench      bool        `yaml:"testbench" json:"testbench"`
	Peripherals    Peripherals `yaml:"peripherals" json:"peripherals"`
	CPI            int         `yaml:"cpi" json:"cpi"`
	Latency        int         `yaml:"latency" json:"latency"`
}

// Peripherals selects the optional I/O devices.
type Peripherals struct {
	WDT    bool `yaml:"wdt" json:"wdt"`
	CFS    bool `yaml:"cfs" json:"cfs"`
	UART0  bool `yaml:"uart0" json:"uart0"`
	UART1  bool `yaml:"uart1" json:"uart1"`
	SPI    bool `yaml:"spi" json:"spi"`
	TWI    bool `yaml:"twi" json:"twi"`
	XIRQ   bool `yaml:"xirq" json:"xirq"`
	NEOLED bool `yaml:"neoled" json:"neoled"`
	SLINK  bool `yaml:"slink" json:"slink"`
}

// Faults are the reference device's fault-injection switches.
type Faults struct {
	LeakOnFault            bool `yaml:"leak_on_fault" json:"leak_on_fault"`
	KeepReservationOnStore bool `yaml:"keep_reservation_on_store" json:"keep_reservation_on_store"`
	KeepReservationOnTrap  bool `yaml:"keep_reservation_on_trap" json:"keep_reservation_on_trap"`
	IgnorePMPLock          bool `yaml:"ignore_pmp_lock" json:"ignore_pmp_lock"`
	ReverseXIRQPriority    bool `yaml:"reverse_xirq_priority" json:"reverse_xirq_priority"`
	DropNMI                bool `yaml:"drop_nmi" json:"drop_nmi"`
	IgnoreCounteren        bool `yaml:"ignore_counteren" json:"ignore_counteren"`
	WrongPreviousMode      bool `yaml:"wrong_previous_mode" json:"wrong_previous_mode"`
}

// Run holds runner settings.
type Run struct {
	// Wait is the interrupt propagation window in instructions.
	Wait int `yaml:"wait" json:"wait"`
	// Filter is a glob over case names; empty runs everything.
	Filter string `yaml:"filter" json:"filter"`
	// Repeat runs the catalog on that many freshly reset devices.
	Repeat int `yaml:"repeat" json:"repeat"`
}

// DefaultName is the name of the built-in profile.
const DefaultName = "default"

// Default returns the fully featured, fault-free profile.
func Default() *Profile {
	cfg := sim.DefaultConfig()
	return &Profile{
		Name: DefaultName,
		Device: Device{
			Compressed:     cfg.Compressed,
			User:           cfg.User,
			Atomic:         cfg.Atomic,
			HPMCounters:    cfg.HPMCounters,
			PMPRegions:     cfg.PMPRegions,
			PMPGranularity: cfg.PMPGranularity,
			ExtMem:         cfg.ExtMem,
			Testbench:      cfg.Testbench,
			Peripherals:    Peripherals(cfg.Peripherals),
			CPI:            int(cfg.CPI),
			Latency:        cfg.Latency,
		},
		Run: Run{Wait: harness.DefaultWait, Repeat: 1},
	}
}

// ValidationError lists every schema violation of a profile.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "invalid profile: " + strings.Join(e.Issues, "; ")
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Load reads a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Profile, error) {
	p := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks p against the schema.
func Validate(p *Profile) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling profile schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Profile")).Unify(ctx.Encode(p))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		ve := &ValidationError{}
		for _, e := range cueerrors.Errors(err) {
			ve.Issues = append(ve.Issues, strings.TrimSpace(e.Error()))
		}
		return ve
	}
	return nil
}

// SimConfig returns the reference device configuration.
func (p *Profile) SimConfig() sim.Config {
	d := p.Device
	return sim.Config{
		Compressed:     d.Compressed,
		User:           d.User,
		Atomic:         d.Atomic,
		HPMCounters:    d.HPMCounters,
		PMPRegions:     d.PMPRegions,
		PMPGranularity: d.PMPGranularity,
		ExtMem:         d.ExtMem,
		Testbench:      d.Testbench,
		Peripherals:    sim.Peripherals(d.Peripherals),
		CPI:            uint32(d.CPI),
		Latency:        d.Latency,
		Faults:         sim.Faults(p.Faults),
	}
}

// Marshal renders p as YAML.
func (p *Profile) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}
