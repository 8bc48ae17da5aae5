package profile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hartcheck/internal/harness"
	"github.com/roach88/hartcheck/internal/sim"
)

func TestDefault_MatchesReferenceDevice(t *testing.T) {
	p := Default()

	require.NoError(t, Validate(p))
	assert.Equal(t, sim.DefaultConfig(), p.SimConfig())
	assert.Equal(t, harness.DefaultWait, p.Run.Wait)
	assert.Equal(t, 1, p.Run.Repeat)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		file  string
		check func(t *testing.T, p *Profile)
	}{
		{"minimal.yaml", func(t *testing.T, p *Profile) {
			assert.Equal(t, "minimal", p.Name)
			assert.False(t, p.Device.Compressed)
			assert.Zero(t, p.Device.PMPRegions)
			assert.True(t, p.Device.Peripherals.UART0)
			assert.False(t, p.Device.Peripherals.SLINK)
			assert.True(t, p.Device.Testbench, "unset fields keep their defaults")
			assert.Equal(t, uint32(64), p.Device.PMPGranularity)
			assert.Equal(t, 8, p.Run.Wait)
		}},
		{"faulty.yaml", func(t *testing.T, p *Profile) {
			cfg := p.SimConfig()
			assert.True(t, cfg.Faults.LeakOnFault)
			assert.True(t, cfg.Faults.DropNMI)
			assert.False(t, cfg.Faults.IgnorePMPLock)
			assert.Equal(t, "pmp *", p.Run.Filter)
			assert.Equal(t, 3, p.Run.Repeat)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			p, err := Load(filepath.Join("testdata", tt.file))
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "typo.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pmp_region")
	assert.False(t, IsValidationError(err))
}

func TestLoad_RejectsOutOfRange(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "out_of_range.yaml"))

	require.Error(t, err)
	require.True(t, IsValidationError(err))
	msg := err.Error()
	assert.Contains(t, msg, "pmp_regions")
	assert.Contains(t, msg, "pmp_granularity")
	assert.Contains(t, msg, "repeat")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParse_EmptyDocumentIsDefault(t *testing.T) {
	p, err := Parse(nil)

	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Profile)
		ok     bool
	}{
		{"granularity 4", func(p *Profile) { p.Device.PMPGranularity = 4 }, true},
		{"granularity 2", func(p *Profile) { p.Device.PMPGranularity = 2 }, false},
		{"granularity not a power of two", func(p *Profile) { p.Device.PMPGranularity = 96 }, false},
		{"16 regions", func(p *Profile) { p.Device.PMPRegions = 16 }, true},
		{"29 hpm counters", func(p *Profile) { p.Device.HPMCounters = 29 }, true},
		{"30 hpm counters", func(p *Profile) { p.Device.HPMCounters = 30 }, false},
		{"zero cpi", func(p *Profile) { p.Device.CPI = 0 }, false},
		{"zero wait", func(p *Profile) { p.Run.Wait = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mutate(p)
			err := Validate(p)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsValidationError(err), "got %v", err)
			}
		})
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	p := Default()
	p.Faults.IgnorePMPLock = true

	data, err := p.Marshal()
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, p, back)
}
