package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hartcheck/internal/hart"
	"github.com/roach88/hartcheck/internal/sim"
	"github.com/roach88/hartcheck/internal/trap"
)

func setup(t *testing.T, user bool) (*sim.Device, *trap.Observatory) {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.User = user
	d := sim.New(cfg, nil)
	obs := trap.New(d, nil)
	obs.InstallDefaults()
	obs.Arm()
	return d, obs
}

func TestRunReduced_NormalCompletion(t *testing.T) {
	d, obs := setup(t, true)
	var mode hart.Mode

	rec := RunReduced(d, obs, func() {
		mode = d.Mode()
		d.Nop(1)
	})

	assert.Equal(t, hart.User, mode)
	assert.False(t, rec.Occurred, "escape ecall is not recorded")
	assert.False(t, obs.Read().Occurred)
	assert.Equal(t, hart.Machine, d.Mode())
}

func TestRunReduced_IgnoresEarlierTrap(t *testing.T) {
	d, obs := setup(t, true)
	d.Exec(hart.InsnEBREAK)
	require.True(t, obs.Read().Occurred)

	rec := RunReduced(d, obs, func() { d.Load(hart.DMEMBase) })

	assert.False(t, rec.Occurred, "breakpoint before the block is not reported")
	assert.False(t, obs.Read().Occurred)
	assert.Equal(t, hart.Machine, d.Mode())
}

func TestRunReduced_Trap(t *testing.T) {
	d, obs := setup(t, true)
	var value uint32 = 0xFFFFFFFF

	rec := RunReduced(d, obs, func() {
		value = d.ReadCSR(hart.CSRMisa)
	})

	require.True(t, rec.Occurred)
	assert.Equal(t, trap.Illegal, rec.Cause)
	assert.Equal(t, hart.User, rec.FromMode)
	assert.Zero(t, value, "denied read yields zero")
	assert.Equal(t, hart.Machine, d.Mode())
}

func TestRunReduced_LeakingDevice(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Faults.LeakOnFault = true
	d := sim.New(cfg, nil)
	obs := trap.New(d, nil)
	obs.InstallDefaults()
	obs.Arm()
	var value uint32

	RunReduced(d, obs, func() { value = d.ReadCSR(hart.CSRMisa) })

	assert.NotZero(t, value)
}

func TestRunReduced_NoUserMode(t *testing.T) {
	d, obs := setup(t, false)
	var mode hart.Mode = hart.User

	rec := RunReduced(d, obs, func() { mode = d.Mode() })

	assert.Equal(t, hart.Machine, mode)
	assert.False(t, rec.Occurred)
	assert.Equal(t, hart.Machine, d.Mode())
}
