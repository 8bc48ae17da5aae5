package testutil

import (
	"testing"

	"github.com/roach88/hartcheck/internal/capability"
	"github.com/roach88/hartcheck/internal/harness"
	"github.com/roach88/hartcheck/internal/sim"
	"github.com/roach88/hartcheck/internal/trap"
)

// NewDevice returns a reference device built from the default configuration
// after mutate has adjusted it.
func NewDevice(t *testing.T, mutate func(*sim.Config)) *sim.Device {
	t.Helper()
	cfg := sim.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return sim.New(cfg, nil)
}

// NewEnv returns a case environment over a fresh reference device with the
// default handlers installed and the capability set probed.
func NewEnv(t *testing.T, mutate func(*sim.Config)) *harness.Env {
	t.Helper()
	d := NewDevice(t, mutate)
	obs := trap.New(d, nil)
	obs.InstallDefaults()
	return &harness.Env{Hart: d, Obs: obs, Caps: capability.Probe(d)}
}
