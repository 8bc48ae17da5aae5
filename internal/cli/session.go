package cli

import (
	"log/slog"

	"github.com/roach88/hartcheck/internal/capability"
	"github.com/roach88/hartcheck/internal/catalog"
	"github.com/roach88/hartcheck/internal/harness"
	"github.com/roach88/hartcheck/internal/profile"
	"github.com/roach88/hartcheck/internal/sim"
	"github.com/roach88/hartcheck/internal/trap"
)

// loadProfile reads the profile at path, or returns the default profile when
// path is empty.
func loadProfile(path string) (*profile.Profile, error) {
	if path == "" {
		return profile.Default(), nil
	}
	return profile.Load(path)
}

// newEnv resets a reference device built from p, probes it and brings it
// into the state every case assumes.
func newEnv(p *profile.Profile, logger *slog.Logger) *harness.Env {
	d := sim.New(p.SimConfig(), logger)
	env := &harness.Env{
		Hart:   d,
		Obs:    trap.New(d, logger),
		Caps:   capability.Probe(d),
		Logger: logger,
		Wait:   p.Run.Wait,
	}
	catalog.Prepare(env)
	return env
}

// probe returns the capability set of the device p describes.
func probe(p *profile.Profile, logger *slog.Logger) capability.Set {
	return capability.Probe(sim.New(p.SimConfig(), logger))
}
