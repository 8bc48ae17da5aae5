package catalog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hartcheck/internal/capability"
	"github.com/roach88/hartcheck/internal/harness"
	"github.com/roach88/hartcheck/internal/sim"
	"github.com/roach88/hartcheck/internal/trap"
)

func newEnv(t *testing.T, mutate func(*sim.Config)) *harness.Env {
	t.Helper()
	cfg := sim.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	d := sim.New(cfg, nil)
	env := &harness.Env{Hart: d, Obs: trap.New(d, nil), Caps: capability.Probe(d)}
	Prepare(env)
	return env
}

func run(t *testing.T, mutate func(*sim.Config)) (*harness.Result, error) {
	t.Helper()
	return harness.NewRunner(newEnv(t, mutate)).Run(Cases())
}

func failed(res *harness.Result) []string {
	var names []string
	for _, o := range res.Outcomes {
		if o.Status == harness.Failed {
			names = append(names, o.Name)
		}
	}
	return names
}

func TestCases_Catalog(t *testing.T) {
	cases := Cases()

	require.Len(t, cases, 48)
	seen := make(map[string]bool)
	for _, c := range cases {
		assert.False(t, seen[c.Name], "duplicate case %q", c.Name)
		seen[c.Name] = true
		assert.NotEmpty(t, c.Component, c.Name)
	}
	assert.Equal(t, "cycle carry", cases[0].Name)
	assert.Equal(t, "lr/sc fails after trap", cases[len(cases)-1].Name)
}

func TestRun_DefaultDevicePasses(t *testing.T) {
	res, err := run(t, nil)
	require.NoError(t, err)

	assert.Empty(t, failed(res))
	assert.Equal(t, harness.Ledger{Total: 46, Passed: 46, Skipped: 2}, res.Ledger)
	assert.Equal(t, 0, res.Ledger.ExitCode())

	harness.AssertGolden(t, "default_device", res)
}

func TestRun_CFSSkipSaysWhy(t *testing.T) {
	res, err := run(t, func(c *sim.Config) { c.Peripherals.CFS = true })
	require.NoError(t, err)

	out := res.Outcomes[27]
	require.Equal(t, "cfs firq", out.Name)
	assert.Equal(t, harness.Skipped, out.Status)
	assert.Equal(t, "no trigger on the reference device", out.Reason)
}

func TestRun_MinimalDeviceSkips(t *testing.T) {
	res, err := run(t, func(c *sim.Config) {
		c.Compressed = false
		c.User = false
		c.Atomic = false
		c.HPMCounters = 0
		c.PMPRegions = 0
		c.ExtMem = false
		c.Peripherals = sim.Peripherals{}
	})
	require.NoError(t, err)

	assert.Empty(t, failed(res))
	assert.Len(t, res.Outcomes, 48)
	assert.Equal(t, 48, res.Ledger.Total+res.Ledger.Skipped)
	assert.Greater(t, res.Ledger.Skipped, 20)

	byName := make(map[string]harness.Outcome)
	for _, o := range res.Outcomes {
		byName[o.Name] = o
	}
	assert.Equal(t, harness.Passed, byName["instruction misaligned"].Status)
	assert.Equal(t, harness.Skipped, byName["illegal compressed instruction"].Status)
	assert.Equal(t, "no atomic extension", byName["lr/sc succeeds"].Reason)
}

func TestRun_FaultsAreDetected(t *testing.T) {
	tests := []struct {
		name   string
		fault  func(*sim.Faults)
		failed string
	}{
		{"leak on fault", func(f *sim.Faults) { f.LeakOnFault = true }, "pmp user read denied"},
		{"reservation kept across store", func(f *sim.Faults) { f.KeepReservationOnStore = true }, "lr/sc fails after store"},
		{"reservation kept across trap", func(f *sim.Faults) { f.KeepReservationOnTrap = true }, "lr/sc fails after trap"},
		{"pmp lock ignored", func(f *sim.Faults) { f.IgnorePMPLock = true }, "pmp locked entry immutable"},
		{"xirq priority reversed", func(f *sim.Faults) { f.ReverseXIRQPriority = true }, "xirq channel ordering"},
		{"nmi dropped", func(f *sim.Faults) { f.DropNMI = true }, "non-maskable irq"},
		{"mcounteren ignored", func(f *sim.Faults) { f.IgnoreCounteren = true }, "mcounteren denies user cycle"},
		{"wrong previous mode", func(f *sim.Faults) { f.WrongPreviousMode = true }, "ecall from user mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := run(t, func(c *sim.Config) { tt.fault(&c.Faults) })
			require.NoError(t, err)

			assert.Contains(t, failed(res), tt.failed)
			assert.Equal(t, res.Ledger.Failed, res.Ledger.ExitCode())
			assert.Equal(t, res.Ledger.Total, res.Ledger.Passed+res.Ledger.Failed)
			assert.Len(t, res.Outcomes, res.Ledger.Total+res.Ledger.Skipped)
		})
	}
}

func TestRun_MissingTestbenchAborts(t *testing.T) {
	res, err := run(t, func(c *sim.Config) { c.Testbench = false })

	require.Error(t, err)
	assert.True(t, harness.IsUnrecoverable(err))
	last := res.Outcomes[len(res.Outcomes)-1]
	assert.Equal(t, "machine software irq", last.Name)
	assert.Equal(t, harness.Failed, last.Status)
	assert.Less(t, len(res.Outcomes), 48)
}

func TestRun_Idempotent(t *testing.T) {
	first, err := run(t, nil)
	require.NoError(t, err)
	second, err := run(t, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Vector(), second.Vector())
}

func TestFilter(t *testing.T) {
	tests := []struct {
		pattern string
		want    int
	}{
		{"", 48},
		{"pmp *", 5},
		{"lr/sc *", 3},
		{"uart? * firq", 4},
		{"nothing", 0},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := Filter(Cases(), tt.pattern)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	_, err := Filter(Cases(), "[")
	assert.Error(t, err)
}

func TestCounterReport(t *testing.T) {
	env := newEnv(t, nil)
	env.Hart.Nop(10)

	var buf bytes.Buffer
	CounterReport(env, &buf)

	out := buf.String()
	assert.Contains(t, out, "HPM counters:")
	assert.Contains(t, out, "instret:")
	assert.Contains(t, out, "hpm3")
	assert.Contains(t, out, "hpm14")
	assert.NotContains(t, out, "hpm15")
}
