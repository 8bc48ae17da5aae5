package lrsc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/hartcheck/internal/hart"
	"github.com/roach88/hartcheck/internal/sim"
	"github.com/roach88/hartcheck/internal/testutil"
	"github.com/roach88/hartcheck/internal/trap"
)

const word = hart.DMEMBase + 0x1000

func setup(t *testing.T, mutate func(*sim.Config)) *Verifier {
	t.Helper()
	env := testutil.NewEnv(t, mutate)
	return New(env.Hart, env.Obs, word)
}

func TestSucceed(t *testing.T) {
	r := setup(t, nil).Succeed()

	assert.True(t, r.Succeeded())
	assert.Equal(t, Initial, r.Reserved)
	assert.Equal(t, Conditional, r.Final)
	assert.False(t, r.Trap.Occurred)
}

func TestFailAfterStore(t *testing.T) {
	r := setup(t, nil).FailAfterStore()

	assert.False(t, r.Succeeded())
	assert.Equal(t, Initial, r.Reserved)
	assert.Equal(t, Intervening, r.Final)
	assert.False(t, r.Trap.Occurred)
}

func TestFailAfterTrap(t *testing.T) {
	r := setup(t, nil).FailAfterTrap()

	assert.False(t, r.Succeeded())
	assert.Equal(t, Initial, r.Reserved)
	assert.Equal(t, Initial, r.Final, "memory unchanged")
	assert.Equal(t, trap.EcallM, r.Trap.Cause)
}

func TestFaultyReservations(t *testing.T) {
	t.Run("kept across store", func(t *testing.T) {
		r := setup(t, func(c *sim.Config) { c.Faults.KeepReservationOnStore = true }).FailAfterStore()
		assert.True(t, r.Succeeded())
		assert.Equal(t, Conditional, r.Final)
	})
	t.Run("kept across trap", func(t *testing.T) {
		r := setup(t, func(c *sim.Config) { c.Faults.KeepReservationOnTrap = true }).FailAfterTrap()
		assert.True(t, r.Succeeded())
		assert.Equal(t, Conditional, r.Final)
	})
}

func TestScenariosAreIndependent(t *testing.T) {
	v := setup(t, nil)

	v.FailAfterStore()
	r := v.Succeed()

	assert.True(t, r.Succeeded())
	assert.Equal(t, Initial, r.Reserved)
}
