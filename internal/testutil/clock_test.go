package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_StartsAtEpoch(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, Epoch, clock.Now())
}

func TestDeterministicClock_AdvancesByStep(t *testing.T) {
	clock := NewDeterministicClock()
	clock.Step = time.Minute

	clock.Now()
	assert.Equal(t, Epoch.Add(time.Minute), clock.Now())
	assert.Equal(t, Epoch.Add(2*time.Minute), clock.Now())
}

func TestSequentialIDGenerator(t *testing.T) {
	gen := &SequentialIDGenerator{}

	assert.Equal(t, "run-0001", gen.Generate())
	assert.Equal(t, "run-0002", gen.Generate())
}

func TestNewEnv_ProbesDevice(t *testing.T) {
	env := NewEnv(t, nil)

	assert.True(t, env.Caps.User)
	assert.Equal(t, 8, env.Caps.PMPRegions)
	assert.NotNil(t, env.Obs)
}
