package trap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/hartcheck/internal/hart"
)

func TestCause_McauseRoundTrip(t *testing.T) {
	for c := Cause(1); int(c) <= NumVectors; c++ {
		got, ok := FromMcause(c.Mcause())
		assert.True(t, ok, "%s", c)
		assert.Equal(t, c, got)
	}
}

func TestCause_FromMcauseUnknown(t *testing.T) {
	for _, raw := range []uint32{9, 15, hart.CauseInterrupt | 1, hart.CauseInterrupt | 40} {
		_, ok := FromMcause(raw)
		assert.False(t, ok, "0x%08x", raw)
	}
}

func TestCause_String(t *testing.T) {
	assert.Equal(t, "none", None.String())
	assert.Equal(t, "illegal instruction", Illegal.String())
	assert.Equal(t, "fast interrupt 8", FIRQ(8).String())
	assert.Equal(t, "cause(99)", Cause(99).String())
}
