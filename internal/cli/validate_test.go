package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidProfile(t *testing.T) {
	path := writeProfile(t, "name: lab\nrun:\n  wait: 8\n")

	out, err := execute(t, "validate", path)

	require.NoError(t, err)
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "(lab)")
}

func TestValidate_ReportsEveryIssue(t *testing.T) {
	good := writeProfile(t, "name: lab\n")
	bad := writeProfile(t, "device:\n  pmp_granularity: 48\n  hpm_counters: 40\n")

	out, err := execute(t, "validate", good, bad)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, out, "✗ "+bad)
	assert.Contains(t, out, "pmp_granularity")
	assert.Contains(t, out, "hpm_counters")
}

func TestValidate_UnknownField(t *testing.T) {
	path := writeProfile(t, "device:\n  pmp_region: 4\n")

	out, err := execute(t, "validate", path)

	require.Error(t, err)
	assert.Contains(t, out, "pmp_region")
}

func TestValidate_JSON(t *testing.T) {
	path := writeProfile(t, "name: lab\n")

	out, err := execute(t, "--format", "json", "validate", path)
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   []ProfileResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.True(t, resp.Data[0].Valid)
}

func TestValidate_RequiresArgument(t *testing.T) {
	_, err := execute(t, "validate")
	assert.Error(t, err)
}
