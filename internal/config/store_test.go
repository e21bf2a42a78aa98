package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "powerman.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStore_SetSimulationMode_RoundTrip(t *testing.T) {
	path := writeConfigFile(t, `
sentinel_hosts:
  - 192.168.1.1
simulation_mode: false
`)

	store, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, store.SetSimulationMode(true))

	// Read-your-writes within the same store.
	assert.True(t, store.Config().SimulationMode)

	// Durable across a reload.
	reloaded, err := NewStore(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Config().SimulationMode)
	assert.Equal(t, []string{"192.168.1.1"}, reloaded.Config().SentinelHosts)
}

func TestStore_DisableSchedule_RoundTrip(t *testing.T) {
	path := writeConfigFile(t, `
schedules:
  - name: test-run
    enabled: true
    type: one-time
    date: "2026-09-01"
    time: "03:00"
    action: start
  - name: other
    enabled: true
    type: recurring
    time: "04:00"
    day_of_week: everyday
    action: stop
`)

	store, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, store.DisableSchedule("test-run"))

	assert.False(t, store.Config().Schedules[0].Enabled)
	assert.True(t, store.Config().Schedules[1].Enabled)

	reloaded, err := NewStore(path)
	require.NoError(t, err)
	assert.False(t, reloaded.Config().Schedules[0].Enabled)
	assert.True(t, reloaded.Config().Schedules[1].Enabled)
}

func TestStore_DisableSchedule_UnknownIsNoOp(t *testing.T) {
	path := writeConfigFile(t, `
sentinel_hosts:
  - 192.168.1.1
`)

	store, err := NewStore(path)
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, store.DisableSchedule("missing"))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	// No matching schedule means no write at all.
	assert.Equal(t, before, after)
}

func TestStore_DisableSchedule_Idempotent(t *testing.T) {
	path := writeConfigFile(t, `
schedules:
  - name: test-run
    enabled: true
    type: one-time
    date: "2026-09-01"
    time: "03:00"
    action: start
`)

	store, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, store.DisableSchedule("test-run"))
	require.NoError(t, store.DisableSchedule("test-run"))

	assert.False(t, store.Config().Schedules[0].Enabled)
}
