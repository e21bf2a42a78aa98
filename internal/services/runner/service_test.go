package runner

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fgeck/powerman-homelab/internal/config"
	"github.com/fgeck/powerman-homelab/internal/models"
	"github.com/fgeck/powerman-homelab/internal/services/clientwatch"
	"github.com/fgeck/powerman-homelab/internal/services/notify"
	"github.com/fgeck/powerman-homelab/internal/services/power"
	"github.com/fgeck/powerman-homelab/internal/services/schedule"
	"github.com/fgeck/powerman-homelab/internal/services/wakeup"
	"github.com/fgeck/powerman-homelab/internal/state"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProbe struct {
	reachable map[string]bool
}

func (m *mockProbe) Reachable(_ context.Context, host string) bool {
	return m.reachable[host]
}

func (m *mockProbe) AnyReachable(ctx context.Context, hosts []string) bool {
	for _, h := range hosts {
		if m.Reachable(ctx, h) {
			return true
		}
	}
	return false
}

type mockWOL struct {
	woken []string
}

func (m *mockWOL) Wake(_ context.Context, host models.ManagedHost, broadcastIP string) (*models.WOLResult, error) {
	m.woken = append(m.woken, host.Name)
	return &models.WOLResult{PacketSent: true, BroadcastIP: broadcastIP}, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type fixture struct {
	runner    *Impl
	cfgStore  *config.Store
	cfgPath   string
	state     *state.Store
	transport *notify.FakeTransport
	probe     *mockProbe
	wol       *mockWOL
	now       time.Time
	statusOut string
}

func newFixture(t *testing.T, configYAML string) *fixture {
	t.Helper()
	dir := t.TempDir()
	statusOut := filepath.Join(dir, "virtual.device")
	stateDir := filepath.Join(dir, "state")

	cfgPath := filepath.Join(dir, "powerman.yaml")
	content := "ups_status_file: " + statusOut + "\nstate_dir: " + stateDir + "\n" + configYAML
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	cfgStore, err := config.NewStore(cfgPath)
	require.NoError(t, err)

	stateStore, err := state.New(stateDir)
	require.NoError(t, err)

	f := &fixture{
		cfgStore:  cfgStore,
		cfgPath:   cfgPath,
		state:     stateStore,
		transport: &notify.FakeTransport{},
		probe:     &mockProbe{reachable: map[string]bool{}},
		wol:       &mockWOL{},
		statusOut: statusOut,
		now:       time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	logger := testLogger()
	gate := notify.NewGate(logger, cfgStore.Config().Notify, f.transport, stateStore)
	f.runner = NewWithServices(
		logger,
		cfgStore,
		stateStore,
		gate,
		schedule.New(logger, cfgStore, gate),
		power.New(logger, f.probe, stateStore, gate),
		wakeup.New(logger, f.probe, f.wol, stateStore, gate),
		clientwatch.New(logger, stateStore, gate),
		func() time.Time { return f.now },
		stateStore.LockPath(),
	)
	return f
}

func (f *fixture) statusLine(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.statusOut)
	require.NoError(t, err)
	return string(data)
}

const scenarioConfig = `
sentinel_hosts:
  - 10.0.0.1
  - 10.0.0.2
  - 10.0.0.3
default_broadcast_ip: 192.168.1.255
wol_delay_minutes: 5
client_stale_timeout_minutes: 5
hosts:
  - name: nas
    ip: 192.168.1.20
    mac: "AA:BB:CC:DD:EE:01"
    shutdown_delay_minutes: 3
  - name: desktop
    ip: 192.168.1.30
    mac: "AA:BB:CC:DD:EE:02"
notify:
  power_fail: true
  power_restored: true
  client_shutdown: true
  client_stale: true
  simulation: true
  app_error: true
`

func TestTick_FullOutageCycle(t *testing.T) {
	f := newFixture(t, scenarioConfig)
	ctx := context.Background()

	// T: all sentinels unreachable.
	require.NoError(t, f.runner.Tick(ctx))

	assert.Equal(t, "ups.status: OB LB\n", f.statusLine(t))
	st, err := f.state.LoadPowerState()
	require.NoError(t, err)
	assert.Equal(t, models.PhaseFail, st.Phase)
	_, found := f.transport.Find("[UPS] ALERT: Power Outage Detected")
	assert.True(t, found)
	require.Len(t, f.transport.Messages, 1)

	// T+1m: still down, no repeated notification.
	f.now = f.now.Add(time.Minute)
	require.NoError(t, f.runner.Tick(ctx))
	assert.Len(t, f.transport.Messages, 1)

	// T+5m: sentinel A is back.
	f.now = f.now.Add(4 * time.Minute)
	f.probe.reachable["10.0.0.1"] = true
	require.NoError(t, f.runner.Tick(ctx))

	assert.Equal(t, "ups.status: OL\n", f.statusLine(t))
	st, err = f.state.LoadPowerState()
	require.NoError(t, err)
	assert.Equal(t, models.PhaseRestored, st.Phase)
	msg, found := f.transport.Find("[UPS] INFO: Power Restored")
	require.True(t, found)
	assert.Contains(t, msg.Body, "~5 minutes")

	// T+7m: delay not elapsed, nothing woken yet.
	f.now = f.now.Add(2 * time.Minute)
	require.NoError(t, f.runner.Tick(ctx))
	assert.Empty(t, f.wol.woken)

	// T+10m: delay elapsed; both managed hosts still offline.
	f.now = f.now.Add(3 * time.Minute)
	require.NoError(t, f.runner.Tick(ctx))

	assert.Equal(t, []string{"nas", "desktop"}, f.wol.woken)
	msg, found = f.transport.Find("[UPS] INFO: WoL Sequence Initiated")
	require.True(t, found)
	assert.Contains(t, msg.Body, "- nas (192.168.1.20)")
	assert.Contains(t, msg.Body, "- desktop (192.168.1.30)")

	st, err = f.state.LoadPowerState()
	require.NoError(t, err)
	assert.True(t, st.None())
	assert.Equal(t, "ups.status: OL\n", f.statusLine(t))

	table, err := f.state.LoadClientStatuses()
	require.NoError(t, err)
	assert.Equal(t, models.ClientStatusWOLSent, table["192.168.1.20"].Status)

	// T+11m: steady online, no further packets or notifications.
	f.now = f.now.Add(time.Minute)
	messages := len(f.transport.Messages)
	require.NoError(t, f.runner.Tick(ctx))
	assert.Equal(t, []string{"nas", "desktop"}, f.wol.woken)
	assert.Len(t, f.transport.Messages, messages)
}

func TestTick_ScheduleFlipsSimulationSameTick(t *testing.T) {
	f := newFixture(t, scenarioConfig+`
schedules:
  - name: drill
    enabled: true
    type: one-time
    date: "2026-08-30"
    time: "12:00"
    action: start
`)
	// Sentinels are reachable, but the schedule forces an outage.
	f.probe.reachable["10.0.0.1"] = true

	require.NoError(t, f.runner.Tick(context.Background()))

	// The flipped flag was observed by the power stage of the same tick.
	assert.Equal(t, "ups.status: OB LB\n", f.statusLine(t))
	_, found := f.transport.Find("[UPS] INFO: Power Outage Simulation Started")
	assert.True(t, found)
	_, found = f.transport.Find("[UPS] ALERT: Power Outage Detected")
	assert.True(t, found)

	// The one-time schedule was durably disabled.
	reloaded, err := config.NewStore(f.cfgPath)
	require.NoError(t, err)
	assert.False(t, reloaded.Config().Schedules[0].Enabled)
}

func TestTick_SkipsWhenLockHeld(t *testing.T) {
	f := newFixture(t, scenarioConfig)

	other := flock.New(f.state.LockPath())
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = other.Unlock() }()

	require.NoError(t, f.runner.Tick(context.Background()))

	// Nothing ran: no status file was written.
	_, err = os.Stat(f.statusOut)
	assert.True(t, os.IsNotExist(err))
}

func TestTick_ClientStatusStageRuns(t *testing.T) {
	f := newFixture(t, scenarioConfig)
	f.probe.reachable["10.0.0.1"] = true

	// The UPS client reported a pending shutdown.
	require.NoError(t, f.state.RecordClientStatus("192.168.1.20", models.ClientStatusShutdownPending, f.now.Add(-time.Minute)))

	require.NoError(t, f.runner.Tick(context.Background()))

	_, found := f.transport.Find("[UPS] ALERT: Client Shutdown")
	assert.True(t, found)
}
