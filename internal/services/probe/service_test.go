package probe

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type mockPinger struct {
	pingFunc func(ctx context.Context, host string, timeout time.Duration) (bool, error)
	probed   []string
}

func (m *mockPinger) Ping(ctx context.Context, host string, timeout time.Duration) (bool, error) {
	m.probed = append(m.probed, host)
	if m.pingFunc != nil {
		return m.pingFunc(ctx, host, timeout)
	}
	return false, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestReachable_True(t *testing.T) {
	pinger := &mockPinger{
		pingFunc: func(_ context.Context, _ string, _ time.Duration) (bool, error) {
			return true, nil
		},
	}
	svc := NewWithPinger(testLogger(), time.Second, pinger)

	assert.True(t, svc.Reachable(context.Background(), "192.168.1.1"))
}

func TestReachable_ErrorMeansUnreachable(t *testing.T) {
	pinger := &mockPinger{
		pingFunc: func(_ context.Context, _ string, _ time.Duration) (bool, error) {
			return false, errors.New("sendto: operation not permitted")
		},
	}
	svc := NewWithPinger(testLogger(), time.Second, pinger)

	assert.False(t, svc.Reachable(context.Background(), "192.168.1.1"))
}

func TestReachable_PassesConfiguredTimeout(t *testing.T) {
	var captured time.Duration
	pinger := &mockPinger{
		pingFunc: func(_ context.Context, _ string, timeout time.Duration) (bool, error) {
			captured = timeout
			return true, nil
		},
	}
	svc := NewWithPinger(testLogger(), 2*time.Second, pinger)

	svc.Reachable(context.Background(), "192.168.1.1")

	assert.Equal(t, 2*time.Second, captured)
}

func TestAnyReachable_StopsAtFirstResponder(t *testing.T) {
	pinger := &mockPinger{
		pingFunc: func(_ context.Context, host string, _ time.Duration) (bool, error) {
			return host == "192.168.1.2", nil
		},
	}
	svc := NewWithPinger(testLogger(), time.Second, pinger)

	ok := svc.AnyReachable(context.Background(), []string{"192.168.1.1", "192.168.1.2", "192.168.1.3"})

	assert.True(t, ok)
	// Probing is sequential and stops at the first responder.
	assert.Equal(t, []string{"192.168.1.1", "192.168.1.2"}, pinger.probed)
}

func TestAnyReachable_AllUnreachable(t *testing.T) {
	pinger := &mockPinger{}
	svc := NewWithPinger(testLogger(), time.Second, pinger)

	ok := svc.AnyReachable(context.Background(), []string{"192.168.1.1", "192.168.1.2"})

	assert.False(t, ok)
	assert.Equal(t, []string{"192.168.1.1", "192.168.1.2"}, pinger.probed)
}

func TestAnyReachable_NoHosts(t *testing.T) {
	pinger := &mockPinger{}
	svc := NewWithPinger(testLogger(), time.Second, pinger)

	assert.False(t, svc.AnyReachable(context.Background(), nil))
	assert.Empty(t, pinger.probed)
}
