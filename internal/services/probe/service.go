// Package probe provides host reachability checks.
package probe

import (
	"context"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"github.com/rs/zerolog"
)

// Service defines the interface for reachability probing.
type Service interface {
	// Reachable reports whether host answers a single probe within the
	// timeout. A timeout means "unreachable", not an error.
	Reachable(ctx context.Context, host string) bool
	// AnyReachable probes hosts strictly in order and reports whether
	// any of them answered. Probing stops at the first responder.
	AnyReachable(ctx context.Context, hosts []string) bool
}

// Pinger wraps the ICMP library for mocking.
type Pinger interface {
	Ping(ctx context.Context, host string, timeout time.Duration) (bool, error)
}

// ICMPPinger is the default implementation using pro-bing.
type ICMPPinger struct{}

// Ping sends one ICMP echo request and waits up to timeout for a reply.
func (p *ICMPPinger) Ping(ctx context.Context, host string, timeout time.Duration) (bool, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false, err
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	// Raw ICMP sockets; the process runs as root for /var/run anyway.
	pinger.SetPrivileged(true)

	if err := pinger.RunWithContext(ctx); err != nil {
		return false, err
	}
	return pinger.Statistics().PacketsRecv > 0, nil
}

// Impl implements the probe Service interface.
type Impl struct {
	pinger  Pinger
	timeout time.Duration
	logger  zerolog.Logger
}

// New creates a new probe service with the given per-probe timeout.
func New(logger zerolog.Logger, timeout time.Duration) *Impl {
	return &Impl{pinger: &ICMPPinger{}, timeout: timeout, logger: logger}
}

// NewWithPinger creates a new probe service with a custom pinger (for testing).
func NewWithPinger(logger zerolog.Logger, timeout time.Duration, pinger Pinger) *Impl {
	return &Impl{pinger: pinger, timeout: timeout, logger: logger}
}

// Reachable reports whether host answers a single probe.
func (s *Impl) Reachable(ctx context.Context, host string) bool {
	ok, err := s.pinger.Ping(ctx, host, s.timeout)
	if err != nil {
		s.logger.Debug().Err(err).Str("host", host).Msg("probe failed")
		return false
	}
	return ok
}

// AnyReachable probes hosts sequentially, stopping at the first responder.
// The sequential order keeps per-host log output deterministic.
func (s *Impl) AnyReachable(ctx context.Context, hosts []string) bool {
	for _, host := range hosts {
		if s.Reachable(ctx, host) {
			s.logger.Debug().Str("host", host).Msg("host is reachable")
			return true
		}
		s.logger.Debug().Str("host", host).Msg("host did not respond")
	}
	return false
}
