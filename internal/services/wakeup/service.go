// Package wakeup orchestrates the post-restoration Wake-on-LAN cycle.
package wakeup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fgeck/powerman-homelab/internal/models"
	"github.com/fgeck/powerman-homelab/internal/services/notify"
	"github.com/fgeck/powerman-homelab/internal/services/probe"
	"github.com/fgeck/powerman-homelab/internal/services/wol"
	"github.com/rs/zerolog"
)

// Service defines the interface for the wake orchestrator.
type Service interface {
	// Run executes the wake sequence if the state machine is in the
	// restored phase and the configured delay has elapsed. On
	// completion the persisted power state is cleared, closing the
	// outage cycle.
	Run(ctx context.Context, cfg models.Config, st models.PowerState, now time.Time) error
}

// StateStore is the subset of the state store the orchestrator needs.
type StateStore interface {
	RecordClientStatus(ip, status string, at time.Time) error
	ClearPowerState() error
	ResetClientFlags() error
}

// Impl implements the wakeup Service interface.
type Impl struct {
	probeSvc probe.Service
	wolSvc   wol.Service
	store    StateStore
	notifier notify.Service
	logger   zerolog.Logger
}

// New creates a new wake orchestrator.
func New(logger zerolog.Logger, probeSvc probe.Service, wolSvc wol.Service, store StateStore, notifier notify.Service) *Impl {
	return &Impl{probeSvc: probeSvc, wolSvc: wolSvc, store: store, notifier: notifier, logger: logger}
}

// Run checks cycle eligibility and wakes eligible offline hosts, in
// configuration order, at most once per outage cycle.
func (s *Impl) Run(ctx context.Context, cfg models.Config, st models.PowerState, now time.Time) error {
	if st.Phase != models.PhaseRestored {
		return nil
	}

	elapsed := now.Sub(st.Since)
	if elapsed < cfg.WOLDelay() {
		s.logger.Info().
			Dur("elapsed", elapsed).
			Dur("delay", cfg.WOLDelay()).
			Msg("wake delay not yet elapsed")
		return nil
	}

	s.logger.Info().Msg("wake delay passed, initiating wake sequence")

	var woken []string
	for _, host := range cfg.Hosts {
		if host.IP == "" || host.MAC == "" {
			s.logger.Warn().Str("host", host.Name).Msg("skipping host without IP or MAC")
			continue
		}
		if !host.WakeEnabled() {
			s.logger.Info().Str("host", host.Name).Msg("automatic wake disabled for host, skipping")
			continue
		}
		if s.probeSvc.Reachable(ctx, host.IP) {
			s.logger.Info().Str("host", host.Name).Str("ip", host.IP).Msg("host is already online, skipping")
			continue
		}

		result, err := s.wolSvc.Wake(ctx, host, cfg.DefaultBroadcastIP)
		if err != nil {
			return fmt.Errorf("waking %s: %w", host.Name, err)
		}
		if result.Error != nil {
			s.logger.Error().Err(result.Error).Str("host", host.Name).Msg("could not send WOL packet")
			continue
		}

		if err := s.store.RecordClientStatus(host.IP, models.ClientStatusWOLSent, now); err != nil {
			s.logger.Error().Err(err).Str("host", host.Name).Msg("could not record wol_sent status")
		}
		woken = append(woken, fmt.Sprintf("- %s (%s)", host.Name, host.IP))
	}

	if len(woken) > 0 {
		s.notifier.Notify(ctx, models.EventPowerRestored,
			"[UPS] INFO: WoL Sequence Initiated",
			"Sent WoL signals to:\n\n"+strings.Join(woken, "\n"))
	}

	// The full host list has been processed; close the outage cycle.
	if err := s.store.ClearPowerState(); err != nil {
		return err
	}
	if err := s.store.ResetClientFlags(); err != nil {
		return err
	}

	s.logger.Info().Int("woken", len(woken)).Msg("wake sequence completed")
	return nil
}
