// Package power tracks the mains power state machine and drives the
// virtual UPS status file.
package power

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/powerman-homelab/internal/models"
	"github.com/fgeck/powerman-homelab/internal/services/notify"
	"github.com/fgeck/powerman-homelab/internal/services/probe"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

// UPS status lines consumed by the NUT dummy driver.
const (
	statusOnline    = "ups.status: OL"
	statusOnBattery = "ups.status: OB LB"
)

// Service defines the interface for the power state tracker.
type Service interface {
	// Evaluate observes mains power once, applies state transitions,
	// and rewrites the UPS status file. It returns the resulting state
	// and whether power was observed online.
	Evaluate(ctx context.Context, cfg models.Config, now time.Time) (models.PowerState, bool, error)
}

// StateStore is the subset of the state store the tracker needs.
type StateStore interface {
	LoadPowerState() (models.PowerState, error)
	SavePowerState(st models.PowerState) error
	ResetClientFlags() error
}

// Impl implements the power Service interface.
type Impl struct {
	probeSvc probe.Service
	store    StateStore
	notifier notify.Service
	logger   zerolog.Logger
}

// New creates a new power state tracker.
func New(logger zerolog.Logger, probeSvc probe.Service, store StateStore, notifier notify.Service) *Impl {
	return &Impl{probeSvc: probeSvc, store: store, notifier: notifier, logger: logger}
}

// Evaluate runs one observation of mains power.
func (s *Impl) Evaluate(ctx context.Context, cfg models.Config, now time.Time) (models.PowerState, bool, error) {
	online := s.observe(ctx, cfg)

	prior, err := s.store.LoadPowerState()
	if err != nil {
		return models.PowerState{}, online, err
	}

	var st models.PowerState
	if online {
		st, err = s.handleOnline(ctx, cfg, prior, now)
	} else {
		st, err = s.handleOffline(ctx, prior, now)
	}
	if err != nil {
		return st, online, err
	}

	// The status file is rewritten every tick regardless of
	// transitions; NUT clients poll it continuously.
	if err := s.writeStatusFile(cfg.UPSStatusFile, online); err != nil {
		return st, online, err
	}

	return st, online, nil
}

// observe determines whether mains power is on this tick. Simulation
// forces an outage without probing; otherwise power is off iff no
// sentinel host responds. No configured sentinels means always online.
func (s *Impl) observe(ctx context.Context, cfg models.Config) bool {
	if cfg.SimulationMode {
		s.logger.Warn().Msg("power outage simulation is active, forcing offline")
		return false
	}
	if len(cfg.SentinelHosts) == 0 {
		return true
	}
	if s.probeSvc.AnyReachable(ctx, cfg.SentinelHosts) {
		return true
	}
	s.logger.Warn().Msg("all sentinel hosts are offline, power is off")
	return false
}

func (s *Impl) handleOffline(ctx context.Context, prior models.PowerState, now time.Time) (models.PowerState, error) {
	if prior.Phase == models.PhaseFail {
		return prior, nil
	}

	s.logger.Warn().Msg("state change: power failure detected")

	if err := s.store.ResetClientFlags(); err != nil {
		return prior, err
	}

	s.notifier.Notify(ctx, models.EventPowerFail,
		"[UPS] ALERT: Power Outage Detected",
		"All sentinel hosts are offline. System is on UPS power.")

	st := models.PowerState{Phase: models.PhaseFail, Since: now}
	if err := s.store.SavePowerState(st); err != nil {
		return st, err
	}
	return st, nil
}

func (s *Impl) handleOnline(ctx context.Context, cfg models.Config, prior models.PowerState, now time.Time) (models.PowerState, error) {
	if prior.Phase != models.PhaseFail {
		// Either steady online or already waiting for the wake
		// sequence; the orchestrator checks the elapsed delay.
		return prior, nil
	}

	outage := now.Sub(prior.Since) / time.Minute
	s.logger.Info().Int64("outage_minutes", int64(outage)).Msg("state change: power restoration detected")

	s.notifier.Notify(ctx, models.EventPowerRestored,
		"[UPS] INFO: Power Restored",
		fmt.Sprintf("Power restored after ~%d minutes. Waiting %d minutes before the wake sequence.",
			int64(outage), cfg.WOLDelayMinutes))

	st := models.PowerState{Phase: models.PhaseRestored, Since: now}
	if err := s.store.SavePowerState(st); err != nil {
		return st, err
	}
	return st, nil
}

func (s *Impl) writeStatusFile(path string, online bool) error {
	line := statusOnBattery
	if online {
		line = statusOnline
	}
	if err := renameio.WriteFile(path, []byte(line+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing UPS status file: %w", err)
	}
	return nil
}
