// Package runner executes one power-check tick.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/powerman-homelab/internal/config"
	"github.com/fgeck/powerman-homelab/internal/models"
	"github.com/fgeck/powerman-homelab/internal/services/clientwatch"
	"github.com/fgeck/powerman-homelab/internal/services/notify"
	"github.com/fgeck/powerman-homelab/internal/services/power"
	"github.com/fgeck/powerman-homelab/internal/services/probe"
	"github.com/fgeck/powerman-homelab/internal/services/schedule"
	"github.com/fgeck/powerman-homelab/internal/services/wakeup"
	"github.com/fgeck/powerman-homelab/internal/services/wol"
	"github.com/fgeck/powerman-homelab/internal/state"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

// Service defines the interface for the tick runner.
type Service interface {
	Tick(ctx context.Context) error
}

// Impl implements the runner Service interface. One Tick is one
// complete evaluation; the external scheduler (cron, systemd timer) is
// expected to invoke it once per minute. A file lock guards against
// overlapping runs, which would race on the persisted state and could
// double-fire the wake sequence.
type Impl struct {
	cfgStore    *config.Store
	stateStore  *state.Store
	notifier    notify.Service
	scheduleSvc schedule.Service
	powerSvc    power.Service
	wakeupSvc   wakeup.Service
	clientSvc   clientwatch.Service
	logger      zerolog.Logger
	now         func() time.Time
	lockPath    string
}

// New creates a fully wired tick runner. The notification transport is
// taken from the configuration: SMTP when configured, otherwise MQTT,
// otherwise notifications are logged and dropped.
func New(logger zerolog.Logger, cfgStore *config.Store, stateStore *state.Store) *Impl {
	cfg := cfgStore.Config()

	notifier := notify.NewGate(logger, cfg.Notify, buildTransport(logger, cfg), stateStore)
	probeSvc := probe.New(logger, cfg.ProbeTimeout())
	wolSvc := wol.New(logger)

	return &Impl{
		cfgStore:    cfgStore,
		stateStore:  stateStore,
		notifier:    notifier,
		scheduleSvc: schedule.New(logger, cfgStore, notifier),
		powerSvc:    power.New(logger, probeSvc, stateStore, notifier),
		wakeupSvc:   wakeup.New(logger, probeSvc, wolSvc, stateStore, notifier),
		clientSvc:   clientwatch.New(logger, stateStore, notifier),
		logger:      logger,
		now:         time.Now,
		lockPath:    stateStore.LockPath(),
	}
}

// NewWithServices creates a tick runner with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	cfgStore *config.Store,
	stateStore *state.Store,
	notifier notify.Service,
	scheduleSvc schedule.Service,
	powerSvc power.Service,
	wakeupSvc wakeup.Service,
	clientSvc clientwatch.Service,
	now func() time.Time,
	lockPath string,
) *Impl {
	return &Impl{
		cfgStore:    cfgStore,
		stateStore:  stateStore,
		notifier:    notifier,
		scheduleSvc: scheduleSvc,
		powerSvc:    powerSvc,
		wakeupSvc:   wakeupSvc,
		clientSvc:   clientSvc,
		logger:      logger,
		now:         now,
		lockPath:    lockPath,
	}
}

func buildTransport(logger zerolog.Logger, cfg *models.Config) notify.Transport {
	switch {
	case cfg.SMTP != nil:
		return notify.NewSMTPTransport(logger, *cfg.SMTP)
	case cfg.MQTT != nil:
		return notify.NewMQTTTransport(logger, *cfg.MQTT)
	default:
		return nil
	}
}

// Tick runs one power check: schedule evaluation, power state
// evaluation, wake orchestration, and client status evaluation, in
// that fixed order. Each stage observes mutations from the previous
// stage within the same tick.
func (s *Impl) Tick(ctx context.Context) error {
	fl := flock.New(s.lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring tick lock: %w", err)
	}
	if !locked {
		s.logger.Warn().Str("lock", s.lockPath).Msg("another tick is still running, skipping")
		return nil
	}
	defer func() { _ = fl.Unlock() }()

	now := s.now()
	s.logger.Info().Msg("power check initiated")

	var failedStep string
	var runErr error

	defer func() {
		if runErr != nil {
			s.notifier.Notify(ctx, models.EventAppError,
				"[UPS] CRITICAL: Power Check Failed",
				fmt.Sprintf("The power check failed during step %q.\n\nError: %v", failedStep, runErr))
		}
		s.logger.Info().Msg("power check finished")
	}()

	// Stage 1: schedules may flip the simulation flag read below.
	if fired := s.scheduleSvc.Evaluate(ctx, now); fired != nil {
		s.logger.Info().
			Str("schedule", fired.Name).
			Str("action", string(fired.Action)).
			Msg("schedule fired")
	}

	cfg := *s.cfgStore.Config()

	// Stage 2: power state machine and UPS status file.
	failedStep = "power"
	st, online, err := s.powerSvc.Evaluate(ctx, cfg, now)
	if err != nil {
		runErr = err
		return fmt.Errorf("power evaluation failed: %w", err)
	}

	// Stage 3: wake sequence, only meaningful while online with an
	// open outage cycle.
	if online {
		failedStep = "wakeup"
		if err := s.wakeupSvc.Run(ctx, cfg, st, now); err != nil {
			runErr = err
			return fmt.Errorf("wake sequence failed: %w", err)
		}
	}

	// Stage 4: client status evaluation. An unavailable status store
	// skips this stage for the tick; the next tick retries.
	if err := s.clientSvc.Check(ctx, cfg, now); err != nil {
		s.logger.Error().Err(err).Msg("skipping client status evaluation this tick")
	}

	return nil
}
