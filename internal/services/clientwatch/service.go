// Package clientwatch tracks the self-reported status of UPS clients.
package clientwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/powerman-homelab/internal/models"
	"github.com/fgeck/powerman-homelab/internal/services/notify"
	"github.com/rs/zerolog"
)

// Service defines the interface for the client status tracker.
type Service interface {
	Check(ctx context.Context, cfg models.Config, now time.Time) error
}

// StateStore is the subset of the state store the tracker needs.
type StateStore interface {
	LoadClientStatuses() (map[string]models.ClientStatusRecord, error)
	LoadClientFlags() (models.ClientFlags, error)
	SaveClientFlags(flags models.ClientFlags) error
}

// Impl implements the clientwatch Service interface.
type Impl struct {
	store    StateStore
	notifier notify.Service
	logger   zerolog.Logger
}

// New creates a new client status tracker.
func New(logger zerolog.Logger, store StateStore, notifier notify.Service) *Impl {
	return &Impl{store: store, notifier: notifier, logger: logger}
}

// Check inspects the latest report of every UPS client and raises
// shutdown-initiated and staleness notifications at most once per
// outage cycle. Flags persist across ticks; they are reset wholesale by
// the power tracker on a new outage and by the wake orchestrator on
// cycle completion.
func (s *Impl) Check(ctx context.Context, cfg models.Config, now time.Time) error {
	statuses, err := s.store.LoadClientStatuses()
	if err != nil {
		// Status store unavailable: skip status-dependent work this
		// tick and retry on the next one.
		return fmt.Errorf("client status table unavailable: %w", err)
	}

	flags, err := s.store.LoadClientFlags()
	if err != nil {
		return err
	}

	for _, host := range cfg.Hosts {
		if !host.IsUPSClient() || host.IP == "" {
			continue
		}

		rec, ok := statuses[host.IP]
		if !ok {
			s.logger.Debug().Str("host", host.Name).Msg("awaiting first client report")
			continue
		}

		if rec.Status == models.ClientStatusShutdownPending && !flags.ShutdownNotified[host.IP] {
			s.notifier.Notify(ctx, models.EventClientShutdown,
				"[UPS] ALERT: Client Shutdown",
				fmt.Sprintf("Client '%s' (%s) is shutting down.", host.Name, host.IP))
			flags.ShutdownNotified[host.IP] = true
		}

		age := now.Sub(rec.Timestamp)
		if age > cfg.StaleTimeout() {
			if !flags.StaleNotified[host.IP] {
				s.notifier.Notify(ctx, models.EventClientStale,
					"[UPS] WARNING: Client Stale",
					fmt.Sprintf("Client '%s' (%s) has not reported for %d minutes.",
						host.Name, host.IP, int64(age/time.Minute)))
				flags.StaleNotified[host.IP] = true
			}
		} else if flags.StaleNotified[host.IP] {
			delete(flags.StaleNotified, host.IP)
			s.logger.Info().Str("host", host.Name).Msg("client is reporting again, clearing stale flag")
		}
	}

	return s.store.SaveClientFlags(flags)
}
