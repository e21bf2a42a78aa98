// Package notify gates and delivers outbound notifications.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/powerman-homelab/internal/models"
	"github.com/rs/zerolog"
)

// ErrorDebounce is the minimum gap between error-class notifications.
const ErrorDebounce = time.Hour

// Service defines the interface for the notification gate.
type Service interface {
	Notify(ctx context.Context, event models.EventType, subject, body string) *models.NotifyResult
}

// Transport delivers a single notification.
type Transport interface {
	Send(ctx context.Context, subject, body string) error
}

// DebounceStore persists last-attempt marks per event type.
type DebounceStore interface {
	LastNotifyAttempt(event models.EventType) (time.Time, error)
	MarkNotifyAttempt(event models.EventType, at time.Time) error
}

// Gate implements the notification Service. Delivery is skipped for
// disabled event types; the error-class type is additionally debounced
// so a failing transport cannot cause a notification storm about its
// own failures.
type Gate struct {
	toggles   models.NotifyToggles
	transport Transport // nil when no transport is configured
	store     DebounceStore
	logger    zerolog.Logger
	now       func() time.Time
}

// NewGate creates a notification gate.
func NewGate(logger zerolog.Logger, toggles models.NotifyToggles, transport Transport, store DebounceStore) *Gate {
	return &Gate{
		toggles:   toggles,
		transport: transport,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// NewGateWithClock creates a notification gate with a fixed clock (for testing).
func NewGateWithClock(logger zerolog.Logger, toggles models.NotifyToggles, transport Transport, store DebounceStore, now func() time.Time) *Gate {
	g := NewGate(logger, toggles, transport, store)
	g.now = now
	return g
}

// Notify delivers one notification through the transport, subject to
// the per-type enable toggle and, for the error-class type, the
// debounce window. A transport failure raises one secondary error-class
// notification; the secondary itself never recurses.
func (g *Gate) Notify(ctx context.Context, event models.EventType, subject, body string) *models.NotifyResult {
	result := &models.NotifyResult{}

	if !g.enabled(event) {
		g.logger.Info().Str("event", string(event)).Msg("notification type is disabled, skipping")
		result.Skipped = true
		return result
	}

	if event == models.EventAppError {
		last, err := g.store.LastNotifyAttempt(event)
		if err != nil {
			g.logger.Error().Err(err).Msg("could not read notification debounce marks")
		} else if !last.IsZero() && g.now().Sub(last) < ErrorDebounce {
			g.logger.Warn().Str("event", string(event)).Time("last_attempt", last).Msg("error notification is debounced, skipping")
			result.Skipped = true
			return result
		}
		// Marked before the send so a failing transport is still
		// rate-limited.
		if err := g.store.MarkNotifyAttempt(event, g.now()); err != nil {
			g.logger.Error().Err(err).Msg("could not update notification debounce marks")
		}
	}

	if g.transport == nil {
		g.logger.Warn().Str("event", string(event)).Str("subject", subject).Msg("no notification transport configured, dropping")
		result.Skipped = true
		return result
	}

	g.logger.Info().Str("event", string(event)).Str("subject", subject).Msg("sending notification")

	if err := g.transport.Send(ctx, subject, body); err != nil {
		g.logger.Error().Err(err).Str("subject", subject).Msg("failed to send notification")
		result.Error = err

		if event != models.EventAppError {
			g.Notify(ctx, models.EventAppError,
				"[UPS] CRITICAL: Notification Delivery Failed",
				fmt.Sprintf("The UPS server failed to deliver a notification.\n\nSubject: %s\nError: %v", subject, err))
		}
		return result
	}

	result.Delivered = true
	return result
}

func (g *Gate) enabled(event models.EventType) bool {
	switch event {
	case models.EventPowerFail:
		return g.toggles.PowerFail
	case models.EventPowerRestored:
		return g.toggles.PowerRestored
	case models.EventClientShutdown:
		return g.toggles.ClientShutdown
	case models.EventClientStale:
		return g.toggles.ClientStale
	case models.EventSimulation:
		return g.toggles.Simulation
	case models.EventAppError:
		return g.toggles.AppError
	default:
		return false
	}
}
