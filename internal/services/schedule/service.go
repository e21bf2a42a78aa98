// Package schedule evaluates simulation schedules against the current
// minute.
package schedule

import (
	"context"
	"strings"
	"time"

	"github.com/fgeck/powerman-homelab/internal/models"
	"github.com/fgeck/powerman-homelab/internal/services/notify"
	"github.com/rs/zerolog"
)

// Service defines the interface for the schedule evaluator.
type Service interface {
	Evaluate(ctx context.Context, now time.Time) *Fired
}

// ConfigStore is the subset of the config store the evaluator needs.
type ConfigStore interface {
	Config() *models.Config
	SetSimulationMode(on bool) error
	DisableSchedule(name string) error
}

// Fired describes the schedule that matched this tick.
type Fired struct {
	Name   string
	Action models.ScheduleAction
}

// Impl implements the schedule Service interface.
type Impl struct {
	store    ConfigStore
	notifier notify.Service
	logger   zerolog.Logger
}

// New creates a new schedule evaluator.
func New(logger zerolog.Logger, store ConfigStore, notifier notify.Service) *Impl {
	return &Impl{store: store, notifier: notifier, logger: logger}
}

// Evaluate checks all schedules against now at minute resolution and
// applies the first match: the simulation flag is flipped in the config
// store (visible to later stages of the same tick) and a matched
// one-time schedule is durably disabled. Later matches in the same
// minute are not evaluated. Malformed entries are skipped with a
// diagnostic; evaluation never aborts the tick.
func (s *Impl) Evaluate(ctx context.Context, now time.Time) *Fired {
	date := now.Format("2006-01-02")
	minute := now.Format("15:04")
	weekday := strings.ToLower(now.Weekday().String())

	for _, sched := range s.store.Config().Schedules {
		if !sched.Enabled {
			continue
		}
		if !s.matches(sched, date, minute, weekday) {
			continue
		}

		s.logger.Info().
			Str("schedule", sched.Name).
			Str("action", string(sched.Action)).
			Msg("schedule matched")

		s.apply(ctx, sched)

		if sched.Type == models.ScheduleOneTime {
			if err := s.store.DisableSchedule(sched.Name); err != nil {
				s.logger.Error().Err(err).Str("schedule", sched.Name).Msg("could not disable one-time schedule")
			}
		}

		// First match wins; later matches in the same minute are
		// intentionally not evaluated.
		return &Fired{Name: sched.Name, Action: sched.Action}
	}

	return nil
}

func (s *Impl) matches(sched models.Schedule, date, minute, weekday string) bool {
	if sched.Time == "" || (sched.Action != models.ActionStart && sched.Action != models.ActionStop) {
		s.logger.Warn().Str("schedule", sched.Name).Msg("skipping malformed schedule entry")
		return false
	}

	switch sched.Type {
	case models.ScheduleOneTime:
		if sched.Date == "" {
			s.logger.Warn().Str("schedule", sched.Name).Msg("skipping one-time schedule without date")
			return false
		}
		return sched.Date == date && sched.Time == minute
	case models.ScheduleRecurring:
		dow := strings.ToLower(sched.DayOfWeek)
		if dow == "" {
			s.logger.Warn().Str("schedule", sched.Name).Msg("skipping recurring schedule without day of week")
			return false
		}
		return sched.Time == minute && (dow == "everyday" || dow == weekday)
	default:
		s.logger.Warn().Str("schedule", sched.Name).Str("type", string(sched.Type)).Msg("skipping schedule with unknown type")
		return false
	}
}

func (s *Impl) apply(ctx context.Context, sched models.Schedule) {
	var on bool
	var subject, body string

	switch sched.Action {
	case models.ActionStart:
		on = true
		subject = "[UPS] INFO: Power Outage Simulation Started"
		body = "Scheduled start of power outage simulation."
	case models.ActionStop:
		on = false
		subject = "[UPS] INFO: Power Outage Simulation Stopped"
		body = "Scheduled stop of power outage simulation."
	}

	if err := s.store.SetSimulationMode(on); err != nil {
		s.logger.Error().Err(err).Str("schedule", sched.Name).Msg("could not persist simulation flag")
		return
	}

	s.notifier.Notify(ctx, models.EventSimulation, subject, body)
}
