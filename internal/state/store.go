// Package state persists the tick-to-tick state of the power manager:
// the outage state machine, per-client notification flags, notification
// debounce marks, and the client status table.
//
// Every record is a small JSON file under the state directory, fully
// read and fully rewritten per tick. Writes go through a temp file and
// rename so external readers never observe a truncated file.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fgeck/powerman-homelab/internal/models"
	"github.com/google/renameio/v2"
)

// File names within the state directory.
const (
	powerStateFile   = "power_state.json"
	clientFlagsFile  = "client_flags.json"
	debounceFile     = "notify_debounce.json"
	clientStatusFile = "client_status.json"
	lockFile         = "tick.lock"
)

// Store reads and writes the persisted state files.
type Store struct {
	dir string
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// LockPath returns the path of the tick mutual-exclusion lock file.
func (s *Store) LockPath() string {
	return filepath.Join(s.dir, lockFile)
}

// LoadPowerState returns the persisted outage state. A missing file is
// the implicit-online case and yields the None phase.
func (s *Store) LoadPowerState() (models.PowerState, error) {
	var st models.PowerState
	err := s.readJSON(powerStateFile, &st)
	if errors.Is(err, fs.ErrNotExist) {
		return models.PowerState{}, nil
	}
	if err != nil {
		return models.PowerState{}, fmt.Errorf("loading power state: %w", err)
	}
	return st, nil
}

// SavePowerState persists the outage state.
func (s *Store) SavePowerState(st models.PowerState) error {
	if err := s.writeJSON(powerStateFile, st); err != nil {
		return fmt.Errorf("saving power state: %w", err)
	}
	return nil
}

// ClearPowerState removes the persisted outage state, returning the
// machine to implicit-online. Clearing an absent state is a no-op.
func (s *Store) ClearPowerState() error {
	err := os.Remove(filepath.Join(s.dir, powerStateFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clearing power state: %w", err)
	}
	return nil
}

// LoadClientFlags returns the per-client notification flags. A missing
// file yields an empty flag set.
func (s *Store) LoadClientFlags() (models.ClientFlags, error) {
	flags := models.NewClientFlags()
	err := s.readJSON(clientFlagsFile, &flags)
	if errors.Is(err, fs.ErrNotExist) {
		return models.NewClientFlags(), nil
	}
	if err != nil {
		return models.NewClientFlags(), fmt.Errorf("loading client flags: %w", err)
	}
	if flags.ShutdownNotified == nil {
		flags.ShutdownNotified = map[string]bool{}
	}
	if flags.StaleNotified == nil {
		flags.StaleNotified = map[string]bool{}
	}
	return flags, nil
}

// SaveClientFlags persists the per-client notification flags.
func (s *Store) SaveClientFlags(flags models.ClientFlags) error {
	if err := s.writeJSON(clientFlagsFile, flags); err != nil {
		return fmt.Errorf("saving client flags: %w", err)
	}
	return nil
}

// ResetClientFlags clears all per-client notification flags. Called on
// a new power failure and on wake-cycle completion.
func (s *Store) ResetClientFlags() error {
	return s.SaveClientFlags(models.NewClientFlags())
}

// LastNotifyAttempt returns the timestamp of the last notification
// attempt for the given event type, or a zero time if none is recorded.
func (s *Store) LastNotifyAttempt(event models.EventType) (time.Time, error) {
	marks, err := s.loadDebounce()
	if err != nil {
		return time.Time{}, err
	}
	return marks[event], nil
}

// MarkNotifyAttempt records a notification attempt for the given event
// type at the given time.
func (s *Store) MarkNotifyAttempt(event models.EventType, at time.Time) error {
	marks, err := s.loadDebounce()
	if err != nil {
		return err
	}
	marks[event] = at
	if err := s.writeJSON(debounceFile, marks); err != nil {
		return fmt.Errorf("saving debounce marks: %w", err)
	}
	return nil
}

func (s *Store) loadDebounce() (map[models.EventType]time.Time, error) {
	marks := map[models.EventType]time.Time{}
	err := s.readJSON(debounceFile, &marks)
	if errors.Is(err, fs.ErrNotExist) {
		return map[models.EventType]time.Time{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading debounce marks: %w", err)
	}
	return marks, nil
}

// LoadClientStatuses returns the client status table. A missing file
// yields an empty table; an unreadable one is an error so the caller
// can skip status-dependent work this tick.
func (s *Store) LoadClientStatuses() (map[string]models.ClientStatusRecord, error) {
	table := map[string]models.ClientStatusRecord{}
	err := s.readJSON(clientStatusFile, &table)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]models.ClientStatusRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading client status table: %w", err)
	}
	return table, nil
}

// RecordClientStatus upserts one entry of the client status table. An
// unreadable table is replaced rather than failing the write, so a
// corrupt file cannot wedge the wake sequence.
func (s *Store) RecordClientStatus(ip, status string, at time.Time) error {
	table, err := s.LoadClientStatuses()
	if err != nil {
		table = map[string]models.ClientStatusRecord{}
	}
	table[ip] = models.ClientStatusRecord{Status: status, Timestamp: at.UTC()}
	if err := s.writeJSON(clientStatusFile, table); err != nil {
		return fmt.Errorf("saving client status table: %w", err)
	}
	return nil
}

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(filepath.Join(s.dir, name), append(data, '\n'), 0o644)
}
