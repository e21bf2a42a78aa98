package config

import (
	"fmt"

	"github.com/fgeck/powerman-homelab/internal/models"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Store owns a loaded configuration and writes mutations back to the
// config file. Mutations are applied to the in-memory model first, so
// later stages of the same tick observe them immediately.
//
// Write-back re-serializes the typed model; comments and formatting in
// the original file are not preserved.
type Store struct {
	path string
	cfg  *models.Config
}

// NewStore loads the configuration at path into a mutable store.
func NewStore(path string) (*Store, error) {
	cfg, err := NewParser().LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, cfg: cfg}, nil
}

// NewStoreWithConfig wraps an already-parsed configuration (for testing).
func NewStoreWithConfig(path string, cfg *models.Config) *Store {
	return &Store{path: path, cfg: cfg}
}

// Config returns the current in-memory configuration.
func (s *Store) Config() *models.Config {
	return s.cfg
}

// SetSimulationMode flips the persisted simulation flag.
func (s *Store) SetSimulationMode(on bool) error {
	s.cfg.SimulationMode = on
	return s.save()
}

// DisableSchedule durably disables the named schedule. Disabling an
// already-disabled or unknown schedule is a no-op.
func (s *Store) DisableSchedule(name string) error {
	changed := false
	for i := range s.cfg.Schedules {
		if s.cfg.Schedules[i].Name == name && s.cfg.Schedules[i].Enabled {
			s.cfg.Schedules[i].Enabled = false
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save()
}

func (s *Store) save() error {
	data, err := yaml.Marshal(s.cfg)
	if err != nil {
		return fmt.Errorf("serializing config: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
