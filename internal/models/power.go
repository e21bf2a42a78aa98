package models

import "time"

// PowerPhase is the persisted phase of the power-outage state machine.
type PowerPhase string

const (
	// PhaseNone means no outage is being tracked (implicit-online).
	PhaseNone PowerPhase = ""
	// PhaseFail means all sentinel hosts are unreachable (or simulation
	// is forcing an outage).
	PhaseFail PowerPhase = "power_fail"
	// PhaseRestored means power came back and the wake sequence is
	// pending its configured delay.
	PhaseRestored PowerPhase = "power_restored"
)

// PowerState is the persisted outage state. Since updates only on a
// phase transition, never on repeated observations of the same phase.
type PowerState struct {
	Phase PowerPhase `json:"phase"`
	Since time.Time  `json:"since"`
}

// None reports whether no outage is being tracked.
func (s PowerState) None() bool { return s.Phase == PhaseNone }

// Client status values reported into the status table.
const (
	// ClientStatusShutdownPending is reported by a UPS client that has
	// begun its shutdown countdown.
	ClientStatusShutdownPending = "shutdown_pending"
	// ClientStatusWOLSent is written by the wake orchestrator after a
	// magic packet has been sent to the host.
	ClientStatusWOLSent = "wol_sent"
)

// ClientStatusRecord is one entry of the client status table, keyed by
// client IP. Clients write their own entries; the wake orchestrator
// writes wol_sent entries.
type ClientStatusRecord struct {
	Status           string    `json:"status"`
	RemainingSeconds *int      `json:"remaining_seconds,omitempty"`
	ShutdownDelay    *int      `json:"shutdown_delay,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// ClientFlags tracks which per-client notifications were already sent
// in the current outage cycle, keyed by client IP. Both maps are reset
// wholesale on a new power failure and on wake-cycle completion.
type ClientFlags struct {
	ShutdownNotified map[string]bool `json:"shutdown_notified"`
	StaleNotified    map[string]bool `json:"stale_notified"`
}

// NewClientFlags returns an empty flag set with initialized maps.
func NewClientFlags() ClientFlags {
	return ClientFlags{
		ShutdownNotified: map[string]bool{},
		StaleNotified:    map[string]bool{},
	}
}
