package models

// EventType classifies an outbound notification for enable toggles and
// debouncing.
type EventType string

const (
	EventPowerFail      EventType = "power_fail"
	EventPowerRestored  EventType = "power_restored"
	EventClientShutdown EventType = "client_shutdown"
	EventClientStale    EventType = "client_stale"
	EventSimulation     EventType = "simulation"
	// EventAppError is the error-class event; it is the only debounced
	// type and is raised at most once per debounce window.
	EventAppError EventType = "app_error"
)

// NotifyResult holds the outcome of a notification attempt.
type NotifyResult struct {
	Delivered bool
	Skipped   bool // disabled by toggle or suppressed by debounce
	Error     error
}
