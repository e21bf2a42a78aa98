// Package models contains the data structures used throughout powerman-homelab.
package models

import "time"

// Config holds the complete configuration for a power-check tick.
type Config struct {
	UPSStatusFile      string   `mapstructure:"ups_status_file" yaml:"ups_status_file"`
	StateDir           string   `mapstructure:"state_dir" yaml:"state_dir"`
	SentinelHosts      []string `mapstructure:"sentinel_hosts" yaml:"sentinel_hosts"`
	DefaultBroadcastIP string   `mapstructure:"default_broadcast_ip" yaml:"default_broadcast_ip"`
	WOLDelayMinutes    int      `mapstructure:"wol_delay_minutes" yaml:"wol_delay_minutes"`
	StaleTimeoutMin    int      `mapstructure:"client_stale_timeout_minutes" yaml:"client_stale_timeout_minutes"`
	ProbeTimeoutSec    int      `mapstructure:"probe_timeout_seconds" yaml:"probe_timeout_seconds"`
	SimulationMode     bool     `mapstructure:"simulation_mode" yaml:"simulation_mode"`

	Hosts     []ManagedHost `mapstructure:"hosts" yaml:"hosts"`
	Schedules []Schedule    `mapstructure:"schedules" yaml:"schedules"`

	Notify NotifyToggles `mapstructure:"notify" yaml:"notify"`
	SMTP   *SMTPConfig   `mapstructure:"smtp" yaml:"smtp,omitempty"`
	MQTT   *MQTTConfig   `mapstructure:"mqtt" yaml:"mqtt,omitempty"`
}

// ProbeTimeout returns the per-probe timeout as a duration.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSec) * time.Second
}

// WOLDelay returns the post-restoration wait before the wake sequence.
func (c Config) WOLDelay() time.Duration {
	return time.Duration(c.WOLDelayMinutes) * time.Minute
}

// StaleTimeout returns the client report age past which a UPS client is
// considered stale.
func (c Config) StaleTimeout() time.Duration {
	return time.Duration(c.StaleTimeoutMin) * time.Minute
}

// ManagedHost is a Wake-on-LAN-capable machine under management.
// A host with a shutdown delay configured is treated as a UPS client
// whose self-reported status is tracked between ticks.
type ManagedHost struct {
	Name             string `mapstructure:"name" yaml:"name"`
	IP               string `mapstructure:"ip" yaml:"ip"`
	MAC              string `mapstructure:"mac" yaml:"mac"`
	BroadcastIP      string `mapstructure:"broadcast_ip" yaml:"broadcast_ip,omitempty"` // overrides the global default
	AutoWOL          *bool  `mapstructure:"auto_wol" yaml:"auto_wol,omitempty"`         // nil means true
	ShutdownDelayMin *int   `mapstructure:"shutdown_delay_minutes" yaml:"shutdown_delay_minutes,omitempty"`
}

// WakeEnabled reports whether the host participates in the automatic
// wake sequence after power restoration.
func (h ManagedHost) WakeEnabled() bool {
	return h.AutoWOL == nil || *h.AutoWOL
}

// IsUPSClient reports whether the host runs shutdown client software
// that reports its own status.
func (h ManagedHost) IsUPSClient() bool {
	return h.ShutdownDelayMin != nil
}

// ScheduleType distinguishes one-shot from recurring schedules.
type ScheduleType string

const (
	ScheduleOneTime   ScheduleType = "one-time"
	ScheduleRecurring ScheduleType = "recurring"
)

// ScheduleAction is what a matched schedule does to the simulation flag.
type ScheduleAction string

const (
	ActionStart ScheduleAction = "start"
	ActionStop  ScheduleAction = "stop"
)

// Schedule toggles the power-outage simulation at a configured minute.
// One-time schedules carry a date and disable themselves after firing;
// recurring schedules carry a day of week ("monday".."sunday" or
// "everyday").
type Schedule struct {
	Name      string         `mapstructure:"name" yaml:"name"`
	Enabled   bool           `mapstructure:"enabled" yaml:"enabled"`
	Type      ScheduleType   `mapstructure:"type" yaml:"type"`
	Time      string         `mapstructure:"time" yaml:"time"`                         // "HH:MM"
	Date      string         `mapstructure:"date" yaml:"date,omitempty"`               // "YYYY-MM-DD", one-time only
	DayOfWeek string         `mapstructure:"day_of_week" yaml:"day_of_week,omitempty"` // recurring only
	Action    ScheduleAction `mapstructure:"action" yaml:"action"`
}

// NotifyToggles enables notification delivery per event type.
type NotifyToggles struct {
	PowerFail      bool `mapstructure:"power_fail" yaml:"power_fail"`
	PowerRestored  bool `mapstructure:"power_restored" yaml:"power_restored"`
	ClientShutdown bool `mapstructure:"client_shutdown" yaml:"client_shutdown"`
	ClientStale    bool `mapstructure:"client_stale" yaml:"client_stale"`
	Simulation     bool `mapstructure:"simulation" yaml:"simulation"`
	AppError       bool `mapstructure:"app_error" yaml:"app_error"`
}

// SMTPConfig holds the email notification transport configuration.
type SMTPConfig struct {
	Server      string   `mapstructure:"server" yaml:"server"`
	Port        int      `mapstructure:"port" yaml:"port"`
	Username    string   `mapstructure:"username" yaml:"username,omitempty"`
	Password    string   `mapstructure:"password" yaml:"password,omitempty"`
	SenderName  string   `mapstructure:"sender_name" yaml:"sender_name,omitempty"`
	SenderEmail string   `mapstructure:"sender_email" yaml:"sender_email"`
	Recipients  []string `mapstructure:"recipients" yaml:"recipients"`
}

// MQTTConfig holds the MQTT notification transport configuration.
type MQTTConfig struct {
	Broker   string `mapstructure:"broker" yaml:"broker"`
	ClientID string `mapstructure:"client_id" yaml:"client_id"`
	Topic    string `mapstructure:"topic" yaml:"topic"`
	Username string `mapstructure:"username" yaml:"username,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	QOS      byte   `mapstructure:"qos" yaml:"qos"`
}
