// Package config provides configuration file parsing and write-back.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fgeck/powerman-homelab/internal/models"
	"github.com/spf13/viper"
)

// Defaults applied when the configuration omits a value.
const (
	DefaultUPSStatusFile   = "/var/run/nut/virtual.device"
	DefaultStateDir        = "/var/run/powerman"
	DefaultWOLDelayMin     = 5
	DefaultStaleTimeoutMin = 5
	DefaultProbeTimeoutSec = 1
	DefaultBroadcastIP     = "255.255.255.255"
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a string (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{}

	if err := p.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.UPSStatusFile = p.expandEnv(cfg.UPSStatusFile)
	cfg.StateDir = p.expandEnv(cfg.StateDir)

	// Apply defaults.
	if cfg.UPSStatusFile == "" {
		cfg.UPSStatusFile = DefaultUPSStatusFile
	}
	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDir
	}
	if cfg.WOLDelayMinutes == 0 {
		cfg.WOLDelayMinutes = DefaultWOLDelayMin
	}
	if cfg.StaleTimeoutMin == 0 {
		cfg.StaleTimeoutMin = DefaultStaleTimeoutMin
	}
	if cfg.ProbeTimeoutSec == 0 {
		cfg.ProbeTimeoutSec = DefaultProbeTimeoutSec
	}
	if cfg.DefaultBroadcastIP == "" {
		cfg.DefaultBroadcastIP = DefaultBroadcastIP
	}

	if cfg.SMTP != nil {
		cfg.SMTP.Password = p.expandEnv(cfg.SMTP.Password)
		cfg.SMTP.Username = p.expandEnv(cfg.SMTP.Username)

		if cfg.SMTP.Server == "" {
			return nil, fmt.Errorf("smtp.server is required when smtp is configured")
		}
		if cfg.SMTP.SenderEmail == "" {
			return nil, fmt.Errorf("smtp.sender_email is required when smtp is configured")
		}
		if len(cfg.SMTP.Recipients) == 0 {
			return nil, fmt.Errorf("smtp.recipients is required when smtp is configured")
		}
		if cfg.SMTP.Port == 0 {
			cfg.SMTP.Port = 587
		}
		if cfg.SMTP.SenderName == "" {
			cfg.SMTP.SenderName = "UPS Server"
		}
	}

	if cfg.MQTT != nil {
		cfg.MQTT.Password = p.expandEnv(cfg.MQTT.Password)

		if cfg.MQTT.Broker == "" {
			return nil, fmt.Errorf("mqtt.broker is required when mqtt is configured")
		}
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = "powerman/notifications"
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "powerman"
		}
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.UPSStatusFile == "" {
		return fmt.Errorf("ups_status_file is required")
	}
	if cfg.StateDir == "" {
		return fmt.Errorf("state_dir is required")
	}

	for i, h := range cfg.Hosts {
		if h.Name == "" {
			return fmt.Errorf("hosts[%d]: name is required", i)
		}
	}

	return nil
}
