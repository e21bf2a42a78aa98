package main

import (
	"fmt"
	"os"

	"github.com/fgeck/powerman-homelab/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without running a power check.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	// Check if file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Error().Str("file", configFile).Msg("config file not found")
		return fmt.Errorf("config file not found: %s", configFile)
	}

	// Load configuration
	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to parse config")
		return err
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	// Print configuration summary
	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  UPS status file: %s\n", cfg.UPSStatusFile)
	fmt.Printf("  State directory: %s\n", cfg.StateDir)
	fmt.Printf("  Sentinel hosts: %v\n", cfg.SentinelHosts)
	fmt.Printf("  Default broadcast: %s\n", cfg.DefaultBroadcastIP)
	fmt.Printf("  WoL delay: %d minute(s)\n", cfg.WOLDelayMinutes)
	fmt.Printf("  Stale timeout: %d minute(s)\n", cfg.StaleTimeoutMin)
	fmt.Printf("  Probe timeout: %s\n", cfg.ProbeTimeout())
	fmt.Printf("  Simulation mode: %v\n", cfg.SimulationMode)

	fmt.Println()
	fmt.Printf("Managed Hosts (%d):\n", len(cfg.Hosts))
	for _, h := range cfg.Hosts {
		role := "wake only"
		if h.IsUPSClient() {
			role = fmt.Sprintf("UPS client, shutdown delay %d minute(s)", *h.ShutdownDelayMin)
		}
		fmt.Printf("  %s (%s, %s) auto_wol=%v — %s\n", h.Name, h.IP, h.MAC, h.WakeEnabled(), role)
	}

	fmt.Println()
	fmt.Printf("Schedules (%d):\n", len(cfg.Schedules))
	for _, s := range cfg.Schedules {
		fmt.Printf("  %s: %s %s at %s %s%s enabled=%v\n",
			s.Name, s.Action, s.Type, s.Time, s.Date, s.DayOfWeek, s.Enabled)
	}

	fmt.Println()
	fmt.Println("Notifications:")
	fmt.Printf("  power_fail=%v power_restored=%v client_shutdown=%v client_stale=%v simulation=%v app_error=%v\n",
		cfg.Notify.PowerFail, cfg.Notify.PowerRestored, cfg.Notify.ClientShutdown,
		cfg.Notify.ClientStale, cfg.Notify.Simulation, cfg.Notify.AppError)
	fmt.Printf("  SMTP transport: %v\n", cfg.SMTP != nil)
	fmt.Printf("  MQTT transport: %v\n", cfg.MQTT != nil)

	if cfg.SMTP != nil {
		fmt.Println()
		fmt.Println("SMTP Configuration:")
		fmt.Printf("  Server: %s:%d\n", cfg.SMTP.Server, cfg.SMTP.Port)
		fmt.Printf("  Sender: %s <%s>\n", cfg.SMTP.SenderName, cfg.SMTP.SenderEmail)
		fmt.Printf("  Recipients: %v\n", cfg.SMTP.Recipients)
	}

	if cfg.MQTT != nil {
		fmt.Println()
		fmt.Println("MQTT Configuration:")
		fmt.Printf("  Broker: %s\n", cfg.MQTT.Broker)
		fmt.Printf("  Topic: %s\n", cfg.MQTT.Topic)
		fmt.Printf("  Client ID: %s\n", cfg.MQTT.ClientID)
	}

	return nil
}
