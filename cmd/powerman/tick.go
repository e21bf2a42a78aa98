package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/powerman-homelab/internal/config"
	"github.com/fgeck/powerman-homelab/internal/services/runner"
	"github.com/fgeck/powerman-homelab/internal/state"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run one power-check evaluation",
	Long: `Run one complete power-check evaluation:
1. Evaluate simulation schedules
2. Probe sentinel hosts and update the power state machine
3. Rewrite the virtual UPS status file
4. Wake managed hosts if a restoration delay has elapsed
5. Evaluate UPS-client status reports

Designed to be invoked once per minute by an external scheduler.`,
	RunE: runTick,
}

func runTick(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	// A missing or unreadable configuration is the only fatal error;
	// there is no transport to notify through without it.
	cfgStore, err := config.NewStore(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}

	cfg := cfgStore.Config()
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	stateStore, err := state.New(cfg.StateDir)
	if err != nil {
		log.Error().Err(err).Str("dir", cfg.StateDir).Msg("failed to open state directory")
		return err
	}

	log.Info().
		Str("config", configFile).
		Int("sentinels", len(cfg.SentinelHosts)).
		Int("hosts", len(cfg.Hosts)).
		Bool("simulation", cfg.SimulationMode).
		Msg("configuration loaded")

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	runnerSvc := runner.New(log.Logger, cfgStore, stateStore)
	if err := runnerSvc.Tick(ctx); err != nil {
		log.Error().Err(err).Msg("power check failed")
		return err
	}

	return nil
}
