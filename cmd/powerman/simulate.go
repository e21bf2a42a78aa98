package main

import (
	"fmt"

	"github.com/fgeck/powerman-homelab/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate {start|stop}",
	Short: "Start or stop a simulated power outage",
	Long: `Flip the persisted simulation flag. While the flag is set, every
tick reports an outage without probing the sentinel hosts, so the full
shutdown and wake sequence can be exercised safely.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"start", "stop"},
	RunE:      runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	var on bool
	switch args[0] {
	case "start":
		on = true
	case "stop":
		on = false
	default:
		return fmt.Errorf("unknown action %q, expected start or stop", args[0])
	}

	cfgStore, err := config.NewStore(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}

	if cfgStore.Config().SimulationMode == on {
		log.Info().Bool("simulation", on).Msg("simulation flag already set, nothing to do")
		return nil
	}

	if err := cfgStore.SetSimulationMode(on); err != nil {
		log.Error().Err(err).Msg("failed to persist simulation flag")
		return err
	}

	log.Info().Bool("simulation", on).Msg("simulation flag updated")
	return nil
}
