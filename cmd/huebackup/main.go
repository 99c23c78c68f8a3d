package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/huebackup/internal/app"
	"github.com/dokzlo13/huebackup/internal/bootstrap"
	"github.com/dokzlo13/huebackup/internal/config"
	"github.com/dokzlo13/huebackup/internal/logging"
	"github.com/dokzlo13/huebackup/internal/prompt"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Msg(app.Summary(err))
		log.Fatal().Err(err).Msg("Details")
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "huebackup",
		Short: "Back up the configuration of your Philips Hue bridge",
		Long: `huebackup finds the Hue bridge on the local network, registers with it on the
first run and writes a timestamped snapshot of the full bridge configuration
under ` + config.HomeDir() + `/backups.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug output")

	return cmd
}

func run(verbose bool) error {
	// Logging is usable before settings are read
	logging.Setup(logging.Options{Verbose: verbose, Colors: true, Timestamps: true})

	paths := config.GetPaths("")
	cfg, err := config.Load(paths.Settings)
	if err != nil {
		return fmt.Errorf("failed to load settings %s: %w", paths.Settings, err)
	}

	logging.Setup(logging.Options{
		Verbose:    verbose,
		JSON:       cfg.Log.JSON,
		Colors:     cfg.Log.UseColors(),
		Timestamps: cfg.Log.UseTimestamps(),
	})

	application, err := app.New(cfg, paths, prompt.Stdio())
	if err != nil {
		return err
	}
	defer application.Close()

	result, err := application.Run(app.SignalContext())
	if err != nil {
		return err
	}

	if result.State == bootstrap.StateAbandoned {
		log.Info().Str("reason", result.Reason).Msg("Nothing backed up, run huebackup again once the problem is fixed")
		return nil
	}

	log.Info().Str("path", result.BackupPath).Msg("Backup complete")
	return nil
}
