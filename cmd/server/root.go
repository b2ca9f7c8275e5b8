package main

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/Chatter/internal/config"
)

var cfg *config.Config

// rootCmd runs the server when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:           "chatter",
	Short:         "Real-time group chat server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			log.Error().Err(err).Msg("failed to load config")
			return err
		}
		level, err := zerolog.ParseLevel(c.LogLevel)
		if err != nil {
			log.Warn().Str("level", c.LogLevel).Msg("unknown log level, keeping info")
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)
		cfg = c
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, tokenCmd)
}
