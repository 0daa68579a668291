package main

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/xenn00/ruready-server/config"
)

var rootCmd = &cobra.Command{
	Use:   "ruready",
	Short: "Call signaling, messaging and presence backend.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, devtokenCmd)
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

// setupLogger applies the configured level and format once config is loaded.
func setupLogger(conf *config.AppConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(conf.App.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if conf.App.LogFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", conf.App.Name).Logger()
	}
}
