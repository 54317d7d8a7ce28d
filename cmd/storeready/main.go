// cmd/storeready/main.go
package main

import (
	"errors"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tamzrod/storeready/internal/env"
)

var rootCmd = &cobra.Command{
	Use:   "storeready",
	Short: "Wait for a newly created store to finish provisioning",
	Long: `storeready polls the hosting API until a newly created store is connected and
its required plugin is active, then clears the pending store switch. A switch that
was interrupted can be resumed after a restart.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagConfig   string
	flagLogLevel string
)

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "YAML config file (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.AddCommand(
		newWaitCmd(),
		newResumeCmd(),
		newPendingCmd(),
	)
	_ = env.Ensure()
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var ee *exitError
	if errors.As(err, &ee) {
		log.Warn().Int("exit_code", ee.code).Msg(ee.msg)
		os.Exit(ee.code)
	}
	log.Error().Err(err).Msg("storeready command failed")
	os.Exit(1)
}
