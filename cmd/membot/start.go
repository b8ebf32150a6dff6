package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sandevgo/membot/pkg/log"
	"github.com/sandevgo/membot/pkg/srv"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the interactive chat",
	Long:  `Opens the stores, wires the agent and runs the readline chat until exit or interrupt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting membot")

		app := NewApp(ctx)

		srv.StartServices(ctx, app.Services)

		// The chat owns the foreground until the user leaves.
		if app.CLI != nil {
			if err := app.CLI.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("chat transport failed")
			}
			if err := app.CLI.Shutdown(ctx); err != nil {
				logger.Error().Err(err).Msg("chat transport failed to shutdown")
			}
			stop()
		}

		srv.ShutdownServices(ctx, app.Services)
		logger.Info().Msg("membot has been shut down gracefully")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
