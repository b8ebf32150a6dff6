package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandevgo/membot/internal/config"
	"github.com/sandevgo/membot/pkg/log"
)

var (
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "membot",
	Short: "MemBot — a chat assistant with persistent memory",
	Long:  `MemBot keeps knowledge and conversations in local SQLite and feeds the relevant parts back into every model call.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", config.IsDebug(), "enable debug logging")
}

func setupLogger(ctx context.Context) (context.Context, func()) {
	isDebug := debug || config.IsDebug()
	return log.NewContextWithLogger(ctx, isDebug)
}
