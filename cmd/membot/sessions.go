package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandevgo/membot/internal/config"
	"github.com/sandevgo/membot/internal/storage/sqlite"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect stored chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		store := sqlite.NewSessionStore(config.NewAppConfig(ctx).GetSessionsPath())
		if err := store.Open(ctx); err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer store.Close()

		metas, err := store.List(ctx)
		if err != nil {
			return err
		}
		if len(metas) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
			return nil
		}
		for _, meta := range metas {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d messages\tupdated %s\n",
				meta.ID, meta.MessageCount, meta.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		store := sqlite.NewSessionStore(config.NewAppConfig(ctx).GetSessionsPath())
		if err := store.Open(ctx); err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer store.Close()

		existed, err := store.Delete(ctx, args[0])
		if err != nil {
			return err
		}
		if !existed {
			fmt.Fprintf(cmd.OutOrStdout(), "session %s not found\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted session %s\n", args[0])
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
