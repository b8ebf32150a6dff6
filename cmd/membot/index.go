package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandevgo/membot/internal/config"
	"github.com/sandevgo/membot/internal/service/memory"
	"github.com/sandevgo/membot/internal/storage/sqlite"
	"github.com/sandevgo/membot/pkg/log"
)

var indexReplace bool

var indexCmd = &cobra.Command{
	Use:   "index [path...]",
	Short: "Index markdown files into the knowledge store",
	Long:  `Parses the given markdown files or directories into sections and stores them for retrieval. With no arguments the runtime knowledge directory is indexed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()
		logger := log.FromCtx(ctx)

		appCfg := config.NewAppConfig(ctx)
		knowledge := sqlite.NewKnowledgeStore(appCfg.GetKnowledgePath())
		if err := knowledge.Open(ctx); err != nil {
			return fmt.Errorf("failed to open knowledge store: %w", err)
		}
		defer knowledge.Close()

		indexer := memory.NewIndexer(knowledge)

		if len(args) == 0 {
			args = []string{appCfg.GetKnowledgeDirPath()}
		}

		total := 0
		for _, path := range args {
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", path, err)
			}

			var ids []int64
			switch {
			case info.IsDir():
				ids, err = indexer.IndexDirectory(ctx, path)
			case indexReplace:
				ids, err = indexer.ReindexFile(ctx, path)
			default:
				ids, err = indexer.IndexFile(ctx, path)
			}
			if err != nil {
				return err
			}
			total += len(ids)
			logger.Info().Str("path", path).Int("entries", len(ids)).Msg("indexed")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d entries\n", total)
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexReplace, "replace", false, "drop previously indexed entries for each file first")
	rootCmd.AddCommand(indexCmd)
}
