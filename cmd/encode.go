package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/skillmap/internal/embedding"
	"github.com/spigell/skillmap/internal/encode"
	"github.com/spigell/skillmap/internal/logger"
	"github.com/spigell/skillmap/internal/repository"
	"github.com/spigell/skillmap/internal/store"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Embed the competency repository and store the vectors",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runEncode(cmd)
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().Bool("force", false, "re-encode every competency even if its text did not change")
}

func runEncode(cmd *cobra.Command) error {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}

	logger.Info("starting the encoding", zap.String("version", version), zap.String("repository", config.Repository))

	repo, err := repository.Load(config.Repository)
	if err != nil {
		return fmt.Errorf("loading the repository: %w", err)
	}

	st, err := store.Open(config.Store, false, logger)
	if err != nil {
		return fmt.Errorf("opening the store: %w", err)
	}
	defer st.Close()

	embedder, err := newEmbedder(ctx, config, logger)
	if err != nil {
		return fmt.Errorf("creating an embedder: %w", err)
	}

	encoder := embedding.NewEncoder(embedder, config.Embeddings.BatchSize, config.Embeddings.Workers, logger)

	force, _ := cmd.Flags().GetBool("force")
	stats, err := encode.Run(ctx, repo, st, encoder, embedder.Name(), force, logger)
	if err != nil {
		logger.Error("encoding failed", zap.Error(err))
		return err
	}

	logger.Info("encoding done",
		zap.String("model", embedder.Name()),
		zap.Int("total", stats.Total),
		zap.Int("reused", stats.Reused),
		zap.Int("encoded", stats.Encoded),
	)
	return nil
}
