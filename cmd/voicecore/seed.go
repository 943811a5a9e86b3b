package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/config"
	logpkg "github.com/liveclaw/voicecore/internal/logger"
	"github.com/liveclaw/voicecore/internal/repository/archive"
	openaiTransport "github.com/liveclaw/voicecore/internal/transport/openai"
	indexeruc "github.com/liveclaw/voicecore/internal/usecase/indexer"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a clip manifest into the archive",
	Long: `Load curated clips into the archive at seed priority. Without --file the
built-in acknowledgment set (Turkish + English) is used. Clips already in the
archive are skipped, so reseeding is safe.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		file, _ := cmd.Flags().GetString("file")
		return runSeed(file)
	},
}

func init() {
	seedCmd.Flags().String("file", "", "path to a JSON clip manifest (default: built-in set)")
}

func runSeed(file string) error {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	clips, err := loadClips(file)
	if err != nil {
		return err
	}

	manifest, err := archive.OpenManifest(cfg.Archive.DataDir)
	if err != nil {
		return fmt.Errorf("open clip manifest: %w", err)
	}
	defer manifest.Close()

	archiveRepo := archive.New(manifest, logger)

	ctx := context.Background()
	if err := archiveRepo.Load(ctx); err != nil {
		return fmt.Errorf("load clip archive: %w", err)
	}

	embedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	// The seed path only publishes; the matcher and synthesizer are never
	// touched (seed clips ship their own audio).
	svc := indexeruc.New(nil, archiveRepo, embedder, nil, logger)

	published, err := svc.Seed(ctx, clips)
	if err != nil {
		return fmt.Errorf("seed archive: %w", err)
	}

	logger.Info("Seed complete",
		zap.Int("manifest_clips", len(clips)),
		zap.Int("published", published),
		zap.Int("skipped", len(clips)-published),
	)
	return nil
}

func loadClips(file string) ([]indexeruc.SeedClip, error) {
	if file == "" {
		clips, err := indexeruc.DefaultSeed()
		if err != nil {
			return nil, fmt.Errorf("built-in seed manifest: %w", err)
		}
		return clips, nil
	}
	clips, err := indexeruc.LoadSeedFile(file)
	if err != nil {
		return nil, fmt.Errorf("read seed manifest %s: %w", file, err)
	}
	return clips, nil
}
