package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/electricfoxes1989/the-triton-sub000/internal/assets"
	"github.com/electricfoxes1989/the-triton-sub000/internal/checkpoint"
	"github.com/electricfoxes1989/the-triton-sub000/internal/config"
	"github.com/electricfoxes1989/the-triton-sub000/internal/entities"
	"github.com/electricfoxes1989/the-triton-sub000/internal/infrastructure/sanity"
	"github.com/electricfoxes1989/the-triton-sub000/internal/infrastructure/wordpress"
	"github.com/electricfoxes1989/the-triton-sub000/internal/transform"
	"github.com/electricfoxes1989/the-triton-sub000/internal/usecase"
)

// Application wires config to the migration use case.
type Application struct {
	migration *usecase.Migration
	logger    *slog.Logger
}

// New builds a runnable migration from configuration.
func New(cfg config.Config, mode usecase.Mode, logger *slog.Logger) (*Application, error) {
	if cfg.Sanity.ProjectID == "" {
		return nil, fmt.Errorf("sanity project id is not configured")
	}
	if cfg.Sanity.Token == "" {
		return nil, fmt.Errorf("sanity token is not configured")
	}

	source := wordpress.NewClient(cfg.Source.BaseURL, nil, logger.With("component", "source"))
	store := sanity.NewClient(
		sanity.BaseURLFor(cfg.Sanity.ProjectID, cfg.Sanity.APIVersion),
		cfg.Sanity.Dataset,
		cfg.Sanity.Token,
		nil,
		logger.With("component", "store"),
	)

	cp, err := checkpoint.Load(cfg.Migration.CheckpointPath)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	ingestor, err := assets.NewIngestor(store, nil, cfg.Migration.AssetCachePath, logger.With("component", "assets"))
	if err != nil {
		return nil, fmt.Errorf("load asset cache: %w", err)
	}

	resolver := entities.NewResolver(store, cfg.Migration.DefaultCategory, logger.With("component", "entities"))
	transformer := transform.New(ingestor, logger.With("component", "transform"))

	migration := usecase.NewMigration(usecase.MigrationDeps{
		Source:      source,
		Store:       store,
		Resolver:    resolver,
		Transformer: transformer,
		Assets:      ingestor,
		Checkpoint:  cp,
		Logger:      logger.With("component", "migration"),
		Mode:        mode,
		PageSize:    cfg.Source.PageSize,
	})

	return &Application{migration: migration, logger: logger}, nil
}

// Run executes the migration and prints the end-of-run summary. Per-item
// failures do not fail the run; only a fatal abort returns an error.
func (a *Application) Run(ctx context.Context) error {
	summary, err := a.migration.Run(ctx)

	fmt.Printf("migration summary: imported=%d failed=%d skipped=%d pages=%d destination_total=%d\n",
		summary.Imported, summary.Failed, summary.Skipped, summary.Pages, summary.DestinationTotal)

	if err != nil {
		return fmt.Errorf("migration aborted: %w", err)
	}
	return nil
}
