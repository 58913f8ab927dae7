package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ersonp/entity-catalog/internal/application/handlers"
	"github.com/ersonp/entity-catalog/internal/domain/services"
	"github.com/ersonp/entity-catalog/internal/infrastructure/catalogdb/sqlite"
	"github.com/ersonp/entity-catalog/internal/infrastructure/config"
	"github.com/ersonp/entity-catalog/internal/infrastructure/feeds"
	"github.com/ersonp/entity-catalog/internal/infrastructure/logging"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config        *config.Config
	Logger        *slog.Logger
	Opener        *feeds.Opener
	SearchHandler *handlers.SearchHandler
	LoadHandler   *handlers.LoadHandler
}

// internalDeps holds all dependencies including low-level components.
type internalDeps struct {
	Deps
	repo *sqlite.Repository
}

// withConfig loads the config and builds the logger.
func withConfig(cmd *cobra.Command, fn func(*config.Config, *slog.Logger) error) error {
	cfg, err := config.Load(globalConfigPath, cmd.Flags().Changed("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Log, cmd.ErrOrStderr())
	return fn(cfg, logger)
}

// withDeps loads config and builds dependencies, then calls the provided function.
// It handles cleanup automatically.
func withDeps(cmd *cobra.Command, fn func(*Deps) error) error {
	return withInternalDeps(cmd, func(d *internalDeps) error {
		return fn(&d.Deps)
	})
}

// withInternalDeps provides access to all dependencies including the
// catalog repository.
func withInternalDeps(cmd *cobra.Command, fn func(*internalDeps) error) error {
	return withConfig(cmd, func(cfg *config.Config, logger *slog.Logger) error {
		repo, err := sqlite.NewRepository(cfg.Catalog, sqlite.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("opening catalog %s: %w", cfg.Catalog.Path, err)
		}
		defer repo.Close()

		queryService := services.NewQueryService(repo)
		loaderService := services.NewLoaderService(repo, services.WithLoaderLogger(logger))

		deps := &internalDeps{
			Deps: Deps{
				Config:        cfg,
				Logger:        logger,
				Opener:        feeds.NewOpener(cfg.Storage),
				SearchHandler: handlers.NewSearchHandler(queryService),
				LoadHandler:   handlers.NewLoadHandler(services.NewConsolidator(), loaderService),
			},
			repo: repo,
		}

		return fn(deps)
	})
}
