package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pagegrid/pagegrid/internal/config"
	"github.com/pagegrid/pagegrid/internal/dispatch"
	"github.com/pagegrid/pagegrid/internal/event"
	"github.com/pagegrid/pagegrid/internal/history"
	"github.com/pagegrid/pagegrid/internal/op"
	"github.com/pagegrid/pagegrid/internal/persist"
	"github.com/pagegrid/pagegrid/internal/server"
	"github.com/pagegrid/pagegrid/internal/slot"
	"github.com/pagegrid/pagegrid/internal/store"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the synchronization server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyLogLevel(cfg.LogLevel)
	logger := log.Logger

	backend, err := persist.OpenSQLite(ctx, cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("opening backend: %w", err)
	}
	defer backend.Close()

	journal := history.NewSQLiteStore(backend.DB())
	if err := journal.CreateTable(ctx); err != nil {
		return fmt.Errorf("creating journal table: %w", err)
	}

	slots := slot.NewRegistry()
	if err := slots.LoadDir(cfg.SlotConfigDir); err != nil {
		return fmt.Errorf("loading slot configuration: %w", err)
	}
	logger.Info().Strs("entity_types", slots.EntityTypes()).Msg("slot configuration loaded")

	registry := dispatch.NewRegistry(logger)
	disp := dispatch.New(store.New(), server.NewSlotProvider(backend, slots), backend, registry, logger)
	disp.SetRecorder(event.NewHistoryRecorder(journal))
	disp.SetConfigValidator(slots.ValidateWidgetConfig)

	if cfg.WatchSlotConfig {
		watcher := slot.NewWatcher(slots, cfg.SlotConfigDir, func(reason string, files []string) {
			// Configuration changes reach editing surfaces as a reload
			// signal; the "config" origin belongs to no subscriber.
			if _, err := disp.PublishUpdate(ctx, "config", op.NewReload(reason, files)); err != nil {
				logger.Warn().Err(err).Msg("reload fan-out failed")
			}
		}, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Warn().Err(err).Msg("slot config watcher stopped")
			}
		}()
	}

	return server.Run(ctx, server.Config{
		ListenAddr: cfg.ListenAddr,
		Dispatcher: disp,
		Backend:    backend,
		Slots:      slots,
		History:    journal,
		Log:        logger,
	})
}

func applyLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
