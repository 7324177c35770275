package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagegrid/pagegrid/internal/config"
	"github.com/pagegrid/pagegrid/internal/slot"
)

func newValidateSlotsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-slots",
		Short: "Validate the slot configuration directory and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			registry := slot.NewRegistry()
			if err := registry.LoadDir(cfg.SlotConfigDir); err != nil {
				return fmt.Errorf("slot configuration invalid: %w", err)
			}

			for _, entityType := range registry.EntityTypes() {
				cfgs := registry.ConfigsFor(entityType)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d slots\n", entityType, len(cfgs))
			}
			return nil
		},
	}
}
