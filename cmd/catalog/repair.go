package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ersonp/entity-catalog/internal/infrastructure/config"
	"github.com/ersonp/entity-catalog/internal/infrastructure/feeds"
)

func newRepairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair <input.csv> <output.tsv>",
		Short: "Repair the raw company dataset into a loadable TSV",
		Long: `Normalizes every row of the raw company dataset to 10 columns: rows missing
the region column get an empty one, other widths are padded or truncated, and
tabs and line breaks inside values become spaces. The output file must not exist.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(cmd, args[0], args[1])
		},
	}
}

func runRepair(cmd *cobra.Command, input, output string) error {
	return withConfig(cmd, func(cfg *config.Config, logger *slog.Logger) error {
		opener := feeds.NewOpener(cfg.Storage)
		stats, err := feeds.RepairFile(cmd.Context(), opener, input, output, feeds.RepairOptions{
			Logger:        logger,
			ProgressEvery: feeds.DefaultRepairProgress,
		})
		if err != nil {
			return fmt.Errorf("repairing %s: %w", input, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s (%d regions inserted, %d padded, %d truncated)\n",
			stats.Rows, output, stats.RegionsInserted, stats.Padded, stats.Truncated)
		return nil
	})
}
