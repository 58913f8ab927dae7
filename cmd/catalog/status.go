package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active catalog generation",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withInternalDeps(cmd, func(d *internalDeps) error {
		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		gen, err := d.SearchHandler.HandleStatus(ctx)
		if errors.Is(err, entities.ErrNoActiveGeneration) {
			fmt.Fprintf(out, "No catalog loaded in %s (run 'catalog load').\n", d.repo.Path())
			return nil
		}
		if err != nil {
			return err
		}

		count, err := d.repo.CountEntities(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Catalog:    %s\n", d.repo.Path())
		fmt.Fprintf(out, "Generation: %d (%s)\n", gen.ID, gen.Label)
		fmt.Fprintf(out, "Entities:   %d\n", count)
		if gen.ActivatedAt != nil {
			fmt.Fprintf(out, "Loaded at:  %s\n", gen.ActivatedAt.Local().Format(time.RFC3339))
		}

		gens, err := d.repo.ListGenerations(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "\nGenerations:")
		for _, g := range gens {
			state := "inactive"
			if g.ID == gen.ID {
				state = "active"
			}
			fmt.Fprintf(out, "  %d  %-8s  %d rows  created %s\n",
				g.ID, state, g.RowCount, g.CreatedAt.Local().Format(time.RFC3339))
		}
		return nil
	})
}
