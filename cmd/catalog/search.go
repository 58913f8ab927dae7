package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ersonp/entity-catalog/internal/application/handlers"
	"github.com/ersonp/entity-catalog/internal/domain/entities"
)

type searchFlags struct {
	entityType string
	top        int
	asJSON     bool
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the catalog",
	}

	cmd.AddCommand(
		newSearchModeCmd("ranked", "Full-text search ranked by relevance", entities.SourceRanked),
		newSearchModeCmd("prefix", "Entities whose name starts with the query", entities.SourcePrefix),
	)
	return cmd
}

func newSearchModeCmd(use, short string, source entities.SearchSource) *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   use + " <query>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, source, args[0], f)
		},
	}

	cmd.Flags().StringVarP(&f.entityType, "type", "t", "", "Filter by entity type (company, investor, fund, person)")
	cmd.Flags().IntVarP(&f.top, "top", "n", entities.DefaultTop, "Maximum number of results")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the response as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, source entities.SearchSource, query string, f searchFlags) error {
	if f.entityType != "" {
		if _, err := entities.ParseEntityType(f.entityType); err != nil {
			return err
		}
	}

	req := handlers.SearchRequest{Query: query, Top: &f.top}
	if f.entityType != "" {
		req.Type = &f.entityType
	}

	return withDeps(cmd, func(deps *Deps) error {
		var (
			resp *entities.SearchResponse
			err  error
		)
		if source == entities.SourcePrefix {
			resp, err = deps.SearchHandler.HandlePrefix(cmd.Context(), req)
		} else {
			resp, err = deps.SearchHandler.HandleRanked(cmd.Context(), req)
		}
		if err != nil {
			return fmt.Errorf("searching catalog: %w", err)
		}

		if f.asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		printResults(cmd.OutOrStdout(), resp)
		return nil
	})
}

func printResults(w io.Writer, resp *entities.SearchResponse) {
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No entities found.")
		return
	}

	fmt.Fprintf(w, "Found %d entities (%s, %.3f ms):\n\n", len(resp.Results), resp.Source, resp.DurationMS)

	for i, r := range resp.Results {
		fmt.Fprintf(w, "%d. [%s] %s", i+1, r.Type, r.Name)
		if r.Score != nil {
			fmt.Fprintf(w, " (score %.3f)", *r.Score)
		}
		fmt.Fprintln(w)
		if r.Country != nil {
			fmt.Fprintf(w, "   Country: %s\n", *r.Country)
		}
		if r.AltNames != nil {
			fmt.Fprintf(w, "   Also: %s\n", *r.AltNames)
		}
	}
}
