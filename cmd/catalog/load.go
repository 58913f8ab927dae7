package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ersonp/entity-catalog/internal/application/handlers"
	"github.com/ersonp/entity-catalog/internal/domain/entities"
	"github.com/ersonp/entity-catalog/internal/domain/services"
	"github.com/ersonp/entity-catalog/internal/infrastructure/config"
	"github.com/ersonp/entity-catalog/internal/infrastructure/feeds"
)

type loadFlags struct {
	reuseSchema bool
	batchSize   int
	feeds       config.FeedsConfig
}

func newLoadCmd() *cobra.Command {
	var f loadFlags

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Rebuild the catalog from the source feeds",
		Long: `Reads the company, investor, fund and people feeds, consolidates them into
catalog rows and replaces the catalog with the result. Queries keep reading the
previous catalog until the load completes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, f)
		},
	}

	cmd.Flags().BoolVar(&f.reuseSchema, "reuse-schema", false, "Refill the existing catalog tables instead of building new ones")
	cmd.Flags().IntVarP(&f.batchSize, "batch-size", "b", 0, "Rows per insert batch (default from config)")
	cmd.Flags().StringVar(&f.feeds.Companies, "companies", "", "Company feed location (overrides config)")
	cmd.Flags().StringVar(&f.feeds.Investors, "investors", "", "Investor feed location (overrides config)")
	cmd.Flags().StringVar(&f.feeds.Funds, "funds", "", "Fund feed location (overrides config)")
	cmd.Flags().StringVar(&f.feeds.People, "people", "", "People feed location (overrides config)")
	cmd.Flags().StringVar(&f.feeds.CompaniesFormat, "companies-format", "", "Company feed format (csv, tsv, jsonl, json, company-dataset)")
	cmd.Flags().StringVar(&f.feeds.InvestorsFormat, "investors-format", "", "Investor feed format")
	cmd.Flags().StringVar(&f.feeds.FundsFormat, "funds-format", "", "Fund feed format")
	cmd.Flags().StringVar(&f.feeds.PeopleFormat, "people-format", "", "People feed format")

	return cmd
}

func runLoad(cmd *cobra.Command, f loadFlags) error {
	if f.batchSize < 0 {
		return fmt.Errorf("batch size must be positive, got %d", f.batchSize)
	}

	return withDeps(cmd, func(deps *Deps) error {
		feedCfg := mergeFeeds(deps.Config.Feeds, f.feeds)
		sources, err := feeds.FromConfig(feedCfg, deps.Opener)
		if err != nil {
			return err
		}

		opts := services.LoadOptions{
			BatchSize:     deps.Config.Loader.BatchSize,
			ReuseSchema:   f.reuseSchema,
			ProgressEvery: deps.Config.Loader.ProgressEvery,
		}
		if f.batchSize > 0 {
			opts.BatchSize = f.batchSize
		}

		report, err := deps.LoadHandler.Handle(cmd.Context(), sources, opts)
		out := cmd.OutOrStdout()
		if err != nil {
			var aborted *entities.LoadAbortedError
			if errors.As(err, &aborted) {
				fmt.Fprintf(out, "Load aborted after %d rows; the previous catalog is still active.\n", aborted.Inserted)
			}
			if report != nil {
				printStats(out, report.Stats)
			}
			return err
		}

		printLoadReport(out, report)
		return nil
	})
}

// mergeFeeds overrides configured feed locations and formats with the
// non-empty flags.
func mergeFeeds(base, override config.FeedsConfig) config.FeedsConfig {
	for _, p := range []struct {
		dst *string
		src string
	}{
		{&base.Companies, override.Companies},
		{&base.Investors, override.Investors},
		{&base.Funds, override.Funds},
		{&base.People, override.People},
		{&base.CompaniesFormat, override.CompaniesFormat},
		{&base.InvestorsFormat, override.InvestorsFormat},
		{&base.FundsFormat, override.FundsFormat},
		{&base.PeopleFormat, override.PeopleFormat},
	} {
		if p.src != "" {
			*p.dst = p.src
		}
	}
	return base
}

func printLoadReport(w io.Writer, report *handlers.LoadReport) {
	fmt.Fprintf(w, "Loaded %d entities into generation %d in %s\n",
		report.Inserted, report.Generation.ID, report.Duration.Round(time.Millisecond))
	printStats(w, report.Stats)
}

func printStats(w io.Writer, stats *services.ConsolidationStats) {
	if stats == nil {
		return
	}
	for _, et := range entities.EntityTypes() {
		fs, ok := stats.ByType[et]
		if !ok || *fs == (services.FeedStats{}) {
			continue
		}
		printFeedStats(w, string(et), *fs)
	}
	printFeedStats(w, "total", stats.Total())
}

func printFeedStats(w io.Writer, label string, fs services.FeedStats) {
	fmt.Fprintf(w, "  %-8s read %d, accepted %d, dropped %d, malformed %d\n",
		label, fs.Read, fs.Accepted, fs.Dropped, fs.Malformed)
}
