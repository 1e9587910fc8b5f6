package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/prospector/internal/search"
)

var (
	searchMaxResults      int
	searchEnrich          bool
	searchExcludeExisting bool
	searchMinRating       float64
	searchRequirePhone    bool
	searchRequireWebsite  bool
	searchJSON            bool
)

var searchCmd = &cobra.Command{
	Use:   "search <term> <area>",
	Short: "Search for business leads in an area",
	Long:  `Searches the candidate source for businesses matching the term, sweeping sub-areas when the area matches a known zone. Results are deduplicated against previous runs, scored, optionally enriched, and persisted.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := search.Options{
			MaxResults:        searchMaxResults,
			MinRelevance:      cfg.Search.MinRelevance,
			SubAreaMarginPct:  cfg.Search.SubAreaMarginPct,
			Enrich:            searchEnrich,
			EnrichConcurrency: cfg.Search.EnrichConcurrency,
			EnrichBudget:      time.Duration(cfg.Enrich.BatchBudgetMs) * time.Millisecond,
			MinRating:         searchMinRating,
			RequirePhone:      searchRequirePhone,
			RequireWebsite:    searchRequireWebsite,
			ExcludeExisting:   searchExcludeExisting,
		}
		if opts.MaxResults <= 0 {
			opts.MaxResults = cfg.Search.MaxResults
		}
		if opts.MinRating == 0 {
			opts.MinRating = cfg.Search.MinRating
		}

		result, err := env.Coordinator.Search(ctx, args[0], args[1], opts)
		if err != nil {
			return err
		}

		if searchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		fmt.Printf("Found %d leads (%d new, %d already known, %.0f%% duplicates)\n",
			result.Stats.Total, result.Stats.NewLeads,
			result.Stats.ExistingLeads, result.Stats.DuplicatePercentage)

		if result.ZoneInfo != nil {
			fmt.Printf("Zone %s expanded into %d sub-areas\n",
				result.ZoneInfo.CanonicalKey, len(result.ZoneInfo.Areas))
		}

		for _, lead := range result.Leads {
			website := lead.Website
			if website == "" {
				website = "-"
			}
			fmt.Printf("  [%3d] %-40s %-18s %s\n",
				lead.LeadScore, truncate(lead.Name, 40), lead.Phone, website)
		}

		if sat := result.ZoneSaturation; sat != nil {
			fmt.Printf("\nZone is %s: %s\n", sat.Classification, sat.Recommendation)
			for _, area := range sat.SuggestedAreas {
				fmt.Printf("  try: %s\n", area)
			}
		}

		return nil
	},
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func init() {
	searchCmd.Flags().IntVar(&searchMaxResults, "max", 0, "maximum leads to return (default from config)")
	searchCmd.Flags().BoolVar(&searchEnrich, "enrich", false, "enrich leads inline after search")
	searchCmd.Flags().BoolVar(&searchExcludeExisting, "exclude-existing", false, "drop already-persisted leads from the result")
	searchCmd.Flags().Float64Var(&searchMinRating, "min-rating", 0, "minimum rating filter")
	searchCmd.Flags().BoolVar(&searchRequirePhone, "require-phone", false, "keep only leads with a phone number")
	searchCmd.Flags().BoolVar(&searchRequireWebsite, "require-website", false, "keep only leads with a website")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "emit the full result as JSON")
	rootCmd.AddCommand(searchCmd)
}
