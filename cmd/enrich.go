package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/search"
	"github.com/sells-group/prospector/internal/store"
)

var (
	enrichAll   bool
	enrichLimit int
	enrichArea  string
	enrichJSON  bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [place-id...]",
	Short: "Enrich stored leads with contact channels",
	Long:  `Resolves email, WhatsApp, social profiles and a verified website for the given leads. Without arguments, --all enriches stored leads that have not been enriched yet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !enrichAll {
			return eris.New("pass place ids or --all")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var leads []model.LeadRecord
		if len(args) > 0 {
			for _, placeID := range args {
				lead, err := env.Store.GetLead(ctx, placeID)
				if err != nil {
					return err
				}
				leads = append(leads, *lead)
			}
		} else {
			notEnriched := false
			leads, err = env.Store.ListLeads(ctx, store.LeadFilter{
				Enriched: &notEnriched,
				Limit:    enrichLimit,
			})
			if err != nil {
				return err
			}
		}
		if len(leads) == 0 {
			fmt.Println("Nothing to enrich")
			return nil
		}

		opts := batchEnrichOptions()
		if len(args) > 0 {
			opts = singleEnrichOptions()
		}
		enriched := env.Orchestrator.EnrichBatch(ctx, leads, enrichArea,
			opts, cfg.Search.EnrichConcurrency)

		persisted := 0
		for i := range enriched {
			enriched[i].LeadScore = search.EnrichedLeadScore(enriched[i])
			if err := env.Store.UpsertLead(ctx, enriched[i]); err != nil {
				zap.L().Warn("persisting enriched lead failed",
					zap.String("place_id", enriched[i].PlaceID), zap.Error(err))
				continue
			}
			persisted++
		}

		if enrichJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(enriched)
		}

		fmt.Printf("Enriched %d leads (%d persisted)\n", len(enriched), persisted)
		for _, lead := range enriched {
			email := "-"
			if len(lead.Emails) > 0 {
				email = lead.Emails[0]
			}
			wa := lead.WhatsApp
			if wa == "" {
				wa = "-"
			}
			fmt.Printf("  [%3d] %-40s %-30s wa:%s\n",
				lead.EnrichScore, truncate(lead.Name, 40), email, wa)
		}

		return nil
	},
}

func init() {
	enrichCmd.Flags().BoolVar(&enrichAll, "all", false, "enrich stored leads that are not enriched yet")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 50, "maximum leads to enrich with --all")
	enrichCmd.Flags().StringVar(&enrichArea, "area", "", "area context for website discovery")
	enrichCmd.Flags().BoolVar(&enrichJSON, "json", false, "emit enriched leads as JSON")
	rootCmd.AddCommand(enrichCmd)
}
