package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/prospector/internal/store"
)

var (
	leadsStatus   string
	leadsMinScore int
	leadsEnriched string
	leadsLimit    int
	leadsJSON     bool
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect stored leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored leads ordered by score",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		filter := store.LeadFilter{
			Status:   leadsStatus,
			MinScore: leadsMinScore,
			Limit:    leadsLimit,
		}
		switch leadsEnriched {
		case "yes":
			v := true
			filter.Enriched = &v
		case "no":
			v := false
			filter.Enriched = &v
		}

		leads, err := st.ListLeads(ctx, filter)
		if err != nil {
			return err
		}

		if leadsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(leads)
		}

		fmt.Printf("%d leads\n", len(leads))
		for _, lead := range leads {
			email := "-"
			if len(lead.Emails) > 0 {
				email = lead.Emails[0]
			}
			fmt.Printf("  [%3d] %-40s %-18s %-30s %s\n",
				lead.LeadScore, truncate(lead.Name, 40), lead.Phone, email, lead.Status)
		}
		return nil
	},
}

var leadsShowCmd = &cobra.Command{
	Use:   "show <place-id>",
	Short: "Show one lead in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		lead, err := st.GetLead(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lead)
	},
}

var leadsSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent search sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		sessions, err := st.ListSessions(ctx, leadsLimit)
		if err != nil {
			return err
		}

		if leadsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sessions)
		}

		for _, s := range sessions {
			fmt.Printf("%s  %-20s %-30s %3d found %3d new  %s\n",
				s.StartedAt.Format("2006-01-02 15:04"),
				truncate(s.Term, 20), truncate(s.Area, 30),
				s.Found, s.NewLeads, s.Classification)
		}
		return nil
	},
}

func init() {
	leadsListCmd.Flags().StringVar(&leadsStatus, "status", "", "filter by status")
	leadsListCmd.Flags().IntVar(&leadsMinScore, "min-score", 0, "minimum lead score")
	leadsListCmd.Flags().StringVar(&leadsEnriched, "enriched", "", "filter by enrichment: yes or no")
	leadsCmd.PersistentFlags().IntVar(&leadsLimit, "limit", 50, "maximum rows")
	leadsCmd.PersistentFlags().BoolVar(&leadsJSON, "json", false, "emit JSON")
	leadsCmd.AddCommand(leadsListCmd, leadsShowCmd, leadsSessionsCmd)
	rootCmd.AddCommand(leadsCmd)
}
