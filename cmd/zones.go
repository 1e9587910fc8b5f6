package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/prospector/internal/zone"
)

var (
	zoneAddAliases  []string
	zoneAddSubAreas []string
	zoneAddCountry  string
)

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "Inspect and manage the zone table",
}

var zonesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known zones and their sub-areas",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadZoneTable()
		if err != nil {
			return err
		}

		for _, z := range table.Zones {
			fmt.Printf("%s (%s): %d sub-areas\n", z.Key, strings.Join(z.Aliases, ", "), len(z.SubAreas))
			for _, sub := range z.SubAreas {
				fmt.Printf("  %s\n", sub)
			}
		}
		return nil
	},
}

var zonesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show saturation per searched (term, area) pair",
	Long:  `Replays the recorded search sessions through the saturation tracker and prints how exhausted each (term, area) pair has become.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		table, err := loadZoneTable()
		if err != nil {
			return err
		}

		sessions, err := st.ListSessions(ctx, 500)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No search sessions recorded")
			return nil
		}

		// Sessions come newest first; the tracker needs them in the order
		// they happened.
		tracker := zone.NewTracker(table)
		for i := len(sessions) - 1; i >= 0; i-- {
			s := sessions[i]
			tracker.Report(s.Term, s.Area, s.NewLeads, s.Duplicates)
		}

		states := tracker.Snapshot()
		sort.Slice(states, func(i, j int) bool {
			if states[i].Term != states[j].Term {
				return states[i].Term < states[j].Term
			}
			return states[i].Area < states[j].Area
		})

		for _, s := range states {
			fmt.Printf("%-11s %-20s %-30s %2d searches, %3d new, %3d dup\n",
				s.Classification, truncate(s.Term, 20), truncate(s.Area, 30),
				s.Searches, s.TotalNew, s.TotalDuplicates)
		}
		return nil
	},
}

var zonesAddCmd = &cobra.Command{
	Use:   "add <key>",
	Short: "Add a custom zone to the zone table file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Zones.File == "" {
			return eris.New("zones add needs a zone table file; set zones.file in config")
		}
		if len(zoneAddSubAreas) == 0 {
			return eris.New("at least one --sub-area is required")
		}

		table := &zone.Table{}
		if data, err := os.ReadFile(cfg.Zones.File); err == nil {
			if err := yaml.Unmarshal(data, table); err != nil {
				return eris.Wrapf(err, "parse zone table %s", cfg.Zones.File)
			}
		} else if !os.IsNotExist(err) {
			return eris.Wrapf(err, "read zone table %s", cfg.Zones.File)
		}

		key := args[0]
		for _, z := range table.Zones {
			if z.Key == key {
				return eris.Errorf("zone %q already exists", key)
			}
		}

		aliases := zoneAddAliases
		if len(aliases) == 0 {
			aliases = []string{key}
		}
		table.Zones = append(table.Zones, zone.Zone{
			Key:      key,
			Aliases:  aliases,
			SubAreas: zoneAddSubAreas,
			Country:  zoneAddCountry,
		})

		out, err := yaml.Marshal(table)
		if err != nil {
			return eris.Wrap(err, "marshal zone table")
		}
		if err := os.WriteFile(cfg.Zones.File, out, 0o644); err != nil {
			return eris.Wrapf(err, "write zone table %s", cfg.Zones.File)
		}

		fmt.Printf("Added zone %s with %d sub-areas\n", key, len(zoneAddSubAreas))
		return nil
	},
}

func init() {
	zonesAddCmd.Flags().StringSliceVar(&zoneAddAliases, "alias", nil, "alias that triggers the zone (repeatable)")
	zonesAddCmd.Flags().StringSliceVar(&zoneAddSubAreas, "sub-area", nil, "sub-area to sweep (repeatable)")
	zonesAddCmd.Flags().StringVar(&zoneAddCountry, "country", "", "country for alias-suffix matching")
	zonesCmd.AddCommand(zonesListCmd, zonesStatusCmd, zonesAddCmd)
	rootCmd.AddCommand(zonesCmd)
}
