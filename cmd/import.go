package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospector/internal/model"
)

var importCmd = &cobra.Command{
	Use:   "import <csv-file>",
	Short: "Bulk-load leads from a CSV file",
	Long:  `Seeds the store from a CSV export. The header row names the columns; place_id and name are required, the rest (category, address, phone, website, rating, review_count, status) are optional.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrapf(err, "open %s", args[0])
		}
		defer f.Close()

		leads, err := readLeadCSV(f)
		if err != nil {
			return err
		}
		if len(leads) == 0 {
			fmt.Println("No rows to import")
			return nil
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.ImportLeads(ctx, leads)
		if err != nil {
			return err
		}

		fmt.Printf("Imported %d leads\n", n)
		return nil
	},
}

// readLeadCSV parses a header-first CSV into lead records.
func readLeadCSV(r io.Reader) ([]model.LeadRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read csv header")
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	if _, ok := col["place_id"]; !ok {
		return nil, eris.New("csv is missing the place_id column")
	}
	if _, ok := col["name"]; !ok {
		return nil, eris.New("csv is missing the name column")
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var leads []model.LeadRecord
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, eris.Wrapf(err, "read csv line %d", line)
		}

		lead := model.LeadRecord{
			PlaceID:  field(row, "place_id"),
			Name:     field(row, "name"),
			Category: field(row, "category"),
			Address:  field(row, "address"),
			Phone:    field(row, "phone"),
			Website:  field(row, "website"),
			Status:   field(row, "status"),
		}
		if lead.PlaceID == "" || lead.Name == "" {
			return nil, eris.Errorf("csv line %d: place_id and name are required", line)
		}
		if lead.Status == "" {
			lead.Status = "new"
		}
		if v := field(row, "rating"); v != "" {
			rating, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, eris.Errorf("csv line %d: bad rating %q", line, v)
			}
			lead.Rating = rating
		}
		if v := field(row, "review_count"); v != "" {
			count, err := strconv.Atoi(v)
			if err != nil {
				return nil, eris.Errorf("csv line %d: bad review_count %q", line, v)
			}
			lead.ReviewCount = count
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

func init() {
	rootCmd.AddCommand(importCmd)
}
