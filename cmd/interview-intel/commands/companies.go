package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"interview-intel/internal/company"
	"interview-intel/internal/store"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List supported companies with industries and stored counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := st.ListCompanies(cmd.Context())
		if err != nil {
			return err
		}
		counts := make(map[string]store.CompanyCount, len(list))
		for _, c := range list {
			counts[c.Name] = c
		}

		supported := companyExtractor.Companies()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COMPANY\tINDUSTRY\tPATTERNS\tEXPERIENCES\tSTATUS")
		for _, name := range supported {
			experiences := 0
			status := "not_scraped"
			if row, ok := counts[name]; ok {
				experiences = row.ExperienceCount
				status = "inactive"
				if experiences > 0 {
					status = "active"
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
				name, company.Industry(name), companyExtractor.PatternsFor(name), experiences, status)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Printf("\nTotal supported companies: %d\n", len(supported))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(companiesCmd)
}
