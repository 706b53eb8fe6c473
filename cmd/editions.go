package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/scriptura/internal/catalog"
)

var editionsCmd = &cobra.Command{
	Use:   "editions",
	Short: "List supported editions",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tNAME\tLANGUAGE\tTIER\tSTRATEGY\tATTRIBUTION")
		for _, e := range catalog.Editions() {
			attribution := "-"
			if e.RequiresAttribution {
				attribution = "required"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.Code, e.DisplayName, e.LanguageName(), e.Tier, e.Strategy, attribution)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(editionsCmd)
}
