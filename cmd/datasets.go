package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exvulsec/permafrost/datasets"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "list the extractable datasets and their columns",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range datasets.Names() {
			ds, err := datasets.Lookup(name)
			if err != nil {
				return err
			}
			fmt.Printf("%s:\n", name)
			for _, column := range ds.Columns() {
				fmt.Printf("  %-24s %s\n", column.Name, column.Type)
			}
		}
		return nil
	},
}
