package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"news-crawler/pkg/registry"
)

func newCategoriesCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the categories of each source",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.Default()
			names := reg.Names()
			if source != "" {
				names = []string{source}
			}

			for _, name := range names {
				src, err := reg.Source(name)
				if err != nil {
					return err
				}

				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.SetTitle(fmt.Sprintf("%s (%s)", src.DisplayName, src.Origin))
				t.AppendHeader(table.Row{"ID", "Key", "Name"})
				for _, c := range src.Categories {
					t.AppendRow(table.Row{c.ID, c.Key, c.Name})
				}
				t.Render()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "only list this source")
	return cmd
}
