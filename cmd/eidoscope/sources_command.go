package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"eidoscope/internal/sources"
)

type sourceView struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the status sources and whether each is enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var views []sourceView
			for _, name := range sources.BuiltinNames() {
				views = append(views, sourceView{
					Name:        name,
					Enabled:     slices.Contains(cfg.Sources.Enabled, name),
					Description: sources.Describe(name),
				})
			}
			if asJSON {
				return writeJSON(cmd, views)
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.Name, yesNo(v.Enabled), v.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Source", "Enabled", "Description"}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
