package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timmarsh1987/XMCVisualiser/application/queries"
	querybus "github.com/timmarsh1987/XMCVisualiser/application/queries/bus"
)

func newTenantsCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "List the tenants of the application context",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.open(cmd.Context())
			if err != nil {
				return err
			}

			result, err := querybus.Ask[*queries.ListTenantsResult](cmd.Context(), c.QueryBus, queries.ListTenantsQuery{})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			if len(result.Tenants) == 0 {
				fmt.Fprintln(out, "No tenants configured")
			} else {
				w := newTable(out)
				fmt.Fprintln(w, "\tTENANT\tNAME\tPREVIEW\tLIVE")
				for _, t := range result.Tenants {
					marker := ""
					if t.Selected {
						marker = "*"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", marker, t.TenantID, t.DisplayName, t.Context.Preview, t.Context.Live)
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}

			fmt.Fprintf(out, "\nActive context: preview=%q live=%q\n", result.Active.Preview, result.Active.Live)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the tenants as JSON")
	return cmd
}
