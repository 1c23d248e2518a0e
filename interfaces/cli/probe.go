package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timmarsh1987/XMCVisualiser/infrastructure/sitecore"
)

func newProbeCommand(a *app) *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check that both GraphQL endpoints answer for the active context",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.open(cmd.Context())
			if err != nil {
				return err
			}

			ids := c.Registry.Resolve()
			if tenantID != "" {
				if ids, err = c.Registry.ResolveFor(tenantID); err != nil {
					return err
				}
			}
			if ids.IsZero() {
				return fmt.Errorf("no context identifiers configured")
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, target := range []struct {
				fetcher *sitecore.Fetcher
				id      string
			}{
				{c.Fetchers.Preview, ids.Preview},
				{c.Fetchers.Published, ids.Live},
			} {
				label := target.fetcher.Environment().Label()
				if target.id == "" {
					fmt.Fprintf(out, "%-10s skipped (no context id)\n", label)
					continue
				}
				if err := target.fetcher.Probe(cmd.Context(), target.id); err != nil {
					failed++
					fmt.Fprintf(out, "%-10s failed: %v\n", label, err)
					continue
				}
				fmt.Fprintf(out, "%-10s ok (%s)\n", label, mask(target.id))
			}

			if failed > 0 {
				return fmt.Errorf("%d endpoint probe(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "probe the context of this tenant")
	return cmd
}

// mask keeps the last four characters of a context id
func mask(id string) string {
	if len(id) <= 4 {
		return id
	}
	return "..." + id[len(id)-4:]
}
