package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timmarsh1987/XMCVisualiser/application/queries"
	querybus "github.com/timmarsh1987/XMCVisualiser/application/queries/bus"
	"github.com/timmarsh1987/XMCVisualiser/application/services"
)

type explorerFlags struct {
	site     string
	routes   []string
	language string
	search   string
	tenant   string
	json     bool
}

func (f *explorerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.site, "site", "", "site name (default $DEFAULT_SITE)")
	cmd.Flags().StringSliceVar(&f.routes, "routes", nil, "routes to load, comma separated or repeated")
	cmd.Flags().StringVar(&f.language, "language", "", "content language (default $DEFAULT_LANGUAGE)")
	cmd.Flags().StringVarP(&f.search, "query", "q", "", "case-insensitive filter")
	cmd.Flags().StringVar(&f.tenant, "tenant", "", "tenant id overriding the active context")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("routes")
}

func newPagesCommand(a *app) *cobra.Command {
	var f explorerFlags

	cmd := &cobra.Command{
		Use:   "pages",
		Short: "List pages and their renderings",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if f.site == "" {
				f.site = c.Config.DefaultSite
			}

			result, err := querybus.Ask[*queries.ListPagesResult](cmd.Context(), c.QueryBus, queries.ListPagesQuery{
				SiteName: f.site,
				Routes:   f.routes,
				Language: f.language,
				TenantID: f.tenant,
				Search:   f.search,
			})
			if err != nil {
				return err
			}
			if f.json {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "PATH\tNAME\tTEMPLATE\tRENDERINGS")
			for _, p := range result.Pages {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.Path, p.DisplayName, p.TemplateName, len(p.Renderings))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), fmt.Sprintf("%d pages", result.Total), result.Truncated, result.Errors)
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func newComponentsCommand(a *app) *cobra.Command {
	var f explorerFlags

	cmd := &cobra.Command{
		Use:   "components",
		Short: "List components and where they are used",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if f.site == "" {
				f.site = c.Config.DefaultSite
			}

			result, err := querybus.Ask[*queries.ListComponentsResult](cmd.Context(), c.QueryBus, queries.ListComponentsQuery{
				SiteName: f.site,
				Routes:   f.routes,
				Language: f.language,
				TenantID: f.tenant,
				Search:   f.search,
			})
			if err != nil {
				return err
			}
			if f.json {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "COMPONENT\tRENDERING ID\tUSAGES\tPAGES\tDATASOURCES")
			for _, u := range result.Components {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", u.ComponentName, u.RenderingID, u.TotalUsages, len(u.UsedOnPages), len(u.Datasources))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			summary := fmt.Sprintf("%d components on %d pages", len(result.Components), result.PageCount)
			printSummary(cmd.OutOrStdout(), summary, result.Truncated, result.Errors)
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func printSummary(w io.Writer, summary string, truncated bool, failures []services.PageError) {
	fmt.Fprintf(w, "\n%s\n", summary)
	if truncated {
		fmt.Fprintln(w, "Route list truncated to the configured maximum")
	}
	if len(failures) == 0 {
		return
	}

	lines := make([]string, 0, len(failures))
	for _, e := range failures {
		lines = append(lines, fmt.Sprintf("  %s: %s", e.Route, e.Error))
	}
	fmt.Fprintf(w, "Failed routes:\n%s\n", strings.Join(lines, "\n"))
}
