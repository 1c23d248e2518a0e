package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/timmarsh1987/XMCVisualiser/application/queries"
	querybus "github.com/timmarsh1987/XMCVisualiser/application/queries/bus"
	"github.com/timmarsh1987/XMCVisualiser/domain/layout"
)

type compareFlags struct {
	site     string
	route    string
	language string
	tenant   string
	json     bool
}

func newCompareCommand(a *app) *cobra.Command {
	var f compareFlags

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the preview and published layout of one page",
		Long: `Fetch the layout of one page from both environments and print the two
normalized documents. A failed fetch is printed in place of its document;
the command still exits 0 once the comparison completes.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if f.site == "" {
				f.site = c.Config.DefaultSite
			}

			result, err := querybus.Ask[*queries.CompareLayoutsResult](cmd.Context(), c.QueryBus, queries.CompareLayoutsQuery{
				SiteName:  f.site,
				RoutePath: f.route,
				Language:  f.language,
				TenantID:  f.tenant,
			})
			if err != nil {
				return err
			}

			if f.json {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			printComparison(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.site, "site", "", "site name (default $DEFAULT_SITE)")
	cmd.Flags().StringVar(&f.route, "route", "", "route path, e.g. / or /about")
	cmd.Flags().StringVar(&f.language, "language", "", "content language (default $DEFAULT_LANGUAGE)")
	cmd.Flags().StringVar(&f.tenant, "tenant", "", "tenant id overriding the active context")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("route")
	return cmd
}

func printComparison(w io.Writer, r *queries.CompareLayoutsResult) {
	verdict := "different"
	if r.Identical {
		verdict = "identical"
	}
	fmt.Fprintf(w, "Comparison %s (%s, %s)\n", r.ComparisonID, r.Status, verdict)
	fmt.Fprintf(w, "Site:      %s\n", r.Site)
	fmt.Fprintf(w, "Route:     %s\n", r.Route)
	fmt.Fprintf(w, "Language:  %s\n", r.Language)
	if r.ItemInfo != nil {
		fmt.Fprintf(w, "Item:      %s (%s)\n", displayName(r.ItemInfo), r.ItemInfo.Path)
	}

	printDocument(w, layout.EnvironmentPreview, r.Preview)
	printDocument(w, layout.EnvironmentPublished, r.Published)
}

func printDocument(w io.Writer, env layout.Environment, doc layout.LayoutDocument) {
	fmt.Fprintf(w, "\n== %s ==\n", env.Label())
	if doc.Failed() {
		fmt.Fprintf(w, "error: %s\n", doc.Error)
		return
	}
	fmt.Fprintln(w, indentDocument(doc.Rendered))
}

func displayName(info *layout.ItemInfo) string {
	if info.DisplayName != "" {
		return info.DisplayName
	}
	return info.Name
}
