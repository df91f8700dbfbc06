package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/budgetbook/budgetbook/internal/amount"
	"github.com/budgetbook/budgetbook/internal/query"
	"github.com/budgetbook/budgetbook/internal/report"
)

func newReportCommand(opts *rootOptions) *cobra.Command {
	var f query.Filters
	var from, to string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize spending per category and month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if f.DateFrom, err = parseDateFlag("from", from); err != nil {
				return err
			}
			if f.DateTo, err = parseDateFlag("to", to); err != nil {
				return err
			}

			e, ctx, err := openEnv(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			all, err := e.ledger.All(ctx)
			if err != nil {
				return err
			}
			r := report.Build(query.FilterAndSort(all, f, query.Sort{}))

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}
			return printReport(cmd.OutOrStdout(), r)
		},
	}

	cmd.Flags().StringVar(&f.Institution, "bank", "", "only this institution")
	cmd.Flags().StringVar(&from, "from", "", "earliest date, DD.MM.YYYY or YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "latest date, DD.MM.YYYY or YYYY-MM-DD")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

func printReport(w io.Writer, r report.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tCOUNT\tTOTAL\tMONTHLY AVG\tSTDDEV")
	for _, l := range r.Categories {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.2f\t%.2f\n",
			l.Category, l.Count, amount.Format(l.Total, amount.Comma), l.Mean, l.StdDev)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nIncome %s, expenses %s, net %s over %d months\n",
		amount.Format(r.Income, amount.Comma),
		amount.Format(r.Expenses, amount.Comma),
		amount.Format(r.Net, amount.Comma),
		len(r.Months))
	return nil
}
