package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/budgetbook/budgetbook/internal/amount"
	"github.com/budgetbook/budgetbook/internal/dates"
	"github.com/budgetbook/budgetbook/internal/model"
	"github.com/budgetbook/budgetbook/internal/query"
)

func newListCommand(opts *rootOptions) *cobra.Command {
	var f query.Filters
	var sort query.Sort
	var from, to string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored transactions",
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
			txns := query.FilterAndSort(all, f, sort)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(txns)
			}
			return printTransactions(cmd.OutOrStdout(), txns)
		},
	}

	cmd.Flags().StringVar(&f.Institution, "bank", "", "only this institution")
	cmd.Flags().StringVar(&f.Category, "category", "", "only this category")
	cmd.Flags().StringVar(&f.Search, "search", "", "case-insensitive text search")
	cmd.Flags().StringVar(&from, "from", "", "earliest date, DD.MM.YYYY or YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "latest date, DD.MM.YYYY or YYYY-MM-DD")
	cmd.Flags().StringVar(&sort.Field, "sort", query.FieldDate, "sort field: date, amount, description, category, institution")
	cmd.Flags().BoolVar(&sort.Desc, "desc", false, "sort in descending order")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

func parseDateFlag(name, v string) (model.Date, error) {
	if v == "" {
		return model.Date{}, nil
	}
	d, ok := dates.Parse(v)
	if !ok {
		return model.Date{}, fmt.Errorf("invalid --%s date %q", name, v)
	}
	return d, nil
}

func printTransactions(out io.Writer, txns []model.TransactionRecord) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tAMOUNT\tCATEGORY\tBANK\tDESCRIPTION")
	for _, t := range txns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			dates.Format(t.Date), amount.Format(t.Amount, amount.Comma), t.Category, t.Institution, t.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d transactions\n", len(txns))
	return nil
}
