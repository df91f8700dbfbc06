package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/budgetbook/budgetbook/internal/importlog"
	"github.com/budgetbook/budgetbook/internal/ingest"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	var sel ingest.Selection
	var autoDetect bool

	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import bank statements",
		Long: "Import bank statements (.pdf, .txt, .xlsx, .xls, .csv). Without arguments every\n" +
			"statement in the inbox directory is imported and moved to its processed/ folder.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ctx, err := openEnv(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			svc := e.ingestService(autoDetect)
			var outcomes []ingest.Outcome
			if len(args) == 0 {
				outcomes, err = svc.ImportInbox(ctx, e.cfg.InboxDir(e.root), sel)
			} else {
				outcomes, err = svc.ImportFiles(ctx, args, sel)
			}
			if err != nil {
				return err
			}
			if len(outcomes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No statements to import.")
				return nil
			}

			now := time.Now()
			entries := make([]importlog.Entry, 0, len(outcomes))
			failed := 0
			for _, o := range outcomes {
				printOutcome(cmd.OutOrStdout(), o, sel.DryRun)
				entries = append(entries, o.LogEntry(now, sel.DryRun))
				if o.Err != nil {
					failed++
				}
			}
			if !sel.DryRun {
				if err := importlog.Append(e.root, entries); err != nil {
					return fmt.Errorf("writing import log: %w", err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(outcomes))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sel.Institution, "bank", "b", "", "institution of the statements (see 'budgetbook banks')")
	cmd.Flags().BoolVar(&sel.DryRun, "dry-run", false, "report what would be imported without saving")
	cmd.Flags().BoolVar(&autoDetect, "auto-detect", false, "pick the institution of text statements from their contents")

	return cmd
}

func printOutcome(w io.Writer, o ingest.Outcome, dryRun bool) {
	name := filepath.Base(o.File)
	if o.Err != nil {
		fmt.Fprintf(w, "%s: error: %v\n", name, o.Err)
		return
	}
	res := o.Result
	verb := "imported"
	if dryRun {
		verb = "new"
	}
	fmt.Fprintf(w, "%s: %s, %d %s, %d duplicates, %d dropped\n",
		name, res.Detection.Institution, len(o.Commit.Unique), verb, len(o.Commit.Duplicates), res.Dropped)
	if res.YieldedNothing {
		fmt.Fprintf(w, "  no transactions recognized; first lines:\n")
		for _, line := range res.Preview {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}
