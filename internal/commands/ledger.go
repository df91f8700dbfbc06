package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/budgetbook/budgetbook/internal/backup"
	"github.com/budgetbook/budgetbook/internal/importer"
	"github.com/budgetbook/budgetbook/internal/importlog"
	"github.com/budgetbook/budgetbook/internal/store"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON backup of all transactions and categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ctx, err := openEnv(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			b, err := e.ledger.Export(ctx)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return b.Write(cmd.OutOrStdout())
			}
			if backup.IsRemote(output) {
				loc, err := backup.ParseLocation(output, backupName(b))
				if err != nil {
					return err
				}
				bkt, err := backup.Open(ctx, loc, e.backupOptions())
				if err != nil {
					return err
				}
				defer bkt.Close()
				if err := backup.Upload(ctx, bkt, loc.Key, b); err != nil {
					return err
				}
				output = loc.String()
			} else if err := writeBundleFile(output, b); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d transactions and %d categories to %s\n",
				b.Summary.TotalTransactions, b.Summary.TotalCategories, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, s3://bucket/key or gs://bucket/key (default stdout)")

	return cmd
}

// backupName names a bundle uploaded to a bucket folder.
func backupName(b *store.Bundle) string {
	return "budgetbook-backup-" + b.ExportedAt.Format("2006-01-02T150405Z") + ".json"
}

func writeBundleFile(output string, b *store.Bundle) error {
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	if err := b.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", output, err)
	}
	return nil
}

func newRestoreCommand(opts *rootOptions) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "restore <backup.json | s3://bucket/key | gs://bucket/key>",
		Short: "Load transactions and categories from a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ctx, err := openEnv(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			b, err := e.readBundle(ctx, args[0])
			if err != nil {
				return err
			}

			n, err := e.ledger.Restore(ctx, b, replace)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d transactions\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "delete stored transactions first")

	return cmd
}

func (e *env) readBundle(ctx context.Context, src string) (*store.Bundle, error) {
	if backup.IsRemote(src) {
		loc, err := backup.ParseLocation(src, "")
		if err != nil {
			return nil, err
		}
		bkt, err := backup.Open(ctx, loc, e.backupOptions())
		if err != nil {
			return nil, err
		}
		defer bkt.Close()
		return backup.Download(ctx, bkt, loc.Key)
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("opening backup: %w", err)
	}
	defer f.Close()
	return store.ReadBundle(f)
}

func newDedupeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dedupe",
		Short: "Remove duplicate transactions from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ctx, err := openEnv(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			removed, remaining, err := e.ledger.RemoveDuplicates(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d duplicates, %d transactions remain\n", removed, remaining)
			return nil
		},
	}
}

func newBanksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "banks",
		Short: "List supported institutions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tNAME\tALIASES\tLAYOUTS\tTEXT RULES")
			for _, s := range importer.DefaultRegistry().Strategies() {
				fmt.Fprintf(tw, "%s\t%s\t%v\t%d\t%s\n", s.Key(), s.Institution(), s.Aliases(), len(s.Layouts()),
					strings.Join(s.RuleNames(), " > "))
			}
			return tw.Flush()
		},
	}
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the import log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := openEnv(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			entries, err := importlog.Read(e.root)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tFILE\tBANK\tSTATUS\tNEW\tDUP\tDROPPED\tERROR")
			for _, en := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					en.Timestamp.Format("2006-01-02 15:04"), en.File, en.Institution, en.Status,
					en.Accepted, en.Duplicates, en.Dropped, en.Error)
			}
			return tw.Flush()
		},
	}
}
