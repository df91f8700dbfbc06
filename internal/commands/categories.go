package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newCategoriesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage the category catalog",
	}

	// each subcommand edits the catalog and prints the result
	edit := func(use, short string, nargs int, fn func(ctx context.Context, e *env, args []string) ([]string, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(nargs),
			RunE: func(cmd *cobra.Command, args []string) error {
				e, ctx, err := openEnv(cmd.Context(), opts, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer e.Close()

				cats, err := fn(ctx, e, args)
				if err != nil {
					return err
				}
				printCategories(cmd.OutOrStdout(), cats)
				return nil
			},
		}
	}

	cmd.AddCommand(
		edit("list", "List categories", 0, func(ctx context.Context, e *env, _ []string) ([]string, error) {
			return e.ledger.Categories(ctx)
		}),
		edit("add <name>", "Add a category", 1, func(ctx context.Context, e *env, args []string) ([]string, error) {
			return e.ledger.AddCategory(ctx, args[0])
		}),
		edit("rename <old> <new>", "Rename a category and relabel its transactions", 2, func(ctx context.Context, e *env, args []string) ([]string, error) {
			return e.ledger.RenameCategory(ctx, args[0], args[1])
		}),
		edit("delete <name>", "Remove a category from the catalog", 1, func(ctx context.Context, e *env, args []string) ([]string, error) {
			return e.ledger.DeleteCategory(ctx, args[0])
		}),
	)
	return cmd
}

func printCategories(w io.Writer, cats []string) {
	for _, c := range cats {
		fmt.Fprintln(w, c)
	}
}
