package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/pavilion/internal/catalog"
	"github.com/hyperengineering/pavilion/internal/controller"
	"github.com/hyperengineering/pavilion/internal/types"
	"github.com/hyperengineering/pavilion/internal/validation"
)

var catalogCategory string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the seed library",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

var catalogOpenCmd = &cobra.Command{
	Use:   "open <book-id>",
	Short: "Open a book and record it in the reading history",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogOpen,
}

func init() {
	catalogCmd.Flags().StringVar(&catalogCategory, "category", types.CategoryAll,
		"Category filter (ALL for every book)")
	catalogCmd.AddCommand(catalogOpenCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	if verr := validation.ValidateCategory("category", catalogCategory); verr != nil {
		return fmt.Errorf("%s %s", verr.Field, verr.Message)
	}
	books := catalog.Filter(catalogCategory)

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), types.CatalogResponse{Category: catalogCategory, Books: books})
	}

	if len(books) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No books in this category.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tCATEGORY")
	for _, b := range books {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.ID, b.Title, orDash(b.Author), b.Category)
	}
	return w.Flush()
}

func runCatalogOpen(cmd *cobra.Command, args []string) error {
	return withController(cmd, sessionOrDefault(), func(ctx context.Context, ctrl *controller.Controller) error {
		state, err := ctrl.OpenBook(ctx, args[0])
		if err != nil {
			return fmt.Errorf("open %q: %w", args[0], err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), state)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Opened 《%s》 by %s\n", state.Book.Title, orDash(state.Book.Author))
		if state.Frame != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Source: %s\n", state.Frame.URL)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), state.Notice)
		}
		return nil
	})
}
