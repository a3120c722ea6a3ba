package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/pavilion/internal/controller"
)

var historyClear bool

var historyCmd = &cobra.Command{
	Use:       "history <reading|search>",
	Short:     "Show or clear the reading or search history",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"reading", "search"},
	RunE:      runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Clear the history instead of showing it")
}

func runHistory(cmd *cobra.Command, args []string) error {
	kind := args[0]
	return withController(cmd, sessionOrDefault(), func(ctx context.Context, ctrl *controller.Controller) error {
		if historyClear {
			var err error
			if kind == "reading" {
				err = ctrl.ClearReadingHistory(ctx)
			} else {
				err = ctrl.ClearSearchHistory(ctx)
			}
			if err != nil {
				return fmt.Errorf("clear %s history: %w", kind, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s history.\n", kind)
			return nil
		}

		if kind == "reading" {
			return showReadingHistory(ctx, cmd, ctrl)
		}
		return showSearchHistory(ctx, cmd, ctrl)
	})
}

func showReadingHistory(ctx context.Context, cmd *cobra.Command, ctrl *controller.Controller) error {
	books, err := ctrl.ReadingHistory(ctx)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), books)
	}
	if len(books) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No reading history.")
		return nil
	}
	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR")
	for _, b := range books {
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.ID, b.Title, orDash(b.Author))
	}
	return w.Flush()
}

func showSearchHistory(ctx context.Context, cmd *cobra.Command, ctrl *controller.Controller) error {
	terms, err := ctrl.SearchHistory(ctx)
	if err != nil {
		return fmt.Errorf("search history: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), terms)
	}
	if len(terms) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No search history.")
		return nil
	}
	for _, term := range terms {
		fmt.Fprintln(cmd.OutOrStdout(), term)
	}
	return nil
}
