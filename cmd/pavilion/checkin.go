package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/pavilion/internal/controller"
	"github.com/hyperengineering/pavilion/internal/types"
)

var checkinStatusOnly bool

var checkinCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Record today's check-in",
	Args:  cobra.NoArgs,
	RunE:  runCheckin,
}

func init() {
	checkinCmd.Flags().BoolVar(&checkinStatusOnly, "status", false, "Show the streak without checking in")
}

func runCheckin(cmd *cobra.Command, args []string) error {
	return withController(cmd, sessionOrDefault(), func(ctx context.Context, ctrl *controller.Controller) error {
		var (
			before, status types.CheckInStatus
			err            error
		)
		before, err = ctrl.CheckInStatus(ctx)
		if err != nil {
			return fmt.Errorf("check-in status: %w", err)
		}
		status = before
		if !checkinStatusOnly {
			if status, err = ctrl.CheckIn(ctx); err != nil {
				return fmt.Errorf("check in: %w", err)
			}
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), status)
		}
		switch {
		case checkinStatusOnly && !status.CheckedIn:
			fmt.Fprintf(cmd.OutOrStdout(), "Not checked in today. Streak: %d\n", status.Streak)
		case checkinStatusOnly || before.CheckedIn:
			fmt.Fprintf(cmd.OutOrStdout(), "Already checked in today. Streak: %d\n", status.Streak)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "Checked in for %s. Streak: %d\n", status.LastDate, status.Streak)
		}
		return nil
	})
}
