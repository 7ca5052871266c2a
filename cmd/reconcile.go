package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/perseis-platform/ebisu/internal/reconcile"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Maintain cross-source vessel confirmation state",
}

var reconcileRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recluster every current record from scratch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		res, err := reconcile.New(pool).Rebuild(ctx)
		if err != nil {
			return eris.Wrap(err, "reconcile rebuild")
		}

		fmt.Printf("Rebuilt %d group(s) from %d record(s): %d confirmed, %d unresolved\n",
			res.Groups, res.Records, res.Confirmed, res.Unresolved)
		return nil
	},
}

var reconcileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Re-run the incremental update for one batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		batchID, _ := cmd.Flags().GetInt64("batch")
		if batchID <= 0 {
			return eris.New("reconcile update: --batch is required")
		}

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := reconcile.New(pool).UpdateBatch(ctx, batchID); err != nil {
			return eris.Wrapf(err, "reconcile update batch %d", batchID)
		}

		fmt.Printf("Reconciled batch %d\n", batchID)
		return nil
	},
}

func init() {
	reconcileUpdateCmd.Flags().Int64("batch", 0, "batch id to fold in (required)")
	reconcileCmd.AddCommand(reconcileRebuildCmd)
	reconcileCmd.AddCommand(reconcileUpdateCmd)
	rootCmd.AddCommand(reconcileCmd)
}
