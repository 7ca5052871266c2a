package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/perseis-platform/ebisu/internal/ingest"
)

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "Inspect import batches",
}

var batchesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List import batches, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		shortname, _ := cmd.Flags().GetString("source")

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		batches, err := ingest.NewLedger(pool).List(ctx, shortname)
		if err != nil {
			return eris.Wrap(err, "batches list")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSOURCE\tSTATUS\tCURRENT\tRECORDS\tDATE\tFILE")
		for _, b := range batches {
			current := ""
			if b.IsCurrent {
				current = "yes"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
				b.ID, b.SourceShort, b.Status, current, b.RawRecordCount,
				b.ImportDate.Format("2006-01-02"), b.FilePath)
		}
		return w.Flush()
	},
}

func init() {
	batchesListCmd.Flags().String("source", "", "restrict to one source shortname")
	batchesCmd.AddCommand(batchesListCmd)
	rootCmd.AddCommand(batchesCmd)
}
