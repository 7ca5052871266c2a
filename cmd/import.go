package main

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/perseis-platform/ebisu/internal/ingest"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import one registry file for a source",
	Long: `Import one registry file for a source.

The file is fingerprinted (SHA-256) before anything is written; importing a
byte-identical file a second time is a no-op and exits zero. Use
--incremental when the file is a delta rather than a full snapshot, so prior
current data of the source is kept alongside it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Ctrl-C aborts the batch (marked failed, never current) instead of
		// killing the process mid-write.
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "import"))

		shortname, _ := cmd.Flags().GetString("source")
		sourceVersion, _ := cmd.Flags().GetString("source-version")
		incremental, _ := cmd.Flags().GetBool("incremental")
		if shortname == "" {
			return eris.New("import: --source is required")
		}

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := ingest.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "import: migrate")
		}

		p := ingest.NewPipeline(pool, cfg.Ingest)
		res, err := p.Run(ctx, ingest.ImportOptions{
			SourceShortname: shortname,
			FilePath:        args[0],
			SourceVersion:   sourceVersion,
			Incremental:     incremental,
		})
		if err != nil {
			log.Error("import failed", zap.Error(err))
			return eris.Wrapf(err, "import %s", args[0])
		}

		if res.Duplicate {
			fmt.Printf("Already imported (content hash %s), nothing to do\n", res.ContentHash)
			return nil
		}

		fmt.Printf("Batch %d completed (content hash %s)\n", res.BatchID, res.ContentHash)
		fmt.Printf("  rows in file:      %d\n", res.RowsInFile)
		fmt.Printf("  staged rows:       %d\n", res.StagedRows)
		fmt.Printf("  reports written:   %d (skipped %d without name, %d duplicates)\n",
			res.Reports, res.SkippedRows, res.Duplicates)
		fmt.Printf("  records extracted: %d (skipped %d without identifier)\n",
			res.Extracted, res.SkippedNoID)

		if len(res.FlagCounts) > 0 {
			flags := make([]string, 0, len(res.FlagCounts))
			for f := range res.FlagCounts {
				flags = append(flags, f)
			}
			sort.Strings(flags)
			fmt.Println("  flag distribution:")
			for _, f := range flags {
				fmt.Printf("    %s: %d\n", f, res.FlagCounts[f])
			}
		}
		return nil
	},
}

func init() {
	importCmd.Flags().String("source", "", "source shortname (required)")
	importCmd.Flags().String("source-version", "", "version label reported by the registry")
	importCmd.Flags().Bool("incremental", false, "delta file; keep prior current data of the source")
	rootCmd.AddCommand(importCmd)
}
