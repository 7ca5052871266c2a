package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/perseis-platform/ebisu/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage registry sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		sources, err := source.NewStore(pool).List(ctx)
		if err != nil {
			return eris.Wrap(err, "sources list")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SHORTNAME\tNAME\tAUTHORITY\tADAPTER")
		for _, s := range sources {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Shortname, s.Name, s.Authority, s.Adapter)
		}
		return w.Flush()
	},
}

var sourcesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Register sources from a YAML seed file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		file, _ := cmd.Flags().GetString("file")

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		created, err := source.NewStore(pool).Seed(ctx, file)
		if err != nil {
			return eris.Wrapf(err, "sources seed %s", file)
		}

		fmt.Printf("Seeded %d new source(s)\n", created)
		return nil
	},
}

func init() {
	sourcesSeedCmd.Flags().String("file", "sources.yaml", "YAML seed file")
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesSeedCmd)
	rootCmd.AddCommand(sourcesCmd)
}
