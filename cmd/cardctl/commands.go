package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tradingcards/internal/dataset"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		file      string
		seedStock int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a card JSON dump",
		Long: `Import upserts every card in the dump together with its types, keywords,
printings and artists. With --seed-stock N each printing that has no stock
row yet gets N copies in the storefront.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if seedStock < 0 {
				return fmt.Errorf("--seed-stock must not be negative")
			}
			ctx := cmd.Context()
			logger := opts.logger()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open dump: %w", err)
			}
			defer f.Close()

			cards, err := dataset.Decode(f)
			if err != nil {
				return err
			}

			db, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := dataset.Import(ctx, db, cards, dataset.ImportOptions{
				SeedStock: seedStock,
				Logger:    logger,
			})
			if err != nil {
				return err
			}

			logger.Info("import done",
				"file", file,
				"cards", res.Cards,
				"printings", res.Printings,
				"seeded", res.Seeded,
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "card.json", "card JSON dump to import")
	cmd.Flags().IntVar(&seedStock, "seed-stock", 0, "initial storefront stock per printing")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export printings and stock as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
					return err
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			n, err := dataset.ExportCSV(ctx, db, w)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if out != "" && out != "-" {
				opts.logger().Info("export done", "out", out, "rows", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "-", "output CSV path, - for stdout")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON bool
		top    int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print catalog totals and counts by type and set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			s, err := dataset.Summarize(ctx, db)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "cards\t%d\n", s.Cards)
			fmt.Fprintf(tw, "printings\t%d\n", s.Printings)
			fmt.Fprintf(tw, "in stock\t%d\n", s.InStock)
			if err := tw.Flush(); err != nil {
				return err
			}

			if err := printCounts(out, "TYPE", "CARDS", headCounts(s.ByType, top)); err != nil {
				return err
			}
			return printCounts(out, "SET", "PRINTINGS", headCounts(s.BySet, top))
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	cmd.Flags().IntVar(&top, "top", 20, "rows per breakdown, 0 for all")
	return cmd
}

// printCounts writes one breakdown as its own table, under a colored title
// that stays outside the tabwriter so escape codes do not skew the columns.
func printCounts(w io.Writer, key, unit string, counts []dataset.Count) error {
	fmt.Fprintln(w)
	heading.Fprintf(w, "%s / %s\n", key, unit)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Key, c.Count)
	}
	return tw.Flush()
}

func headCounts(in []dataset.Count, n int) []dataset.Count {
	if n <= 0 || n >= len(in) {
		return in
	}
	return in[:n]
}
