package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/pageforge/internal/dataset"
	"github.com/danielpatrickdp/pageforge/internal/strategy"
)

func newDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Inspect and exchange the training corpus",
	}
	cmd.AddCommand(newDatasetStatsCmd(), newDatasetExportCmd(), newDatasetImportCmd())
	return cmd
}

func openDataset() (*dataset.Store, error) {
	return dataset.Open(cfg.Paths.DatasetDB)
}

func newDatasetStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the corpus by resolving strategy",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := openDataset()
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := store.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("records: %d  builds: %d  approved attempts: %d\n",
				st.Records, st.Builds, st.Approved)

			keys := make([]int, 0, len(st.ByStrategy))
			for s := range st.ByStrategy {
				keys = append(keys, int(s))
			}
			sort.Ints(keys)
			for _, k := range keys {
				s := strategy.Strategy(k)
				fmt.Printf("  %-16s %d\n", s.String(), st.ByStrategy[s])
			}
			return nil
		},
	}
}

func newDatasetExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the corpus as CSV",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := openDataset()
			if err != nil {
				return err
			}
			defer store.Close()

			w := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create export: %w", err)
				}
				defer f.Close()
				w = f
			}
			return store.Export(w)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newDatasetImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a CSV corpus, accepting current and legacy schemas",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := openDataset()
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import: %w", err)
			}
			defer f.Close()

			n, err := store.Import(f)
			if err != nil {
				return err
			}
			fmt.Printf("imported %d records\n", n)
			return nil
		},
	}
}
