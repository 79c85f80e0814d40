package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/pageforge/internal/batch"
	"github.com/danielpatrickdp/pageforge/internal/controller"
	"github.com/danielpatrickdp/pageforge/internal/dataset"
	"github.com/danielpatrickdp/pageforge/internal/logging"
)

// batchManifest is the YAML shape of a batch file: a list of pages.
type batchManifest struct {
	Pages []struct {
		Topic string `yaml:"topic"`
		Theme string `yaml:"theme"`
		Out   string `yaml:"out"`
	} `yaml:"pages"`
}

func newBatchCmd() *cobra.Command {
	var (
		manifestPath string
		workers      int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Build every page in a manifest over a worker pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New("batch")

			data, err := os.ReadFile(manifestPath)
			if err != nil {
				return fmt.Errorf("read manifest: %w", err)
			}
			var manifest batchManifest
			if err := yaml.Unmarshal(data, &manifest); err != nil {
				return fmt.Errorf("parse manifest %s: %w", manifestPath, err)
			}
			if len(manifest.Pages) == 0 {
				return fmt.Errorf("manifest %s lists no pages", manifestPath)
			}

			jobs := make([]batch.Job, len(manifest.Pages))
			for i, p := range manifest.Pages {
				theme := p.Theme
				if theme == "" {
					theme = "brutalist"
				}
				out := p.Out
				if out == "" {
					out = filepath.Join(cfg.Paths.OutputDir, slugify(p.Topic)+".html")
				}
				jobs[i] = batch.Job{Topic: p.Topic, Theme: theme, OutPath: out}
			}

			store, err := dataset.Open(cfg.Paths.DatasetDB)
			if err != nil {
				return err
			}
			defer store.Close()

			themes, err := loadThemes()
			if err != nil {
				return err
			}

			if workers == 0 {
				workers = cfg.Build.Workers
			}

			// One controller for the whole batch: the predictor and
			// generator artifacts are loaded once and shared read-only
			// across the workers.
			ctrl, err := newController(themes, store, log)
			if err != nil {
				return err
			}

			results := batch.Run(cmd.Context(), jobs, workers, func(ctx context.Context, job batch.Job) (controller.Outcome, error) {
				c, err := fetchContent(ctx, job.Topic, "", log)
				if err != nil {
					return controller.Outcome{Status: controller.StatusFailed}, err
				}
				return ctrl.Run(ctx, c, job.Theme, job.OutPath)
			})

			for _, r := range results {
				status := string(r.Outcome.Status)
				if r.Err != nil {
					status = fmt.Sprintf("%s (%v)", controller.StatusFailed, r.Err)
				}
				fmt.Printf("%-10s %s\n", status, r.Job.OutPath)
			}
			s := batch.Summarize(results)
			fmt.Printf("built %d, rejected %d, failed %d\n", s.Succeeded, s.Rejected, s.Failed)
			if s.Failed > 0 || s.Rejected > 0 {
				return fmt.Errorf("%d of %d pages did not pass audit", s.Failed+s.Rejected, len(jobs))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "batch manifest (YAML)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel builds (default from config)")
	cmd.MarkFlagRequired("manifest")
	return cmd
}
