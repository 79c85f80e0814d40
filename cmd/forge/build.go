package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/pageforge/internal/controller"
	"github.com/danielpatrickdp/pageforge/internal/dataset"
	"github.com/danielpatrickdp/pageforge/internal/logging"
)

func newBuildCmd() *cobra.Command {
	var (
		topic       string
		theme       string
		outPath     string
		contentFile string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build one page and repair it until it passes audit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New("build")
			if outPath == "" {
				outPath = filepath.Join(cfg.Paths.OutputDir, slugify(topic)+".html")
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
			ctrl, err := newController(themes, store, log)
			if err != nil {
				return err
			}

			c, err := fetchContent(cmd.Context(), topic, contentFile, log)
			if err != nil {
				return err
			}

			out, err := ctrl.Run(cmd.Context(), c, theme, outPath)
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}

			fmt.Printf("%s  %s  attempts=%d\n", out.Status, out.FinalPath, out.AttemptsUsed)
			if out.Status != controller.StatusSuccess {
				return fmt.Errorf("build %s: %s", out.Status, out.Report.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "page topic to generate content for")
	cmd.Flags().StringVar(&theme, "theme", "brutalist", "visual theme")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output HTML path")
	cmd.Flags().StringVar(&contentFile, "content", "", "content JSON file (skips the content service)")
	cmd.MarkFlagsOneRequired("topic", "content")
	return cmd
}

func slugify(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+'a'-'A')
		case r == ' ', r == '-', r == '_':
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "page"
	}
	return string(out)
}
