package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/pageforge/internal/features"
	"github.com/danielpatrickdp/pageforge/internal/logging"
	"github.com/danielpatrickdp/pageforge/internal/page"
	"github.com/danielpatrickdp/pageforge/internal/strategy"
)

func newPredictCmd() *cobra.Command {
	var (
		contentFile string
		theme       string
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Ask the classifier which repair strategy a content file will need",
		RunE: func(_ *cobra.Command, _ []string) error {
			p := newPredictor(logging.New("predictor"))
			if !p.Available() {
				return fmt.Errorf("no trained classifier deployed; run `forge train` first")
			}

			c, err := page.LoadContent(contentFile)
			if err != nil {
				return err
			}
			themes, err := loadThemes()
			if err != nil {
				return err
			}
			themeID, err := themes.ID(theme)
			if err != nil {
				return err
			}

			feat := features.Extract(c, page.NewOverrideSet(), themeID, strategy.None)
			pred, err := p.Predict(feat.Vector())
			if err != nil {
				return err
			}

			dist := make(map[string]float64, len(pred.Distribution))
			for s, prob := range pred.Distribution {
				dist[s.String()] = prob
			}
			out := map[string]any{
				"risk":         pred.Risk,
				"strategy":     pred.Strategy.String(),
				"confidence":   pred.Confidence,
				"distribution": dist,
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&contentFile, "content", "", "content JSON file")
	cmd.Flags().StringVar(&theme, "theme", "brutalist", "visual theme")
	cmd.MarkFlagRequired("content")
	return cmd
}
