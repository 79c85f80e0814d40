package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/pageforge/internal/config"
	"github.com/danielpatrickdp/pageforge/internal/logging"
)

var (
	cfgPath string
	cfg     config.Config
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "forge",
		Short:         "Self-healing static page generator",
		Long:          "forge renders static pages, audits them in a headless browser, and repairs layout defects in a closed loop.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
				cfg.Log.Level = lvl
			}
			logging.Init(os.Stderr, cfg.Log.Format, cfg.Log.Level)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (YAML)")
	root.PersistentFlags().String("log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newBuildCmd(),
		newBatchCmd(),
		newTrainCmd(),
		newTrainGeneratorCmd(),
		newDatasetCmd(),
		newPredictCmd(),
		newVocabCmd(),
	)
	return root
}

// Model artifact locations under the configured model directory.
func predictorPaths() (model, meta string) {
	return filepath.Join(cfg.Paths.ModelDir, "strategy_predictor.json"),
		filepath.Join(cfg.Paths.ModelDir, "strategy_predictor_metadata.json")
}

func generatorPaths() (model, vocabPath string) {
	return filepath.Join(cfg.Paths.ModelDir, "style_generator.bin"),
		filepath.Join(cfg.Paths.ModelDir, "style_vocab.json")
}
