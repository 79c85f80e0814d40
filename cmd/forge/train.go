package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/pageforge/internal/dataset"
	"github.com/danielpatrickdp/pageforge/internal/logging"
	"github.com/danielpatrickdp/pageforge/internal/predictor"
	"github.com/danielpatrickdp/pageforge/internal/trainer"
)

func newTrainCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the strategy classifier from the attempt corpus",
		Long: "train fits a random forest on every recorded build attempt and deploys the " +
			"artifact only if held-out precision, recall, and F1 clear the configured floor.",
		RunE: func(_ *cobra.Command, _ []string) error {
			log := logging.New("train")

			store, err := dataset.Open(cfg.Paths.DatasetDB)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.All()
			if err != nil {
				return err
			}
			log.Info("training classifier", "records", len(records))

			tcfg := trainer.DefaultForestConfig()
			tcfg.MinF1 = cfg.Train.MinF1
			tcfg.MinPrecision = cfg.Train.MinPrecision
			tcfg.MinRecall = cfg.Train.MinRecall

			forest, meta, err := trainer.TrainForest(records, tcfg)
			if err != nil {
				if errors.Is(err, trainer.ErrQualityGate) && !force {
					fmt.Printf("model rejected: f1=%.3f precision=%.3f recall=%.3f\n",
						meta.F1, meta.Precision, meta.Recall)
					return err
				}
				if !errors.Is(err, trainer.ErrQualityGate) {
					return err
				}
				log.Warn("deploying below-floor model", "f1", meta.F1)
			}

			if err := os.MkdirAll(cfg.Paths.ModelDir, 0o755); err != nil {
				return fmt.Errorf("create model dir: %w", err)
			}
			modelPath, metaPath := predictorPaths()
			if err := predictor.SaveArtifact(forest, meta, modelPath, metaPath); err != nil {
				return err
			}

			fmt.Printf("deployed %s\n", modelPath)
			fmt.Printf("  f1=%.3f precision=%.3f recall=%.3f accuracy=%.3f (train=%d test=%d)\n",
				meta.F1, meta.Precision, meta.Recall, meta.Accuracy,
				meta.TrainSamples, meta.TestSamples)
			for i, imp := range meta.Importances {
				if i >= 3 {
					break
				}
				fmt.Printf("  %-22s %.3f\n", imp.Feature, imp.Importance)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "deploy even if the quality gate fails")
	return cmd
}

func newTrainGeneratorCmd() *cobra.Command {
	var epochs int

	cmd := &cobra.Command{
		Use:   "train-generator",
		Short: "Train the style sequence generator from approved repairs",
		RunE: func(_ *cobra.Command, _ []string) error {
			log := logging.New("train")

			store, err := dataset.Open(cfg.Paths.DatasetDB)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.All()
			if err != nil {
				return err
			}
			themes, err := loadThemes()
			if err != nil {
				return err
			}
			samples, err := trainer.SamplesFromRecords(records, themes.Names())
			if err != nil {
				return err
			}
			log.Info("training generator", "samples", len(samples))

			tcfg := trainer.DefaultSequenceConfig()
			if epochs > 0 {
				tcfg.Epochs = epochs
			}
			model, v, report, err := trainer.TrainSequence(samples, tcfg)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.Paths.ModelDir, 0o755); err != nil {
				return fmt.Errorf("create model dir: %w", err)
			}
			modelPath, vocabPath := generatorPaths()
			if err := model.Save(modelPath); err != nil {
				return err
			}
			if err := v.Save(vocabPath); err != nil {
				// Half a pair is worse than none: a stale vocabulary would
				// decode the new model's tokens wrong.
				os.Remove(modelPath)
				return err
			}

			fmt.Printf("deployed %s (+%s)\n", modelPath, filepath.Base(vocabPath))
			fmt.Printf("  samples=%d vocab=%d epochs=%d train_loss=%.4f val_loss=%.4f\n",
				report.Samples, report.VocabSize, report.Epochs, report.TrainLoss, report.ValLoss)
			return nil
		},
	}

	cmd.Flags().IntVar(&epochs, "epochs", 0, "override training epochs")
	return cmd
}
