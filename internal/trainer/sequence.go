package trainer

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/danielpatrickdp/pageforge/internal/dataset"
	"github.com/danielpatrickdp/pageforge/internal/features"
	"github.com/danielpatrickdp/pageforge/internal/seqmodel"
	"github.com/danielpatrickdp/pageforge/internal/vocab"
)

// #region config

// SequenceConfig holds the generator's training hyperparameters. Zero
// values fall back to DefaultSequenceConfig.
type SequenceConfig struct {
	Epochs       int
	LearningRate float64
	MinTokenFreq int
	ValFraction  float64
	Patience     int
	EmbedDim     int
	HiddenDim    int
	Seed         int64
}

// DefaultSequenceConfig returns the production hyperparameters.
func DefaultSequenceConfig() SequenceConfig {
	return SequenceConfig{
		Epochs:       200,
		LearningRate: 0.05,
		MinTokenFreq: 2,
		ValFraction:  0.2,
		Patience:     10,
		EmbedDim:     seqmodel.DefaultEmbedDim,
		HiddenDim:    seqmodel.DefaultHiddenDim,
		Seed:         42,
	}
}

// SequenceSample pairs a repair context with the style classes that fixed it.
type SequenceSample struct {
	Context []float32
	Classes string
}

// SequenceReport summarizes a generator training run.
type SequenceReport struct {
	Samples   int
	VocabSize int
	Epochs    int
	TrainLoss float64
	ValLoss   float64
	BestEpoch int
	EarlyStop bool
}

// #endregion

// #region corpus

// SamplesFromRecords extracts generator training pairs from the corpus:
// every approved attempt that applied style overrides becomes one
// (context, class sequence) sample.
func SamplesFromRecords(records []dataset.Record, themes []string) ([]SequenceSample, error) {
	var samples []SequenceSample
	for _, rec := range records {
		if !rec.Approved || len(rec.Overrides) == 0 {
			continue
		}
		ctx, err := features.Context(
			themes, rec.Theme, rec.Features.CharLen, rec.Attempt,
			features.Categorize(rec.Reason),
		)
		if err != nil {
			return nil, fmt.Errorf("build %s attempt %d: %w", rec.BuildID, rec.Attempt, err)
		}
		samples = append(samples, SequenceSample{
			Context: ctx,
			Classes: strings.Join(rec.Overrides, " "),
		})
	}
	return samples, nil
}

// #endregion

// #region train

// TrainSequence builds a vocabulary over the sample corpus and fits the
// sequence model with early stopping on a held-out split. The returned
// model and vocabulary must be deployed together: token ids are only
// meaningful against the vocabulary they were trained with.
func TrainSequence(samples []SequenceSample, cfg SequenceConfig) (*seqmodel.Model, *vocab.Vocabulary, SequenceReport, error) {
	cfg = mergeSequenceDefaults(cfg)
	if len(samples) < minCorpusSize {
		return nil, nil, SequenceReport{}, fmt.Errorf("%w: have %d, need %d", ErrTooFewSamples, len(samples), minCorpusSize)
	}

	sequences := make([]string, len(samples))
	for i, s := range samples {
		sequences[i] = s.Classes
	}
	v := vocab.New()
	v.Build(sequences, cfg.MinTokenFreq)

	contextDim := len(samples[0].Context)
	targets := make([][]int, len(samples))
	for i, s := range samples {
		if len(s.Context) != contextDim {
			return nil, nil, SequenceReport{}, fmt.Errorf("sample %d: context dim %d, want %d", i, len(s.Context), contextDim)
		}
		targets[i] = v.Encode(s.Classes, false)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	perm := rng.Perm(len(samples))
	nVal := int(math.Round(float64(len(samples)) * cfg.ValFraction))
	if nVal == 0 {
		nVal = 1
	}
	valIdx, trainIdx := perm[:nVal], perm[nVal:]

	m := seqmodel.New(v.Size(), contextDim, cfg.EmbedDim, cfg.HiddenDim, rng)

	report := SequenceReport{Samples: len(samples), VocabSize: v.Size()}
	bestVal := math.Inf(1)
	sinceBest := 0
	lr := float32(cfg.LearningRate)

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		rng.Shuffle(len(trainIdx), func(i, j int) { trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i] })

		var trainLoss float64
		for _, i := range trainIdx {
			trainLoss += m.TrainStep(samples[i].Context, targets[i], lr)
		}
		trainLoss /= float64(len(trainIdx))

		var valLoss float64
		for _, i := range valIdx {
			valLoss += m.Loss(samples[i].Context, targets[i])
		}
		valLoss /= float64(len(valIdx))

		report.Epochs = epoch
		report.TrainLoss = trainLoss
		report.ValLoss = valLoss

		if valLoss < bestVal {
			bestVal = valLoss
			report.BestEpoch = epoch
			sinceBest = 0
		} else {
			sinceBest++
			if sinceBest >= cfg.Patience {
				report.EarlyStop = true
				break
			}
		}
	}
	return m, v, report, nil
}

func mergeSequenceDefaults(cfg SequenceConfig) SequenceConfig {
	def := DefaultSequenceConfig()
	if cfg.Epochs == 0 {
		cfg.Epochs = def.Epochs
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.MinTokenFreq == 0 {
		cfg.MinTokenFreq = def.MinTokenFreq
	}
	if cfg.ValFraction == 0 {
		cfg.ValFraction = def.ValFraction
	}
	if cfg.Patience == 0 {
		cfg.Patience = def.Patience
	}
	if cfg.EmbedDim == 0 {
		cfg.EmbedDim = def.EmbedDim
	}
	if cfg.HiddenDim == 0 {
		cfg.HiddenDim = def.HiddenDim
	}
	return cfg
}

// #endregion
