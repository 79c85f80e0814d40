package trainer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/danielpatrickdp/pageforge/internal/dataset"
	"github.com/danielpatrickdp/pageforge/internal/features"
	"github.com/danielpatrickdp/pageforge/internal/strategy"
)

// separableCorpus builds a corpus where short content resolves with no
// repair and long content resolves by shrinking the font. A working CART
// split on char length separates it perfectly.
func separableCorpus(n int) []dataset.Record {
	var records []dataset.Record
	for i := 0; i < n; i++ {
		short := i%2 == 0
		rec := dataset.Record{
			BuildID: fmt.Sprintf("b%d", i),
			Attempt: 1,
			Theme:   "brutalist",
			Features: features.BuildFeatures{
				CharLen:   120 + i,
				WordCount: 20,
			},
			ResolvedStrategy: strategy.None,
		}
		if !short {
			rec.Features.CharLen = 900 + i
			rec.Features.WordCount = 150
			rec.Features.PathologicalScore = 0.6
			rec.ResolvedStrategy = strategy.FontShrink
		}
		records = append(records, rec)
	}
	return records
}

func TestTrainForestLearnsSeparableCorpus(t *testing.T) {
	cfg := DefaultForestConfig()
	cfg.NumTrees = 20

	forest, meta, err := TrainForest(separableCorpus(60), cfg)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if meta.F1 < cfg.MinF1 {
		t.Fatalf("f1 = %v, want >= %v", meta.F1, cfg.MinF1)
	}
	if meta.TrainSamples+meta.TestSamples != 60 {
		t.Fatalf("split %d/%d does not cover the corpus", meta.TrainSamples, meta.TestSamples)
	}

	x := make([]float64, len(features.Names))
	x[0] = 950
	x[1] = 150
	probs, err := forest.Proba(x)
	if err != nil {
		t.Fatal(err)
	}
	best := forest.Classes[argmax(probs)]
	if strategy.Strategy(best) != strategy.FontShrink {
		t.Fatalf("predicted class %d for long content, want FONT_SHRINK", best)
	}
}

func TestTrainForestIsDeterministicForFixedSeed(t *testing.T) {
	cfg := DefaultForestConfig()
	cfg.NumTrees = 10

	_, meta1, err := TrainForest(separableCorpus(40), cfg)
	if err != nil {
		t.Fatal(err)
	}
	_, meta2, err := TrainForest(separableCorpus(40), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if meta1.F1 != meta2.F1 || meta1.Accuracy != meta2.Accuracy {
		t.Fatalf("same seed gave different metrics: %v vs %v", meta1, meta2)
	}
}

func TestTrainForestRejectsTinyCorpus(t *testing.T) {
	_, _, err := TrainForest(separableCorpus(4), DefaultForestConfig())
	if !errors.Is(err, ErrTooFewSamples) {
		t.Fatalf("err = %v, want ErrTooFewSamples", err)
	}
}

func TestTrainForestQualityGate(t *testing.T) {
	// Labels decoupled from every feature: nothing to learn, so held-out
	// metrics cannot clear a floor of 1.0.
	records := separableCorpus(40)
	for i := range records {
		if i%3 == 0 {
			records[i].ResolvedStrategy = strategy.CSSTruncate
		}
		records[i].Features = features.BuildFeatures{CharLen: 100}
	}

	cfg := DefaultForestConfig()
	cfg.NumTrees = 10
	cfg.MinF1 = 1.0
	cfg.MinPrecision = 1.0
	cfg.MinRecall = 1.0

	forest, meta, err := TrainForest(records, cfg)
	if !errors.Is(err, ErrQualityGate) {
		t.Fatalf("err = %v, want ErrQualityGate", err)
	}
	if forest == nil {
		t.Fatal("gated model should still be returned for inspection")
	}
	if meta.TestSamples == 0 {
		t.Fatal("metadata should carry the evaluation split")
	}
}

func TestImportancesAreNormalized(t *testing.T) {
	cfg := DefaultForestConfig()
	cfg.NumTrees = 10

	_, meta, err := TrainForest(separableCorpus(60), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(meta.Importances) != len(features.Names) {
		t.Fatalf("importances = %d entries, want %d", len(meta.Importances), len(features.Names))
	}
	var sum float64
	for _, imp := range meta.Importances {
		sum += imp.Importance
	}
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("importances sum to %v", sum)
	}
	for i := 1; i < len(meta.Importances); i++ {
		if meta.Importances[i].Importance > meta.Importances[i-1].Importance {
			t.Fatal("importances must be ranked descending")
		}
	}
}
