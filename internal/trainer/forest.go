// Package trainer fits the strategy classifier and the style sequence
// generator from the accumulated attempt corpus, gating deployment on
// held-out quality.
package trainer

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/danielpatrickdp/pageforge/internal/dataset"
	"github.com/danielpatrickdp/pageforge/internal/features"
	"github.com/danielpatrickdp/pageforge/internal/predictor"
	"github.com/danielpatrickdp/pageforge/internal/strategy"
)

// #region config

// ErrQualityGate reports a trained model whose held-out metrics fall below
// the deployment floor. The caller must leave any deployed artifact alone.
var ErrQualityGate = errors.New("model failed quality gate")

// ErrTooFewSamples reports a corpus too small to split and evaluate.
var ErrTooFewSamples = errors.New("not enough training samples")

// ForestConfig holds the classifier's training hyperparameters. Zero values
// fall back to the defaults in DefaultForestConfig.
type ForestConfig struct {
	NumTrees        int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	TestFraction    float64
	Seed            int64

	// Deployment floor, checked independently on the held-out split.
	MinF1        float64
	MinPrecision float64
	MinRecall    float64
}

// DefaultForestConfig returns the production hyperparameters.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NumTrees:        100,
		MaxDepth:        10,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  2,
		TestFraction:    0.2,
		Seed:            42,
		MinF1:           0.6,
		MinPrecision:    0.5,
		MinRecall:       0.5,
	}
}

const minCorpusSize = 10

// #endregion

// #region train

// TrainForest fits a random forest on the labeled corpus. On success it
// returns the forest together with a metadata sidecar carrying the held-out
// metrics; the checksum field is filled in when the artifact is saved. A
// model below the quality floor is returned alongside ErrQualityGate so the
// caller can report its metrics without deploying it.
func TrainForest(records []dataset.Record, cfg ForestConfig) (*predictor.Forest, predictor.Metadata, error) {
	cfg = mergeForestDefaults(cfg)
	if len(records) < minCorpusSize {
		return nil, predictor.Metadata{}, fmt.Errorf("%w: have %d, need %d", ErrTooFewSamples, len(records), minCorpusSize)
	}

	x := make([][]float64, len(records))
	labels := make([]int, len(records))
	for i, rec := range records {
		x[i], labels[i] = rec.Row()
	}

	classes := uniqueSorted(labels)
	classIndex := make(map[int]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = classIndex[l]
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	trainIdx, testIdx := stratifiedSplit(y, len(classes), cfg.TestFraction, rng)
	if len(testIdx) == 0 {
		return nil, predictor.Metadata{}, fmt.Errorf("%w: empty test split", ErrTooFewSamples)
	}

	nFeatures := len(x[0])
	importances := make([]float64, nFeatures)
	forest := &predictor.Forest{
		NumFeatures: nFeatures,
		Classes:     classes,
		Trees:       make([]predictor.Tree, cfg.NumTrees),
	}
	for t := 0; t < cfg.NumTrees; t++ {
		sample := bootstrap(trainIdx, rng)
		b := &treeBuilder{
			x:           x,
			y:           y,
			nClasses:    len(classes),
			cfg:         cfg,
			rng:         rng,
			maxFeatures: int(math.Ceil(math.Sqrt(float64(nFeatures)))),
			importances: importances,
		}
		b.build(sample, 0)
		forest.Trees[t] = predictor.Tree{Nodes: b.nodes}
	}

	m := evaluate(forest, x, y, testIdx, len(classes))
	meta := predictor.Metadata{
		SchemaVersion: dataset.SchemaVersion,
		FeatureNames:  features.Names,
		Labels:        labelMap(classes),
		TrainedAt:     time.Now().UTC(),
		TrainSamples:  len(trainIdx),
		TestSamples:   len(testIdx),
		Precision:     m.precision,
		Recall:        m.recall,
		F1:            m.f1,
		Accuracy:      m.accuracy,
		Importances:   rankImportances(importances),
	}

	if m.f1 < cfg.MinF1 || m.precision < cfg.MinPrecision || m.recall < cfg.MinRecall {
		return forest, meta, fmt.Errorf(
			"%w: f1=%.3f precision=%.3f recall=%.3f (floor %.2f/%.2f/%.2f)",
			ErrQualityGate, m.f1, m.precision, m.recall,
			cfg.MinF1, cfg.MinPrecision, cfg.MinRecall,
		)
	}
	return forest, meta, nil
}

func mergeForestDefaults(cfg ForestConfig) ForestConfig {
	def := DefaultForestConfig()
	if cfg.NumTrees == 0 {
		cfg.NumTrees = def.NumTrees
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.MinSamplesSplit == 0 {
		cfg.MinSamplesSplit = def.MinSamplesSplit
	}
	if cfg.MinSamplesLeaf == 0 {
		cfg.MinSamplesLeaf = def.MinSamplesLeaf
	}
	if cfg.TestFraction == 0 {
		cfg.TestFraction = def.TestFraction
	}
	if cfg.MinF1 == 0 {
		cfg.MinF1 = def.MinF1
	}
	if cfg.MinPrecision == 0 {
		cfg.MinPrecision = def.MinPrecision
	}
	if cfg.MinRecall == 0 {
		cfg.MinRecall = def.MinRecall
	}
	return cfg
}

// #endregion

// #region splitting

func uniqueSorted(labels []int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Ints(out)
	return out
}

// stratifiedSplit holds out testFraction of each class so rare strategies
// appear on both sides of the split.
func stratifiedSplit(y []int, nClasses int, testFraction float64, rng *rand.Rand) (train, test []int) {
	byClass := make([][]int, nClasses)
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}
	for _, idx := range byClass {
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(float64(len(idx)) * testFraction))
		if nTest == 0 && len(idx) > 1 {
			nTest = 1
		}
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}
	return train, test
}

func bootstrap(idx []int, rng *rand.Rand) []int {
	out := make([]int, len(idx))
	for i := range out {
		out[i] = idx[rng.Intn(len(idx))]
	}
	return out
}

func labelMap(classes []int) map[string]int {
	m := make(map[string]int, len(classes))
	for _, c := range classes {
		m[strategy.Strategy(c).String()] = c
	}
	return m
}

func rankImportances(raw []float64) []predictor.FeatureImportance {
	var total float64
	for _, v := range raw {
		total += v
	}
	out := make([]predictor.FeatureImportance, len(raw))
	for i, v := range raw {
		if total > 0 {
			v /= total
		}
		out[i] = predictor.FeatureImportance{Feature: features.Names[i], Importance: v}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out
}

// #endregion

// #region tree-builder

type treeBuilder struct {
	x           [][]float64
	y           []int
	nClasses    int
	cfg         ForestConfig
	rng         *rand.Rand
	maxFeatures int
	nodes       []predictor.Node
	importances []float64
}

// build grows one subtree and returns the index of its root node.
func (b *treeBuilder) build(idx []int, depth int) int {
	counts := b.classCounts(idx)
	if depth >= b.cfg.MaxDepth || len(idx) < b.cfg.MinSamplesSplit || pure(counts) {
		return b.leaf(counts, len(idx))
	}

	feature, threshold, gain, ok := b.bestSplit(idx, counts)
	if !ok {
		return b.leaf(counts, len(idx))
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < b.cfg.MinSamplesLeaf || len(right) < b.cfg.MinSamplesLeaf {
		return b.leaf(counts, len(idx))
	}

	b.importances[feature] += gain * float64(len(idx))

	node := len(b.nodes)
	b.nodes = append(b.nodes, predictor.Node{Feature: feature, Threshold: threshold})
	b.nodes[node].Left = b.build(left, depth+1)
	b.nodes[node].Right = b.build(right, depth+1)
	return node
}

func (b *treeBuilder) leaf(counts []int, n int) int {
	probs := make([]float64, b.nClasses)
	if n > 0 {
		for c, cnt := range counts {
			probs[c] = float64(cnt) / float64(n)
		}
	}
	b.nodes = append(b.nodes, predictor.Node{Leaf: true, Probs: probs})
	return len(b.nodes) - 1
}

func (b *treeBuilder) classCounts(idx []int) []int {
	counts := make([]int, b.nClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	return counts
}

func pure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		g -= p * p
	}
	return g
}

// bestSplit scans a random feature subset for the threshold with the
// largest gini decrease.
func (b *treeBuilder) bestSplit(idx []int, counts []int) (feature int, threshold, gain float64, ok bool) {
	parent := gini(counts, len(idx))
	nFeatures := len(b.x[0])
	candidates := b.rng.Perm(nFeatures)[:b.maxFeatures]

	sorted := make([]int, len(idx))
	copy(sorted, idx)

	for _, f := range candidates {
		sort.Slice(sorted, func(i, j int) bool { return b.x[sorted[i]][f] < b.x[sorted[j]][f] })

		leftCounts := make([]int, b.nClasses)
		rightCounts := make([]int, b.nClasses)
		for _, i := range sorted {
			rightCounts[b.y[i]]++
		}

		for pos := 0; pos < len(sorted)-1; pos++ {
			c := b.y[sorted[pos]]
			leftCounts[c]++
			rightCounts[c]--

			v, next := b.x[sorted[pos]][f], b.x[sorted[pos+1]][f]
			if v == next {
				continue
			}
			nLeft, nRight := pos+1, len(sorted)-pos-1
			if nLeft < b.cfg.MinSamplesLeaf || nRight < b.cfg.MinSamplesLeaf {
				continue
			}

			weighted := (float64(nLeft)*gini(leftCounts, nLeft) +
				float64(nRight)*gini(rightCounts, nRight)) / float64(len(sorted))
			if g := parent - weighted; g > gain {
				feature, threshold, gain, ok = f, (v+next)/2, g, true
			}
		}
	}
	return feature, threshold, gain, ok
}

// #endregion
