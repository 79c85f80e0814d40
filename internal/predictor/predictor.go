package predictor

// #region imports
import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/danielpatrickdp/pageforge/internal/strategy"
)

// #endregion

// #region errors

// ErrModelLoad reports a missing, corrupt, or checksum-failed classifier
// artifact. Load failures degrade the predictor to "no opinion"; they are
// never fatal to a build.
var ErrModelLoad = errors.New("predictor artifact unusable")

// #endregion

// #region metadata

// FeatureImportance is one entry of the explainability ranking persisted by
// the trainer.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Metadata is the JSON sidecar written next to the model artifact. The
// checksum binds the sidecar to one exact model file; a mismatch means the
// pair is not what the trainer produced and loading fails closed.
type Metadata struct {
	SchemaVersion int                 `json:"schema_version"`
	FeatureNames  []string            `json:"feature_names"`
	Labels        map[string]int      `json:"labels"`
	TrainedAt     time.Time           `json:"trained_at"`
	TrainSamples  int                 `json:"train_samples"`
	TestSamples   int                 `json:"test_samples"`
	Precision     float64             `json:"precision"`
	Recall        float64             `json:"recall"`
	F1            float64             `json:"f1_score"`
	Accuracy      float64             `json:"accuracy"`
	Importances   []FeatureImportance `json:"feature_importances"`
	ModelSHA256   string              `json:"model_sha256"`
}

// #endregion

// #region prediction

// Prediction is the predictor's full answer for one feature vector.
type Prediction struct {
	// Risk is the probability that the build needs any repair at all.
	Risk float64
	// Strategy is the most likely resolving strategy.
	Strategy strategy.Strategy
	// Confidence is the probability mass on Strategy.
	Confidence float64
	// Distribution maps every label to its probability; sums to 1.
	Distribution map[strategy.Strategy]float64
}

// #endregion

// #region predictor

type loadedModel struct {
	forest *Forest
	meta   Metadata
}

// Predictor answers strategy recommendations before the first render. It is
// safe for concurrent use: the loaded model sits behind an atomic pointer,
// and Reload swaps it wholesale so in-flight predictions never observe a
// half-loaded model.
type Predictor struct {
	model atomic.Pointer[loadedModel]
	log   *slog.Logger
}

// New returns an empty predictor. Until a model is loaded, Predict answers
// with no opinion (NONE at zero confidence).
func New(log *slog.Logger) *Predictor {
	if log == nil {
		log = slog.Default()
	}
	return &Predictor{log: log}
}

// Available reports whether a trained model is loaded.
func (p *Predictor) Available() bool {
	return p.model.Load() != nil
}

// Meta returns the loaded model's metadata sidecar, if any.
func (p *Predictor) Meta() (Metadata, bool) {
	m := p.model.Load()
	if m == nil {
		return Metadata{}, false
	}
	return m.meta, true
}

// #endregion

// #region load

// Load reads the model + sidecar pair, verifies the sidecar's checksum over
// the model bytes, and installs the pair atomically. On any failure the
// previously loaded model (if any) stays installed.
func (p *Predictor) Load(modelPath, metaPath string) error {
	modelBytes, err := os.ReadFile(modelPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	var meta Metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return fmt.Errorf("%w: metadata parse: %v", ErrModelLoad, err)
	}

	sum := sha256.Sum256(modelBytes)
	if got := hex.EncodeToString(sum[:]); got != meta.ModelSHA256 {
		return fmt.Errorf("%w: model checksum %s does not match sidecar %s",
			ErrModelLoad, got[:12], truncate(meta.ModelSHA256, 12))
	}

	var forest Forest
	if err := json.Unmarshal(modelBytes, &forest); err != nil {
		return fmt.Errorf("%w: model parse: %v", ErrModelLoad, err)
	}
	if forest.NumFeatures == 0 || len(forest.Trees) == 0 || len(forest.Classes) == 0 {
		return fmt.Errorf("%w: empty forest", ErrModelLoad)
	}

	p.model.Store(&loadedModel{forest: &forest, meta: meta})
	p.log.Info("strategy predictor loaded",
		"trees", len(forest.Trees), "f1", meta.F1, "trained_at", meta.TrainedAt)
	return nil
}

// TryLoad attempts Load and downgrades failure to a warning, leaving the
// predictor in heuristic-only mode. Missing models are expected on fresh
// installs and logged at debug level instead.
func (p *Predictor) TryLoad(modelPath, metaPath string) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		p.log.Debug("no trained predictor, running heuristic-only", "path", modelPath)
		return
	}
	if err := p.Load(modelPath, metaPath); err != nil {
		p.log.Warn("predictor unavailable, running heuristic-only", "err", err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// #endregion

// #region predict

// Predict returns the strategy recommendation for one feature vector. With
// no model loaded it returns the zero-confidence NONE answer and no error.
// It errors only on a malformed vector (wrong dimensionality).
func (p *Predictor) Predict(x []float64) (Prediction, error) {
	m := p.model.Load()
	if m == nil {
		return Prediction{
			Strategy:     strategy.None,
			Confidence:   0,
			Risk:         0,
			Distribution: map[strategy.Strategy]float64{strategy.None: 1},
		}, nil
	}

	probs, err := m.forest.Proba(x)
	if err != nil {
		return Prediction{}, err
	}

	dist := make(map[strategy.Strategy]float64, len(probs))
	best := 0
	for i, pr := range probs {
		dist[strategy.Strategy(m.forest.Classes[i])] = pr
		if pr > probs[best] {
			best = i
		}
	}

	pred := Prediction{
		Strategy:     strategy.Strategy(m.forest.Classes[best]),
		Confidence:   probs[best],
		Risk:         1 - dist[strategy.None],
		Distribution: dist,
	}
	return pred, nil
}

// #endregion
