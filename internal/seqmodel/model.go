// Package seqmodel implements the generative style model: a context-encoder
// feeding a recurrent token decoder, small enough to train and run without
// any ML runtime. Matrices are plain float32 slices; the artifact codec in
// artifact.go persists them with a checksum.
package seqmodel

// #region imports
import (
	"fmt"
	"math"
	"math/rand"

	"github.com/danielpatrickdp/pageforge/internal/vocab"
)

// #endregion

// #region hyperparameters

// Fixed architecture sizes. Kept deliberately small: decoding happens inside
// the build loop and must stay well under the audit round-trip time.
const (
	DefaultEmbedDim  = 32
	DefaultHiddenDim = 64

	// MaxGenerate is the hard cap on generated sequence length.
	MaxGenerate = 8
)

// #endregion

// #region model

// Model is an encoder-decoder sequence generator. The encoder maps a context
// vector to the decoder's initial hidden state; the decoder is a single-layer
// tanh RNN over token embeddings projected back onto the vocabulary.
type Model struct {
	VocabSize  int
	ContextDim int
	EmbedDim   int
	HiddenDim  int

	// Encoder: h0 = tanh(Wenc·ctx + benc)
	Wenc [][]float32 // [hidden][context]
	Benc []float32   // [hidden]

	// Embedding: one row per vocabulary id.
	Emb [][]float32 // [vocab][embed]

	// Recurrence: h = tanh(Wxh·x + Whh·h + bh)
	Wxh [][]float32 // [hidden][embed]
	Whh [][]float32 // [hidden][hidden]
	Bh  []float32   // [hidden]

	// Output projection: logits = Wout·h + bout
	Wout [][]float32 // [vocab][hidden]
	Bout []float32   // [vocab]
}

// New creates a model with weights initialized from the given source.
func New(vocabSize, contextDim, embedDim, hiddenDim int, rng *rand.Rand) *Model {
	m := &Model{
		VocabSize:  vocabSize,
		ContextDim: contextDim,
		EmbedDim:   embedDim,
		HiddenDim:  hiddenDim,
	}
	m.Wenc = randomMatrix(rng, hiddenDim, contextDim)
	m.Benc = make([]float32, hiddenDim)
	m.Emb = randomMatrix(rng, vocabSize, embedDim)
	m.Wxh = randomMatrix(rng, hiddenDim, embedDim)
	m.Whh = randomMatrix(rng, hiddenDim, hiddenDim)
	m.Bh = make([]float32, hiddenDim)
	m.Wout = randomMatrix(rng, vocabSize, hiddenDim)
	m.Bout = make([]float32, vocabSize)
	return m
}

func randomMatrix(rng *rand.Rand, rows, cols int) [][]float32 {
	// Xavier-style scale keeps early logits tame.
	scale := float32(math.Sqrt(2.0 / float64(rows+cols)))
	m := make([][]float32, rows)
	for i := range m {
		m[i] = make([]float32, cols)
		for j := range m[i] {
			m[i][j] = (rng.Float32()*2 - 1) * scale
		}
	}
	return m
}

// #endregion

// #region forward-steps

func (m *Model) initialHidden(ctx []float32) []float32 {
	h := make([]float32, m.HiddenDim)
	for i := 0; i < m.HiddenDim; i++ {
		sum := m.Benc[i]
		for j, c := range ctx {
			sum += m.Wenc[i][j] * c
		}
		h[i] = tanh32(sum)
	}
	return h
}

// step advances the decoder one token: returns the new hidden state and the
// pre-activation (needed for backprop).
func (m *Model) step(tokenID int, h []float32) (next, preact []float32) {
	emb := m.Emb[tokenID]
	next = make([]float32, m.HiddenDim)
	preact = make([]float32, m.HiddenDim)
	for i := 0; i < m.HiddenDim; i++ {
		sum := m.Bh[i]
		for j, x := range emb {
			sum += m.Wxh[i][j] * x
		}
		for j, hv := range h {
			sum += m.Whh[i][j] * hv
		}
		preact[i] = sum
		next[i] = tanh32(sum)
	}
	return next, preact
}

func (m *Model) logits(h []float32) []float32 {
	out := make([]float32, m.VocabSize)
	for i := 0; i < m.VocabSize; i++ {
		sum := m.Bout[i]
		for j, hv := range h {
			sum += m.Wout[i][j] * hv
		}
		out[i] = sum
	}
	return out
}

func tanh32(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}

// #endregion

// #region generate

// GenerateOptions controls decoding.
type GenerateOptions struct {
	MaxLength   int     // cap on emitted tokens; 0 means MaxGenerate
	Temperature float64 // <= 0 degenerates to greedy argmax
	TopK        int     // restrict sampling to the K most likely tokens
	Seed        int64   // sampling seed; fixed seeds give fixed output
}

// DefaultGenerateOptions returns the production sampling policy.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		MaxLength:   MaxGenerate,
		Temperature: 0.8,
		TopK:        20,
	}
}

// Generate decodes a token-id sequence conditioned on the context vector.
// Decoding starts from the start token and stops at the end token or the
// length cap; pad/start ids are never emitted. The returned ids exclude
// control tokens.
func (m *Model) Generate(ctx []float32, opts GenerateOptions) ([]int, error) {
	if len(ctx) != m.ContextDim {
		return nil, fmt.Errorf("context vector has dim %d, model wants %d", len(ctx), m.ContextDim)
	}
	maxLen := opts.MaxLength
	if maxLen <= 0 || maxLen > MaxGenerate {
		maxLen = MaxGenerate
	}
	topK := opts.TopK
	if topK <= 0 || topK > m.VocabSize {
		topK = m.VocabSize
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	h := m.initialHidden(ctx)
	tokenID := vocab.StartID
	var out []int

	for len(out) < maxLen {
		h, _ = m.step(tokenID, h)
		lg := m.logits(h)

		// Control tokens other than end are never valid emissions.
		lg[vocab.PadID] = float32(math.Inf(-1))
		lg[vocab.StartID] = float32(math.Inf(-1))
		lg[vocab.UnknownID] = float32(math.Inf(-1))

		next := sample(lg, opts.Temperature, topK, rng)
		if next == vocab.EndID {
			break
		}
		out = append(out, next)
		tokenID = next
	}
	return out, nil
}

// sample applies top-K restriction then temperature sampling; a
// non-positive temperature collapses to argmax.
func sample(logits []float32, temperature float64, topK int, rng *rand.Rand) int {
	type scored struct {
		id    int
		logit float32
	}
	top := make([]scored, 0, len(logits))
	for id, lg := range logits {
		top = append(top, scored{id, lg})
	}
	// Partial selection: keep the K best.
	for i := 0; i < topK && i < len(top); i++ {
		best := i
		for j := i + 1; j < len(top); j++ {
			if top[j].logit > top[best].logit {
				best = j
			}
		}
		top[i], top[best] = top[best], top[i]
	}
	top = top[:min(topK, len(top))]

	if temperature <= 0 {
		return top[0].id
	}

	// Softmax over the survivors at the given temperature.
	maxLogit := top[0].logit
	var sum float64
	probs := make([]float64, len(top))
	for i, s := range top {
		p := math.Exp(float64(s.logit-maxLogit) / temperature)
		probs[i] = p
		sum += p
	}
	r := rng.Float64() * sum
	for i, p := range probs {
		r -= p
		if r <= 0 {
			return top[i].id
		}
	}
	return top[len(top)-1].id
}

// #endregion
