package seqmodel

// #region imports
import (
	"math"

	"github.com/danielpatrickdp/pageforge/internal/vocab"
)

// #endregion

// #region forward-cache

type forwardCache struct {
	inputs  []int       // decoder input ids per step
	targets []int       // expected output ids per step
	hiddens [][]float32 // hidden state per step (post-step)
	h0      []float32
	probs   [][]float32 // softmax output per step
	ctx     []float32
}

// forward runs teacher-forced decoding over the target sequence.
// Inputs are [start, t0, t1, ...]; targets are [t0, t1, ..., end].
func (m *Model) forward(ctx []float32, target []int) *forwardCache {
	c := &forwardCache{ctx: ctx, h0: m.initialHidden(ctx)}
	c.inputs = append([]int{vocab.StartID}, target...)
	c.targets = append(append([]int(nil), target...), vocab.EndID)

	h := c.h0
	for _, in := range c.inputs {
		var next []float32
		next, _ = m.step(in, h)
		c.hiddens = append(c.hiddens, next)
		c.probs = append(c.probs, softmax32(m.logits(next)))
		h = next
	}
	return c
}

func softmax32(logits []float32) []float32 {
	maxv := logits[0]
	for _, v := range logits {
		if v > maxv {
			maxv = v
		}
	}
	var sum float64
	out := make([]float32, len(logits))
	for i, v := range logits {
		e := math.Exp(float64(v - maxv))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// #endregion

// #region loss

// Loss returns the mean next-token cross-entropy of the target sequence
// under teacher forcing.
func (m *Model) Loss(ctx []float32, target []int) float64 {
	c := m.forward(ctx, target)
	var total float64
	for t, want := range c.targets {
		p := float64(c.probs[t][want])
		if p < 1e-12 {
			p = 1e-12
		}
		total += -math.Log(p)
	}
	return total / float64(len(c.targets))
}

// #endregion

// #region train-step

// TrainStep runs one SGD step of backprop-through-time on a single
// (context, target) pair and returns the pre-update loss.
func (m *Model) TrainStep(ctx []float32, target []int, lr float32) float64 {
	c := m.forward(ctx, target)
	steps := len(c.inputs)

	// Gradient accumulators.
	dWout := zeros(m.VocabSize, m.HiddenDim)
	dBout := make([]float32, m.VocabSize)
	dWxh := zeros(m.HiddenDim, m.EmbedDim)
	dWhh := zeros(m.HiddenDim, m.HiddenDim)
	dBh := make([]float32, m.HiddenDim)
	dEmb := map[int][]float32{}
	dWenc := zeros(m.HiddenDim, m.ContextDim)
	dBenc := make([]float32, m.HiddenDim)

	var loss float64
	dhNext := make([]float32, m.HiddenDim) // gradient flowing back from t+1

	for t := steps - 1; t >= 0; t-- {
		probs := c.probs[t]
		want := c.targets[t]
		p := float64(probs[want])
		if p < 1e-12 {
			p = 1e-12
		}
		loss += -math.Log(p)

		// d logits = softmax - onehot(want)
		dLogits := make([]float32, m.VocabSize)
		copy(dLogits, probs)
		dLogits[want] -= 1

		h := c.hiddens[t]
		dh := make([]float32, m.HiddenDim)
		copy(dh, dhNext)
		for i := 0; i < m.VocabSize; i++ {
			g := dLogits[i]
			if g == 0 {
				continue
			}
			dBout[i] += g
			for j := 0; j < m.HiddenDim; j++ {
				dWout[i][j] += g * h[j]
				dh[j] += g * m.Wout[i][j]
			}
		}

		// Through tanh.
		dpre := make([]float32, m.HiddenDim)
		for i := range dpre {
			dpre[i] = dh[i] * (1 - h[i]*h[i])
			dBh[i] += dpre[i]
		}

		in := c.inputs[t]
		emb := m.Emb[in]
		var hPrev []float32
		if t == 0 {
			hPrev = c.h0
		} else {
			hPrev = c.hiddens[t-1]
		}

		if _, ok := dEmb[in]; !ok {
			dEmb[in] = make([]float32, m.EmbedDim)
		}
		for i := 0; i < m.HiddenDim; i++ {
			g := dpre[i]
			if g == 0 {
				continue
			}
			for j := 0; j < m.EmbedDim; j++ {
				dWxh[i][j] += g * emb[j]
				dEmb[in][j] += g * m.Wxh[i][j]
			}
			for j := 0; j < m.HiddenDim; j++ {
				dWhh[i][j] += g * hPrev[j]
			}
		}

		// Gradient into the previous hidden state.
		for j := 0; j < m.HiddenDim; j++ {
			var sum float32
			for i := 0; i < m.HiddenDim; i++ {
				sum += dpre[i] * m.Whh[i][j]
			}
			dhNext[j] = sum
		}
	}

	// dhNext now carries the gradient into h0; flow through the encoder tanh.
	for i := 0; i < m.HiddenDim; i++ {
		g := dhNext[i] * (1 - c.h0[i]*c.h0[i])
		dBenc[i] += g
		for j := 0; j < m.ContextDim; j++ {
			dWenc[i][j] += g * c.ctx[j]
		}
	}

	// Clipped SGD update.
	const clip = 5.0
	applyMat(m.Wout, dWout, lr, clip)
	applyVec(m.Bout, dBout, lr, clip)
	applyMat(m.Wxh, dWxh, lr, clip)
	applyMat(m.Whh, dWhh, lr, clip)
	applyVec(m.Bh, dBh, lr, clip)
	applyMat(m.Wenc, dWenc, lr, clip)
	applyVec(m.Benc, dBenc, lr, clip)
	for id, g := range dEmb {
		applyVec(m.Emb[id], g, lr, clip)
	}

	return loss / float64(steps)
}

func zeros(rows, cols int) [][]float32 {
	m := make([][]float32, rows)
	for i := range m {
		m[i] = make([]float32, cols)
	}
	return m
}

func clip32(v, c float32) float32 {
	if v > c {
		return c
	}
	if v < -c {
		return -c
	}
	return v
}

func applyMat(w, g [][]float32, lr, clip float32) {
	for i := range w {
		for j := range w[i] {
			w[i][j] -= lr * clip32(g[i][j], clip)
		}
	}
}

func applyVec(w, g []float32, lr, clip float32) {
	for i := range w {
		w[i] -= lr * clip32(g[i], clip)
	}
}

// #endregion
