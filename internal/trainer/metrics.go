package trainer

import "github.com/danielpatrickdp/pageforge/internal/predictor"

// #region metrics

type metrics struct {
	precision float64
	recall    float64
	f1        float64
	accuracy  float64
}

// evaluate scores the forest on the held-out indices with support-weighted
// precision, recall, and F1, so dominant classes cannot mask collapse on
// rare ones any more than their share of the corpus.
func evaluate(f *predictor.Forest, x [][]float64, y []int, testIdx []int, nClasses int) metrics {
	tp := make([]int, nClasses)
	fp := make([]int, nClasses)
	fn := make([]int, nClasses)
	support := make([]int, nClasses)

	correct := 0
	for _, i := range testIdx {
		probs, err := f.Proba(x[i])
		if err != nil {
			continue
		}
		pred := argmax(probs)
		truth := y[i]
		support[truth]++
		if pred == truth {
			tp[truth]++
			correct++
		} else {
			fp[pred]++
			fn[truth]++
		}
	}

	var m metrics
	total := 0
	for c := 0; c < nClasses; c++ {
		if support[c] == 0 {
			continue
		}
		total += support[c]

		var p, r float64
		if tp[c]+fp[c] > 0 {
			p = float64(tp[c]) / float64(tp[c]+fp[c])
		}
		if tp[c]+fn[c] > 0 {
			r = float64(tp[c]) / float64(tp[c]+fn[c])
		}
		var f1 float64
		if p+r > 0 {
			f1 = 2 * p * r / (p + r)
		}

		w := float64(support[c])
		m.precision += p * w
		m.recall += r * w
		m.f1 += f1 * w
	}
	if total > 0 {
		m.precision /= float64(total)
		m.recall /= float64(total)
		m.f1 /= float64(total)
		m.accuracy = float64(correct) / float64(total)
	}
	return m
}

func argmax(probs []float64) int {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best
}

// #endregion
