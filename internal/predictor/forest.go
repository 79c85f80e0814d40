// Package predictor serves the trained strategy classifier on the build hot
// path: pure-Go random-forest inference behind an atomically swappable
// model pointer.
package predictor

// #region imports
import (
	"fmt"
)

// #endregion

// #region tree

// Node is one decision node in flattened array form. Leaf nodes carry the
// class probability vector; internal nodes split on Feature <= Threshold.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      int       `json:"l"`
	Right     int       `json:"r"`
	Leaf      bool      `json:"leaf,omitempty"`
	Probs     []float64 `json:"p,omitempty"`
}

// Tree is a single decision tree stored as a node array rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Probs walks the tree and returns the leaf's class probabilities.
func (t *Tree) Probs(x []float64) []float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Probs
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// #endregion

// #region forest

// Forest is a trained random forest over a fixed class set. Classes holds
// the label ids in probability-vector order.
type Forest struct {
	NumFeatures int    `json:"num_features"`
	Classes     []int  `json:"classes"`
	Trees       []Tree `json:"trees"`
}

// Proba averages the per-tree class probabilities. The returned slice is in
// Classes order and sums to 1.
func (f *Forest) Proba(x []float64) ([]float64, error) {
	if len(x) != f.NumFeatures {
		return nil, fmt.Errorf("feature vector has dim %d, model wants %d", len(x), f.NumFeatures)
	}
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("forest has no trees")
	}
	out := make([]float64, len(f.Classes))
	for i := range f.Trees {
		for c, p := range f.Trees[i].Probs(x) {
			out[c] += p
		}
	}
	inv := 1.0 / float64(len(f.Trees))
	for c := range out {
		out[c] *= inv
	}
	return out, nil
}

// #endregion
