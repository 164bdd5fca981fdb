// Package tree defines the intermediate representation consumed by the code
// generator: a decision tree as a flat node array rooted at index 0, and an
// ensemble descriptor that unifies single trees, forests and boosted models
// into one weighted additive form.
package tree

import (
	scierr "github.com/compiledtrees/compiledtrees/pkg/errors"
)

// Node represents a single node in a regression tree.
// For internal nodes Feature/Threshold/Left/Right are meaningful and Value is
// not; for leaves only Value is meaningful.
type Node struct {
	Feature   int     // Feature index used for splitting
	Threshold float64 // Split threshold
	Left      int     // Left child node index
	Right     int     // Right child node index
	Value     float64 // Prediction value at a leaf
	Leaf      bool    // True if this node is a leaf
}

// Tree is a fitted regression tree in flat array form. The root is Nodes[0].
// A Tree is constructed once from a fitted model and never mutated afterwards.
type Tree struct {
	Nodes []Node
}

// NumNodes returns the total number of nodes in the tree.
func (t *Tree) NumNodes() int {
	return len(t.Nodes)
}

// Validate checks the structural invariants the code generator relies on:
// a non-empty node array, children inside the array, and feature indices
// below nFeatures. A violation indicates a bug in the extraction side, so
// callers should treat the returned error as fatal.
func (t *Tree) Validate(nFeatures int) error {
	if t == nil || len(t.Nodes) == 0 {
		return scierr.NewInvariantError("tree.Validate", 0, "tree has no nodes")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return scierr.NewInvariantError("tree.Validate", i,
				"feature index out of range")
		}
		if n.Left < 0 || n.Left >= len(t.Nodes) {
			return scierr.NewInvariantError("tree.Validate", i,
				"left child out of range")
		}
		if n.Right < 0 || n.Right >= len(t.Nodes) {
			return scierr.NewInvariantError("tree.Validate", i,
				"right child out of range")
		}
	}
	return nil
}

// Walk evaluates the tree for one feature vector by recursive descent:
// at each internal node descend left when x[feature] <= threshold, otherwise
// right, until a leaf is reached. Ties route LEFT, matching the convention of
// the exporting model library; generated code must reproduce this bit for bit.
//
// The comparison promotes the float32 feature value to float64 before testing
// against the float64 threshold, which is exactly what the generated C does
// when a float operand meets a double literal.
func (t *Tree) Walk(x []float32) float64 {
	idx := 0
	for {
		n := &t.Nodes[idx]
		if n.Leaf {
			return n.Value
		}
		if float64(x[n.Feature]) <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}
