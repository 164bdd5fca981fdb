package tree

import (
	scierr "github.com/compiledtrees/compiledtrees/pkg/errors"
)

// Ensemble is the descriptor handed to the code generator. Every compilable
// model reduces to this form:
//
//	prediction(x) = InitialValue + Weight * sum(tree_i(x))
//
// A single tree is an ensemble of one tree with Weight 1 and InitialValue 0.
// A bagged forest uses Weight 1/n_estimators; a boosted model uses the
// learning rate as Weight and its prior as InitialValue.
type Ensemble struct {
	Trees        []*Tree
	Weight       float64
	InitialValue float64
	NumFeatures  int
}

// SingleTree wraps one fitted tree in the additive form.
func SingleTree(t *Tree, nFeatures int) *Ensemble {
	return &Ensemble{
		Trees:        []*Tree{t},
		Weight:       1.0,
		InitialValue: 0.0,
		NumFeatures:  nFeatures,
	}
}

// Forest wraps a bagged forest: the prediction is the mean of the member
// trees, expressed as a uniform 1/n weight.
func Forest(trees []*Tree, nFeatures int) *Ensemble {
	return &Ensemble{
		Trees:        trees,
		Weight:       1.0 / float64(len(trees)),
		InitialValue: 0.0,
		NumFeatures:  nFeatures,
	}
}

// Boosted wraps a gradient-boosted model: each stage contributes
// learningRate * tree_i(x) on top of the initial prior.
func Boosted(trees []*Tree, learningRate, initialValue float64, nFeatures int) *Ensemble {
	return &Ensemble{
		Trees:        trees,
		Weight:       learningRate,
		InitialValue: initialValue,
		NumFeatures:  nFeatures,
	}
}

// NumNodes returns the total node count across all member trees.
func (e *Ensemble) NumNodes() int {
	total := 0
	for _, t := range e.Trees {
		total += t.NumNodes()
	}
	return total
}

// Validate checks the descriptor invariants: at least one tree, a positive
// feature count, and every member tree structurally valid against the shared
// feature count.
func (e *Ensemble) Validate() error {
	if e == nil || len(e.Trees) == 0 {
		return scierr.NewInvariantError("ensemble.Validate", 0, "ensemble has no trees")
	}
	if e.NumFeatures <= 0 {
		return scierr.NewInvariantError("ensemble.Validate", 0, "non-positive feature count")
	}
	for _, t := range e.Trees {
		if err := t.Validate(e.NumFeatures); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate is the reference interpretation of the descriptor, used as the
// oracle in tests and as an interpreted fallback when no native toolchain is
// available. Compiled modules must agree with it exactly.
func (e *Ensemble) Evaluate(x []float32) float64 {
	sum := 0.0
	for _, t := range e.Trees {
		sum += t.Walk(x)
	}
	return e.InitialValue + e.Weight*sum
}
