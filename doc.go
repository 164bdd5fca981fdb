// Package compiledtrees compiles fitted decision-tree and tree-ensemble
// regressors to native code for fast batch prediction.
//
// Instead of walking tree structures at prediction time, the library
// translates a fitted model into C source implementing the exact decision
// logic, builds it with the system compiler, loads the resulting shared
// module, and evaluates samples by direct native calls. Predictions are bit
// compatible with recursively traversing the trees; only the evaluation
// strategy changes.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/compiledtrees/compiledtrees"
//	    "github.com/compiledtrees/compiledtrees/tree"
//	    "gonum.org/v1/gonum/blas/blas32"
//	)
//
//	func main() {
//	    // A depth-1 tree: x[0] <= 0.5 ? 1.0 : 2.0
//	    t := &tree.Tree{Nodes: []tree.Node{
//	        {Feature: 0, Threshold: 0.5, Left: 1, Right: 2},
//	        {Leaf: true, Value: 1.0},
//	        {Leaf: true, Value: 2.0},
//	    }}
//
//	    predictor, err := compiledtrees.Compile(tree.SingleTree(t, 1))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer predictor.Close()
//
//	    X := blas32.General{Rows: 3, Cols: 1, Stride: 1, Data: []float32{0.4, 0.5, 0.6}}
//	    y, err := predictor.Predict(X)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(y) // [1 1 2]
//	}
//
// A compiled predictor can be persisted with Save and reconstructed with Load
// on a machine without the original model or a C compiler; only dlopen
// support is required.
//
// Supported models are single regression trees and additive ensembles of
// them (bagged forests, gradient boosting). Classification trees and
// multi-output trees are not compilable; Compilable reports eligibility
// without error.
package compiledtrees
