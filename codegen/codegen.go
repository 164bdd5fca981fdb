// Package codegen translates an ensemble descriptor into C source text that
// evaluates the model for one feature vector. Each tree becomes a static
// function of nested conditionals, so tree depth turns into straight-line
// branch code with no per-node dispatch; the exported entry point sums the
// per-tree results into the additive form
//
//	initial_value + weight * sum(tree_i(x))
//
// Emission is deterministic: the same descriptor always produces
// byte-identical source, which makes compiled modules cacheable by source
// hash.
package codegen

import (
	"bytes"
	"fmt"
	"strconv"

	scierr "github.com/compiledtrees/compiledtrees/pkg/errors"
	"github.com/compiledtrees/compiledtrees/tree"
)

// EvaluateFnName is the exported symbol every generated module defines.
// Loaders resolve this name; it is part of the persisted metadata so restored
// modules re-link against the same symbol.
const EvaluateFnName = "evaluate"

// Generate emits the complete C source for the given descriptor. The
// descriptor is validated first; a malformed tree is an extraction bug and
// yields an InvariantError rather than broken source.
func Generate(ens *tree.Ensemble) ([]byte, error) {
	if ens == nil {
		return nil, scierr.NewInvariantError("codegen.Generate", 0, "nil ensemble")
	}
	if err := ens.Validate(); err != nil {
		return nil, err
	}

	g := &generator{}
	g.linef("/* generated by compiledtrees: %d tree(s), %d feature(s) */",
		len(ens.Trees), ens.NumFeatures)
	g.linef("")
	for i, t := range ens.Trees {
		g.emitTree(treeFnName(i), t)
		g.linef("")
	}
	g.emitEntry(ens)
	return g.buf.Bytes(), nil
}

func treeFnName(i int) string {
	return fmt.Sprintf("evaluate_tree_%d", i)
}

// cFloat renders a float64 as a C99 hexadecimal floating literal. Hex
// literals round-trip the value exactly, so the compiled constant is bit
// identical to the threshold or leaf value held in the IR.
func cFloat(v float64) string {
	return strconv.FormatFloat(v, 'x', -1, 64)
}

type generator struct {
	buf    bytes.Buffer
	indent int
}

func (g *generator) linef(format string, args ...interface{}) {
	for i := 0; i < g.indent; i++ {
		g.buf.WriteByte('\t')
	}
	fmt.Fprintf(&g.buf, format, args...)
	g.buf.WriteByte('\n')
}

// emitTree writes one per-tree function. The feature row arrives as float;
// thresholds and leaf values stay double, so every comparison promotes the
// feature value to double exactly like the reference traversal does.
func (g *generator) emitTree(name string, t *tree.Tree) {
	g.linef("static double")
	g.linef("%s(const float* f) {", name)
	g.indent++
	g.emitNode(t, 0)
	g.indent--
	g.linef("}")
}

// emitNode writes the nested conditional for the subtree rooted at idx.
// The <= comparison with the true branch descending left reproduces the
// exporting library's tie handling; equal values must route left.
func (g *generator) emitNode(t *tree.Tree, idx int) {
	n := &t.Nodes[idx]
	if n.Leaf {
		g.linef("return %s;", cFloat(n.Value))
		return
	}
	g.linef("if (f[%d] <= %s) {", n.Feature, cFloat(n.Threshold))
	g.indent++
	g.emitNode(t, n.Left)
	g.indent--
	g.linef("}")
	g.linef("else {")
	g.indent++
	g.emitNode(t, n.Right)
	g.indent--
	g.linef("}")
}

func (g *generator) emitEntry(ens *tree.Ensemble) {
	g.linef("float")
	g.linef("%s(const float* f) {", EvaluateFnName)
	g.indent++
	g.linef("double result = 0.0;")
	for i := range ens.Trees {
		g.linef("result += %s(f);", treeFnName(i))
	}
	g.linef("return (float)(%s + %s * result);", cFloat(ens.InitialValue), cFloat(ens.Weight))
	g.indent--
	g.linef("}")
}
