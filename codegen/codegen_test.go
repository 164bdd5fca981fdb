package codegen

import (
	"bytes"
	"strings"
	"testing"

	scierr "github.com/compiledtrees/compiledtrees/pkg/errors"
	"github.com/compiledtrees/compiledtrees/tree"
)

func depthOneTree() *tree.Tree {
	return &tree.Tree{Nodes: []tree.Node{
		{Feature: 0, Threshold: 0.5, Left: 1, Right: 2},
		{Leaf: true, Value: 1.0},
		{Leaf: true, Value: 2.0},
	}}
}

func TestGenerate_SingleTree(t *testing.T) {
	src, err := Generate(tree.SingleTree(depthOneTree(), 1))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	text := string(src)

	for _, want := range []string{
		"static double",
		"evaluate_tree_0(const float* f)",
		"if (f[0] <= 0x1p-01)",
		"float\nevaluate(const float* f)",
		"result += evaluate_tree_0(f);",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("generated source missing %q:\n%s", want, text)
		}
	}
}

func TestGenerate_TieComparisonIsLessEqual(t *testing.T) {
	src, err := Generate(tree.SingleTree(depthOneTree(), 1))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	// The comparison operator decides which subtree receives ties; a strict
	// "<" would silently change predictions for samples on the threshold.
	if strings.Contains(string(src), "f[0] < 0x") {
		t.Error("generated source uses strict < instead of <=")
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	ens := tree.Forest([]*tree.Tree{depthOneTree(), depthOneTree()}, 1)

	a, err := Generate(ens)
	if err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}
	b, err := Generate(ens)
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical ensembles produced different source text")
	}
}

func TestGenerate_EnsembleEmitsOneFunctionPerTree(t *testing.T) {
	ens := tree.Boosted([]*tree.Tree{depthOneTree(), depthOneTree(), depthOneTree()}, 0.1, 2.5, 1)

	src, err := Generate(ens)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	text := string(src)

	for _, fn := range []string{"evaluate_tree_0", "evaluate_tree_1", "evaluate_tree_2"} {
		if strings.Count(text, fn+"(const float* f)") != 1 {
			t.Errorf("expected exactly one definition of %s", fn)
		}
		if !strings.Contains(text, "result += "+fn+"(f);") {
			t.Errorf("entry point does not accumulate %s", fn)
		}
	}
	// Weight and initial value appear as exact hex literals.
	if !strings.Contains(text, cFloat(0.1)) || !strings.Contains(text, cFloat(2.5)) {
		t.Errorf("entry point missing weight or initial value:\n%s", text)
	}
}

func TestGenerate_SingleLeafTree(t *testing.T) {
	leaf := &tree.Tree{Nodes: []tree.Node{{Leaf: true, Value: -7.5}}}

	src, err := Generate(tree.SingleTree(leaf, 3))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(string(src), "return "+cFloat(-7.5)+";") {
		t.Errorf("constant tree should compile to a bare return:\n%s", src)
	}
}

func TestGenerate_RejectsMalformedEnsemble(t *testing.T) {
	dangling := &tree.Tree{Nodes: []tree.Node{
		{Feature: 0, Threshold: 0.5, Left: 7, Right: 1},
		{Leaf: true, Value: 1.0},
	}}

	_, err := Generate(tree.SingleTree(dangling, 1))
	if err == nil {
		t.Fatal("malformed tree accepted")
	}
	var inv *scierr.InvariantError
	if !scierr.As(err, &inv) {
		t.Errorf("expected InvariantError, got %T", err)
	}

	if _, err := Generate(nil); err == nil {
		t.Error("nil ensemble accepted")
	}
}

func TestCFloat_ExactHexLiterals(t *testing.T) {
	cases := []struct {
		v    float64
		want string
	}{
		{0.5, "0x1p-01"},
		{1.0, "0x1p+00"},
		{2.0, "0x1p+01"},
		{0.0, "0x0p+00"},
	}
	for _, c := range cases {
		if got := cFloat(c.v); got != c.want {
			t.Errorf("cFloat(%v) = %q, want %q", c.v, got, c.want)
		}
	}
	// A value with no short decimal representation still round-trips.
	if got := cFloat(0.1); !strings.HasPrefix(got, "0x1.999999999999") {
		t.Errorf("cFloat(0.1) = %q", got)
	}
}
