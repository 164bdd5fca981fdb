//go:build darwin || linux

package native

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gonum.org/v1/gonum/blas/blas32"

	"github.com/compiledtrees/compiledtrees/ccompile"
	"github.com/compiledtrees/compiledtrees/codegen"
	scierr "github.com/compiledtrees/compiledtrees/pkg/errors"
	"github.com/compiledtrees/compiledtrees/tree"
)

// buildModule compiles the depth-1 tree x[0] <= 0.5 ? 1.0 : 2.0 with the
// system toolchain, skipping the test when no compiler is installed.
func buildModule(t *testing.T) string {
	t.Helper()
	tc := ccompile.NewSystemToolchain()
	if !tc.Available() {
		t.Skipf("native compiler %q not available", tc.Name())
	}

	src, err := codegen.Generate(tree.SingleTree(&tree.Tree{Nodes: []tree.Node{
		{Feature: 0, Threshold: 0.5, Left: 1, Right: 2},
		{Leaf: true, Value: 1.0},
		{Leaf: true, Value: 2.0},
	}}, 1))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	path, err := ccompile.NewPipeline(tc).Compile(context.Background(), src)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(filepath.Dir(path)) })
	return path
}

func TestEvaluator_Predict(t *testing.T) {
	path := buildModule(t)

	e, err := Open(path, codegen.EvaluateFnName, 1)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer e.Close()

	X := blas32.General{Rows: 3, Cols: 1, Stride: 1, Data: []float32{0.4, 0.5, 0.6}}
	out := make([]float32, 3)
	if err := e.Predict(X, out); err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	want := []float32{1.0, 1.0, 2.0} // 0.5 ties left
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestEvaluator_PredictLargeBatchParallel(t *testing.T) {
	path := buildModule(t)

	e, err := Open(path, codegen.EvaluateFnName, 1)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer e.Close()

	// Enough rows to cross the parallel threshold.
	const n = 10_000
	X := blas32.General{Rows: n, Cols: 1, Stride: 1, Data: make([]float32, n)}
	for i := range X.Data {
		X.Data[i] = float32(i%2) // alternate 0 and 1
	}
	out := make([]float32, n)
	if err := e.Predict(X, out); err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	for i := range out {
		want := float32(1.0)
		if i%2 == 1 {
			want = 2.0
		}
		if out[i] != want {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
}

func TestEvaluator_ConcurrentReaders(t *testing.T) {
	path := buildModule(t)

	e, err := Open(path, codegen.EvaluateFnName, 1)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer e.Close()

	X := blas32.General{Rows: 2, Cols: 1, Stride: 1, Data: []float32{0.0, 1.0}}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				out := make([]float32, 2)
				if err := e.Predict(X, out); err != nil {
					t.Errorf("Predict failed: %v", err)
					return
				}
				if out[0] != 1.0 || out[1] != 2.0 {
					t.Errorf("got %v", out)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestEvaluator_ShapeValidation(t *testing.T) {
	path := buildModule(t)

	e, err := Open(path, codegen.EvaluateFnName, 1)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer e.Close()

	// Wrong feature count.
	err = e.Predict(blas32.General{Rows: 1, Cols: 2, Stride: 2, Data: []float32{1, 2}}, make([]float32, 1))
	var dim *scierr.DimensionError
	if !scierr.As(err, &dim) || dim.Axis != 1 {
		t.Errorf("feature mismatch: got %v", err)
	}

	// Output buffer of the wrong length.
	err = e.Predict(blas32.General{Rows: 2, Cols: 1, Stride: 1, Data: []float32{1, 2}}, make([]float32, 1))
	if !scierr.As(err, &dim) || dim.Axis != 0 {
		t.Errorf("row/output mismatch: got %v", err)
	}

	// Inconsistent stride.
	err = e.Predict(blas32.General{Rows: 2, Cols: 1, Stride: 0, Data: []float32{1, 2}}, make([]float32, 2))
	var val *scierr.ValidationError
	if !scierr.As(err, &val) {
		t.Errorf("bad stride: got %v", err)
	}

	// Data slice too short for the declared layout.
	err = e.Predict(blas32.General{Rows: 3, Cols: 1, Stride: 1, Data: []float32{1}}, make([]float32, 3))
	if !scierr.As(err, &val) {
		t.Errorf("short data: got %v", err)
	}

	// Empty batch is a no-op, not an error.
	if err := e.Predict(blas32.General{Rows: 0, Cols: 1, Stride: 1}, nil); err != nil {
		t.Errorf("empty batch: %v", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	path := buildModule(t)

	if _, err := Open(filepath.Join(t.TempDir(), "missing.so"), codegen.EvaluateFnName, 1); err == nil {
		t.Error("missing module accepted")
	} else {
		var le *scierr.LoadError
		if !scierr.As(err, &le) {
			t.Errorf("expected LoadError, got %T", err)
		}
	}

	if _, err := Open(path, "no_such_symbol", 1); err == nil {
		t.Error("missing symbol accepted")
	} else {
		var le *scierr.LoadError
		if !scierr.As(err, &le) || le.Symbol != "no_such_symbol" {
			t.Errorf("expected symbol LoadError, got %v", err)
		}
	}

	if _, err := Open(path, codegen.EvaluateFnName, 0); err == nil {
		t.Error("non-positive feature count accepted")
	}
}

func TestEvaluator_Close(t *testing.T) {
	path := buildModule(t)

	e, err := Open(path, codegen.EvaluateFnName, 1)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Close is idempotent.
	if err := e.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	// Predict after Close is a load error, not a crash.
	err = e.Predict(blas32.General{Rows: 1, Cols: 1, Stride: 1, Data: []float32{0}}, make([]float32, 1))
	var le *scierr.LoadError
	if !scierr.As(err, &le) {
		t.Errorf("Predict after Close: got %v", err)
	}
}
