//go:build darwin || linux

// Package native loads a compiled model module and exposes its evaluation
// entry point as a batch predictor. Loading goes through purego's dlopen
// bindings, so no cgo is involved on the Go side; the only native code in the
// process is the generated evaluator itself.
package native

import (
	"github.com/ebitengine/purego"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/compiledtrees/compiledtrees/core/parallel"
	scierr "github.com/compiledtrees/compiledtrees/pkg/errors"
)

// Batches at or below this row count are evaluated on the calling goroutine.
const parallelThreshold = 256

// Evaluator wraps one loaded module and its resolved entry point. The
// resolved function is valid only while the module stays loaded, so the
// function handle never leaves the Evaluator. Predict is safe for concurrent
// use; Close must not race with in-flight Predict calls.
type Evaluator struct {
	path      string
	symbol    string
	nFeatures int
	handle    uintptr
	eval      func(*float32) float32
}

// Open loads the module at path and resolves the evaluation entry point.
// It fails with a LoadError when the file is missing, is not a loadable
// module for this platform, or does not export the symbol.
func Open(path, symbol string, nFeatures int) (*Evaluator, error) {
	if nFeatures <= 0 {
		return nil, scierr.NewValidationError("nFeatures", "must be positive", nFeatures)
	}
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, scierr.NewLoadError(path, "", err)
	}
	// Resolve explicitly before registering: RegisterLibFunc panics on a
	// missing symbol, and an absent entry point is an expected load failure.
	if _, err := purego.Dlsym(handle, symbol); err != nil {
		purego.Dlclose(handle)
		return nil, scierr.NewLoadError(path, symbol, err)
	}

	e := &Evaluator{
		path:      path,
		symbol:    symbol,
		nFeatures: nFeatures,
		handle:    handle,
	}
	purego.RegisterLibFunc(&e.eval, handle, symbol)
	return e, nil
}

// NumFeatures returns the feature count recorded at compile time.
func (e *Evaluator) NumFeatures() int {
	return e.nFeatures
}

// Path returns the filesystem path of the loaded module.
func (e *Evaluator) Path() string {
	return e.path
}

// Symbol returns the name of the resolved entry point.
func (e *Evaluator) Symbol() string {
	return e.symbol
}

// Predict evaluates every row of X and writes the result for row i to out[i].
// X must have exactly the feature count the module was compiled for, and out
// must have one slot per row; both are checked before any native call. Rows
// are independent, so large batches are partitioned across goroutines.
func (e *Evaluator) Predict(X blas32.General, out []float32) (err error) {
	defer scierr.Recover(&err, "native.Evaluator.Predict")

	if e.eval == nil {
		return scierr.NewLoadError(e.path, e.symbol, scierr.New("evaluator is closed"))
	}
	if X.Cols != e.nFeatures {
		return scierr.NewDimensionError("Predict", e.nFeatures, X.Cols, 1)
	}
	if len(out) != X.Rows {
		return scierr.NewDimensionError("Predict", X.Rows, len(out), 0)
	}
	if X.Rows == 0 {
		return nil
	}
	if X.Stride < X.Cols {
		return scierr.NewValidationError("X.Stride", "smaller than column count", X.Stride)
	}
	if need := (X.Rows-1)*X.Stride + X.Cols; len(X.Data) < need {
		return scierr.NewValidationError("X.Data", "shorter than Rows*Stride layout requires", len(X.Data))
	}

	parallel.ParallelizeWithThreshold(X.Rows, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			row := X.Data[i*X.Stride : i*X.Stride+X.Cols]
			out[i] = e.eval(&row[0])
		}
	})
	return nil
}

// Close unloads the module. The evaluator is unusable afterwards; the caller
// remains responsible for removing the module file itself.
func (e *Evaluator) Close() error {
	if e.eval == nil {
		return nil
	}
	e.eval = nil
	handle := e.handle
	e.handle = 0
	if err := purego.Dlclose(handle); err != nil {
		return scierr.NewLoadError(e.path, "", err)
	}
	return nil
}
