package compiledtrees

import (
	"encoding/gob"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/mat"

	"github.com/compiledtrees/compiledtrees/native"
	scierr "github.com/compiledtrees/compiledtrees/pkg/errors"
	"github.com/compiledtrees/compiledtrees/pkg/log"
)

// RegressionPredictor is a ready-to-use compiled model. It owns the loaded
// module and its transient backing file; Close releases both. Predict may be
// called concurrently from multiple goroutines.
type RegressionPredictor struct {
	nFeatures int
	evaluator *native.Evaluator
	logger    *slog.Logger
}

// NumFeatures returns the feature count the predictor was compiled for.
func (p *RegressionPredictor) NumFeatures() int {
	return p.nFeatures
}

// Predict evaluates every row of X and returns one prediction per row, in
// input order. X carries float32 samples, matching the numeric type the
// generated code operates on; a feature-count or layout mismatch is rejected
// before any native call.
func (p *RegressionPredictor) Predict(X blas32.General) ([]float32, error) {
	if p.evaluator == nil {
		return nil, scierr.New("predictor is closed")
	}
	out := make([]float32, X.Rows)
	if err := p.evaluator.Predict(X, out); err != nil {
		return nil, err
	}
	p.logger.Debug("batch evaluated",
		slog.Int(log.SamplesKey, X.Rows),
		slog.Int(log.FeaturesKey, X.Cols),
	)
	return out, nil
}

// PredictMatrix evaluates a gonum float64 matrix. The samples are narrowed to
// float32 before evaluation (the precision the trees were fitted against),
// which raises a DataConversionWarning once per call. A vector or any matrix
// whose column count differs from the model's feature count is rejected.
func (p *RegressionPredictor) PredictMatrix(X mat.Matrix) (*mat.VecDense, error) {
	rows, cols := X.Dims()
	if cols != p.nFeatures {
		return nil, scierr.NewDimensionError("PredictMatrix", p.nFeatures, cols, 1)
	}
	scierr.Warn(scierr.NewDataConversionWarning("float64", "float32",
		"compiled evaluators operate on 32-bit samples"))

	g := blas32.General{
		Rows:   rows,
		Cols:   cols,
		Stride: cols,
		Data:   make([]float32, rows*cols),
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			g.Data[i*cols+j] = float32(X.At(i, j))
		}
	}

	out, err := p.Predict(g)
	if err != nil {
		return nil, err
	}
	y := mat.NewVecDense(rows, nil)
	for i, v := range out {
		y.SetVec(i, float64(v))
	}
	return y, nil
}

// Close unloads the native module and removes its transient directory.
// The predictor is unusable afterwards. Predictors restored with Load own
// their re-materialized copy, so Close is always safe to call.
func (p *RegressionPredictor) Close() error {
	if p.evaluator == nil {
		return nil
	}
	modulePath := p.evaluator.Path()
	err := p.evaluator.Close()
	p.evaluator = nil
	removeModuleDir(modulePath)
	return err
}

func removeModuleDir(modulePath string) {
	if modulePath != "" {
		os.RemoveAll(filepath.Dir(modulePath))
	}
}

// predictorState is the persisted form: the raw module bytes plus the
// metadata needed to re-link them. Restoring needs neither the original
// model nor a native compiler.
type predictorState struct {
	NumFeatures int
	EntryPoint  string
	Module      []byte
}

// Save serializes the predictor to w: the compiled module's bytes, the entry
// point name, and the recorded feature count, gob-encoded.
func (p *RegressionPredictor) Save(w io.Writer) error {
	if p.evaluator == nil {
		return scierr.New("cannot save a closed predictor")
	}
	module, err := os.ReadFile(p.evaluator.Path())
	if err != nil {
		return scierr.Wrap(err, "read compiled module")
	}
	state := predictorState{
		NumFeatures: p.nFeatures,
		EntryPoint:  p.evaluator.Symbol(),
		Module:      module,
	}
	if err := gob.NewEncoder(w).Encode(&state); err != nil {
		return scierr.Wrap(err, "encode predictor")
	}
	return nil
}

// SaveFile serializes the predictor to the named file.
func (p *RegressionPredictor) SaveFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return scierr.Wrap(err, "create predictor file")
	}
	defer f.Close()
	return p.Save(f)
}

// Load reconstructs a predictor previously written with Save. The module
// bytes are re-materialized to a fresh transient file and the entry point is
// resolved again; the restored predictor owns that copy independently of the
// one it was saved from.
func Load(r io.Reader) (*RegressionPredictor, error) {
	var state predictorState
	if err := gob.NewDecoder(r).Decode(&state); err != nil {
		return nil, scierr.Wrap(err, "decode predictor")
	}
	if state.NumFeatures <= 0 || len(state.Module) == 0 || state.EntryPoint == "" {
		return nil, scierr.New("decoded predictor state is incomplete")
	}

	dir, err := os.MkdirTemp("", "compiledtrees-*")
	if err != nil {
		return nil, scierr.Wrap(err, "create transient module directory")
	}
	modulePath := filepath.Join(dir, "model.so")
	if err := os.WriteFile(modulePath, state.Module, 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, scierr.Wrap(err, "materialize module")
	}

	evaluator, err := native.Open(modulePath, state.EntryPoint, state.NumFeatures)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	slog.Default().Debug("predictor restored",
		slog.Int(log.FeaturesKey, state.NumFeatures),
		slog.String(log.ModulePathKey, modulePath),
	)
	return &RegressionPredictor{
		nFeatures: state.NumFeatures,
		evaluator: evaluator,
		logger:    slog.Default(),
	}, nil
}

// LoadFile reconstructs a predictor from the named file.
func LoadFile(filename string) (*RegressionPredictor, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, scierr.Wrap(err, "open predictor file")
	}
	defer f.Close()
	return Load(f)
}
