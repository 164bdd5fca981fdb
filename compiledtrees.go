package compiledtrees

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/compiledtrees/compiledtrees/ccompile"
	"github.com/compiledtrees/compiledtrees/codegen"
	"github.com/compiledtrees/compiledtrees/native"
	scierr "github.com/compiledtrees/compiledtrees/pkg/errors"
	"github.com/compiledtrees/compiledtrees/pkg/log"
	"github.com/compiledtrees/compiledtrees/tree"
)

// TreeModel is a fitted single-tree regressor. The exporting library exposes
// its feature count and its tree in IR form; a nil or empty tree marks an
// unfitted model.
type TreeModel interface {
	NumFeatures() int
	DecisionTree() *tree.Tree
}

// BoostedModel is a fitted gradient-boosted regressor: an ordered sequence of
// stages scaled by the learning rate on top of an initial prior.
type BoostedModel interface {
	NumFeatures() int
	Stages() []*tree.Tree
	LearningRate() float64
	InitialValue() float64
}

// ForestModel is a fitted bagged forest regressor whose prediction is the
// mean of its member trees.
type ForestModel interface {
	NumFeatures() int
	Estimators() []*tree.Tree
}

// Compilable reports whether the model belongs to the supported variant set
// (single regression tree, additive ensemble of regression trees) and every
// member is fitted. It never returns an error: anything unsupported is
// simply not compilable.
func Compilable(model any) bool {
	switch m := model.(type) {
	case *tree.Ensemble:
		return m != nil && len(m.Trees) > 0 && m.NumFeatures > 0 && fittedAll(m.Trees)
	case TreeModel:
		return m.NumFeatures() > 0 && fitted(m.DecisionTree())
	case BoostedModel:
		return m.NumFeatures() > 0 && len(m.Stages()) > 0 && fittedAll(m.Stages())
	case ForestModel:
		return m.NumFeatures() > 0 && len(m.Estimators()) > 0 && fittedAll(m.Estimators())
	}
	return false
}

func fitted(t *tree.Tree) bool {
	return t != nil && len(t.Nodes) > 0
}

func fittedAll(trees []*tree.Tree) bool {
	for _, t := range trees {
		if !fitted(t) {
			return false
		}
	}
	return true
}

// extract resolves the model variant once, reducing every supported shape to
// the uniform descriptor the code generator operates on. Dispatch happens
// here and nowhere else in the pipeline.
func extract(model any) (*tree.Ensemble, error) {
	switch m := model.(type) {
	case *tree.Ensemble:
		return m, nil
	case TreeModel:
		return tree.SingleTree(m.DecisionTree(), m.NumFeatures()), nil
	case BoostedModel:
		return tree.Boosted(m.Stages(), m.LearningRate(), m.InitialValue(), m.NumFeatures()), nil
	case ForestModel:
		return tree.Forest(m.Estimators(), m.NumFeatures()), nil
	}
	return nil, scierr.NewNotCompilableError(fmt.Sprintf("%T", model), "unsupported model variant")
}

// Compile builds a native predictor from a fitted model.
// See CompileContext for details.
func Compile(model any, opts ...Option) (*RegressionPredictor, error) {
	return CompileContext(context.Background(), model, opts...)
}

// CompileContext builds a native predictor from a fitted model: the model is
// reduced to an ensemble descriptor, translated to C, compiled with the
// configured toolchain, and loaded. The whole pipeline is synchronous; ctx
// bounds the external compiler invocation, which otherwise has no timeout.
//
// Models for which Compilable is false are rejected with a
// NotCompilableError before any code is generated.
func CompileContext(ctx context.Context, model any, opts ...Option) (*RegressionPredictor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if !Compilable(model) {
		return nil, scierr.NewNotCompilableError(fmt.Sprintf("%T", model), "")
	}

	ens, err := extract(model)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	source, err := codegen.Generate(ens)
	if err != nil {
		return nil, err
	}

	pipeline := ccompile.NewPipeline(o.toolchain)
	pipeline.SetCache(o.cache)
	pipeline.SetKeepSource(o.keepSource)
	pipeline.SetLogger(o.logger)

	modulePath, err := pipeline.Compile(ctx, source)
	if err != nil {
		return nil, err
	}

	evaluator, err := native.Open(modulePath, codegen.EvaluateFnName, ens.NumFeatures)
	if err != nil {
		removeModuleDir(modulePath)
		return nil, err
	}

	o.logger.Info("model compiled to native predictor",
		slog.String(log.ModelNameKey, fmt.Sprintf("%T", model)),
		slog.Int(log.TreesKey, len(ens.Trees)),
		slog.Int(log.NodesKey, ens.NumNodes()),
		slog.Int(log.FeaturesKey, ens.NumFeatures),
		slog.Int64(log.DurationMsKey, time.Since(start).Milliseconds()),
	)

	return &RegressionPredictor{
		nFeatures: ens.NumFeatures,
		evaluator: evaluator,
		logger:    o.logger,
	}, nil
}
