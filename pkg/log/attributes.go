// Package log defines standard attribute keys for the compile-and-predict
// pipeline. Using these keys consistently across the build stages (extraction,
// code generation, native compilation, loading, prediction) enables structured
// log analysis and filtering.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the type of model being compiled.
	// Examples: "DecisionTreeRegressor", "GradientBoostingRegressor"
	ModelNameKey = "model.name"

	// OperationKey specifies the pipeline operation being performed.
	// Standard values: "compile", "codegen", "load", "predict", "persist", "restore"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "codegen", "ccompile", "native"
	ComponentKey = "ml.component"
)

// Data shape and model structure.
const (
	// SamplesKey indicates the number of samples (rows) in a predict batch.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features the model expects.
	FeaturesKey = "data.features"

	// TreesKey indicates the number of trees in the compiled ensemble.
	TreesKey = "model.trees"

	// NodesKey indicates the total node count across the ensemble.
	NodesKey = "model.nodes"
)

// Toolchain and artifact context.
const (
	// CompilerKey records the native compiler command used for the build.
	CompilerKey = "cc.compiler"

	// SourceBytesKey records the size of the generated source text.
	SourceBytesKey = "cc.source_bytes"

	// ModulePathKey records the filesystem path of the loadable module.
	ModulePathKey = "cc.module_path"

	// CacheHitKey records whether a compile request was served from the cache.
	CacheHitKey = "cc.cache_hit"
)

// Performance metrics.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)
