// Package log defines standard attribute keys for engine operations.
//
// These keys follow a hierarchical naming convention (e.g., "model.name",
// "data.samples") to enable structured log analysis and filtering.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the model family, e.g. "random_forest".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "validate", "rank", "search", "baseline", "compare"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is performing the operation.
	ComponentKey = "ml.component"

	// ProblemTypeKey is "regression" or "classification".
	ProblemTypeKey = "ml.problem_type"

	// RunIDKey correlates every log line of one engine invocation.
	RunIDKey = "engine.run_id"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ColumnKey names a single dataset column.
	ColumnKey = "data.column"

	// TargetKey names the prediction target column.
	TargetKey = "data.target"
)

// Search and Scoring
const (
	SearchStrategyKey   = "search.strategy"
	SearchCandidatesKey = "search.candidates"
	SearchStateKey      = "search.state"
	CVFoldsKey          = "cv.folds"
	ScoreKey            = "metrics.score"
	MethodKey           = "importance.method"
	ConfidenceKey       = "selection.confidence"
	HyperParamsKey      = "model.hyperparams"
	RandomSeedKey       = "config.random_seed"
)

// Performance
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Error Context
const (
	ErrAttrKey    = "error"
	StacktraceKey = "error.stacktrace"
	ErrorTypeKey  = "error.type"
)

// Standard operation values.
const (
	OperationValidate = "validate"
	OperationRank     = "rank"
	OperationSearch   = "search"
	OperationBaseline = "baseline"
	OperationCompare  = "compare"
	OperationRun      = "run"
)
