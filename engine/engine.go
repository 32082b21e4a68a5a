// Package engine runs the full decision flow: validate the requested
// selection, rank features, tune every requested model family and compare
// the results.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/autotune/comparison"
	"github.com/YuminosukeSato/autotune/core/parallel"
	"github.com/YuminosukeSato/autotune/dataset"
	"github.com/YuminosukeSato/autotune/importance"
	"github.com/YuminosukeSato/autotune/pkg/errors"
	"github.com/YuminosukeSato/autotune/pkg/log"
	"github.com/YuminosukeSato/autotune/preprocessing"
	"github.com/YuminosukeSato/autotune/profile"
	"github.com/YuminosukeSato/autotune/selection"
	"github.com/YuminosukeSato/autotune/tuning"
)

// Request is one engine invocation.
type Request struct {
	Target   string
	Features []string
	// Families to tune; empty means every registered family that supports
	// the detected problem type.
	Families   []tuning.Family
	Strategy   tuning.Strategy
	Folds      int
	Candidates int
}

// Decision is everything one run produced. It is never mutated after Run
// returns.
type Decision struct {
	RunID       string                 `json:"run_id" yaml:"run_id"`
	ProblemType dataset.ProblemType    `json:"problem_type,omitempty" yaml:"problem_type,omitempty"`
	Selection   selection.Result       `json:"selection" yaml:"selection"`
	Ranking     *importance.Ranking    `json:"ranking,omitempty" yaml:"ranking,omitempty"`
	Features    []string               `json:"features" yaml:"features"`
	Results     []*tuning.SearchResult `json:"results" yaml:"results"`
	Baselines   []*tuning.SearchResult `json:"baselines" yaml:"baselines"`
	Report      *comparison.Report     `json:"report" yaml:"report"`
	Duration    time.Duration          `json:"duration_ns" yaml:"duration_ns"`
}

// Best returns the report entry and the tuned result of the best family.
func (d *Decision) Best() (comparison.Entry, *tuning.SearchResult, bool) {
	entry, ok := d.Report.Best()
	if !ok {
		return comparison.Entry{}, nil, false
	}
	for _, r := range d.Results {
		if r.Family == entry.Family {
			return entry, r, true
		}
	}
	return comparison.Entry{}, nil, false
}

// Engine wires the components together. It holds no per-run state and may
// be shared between goroutines.
type Engine struct {
	registry *tuning.Registry

	seed             int64
	workers          int
	maxFeatures      int
	trees            int
	maxDepth         int
	neighbors        int
	parallelFamilies bool
	logger           log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSeed seeds importance estimation, fold splitting and sampling.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithWorkers bounds every worker pool of a run.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithMaxFeatures caps the number of recommended features.
func WithMaxFeatures(n int) Option {
	return func(e *Engine) { e.maxFeatures = n }
}

// WithImportance configures the importance forest and MI estimator.
func WithImportance(trees, maxDepth, neighbors int) Option {
	return func(e *Engine) {
		e.trees, e.maxDepth, e.neighbors = trees, maxDepth, neighbors
	}
}

// WithParallelFamilies searches families concurrently.
func WithParallelFamilies(enabled bool) Option {
	return func(e *Engine) { e.parallelFamilies = enabled }
}

// WithLogger sets the logger handed to every component.
func WithLogger(l log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine. A nil registry means tuning.DefaultRegistry().
func New(registry *tuning.Registry, opts ...Option) *Engine {
	if registry == nil {
		registry = tuning.DefaultRegistry()
	}
	e := &Engine{
		registry:  registry,
		seed:      tuning.DefaultSeed,
		trees:     importance.DefaultTrees,
		maxDepth:  importance.DefaultMaxDepth,
		neighbors: importance.DefaultNeighbors,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.GetLoggerWithName("engine")
	}
	return e
}

// Run executes validate, rank, search and compare. Only an empty dataset is
// an error; every other problem is reported inside the Decision.
func (e *Engine) Run(ctx context.Context, ds *dataset.Dataset, req Request) (*Decision, error) {
	start := time.Now()
	if ds.IsEmpty() {
		return nil, errors.WithStack(errors.ErrEmptyDataset)
	}

	d := &Decision{RunID: uuid.NewString(), Features: []string{}}
	logger := e.logger.With(log.RunIDKey, d.RunID)
	profiler := profile.NewProfiler(ds)

	validator := selection.NewValidator(
		selection.WithMaxFeatures(e.maxFeatures),
		selection.WithProfiler(profiler),
		selection.WithLogger(logger),
	)
	d.Selection = validator.Validate(ds, req.Target, req.Features)
	if !d.Selection.HasTarget() {
		logger.Warn("No usable target", log.TargetKey, req.Target)
		return e.finish(d, logger, start), nil
	}
	target := d.Selection.SuggestedTarget

	aggregator := importance.NewAggregator(
		importance.WithTrees(e.trees),
		importance.WithMaxDepth(e.maxDepth),
		importance.WithNeighbors(e.neighbors),
		importance.WithSeed(e.seed),
		importance.WithWorkers(e.workers),
		importance.WithProfiler(profiler),
		importance.WithLogger(logger),
	)
	ranking, err := aggregator.RankDetailed(ds, target)
	if err != nil {
		logger.Warn("Feature ranking failed", err, log.TargetKey, target)
	}
	d.Ranking = ranking

	d.ProblemType = problemType(ds, target, ranking)
	d.Features = FilterFeatures(d.Selection.SuggestedFeatures, ranking)

	families := req.Families
	if len(families) == 0 {
		families = e.registry.FamiliesFor(d.ProblemType)
	}

	design, derr := preprocessing.BuildDesign(ds, target, d.Features)
	if derr != nil {
		logger.Warn("Design matrix could not be built", derr, log.FeaturesKey, len(d.Features))
	}
	d.Results, d.Baselines = e.searchAll(ctx, families, d.ProblemType, design, derr, req, logger)
	return e.finish(d, logger, start), nil
}

func (e *Engine) finish(d *Decision, logger log.Logger, start time.Time) *Decision {
	d.Report = comparison.Compare(d.Results, d.Baselines)
	d.Duration = time.Since(start)
	fields := []any{
		log.OperationKey, log.OperationRun,
		log.DurationMsKey, d.Duration.Milliseconds(),
	}
	if best, ok := d.Report.Best(); ok {
		fields = append(fields, log.ModelNameKey, best.Family.String(), log.ScoreKey, best.OptimizedScore)
	}
	logger.Info("Run finished", fields...)
	return d
}

func problemType(ds *dataset.Dataset, target string, ranking *importance.Ranking) dataset.ProblemType {
	if ranking != nil && ranking.ProblemType.Valid() {
		return ranking.ProblemType
	}
	col, ok := ds.Column(target)
	if !ok || !col.IsNumeric() {
		return dataset.Regression
	}
	return dataset.DetectProblemType(col.Floats())
}

// FilterFeatures keeps the accepted features whose combined score is
// positive, in accepted order. When ranking is nil or the filter would drop
// everything, all accepted features are kept.
func FilterFeatures(accepted []string, ranking *importance.Ranking) []string {
	if ranking == nil {
		return append([]string{}, accepted...)
	}
	var kept []string
	for _, f := range accepted {
		if s, ok := ranking.Lookup(f); ok && s.CombinedScore > 0 {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return append([]string{}, accepted...)
	}
	return kept
}

// searchAll runs a baseline and a search per family. Results keep the order
// of families.
func (e *Engine) searchAll(ctx context.Context, families []tuning.Family, pt dataset.ProblemType,
	design *preprocessing.Design, derr error, req Request, logger log.Logger) ([]*tuning.SearchResult, []*tuning.SearchResult) {

	results := make([]*tuning.SearchResult, len(families))
	baselines := make([]*tuning.SearchResult, len(families))
	if derr != nil {
		for i, f := range families {
			results[i] = tuning.NewFailedResult(f, pt, "training data could not be encoded: "+derr.Error(), derr)
			baselines[i] = tuning.NewFailedResult(f, pt, results[i].Cause, derr)
		}
		return results, baselines
	}

	searcher := tuning.NewSearcher(e.registry, tuning.WithWorkers(e.workers), tuning.WithLogger(logger))
	opts := tuning.Options{
		Strategy:   req.Strategy,
		Folds:      req.Folds,
		Candidates: req.Candidates,
		Seed:       e.seed,
	}
	one := func(ctx context.Context, i int) error {
		baselines[i] = searcher.Baseline(ctx, families[i], pt, design, opts)
		results[i] = searcher.Search(ctx, families[i], pt, design, opts)
		return nil
	}

	if e.parallelFamilies {
		// 失敗は結果に含まれるため、ここで返るのはキャンセルのみ
		_ = parallel.ForEach(ctx, len(families), e.workers, one)
	} else {
		for i := range families {
			_ = one(ctx, i)
		}
	}

	// キャンセルで開始されなかったファミリー
	for i, f := range families {
		if results[i] == nil {
			results[i] = tuning.NewFailedResult(f, pt, tuning.CauseCancelled, errors.ErrCancelled)
		}
		if baselines[i] == nil {
			baselines[i] = tuning.NewFailedResult(f, pt, tuning.CauseCancelled, errors.ErrCancelled)
		}
	}
	return results, baselines
}
