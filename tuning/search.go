package tuning

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/dataset"
	"github.com/YuminosukeSato/autotune/metrics"
	"github.com/YuminosukeSato/autotune/pkg/errors"
	"github.com/YuminosukeSato/autotune/pkg/log"
	"github.com/YuminosukeSato/autotune/preprocessing"
	"github.com/YuminosukeSato/autotune/sklearn/model_selection"
)

const (
	// DefaultSeed seeds estimators, fold splitting and candidate sampling.
	DefaultSeed int64 = 42
	// FastCandidates is the sampled-search budget of StrategyFast.
	FastCandidates = 10
	// FastFolds is the fold count of StrategyFast.
	FastFolds = 3
	// ThoroughFolds is the fold count of StrategyThorough.
	ThoroughFolds = 5
	// MinFolds is the smallest usable fold count.
	MinFolds = 2
)

// CauseCancelled is the Cause of a search stopped by its context.
const CauseCancelled = "cancelled"

// Options are the caller's hints for one search. Zero values select the
// strategy defaults.
type Options struct {
	Strategy   Strategy
	Folds      int
	Candidates int
	Seed       int64
}

// DefaultOptions returns fast-strategy options with DefaultSeed.
func DefaultOptions() Options {
	return Options{Strategy: StrategyFast, Seed: DefaultSeed}
}

// Searcher runs cross-validated hyperparameter searches. It keeps no state
// between calls and may be used concurrently for different families.
type Searcher struct {
	registry *Registry
	workers  int
	logger   log.Logger
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithWorkers bounds the fold-evaluation worker pool. Zero means one worker
// per CPU core, capped.
func WithWorkers(n int) SearcherOption {
	return func(s *Searcher) { s.workers = n }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) SearcherOption {
	return func(s *Searcher) { s.logger = l }
}

// NewSearcher creates a Searcher over registry. A nil registry means
// DefaultRegistry().
func NewSearcher(registry *Registry, opts ...SearcherOption) *Searcher {
	if registry == nil {
		registry = DefaultRegistry()
	}
	s := &Searcher{registry: registry, logger: log.GetLoggerWithName("tuning")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry the searcher resolves families from.
func (s *Searcher) Registry() *Registry { return s.registry }

// Search tunes family on data. Failures are reported through a FAILED
// result instead of an error so that one family never aborts another.
func (s *Searcher) Search(ctx context.Context, family Family, pt dataset.ProblemType,
	data *preprocessing.Design, opts Options) *SearchResult {

	r := s.begin(log.OperationSearch, family, pt, opts)
	spec, space, ok := r.resolve(data)
	if !ok {
		return r.result
	}

	kind := r.kind()
	var candidates []map[string]interface{}
	switch {
	case len(space) == 0:
		candidates = []map[string]interface{}{{}}
	case kind == Exhaustive:
		candidates = model_selection.ParameterGrid(space)
	default:
		budget := opts.Candidates
		if budget <= 0 {
			budget = FastCandidates
		}
		candidates = model_selection.ParameterSampler(space, budget, opts.Seed)
	}
	return r.execute(ctx, spec, data, kind, candidates)
}

// Baseline cross-validates family with library defaults using the same
// folds Search would use for opts.
func (s *Searcher) Baseline(ctx context.Context, family Family, pt dataset.ProblemType,
	data *preprocessing.Design, opts Options) *SearchResult {

	r := s.begin(log.OperationBaseline, family, pt, opts)
	spec, _, ok := r.resolve(data)
	if !ok {
		return r.result
	}
	return r.execute(ctx, spec, data, r.kind(), []map[string]interface{}{{}})
}

// run is the mutable state of one Search or Baseline call.
type run struct {
	searcher *Searcher
	opts     Options
	status   Status
	start    time.Time
	logger   log.Logger
	result   *SearchResult
}

func (s *Searcher) begin(op string, family Family, pt dataset.ProblemType, opts Options) *run {
	if opts.Strategy == "" {
		opts.Strategy = StrategyFast
	}
	return &run{
		searcher: s,
		opts:     opts,
		status:   StatusNotStarted,
		start:    time.Now(),
		logger: s.logger.With(
			log.OperationKey, op,
			log.ModelNameKey, family.String(),
			log.ProblemTypeKey, string(pt),
		),
		result: &SearchResult{
			Family:      family,
			ProblemType: pt,
			Status:      StatusNotStarted,
			BestParams:  map[string]interface{}{},
		},
	}
}

func (r *run) transition(to Status) {
	if !canTransition(r.status, to) {
		panic(fmt.Sprintf("tuning: invalid transition %s -> %s", r.status, to))
	}
	r.logger.Debug("Search state changed", log.SearchStateKey, string(to))
	r.status = to
	r.result.Status = to
}

func (r *run) fail(cause string, err error) *SearchResult {
	r.transition(StatusFailed)
	r.result.Cause = cause
	r.result.BestParams = map[string]interface{}{}
	r.result.BestScore = 0
	r.result.CVScores = nil
	r.result.TrainedModel = nil
	r.result.Duration = time.Since(r.start)
	r.result.err = errors.NewSearchFailedError(r.result.Family.String(), cause, err)
	r.logger.Warn("Search failed", r.result.err,
		log.SearchStateKey, string(StatusFailed),
		log.DurationMsKey, r.result.Duration.Milliseconds(),
	)
	return r.result
}

func (r *run) kind() SearchKind {
	if r.opts.Strategy == StrategyThorough {
		return Exhaustive
	}
	return Sampled
}

// resolve checks the family and the training data and looks up the space.
func (r *run) resolve(data *preprocessing.Design) (FamilySpec, Space, bool) {
	family, pt := r.result.Family, r.result.ProblemType
	r.result.SearchStrategy = r.kind()

	spec, ok := r.searcher.registry.Lookup(family)
	if !ok {
		r.fail(errors.ErrUnsupportedFamily.Error(), errors.Wrapf(errors.ErrUnsupportedFamily, "%s", family))
		return FamilySpec{}, nil, false
	}
	if !spec.Supported(pt) {
		r.fail(fmt.Sprintf("%s does not support %s problems", family, pt),
			errors.Wrapf(errors.ErrUnsupportedProblem, "%s on %s", family, pt))
		return FamilySpec{}, nil, false
	}
	if cause, err := checkData(pt, data); err != nil {
		r.fail(cause, err)
		return FamilySpec{}, nil, false
	}

	space, _ := spec.ResolveSpace(pt)
	r.transition(StatusSpaceResolved)
	return spec, space, true
}

// checkData rejects training data no family can consume.
func checkData(pt dataset.ProblemType, data *preprocessing.Design) (string, error) {
	if data == nil || data.X == nil || data.Y == nil {
		return "no training data", errors.ErrEmptyData
	}
	n, _ := data.X.Dims()
	if n < MinFolds {
		return fmt.Sprintf("at least %d samples are required, got %d", MinFolds, n),
			errors.NewDimensionError("Search", MinFolds, n, 0)
	}
	target := data.Target()
	if err := errors.CheckNumericalStability("Search", target); err != nil {
		return "target contains non-finite values", err
	}
	for _, v := range target {
		if pt == dataset.Classification && v != math.Trunc(v) {
			return "target contains unsupported label types for classification",
				errors.NewValueError("Search", fmt.Sprintf("non-integer class label %v", v))
		}
	}
	if pt == dataset.Classification && len(classCounts(target)) < 2 {
		return "classification requires at least 2 classes", errors.NewValueError("Search", "single class target")
	}
	return "", nil
}

// foldCount applies the strategy default and shrinks the count to what the
// data can support.
func (r *run) foldCount(pt dataset.ProblemType, y []float64) int {
	k := r.opts.Folds
	if k <= 0 {
		k = FastFolds
		if r.opts.Strategy == StrategyThorough {
			k = ThoroughFolds
		}
	}
	if k < MinFolds {
		k = MinFolds
	}
	if pt == dataset.Classification {
		smallest := len(y)
		for _, c := range classCounts(y) {
			if c < smallest {
				smallest = c
			}
		}
		if smallest >= MinFolds && smallest < k {
			k = smallest
		}
	}
	if k > len(y) {
		k = len(y)
	}
	return k
}

func classCounts(y []float64) map[float64]int {
	counts := make(map[float64]int)
	for _, v := range y {
		counts[v]++
	}
	return counts
}

func (r *run) splitter(pt dataset.ProblemType, k int) model_selection.Splitter {
	if pt == dataset.Classification {
		return model_selection.NewStratifiedKFold(k, true, r.opts.Seed)
	}
	return model_selection.NewKFold(k, true, r.opts.Seed)
}

func scorerFor(pt dataset.ProblemType) metrics.Scorer {
	if pt == dataset.Classification {
		return metrics.AccuracyScorer
	}
	return metrics.R2Scorer
}

// factory builds estimators for one candidate.
func factory(spec FamilySpec, pt dataset.ProblemType, seed int64, params map[string]interface{}) model_selection.EstimatorFactory {
	return func() (model.Estimator, error) {
		est, err := spec.New(pt, seed)
		if err != nil {
			return nil, err
		}
		if len(params) == 0 {
			return est, nil
		}
		setter, ok := est.(model.ParamSetter)
		if !ok {
			return nil, errors.NewValueError(spec.Family.String(), "estimator does not accept hyperparameters")
		}
		if err := setter.SetParams(copyParams(params)); err != nil {
			return nil, err
		}
		return est, nil
	}
}

func copyParams(params map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

// execute cross-validates every candidate in order, keeps the first one
// with the highest mean score and refits it on all rows.
func (r *run) execute(ctx context.Context, spec FamilySpec, data *preprocessing.Design,
	kind SearchKind, candidates []map[string]interface{}) *SearchResult {

	pt := r.result.ProblemType
	k := r.foldCount(pt, data.Target())
	splitter := r.splitter(pt, k)
	scorer := scorerFor(pt)

	r.result.SearchStrategy = kind
	r.result.CVFoldCount = k
	r.transition(StatusSearching)
	r.logger.Debug("Search started",
		log.SearchStrategyKey, string(kind),
		log.SearchCandidatesKey, len(candidates),
		log.CVFoldsKey, k,
	)

	best := -1
	var bestCV *model_selection.CVResult
	var firstErr error
	evaluated := 0
	for i, params := range candidates {
		if err := ctx.Err(); err != nil {
			return r.fail(CauseCancelled, errors.Wrap(errors.ErrCancelled, err.Error()))
		}
		evaluated++
		cv, err := model_selection.CrossValScore(ctx, factory(spec, pt, r.opts.Seed, params),
			data.X, data.Y, splitter, scorer, r.searcher.workers)
		if err != nil {
			if ctx.Err() != nil {
				return r.fail(CauseCancelled, errors.Wrap(errors.ErrCancelled, err.Error()))
			}
			if firstErr == nil {
				firstErr = err
			}
			r.logger.Debug("Candidate failed", err, log.HyperParamsKey, params)
			continue
		}
		mean := cv.GetMeanScore()
		if err := errors.CheckScalar(spec.Family.String(), mean); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			r.logger.Debug("Candidate failed", err, log.HyperParamsKey, params)
			continue
		}
		r.logger.Debug("Candidate evaluated", log.HyperParamsKey, params, log.ScoreKey, mean)
		if best < 0 || mean > bestCV.GetMeanScore() {
			best, bestCV = i, cv
		}
	}
	r.result.CandidatesEvaluated = evaluated

	if best < 0 {
		if firstErr == nil {
			firstErr = errors.NewValueError(spec.Family.String(), "no candidate produced a finite score")
		}
		return r.fail(fmt.Sprintf("all %d candidates failed: %v", evaluated, firstErr), firstErr)
	}

	est, err := factory(spec, pt, r.opts.Seed, candidates[best])()
	if err == nil {
		err = errors.SafeExecute("refit "+spec.Family.String(), func() error {
			return est.Fit(data.X, data.Y)
		})
	}
	if err != nil {
		return r.fail(fmt.Sprintf("refit on full data failed: %v", err), err)
	}

	r.result.BestParams = copyParams(candidates[best])
	r.result.BestScore = bestCV.GetMeanScore()
	r.result.CVScores = append([]float64(nil), bestCV.TestScores...)
	r.result.TrainedModel = est
	r.result.Duration = time.Since(r.start)
	r.transition(StatusDone)

	r.logger.Info("Search finished",
		log.SearchStrategyKey, string(kind),
		log.SearchCandidatesKey, evaluated,
		log.CVFoldsKey, k,
		log.ScoreKey, r.result.BestScore,
		log.HyperParamsKey, r.result.BestParams,
		log.DurationMsKey, r.result.Duration.Milliseconds(),
	)
	return r.result
}
