package importance

import (
	"math"
	"sort"
	"time"

	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/dataset"
	"github.com/YuminosukeSato/autotune/pkg/errors"
	"github.com/YuminosukeSato/autotune/pkg/log"
	"github.com/YuminosukeSato/autotune/preprocessing"
	"github.com/YuminosukeSato/autotune/profile"
	"github.com/YuminosukeSato/autotune/sklearn/ensemble"
	"github.com/YuminosukeSato/autotune/sklearn/feature_selection"
)

// Defaults of the importance model and the MI estimator.
const (
	DefaultTrees     = 100
	DefaultMaxDepth  = 10
	DefaultNeighbors = 3
	DefaultSeed      = 42
)

// Aggregator computes FeatureScores. It is safe for concurrent use.
type Aggregator struct {
	trees     int
	maxDepth  int
	neighbors int
	seed      int64
	workers   int
	profiler  *profile.Profiler
	logger    log.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTrees sets the number of trees of the importance forest.
func WithTrees(n int) Option {
	return func(a *Aggregator) { a.trees = n }
}

// WithMaxDepth caps the depth of the importance forest.
func WithMaxDepth(d int) Option {
	return func(a *Aggregator) { a.maxDepth = d }
}

// WithNeighbors sets k of the mutual information estimator.
func WithNeighbors(k int) Option {
	return func(a *Aggregator) { a.neighbors = k }
}

// WithSeed seeds both the forest and the MI noise.
func WithSeed(seed int64) Option {
	return func(a *Aggregator) { a.seed = seed }
}

// WithWorkers bounds the goroutines used to grow trees and estimate MI.
func WithWorkers(n int) Option {
	return func(a *Aggregator) { a.workers = n }
}

// WithProfiler shares a profile cache. It is used only for its own dataset.
func WithProfiler(p *profile.Profiler) Option {
	return func(a *Aggregator) { a.profiler = p }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// NewAggregator creates an Aggregator with 100 trees of depth 10, k = 3
// and seed 42.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		trees:     DefaultTrees,
		maxDepth:  DefaultMaxDepth,
		neighbors: DefaultNeighbors,
		seed:      DefaultSeed,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = log.GetLoggerWithName("importance")
	}
	return a
}

// Rank ranks every usable column of ds against target with default options.
func Rank(ds *dataset.Dataset, target string) ([]FeatureScore, error) {
	return NewAggregator().Rank(ds, target)
}

// Rank returns the feature scores sorted by descending combined score.
func (a *Aggregator) Rank(ds *dataset.Dataset, target string) ([]FeatureScore, error) {
	r, err := a.RankDetailed(ds, target)
	if err != nil {
		return nil, err
	}
	return r.Scores, nil
}

// RankDetailed ranks all columns except target and identifier-like keys.
// A failing method scores 0 for every feature and is reported in
// Ranking.Failures; only structural problems with ds or target are errors.
func (a *Aggregator) RankDetailed(ds *dataset.Dataset, target string) (*Ranking, error) {
	start := time.Now()
	if ds.IsEmpty() {
		return nil, errors.WithStack(errors.ErrEmptyDataset)
	}
	profiler := a.profiler
	if profiler == nil || profiler.Dataset() != ds {
		profiler = profile.NewProfiler(ds)
	}
	tp, err := profiler.Profile(target)
	if err != nil {
		return nil, err
	}
	if !tp.IsNumeric {
		return nil, errors.NewValueError("importance.Rank", "target "+target+" is not numeric")
	}

	tcol, _ := ds.Column(target)
	ranking := &Ranking{
		Target:      target,
		ProblemType: dataset.DetectProblemType(tcol.Floats()),
	}

	var features []string
	for _, cp := range profiler.All() {
		if cp.Name == target {
			continue
		}
		if cp.IsIdentifierLike {
			ranking.Excluded = append(ranking.Excluded, cp.Name)
			continue
		}
		features = append(features, cp.Name)
	}
	logger := a.logger.With(log.OperationKey, log.OperationRank, log.TargetKey, target)
	if len(features) == 0 {
		logger.Info("No rankable features")
		return ranking, nil
	}

	// 欠損した目的変数の行を落とし、カテゴリ列を one-hot 展開する
	design, derr := preprocessing.BuildDesign(ds, target, features)
	results := []MethodResult{
		a.forestImportance(design, derr, features, ranking.ProblemType),
		a.mutualInformation(design, derr, features, ranking.ProblemType),
		a.correlation(ds, target, features),
	}
	for _, res := range results {
		if res.Err != nil {
			if ranking.Failures == nil {
				ranking.Failures = make(map[Method]string)
			}
			ranking.Failures[res.Method] = res.Err.Error()
			logger.Warn("Importance method failed", log.MethodKey, string(res.Method), log.ErrAttrKey, res.Err)
		}
	}

	ranking.Scores = fold(features, target, results)
	logger.Info("Features ranked",
		log.ProblemTypeKey, string(ranking.ProblemType),
		log.FeaturesKey, len(features),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return ranking, nil
}

// fold combines the method results. Features are visited in declaration
// order and sorted stably so that ties keep that order.
func fold(features []string, target string, results []MethodResult) []FeatureScore {
	byMethod := make(map[Method]MethodResult, len(results))
	for _, r := range results {
		byMethod[r.Method] = r
	}
	scores := make([]FeatureScore, len(features))
	for i, f := range features {
		s := FeatureScore{
			Feature:   f,
			RFScore:   byMethod[MethodRandomForest].Score(f),
			MIScore:   byMethod[MethodMutualInfo].Score(f),
			CorrScore: byMethod[MethodCorrelation].Score(f),
		}
		s.CombinedScore = Combine(s.RFScore, s.MIScore, s.CorrScore)
		s.Explanation = Explain(s, target)
		scores[i] = s
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].CombinedScore > scores[j].CombinedScore
	})
	return scores
}

func (a *Aggregator) forestImportance(design *preprocessing.Design, derr error, features []string, pt dataset.ProblemType) MethodResult {
	res := MethodResult{Method: MethodRandomForest}
	scores, err := errors.SafeCall("importance.random_forest", func() ([]float64, error) {
		if derr != nil {
			return nil, derr
		}
		opts := []ensemble.Option{
			ensemble.WithNEstimators(a.trees),
			ensemble.WithMaxDepth(a.maxDepth),
			ensemble.WithRandomState(a.seed),
			ensemble.WithNJobs(a.workers),
		}
		var forest interface {
			model.Estimator
			model.FeatureImporter
		}
		if pt == dataset.Classification {
			forest = ensemble.NewRandomForestClassifier(opts...)
		} else {
			forest = ensemble.NewRandomForestRegressor(opts...)
		}
		if err := forest.Fit(design.X, design.Y); err != nil {
			return nil, err
		}
		imp, err := forest.FeatureImportances()
		if err != nil {
			return nil, err
		}
		return design.Aggregate(imp), nil
	})
	if err != nil {
		res.Err = errors.NewComputationError(string(MethodRandomForest), "", err)
		return res
	}
	res.Scores = toMap(features, scores)
	return res
}

func (a *Aggregator) mutualInformation(design *preprocessing.Design, derr error, features []string, pt dataset.ProblemType) MethodResult {
	res := MethodResult{Method: MethodMutualInfo}
	scores, err := errors.SafeCall("importance.mutual_info", func() ([]float64, error) {
		if derr != nil {
			return nil, derr
		}
		var err error
		opts := []feature_selection.Option{
			feature_selection.WithNNeighbors(a.neighbors),
			feature_selection.WithRandomState(a.seed),
			feature_selection.WithNJobs(a.workers),
		}
		var mi []float64
		if pt == dataset.Classification {
			mi, err = feature_selection.MutualInfoClassif(design.X, design.Target(), opts...)
		} else {
			mi, err = feature_selection.MutualInfoRegression(design.X, design.Target(), opts...)
		}
		if err != nil {
			return nil, err
		}
		return design.Aggregate(mi), nil
	})
	if err != nil {
		res.Err = errors.NewComputationError(string(MethodMutualInfo), "", err)
		return res
	}
	res.Scores = toMap(features, scores)
	return res
}

// correlation scores numeric features by |Pearson r|; other types score 0.
func (a *Aggregator) correlation(ds *dataset.Dataset, target string, features []string) MethodResult {
	res := MethodResult{Method: MethodCorrelation, Scores: make(map[string]float64, len(features))}
	for _, f := range features {
		res.Scores[f] = math.Abs(profile.Correlation(ds, f, target))
	}
	return res
}

func toMap(features []string, scores []float64) map[string]float64 {
	out := make(map[string]float64, len(features))
	for i, f := range features {
		out[f] = errors.FiniteOrZero(scores[i])
	}
	return out
}

