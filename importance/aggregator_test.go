package importance

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/autotune/dataset"
	"github.com/YuminosukeSato/autotune/pkg/errors"
	"github.com/YuminosukeSato/autotune/pkg/log"
)

func seq(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

// scenarioB: target sqft (integers 1000..2980), candidate features id,
// sqft_sq (= sqft², all unique integers) and noise.
func scenarioB(t *testing.T) *dataset.Dataset {
	t.Helper()
	rng := rand.New(rand.NewPCG(11, 13))
	sqft := seq(100, func(i int) float64 { return 1000 + float64(i)*20 })
	ds, err := dataset.New(
		dataset.NewNumeric("id", seq(100, func(i int) float64 { return float64(i) })),
		dataset.NewNumeric("sqft", sqft),
		dataset.NewNumeric("sqft_sq", seq(100, func(i int) float64 { return sqft[i] * sqft[i] })),
		dataset.NewNumeric("noise", seq(100, func(int) float64 { return rng.Float64() })),
	)
	require.NoError(t, err)
	return ds
}

func fastAggregator(opts ...Option) *Aggregator {
	return NewAggregator(append([]Option{WithTrees(20), WithLogger(log.NewNopLogger())}, opts...)...)
}

func TestRankPrefersSquaredOverNoise(t *testing.T) {
	ranking, err := fastAggregator().RankDetailed(scenarioB(t), "sqft")
	require.NoError(t, err)

	assert.Equal(t, dataset.Regression, ranking.ProblemType)
	assert.Equal(t, []string{"sqft_sq", "noise"}, ranking.Features())
	assert.Equal(t, []string{"id"}, ranking.Excluded)
	assert.Empty(t, ranking.Failures)

	top, ok := ranking.Lookup("sqft_sq")
	require.True(t, ok)
	assert.Greater(t, top.CorrScore, 0.9)
	assert.Contains(t, top.Explanation, "strong correlation")
}

func TestCombinedScoreInvariant(t *testing.T) {
	scores, err := fastAggregator().Rank(scenarioB(t), "sqft")
	require.NoError(t, err)
	for _, s := range scores {
		want := 0.4*s.RFScore + 0.4*s.MIScore + 0.2*s.CorrScore
		assert.InDelta(t, want, s.CombinedScore, 1e-12, s.Feature)
		assert.GreaterOrEqual(t, s.RFScore, 0.0)
		assert.GreaterOrEqual(t, s.MIScore, 0.0)
		assert.GreaterOrEqual(t, s.CorrScore, 0.0)
	}
}

func TestRankIdempotent(t *testing.T) {
	ds := scenarioB(t)
	agg := fastAggregator()
	first, err := agg.Rank(ds, "sqft")
	require.NoError(t, err)
	second, err := agg.Rank(ds, "sqft")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRankClassification(t *testing.T) {
	n := 60
	rng := rand.New(rand.NewPCG(5, 6))
	labels := seq(n, func(i int) float64 { return float64(i % 3) })
	colors := make([]string, n)
	for i := range colors {
		colors[i] = []string{"red", "green", "blue"}[i%3]
	}
	ds := dataset.MustNew(
		dataset.NewNumeric("label", labels),
		dataset.NewCategorical("color", colors),
		dataset.NewNumeric("noise", seq(n, func(int) float64 { return rng.Float64() })),
	)

	ranking, err := fastAggregator().RankDetailed(ds, "label")
	require.NoError(t, err)
	assert.Equal(t, dataset.Classification, ranking.ProblemType)
	assert.Equal(t, "color", ranking.Scores[0].Feature)

	color, _ := ranking.Lookup("color")
	// カテゴリ列は相関を持たない
	assert.Equal(t, 0.0, color.CorrScore)
	assert.Greater(t, color.RFScore, 0.5)
}

func TestMethodFailureIsFoldedToZero(t *testing.T) {
	// 3行では k=3 の相互情報量推定ができない
	ds := dataset.MustNew(
		dataset.NewNumeric("y", []float64{1.5, 2.5, 4.5}),
		dataset.NewNumeric("x", []float64{0.1, 0.2, 0.4}),
	)
	logger, _ := log.NewTestLogger(log.LevelDebug)
	ranking, err := NewAggregator(WithTrees(5), WithLogger(logger)).RankDetailed(ds, "y")
	require.NoError(t, err)

	require.Contains(t, ranking.Failures, MethodMutualInfo)
	require.Len(t, ranking.Scores, 1)
	s := ranking.Scores[0]
	assert.Equal(t, 0.0, s.MIScore)
	assert.InDelta(t, 0.4*s.RFScore+0.2*s.CorrScore, s.CombinedScore, 1e-12)
	assert.True(t, logger.ContainsMessage("Importance method failed"))
}

func TestRankErrors(t *testing.T) {
	ds := scenarioB(t)

	_, err := Rank(ds, "missing")
	assert.True(t, errors.Is(err, errors.ErrColumnNotFound))

	withText := dataset.MustNew(
		dataset.NewCategorical("kind", []string{"a", "b"}),
		dataset.NewNumeric("x", []float64{1, 2}),
	)
	_, err = Rank(withText, "kind")
	assert.Error(t, err)

	empty := dataset.MustNew()
	_, err = Rank(empty, "x")
	assert.True(t, errors.Is(err, errors.ErrEmptyDataset))
}

func TestRankNoFeatures(t *testing.T) {
	ds := dataset.MustNew(
		dataset.NewNumeric("y", []float64{1.5, 2.5, 3.5}),
		dataset.NewNumeric("row_id", []float64{1, 2, 3}),
	)
	ranking, err := fastAggregator().RankDetailed(ds, "y")
	require.NoError(t, err)
	assert.Empty(t, ranking.Scores)
	assert.Equal(t, []string{"row_id"}, ranking.Excluded)
}

func TestExplain(t *testing.T) {
	tests := []struct {
		name  string
		score FeatureScore
		want  string
	}{
		{"fallback", FeatureScore{}, "contributes to predicting price"},
		{"strong corr", FeatureScore{CorrScore: 0.8}, "strong correlation"},
		{"moderate corr", FeatureScore{CorrScore: 0.5}, "moderate correlation"},
		{"threshold is exclusive", FeatureScore{CorrScore: 0.4, RFScore: 0.05, MIScore: 0.1}, "contributes to predicting price"},
		{"rf high", FeatureScore{RFScore: 0.2}, "high importance in decision-tree models"},
		{"rf moderate", FeatureScore{RFScore: 0.07}, "moderate importance"},
		{"all", FeatureScore{CorrScore: 0.9, RFScore: 0.3, MIScore: 0.5},
			"strong correlation and high importance in decision-tree models and shares significant information with the target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Explain(tt.score, "price"))
		})
	}
}

func TestMethodResultScore(t *testing.T) {
	ok := MethodResult{Method: MethodCorrelation, Scores: map[string]float64{"a": 0.5}}
	assert.Equal(t, 0.5, ok.Score("a"))
	assert.Equal(t, 0.0, ok.Score("b"))

	failed := MethodResult{Method: MethodMutualInfo, Scores: map[string]float64{"a": 0.5}, Err: errors.New("x")}
	assert.Equal(t, 0.0, failed.Score("a"))
	assert.False(t, math.IsNaN(Combine(0, 0, 0)))
}
