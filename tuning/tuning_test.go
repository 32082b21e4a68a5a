package tuning

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/dataset"
	"github.com/YuminosukeSato/autotune/pkg/errors"
	"github.com/YuminosukeSato/autotune/pkg/log"
	"github.com/YuminosukeSato/autotune/preprocessing"
	"github.com/YuminosukeSato/autotune/sklearn/model_selection"
)

func init() {
	errors.SetWarningHandler(func(error) {})
}

func regressionDesign(t *testing.T, n int) *preprocessing.Design {
	t.Helper()
	x1 := make([]float64, n)
	x2 := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x1[i] = float64(i) * 0.5
		x2[i] = math.Sin(float64(i))
		y[i] = 2*x1[i] + x2[i] + 1
	}
	ds := dataset.MustNew(
		dataset.NewNumeric("x1", x1),
		dataset.NewNumeric("x2", x2),
		dataset.NewNumeric("y", y),
	)
	design, err := preprocessing.BuildDesign(ds, "y", []string{"x1", "x2"})
	require.NoError(t, err)
	return design
}

// classificationDesign は3クラスの分離しやすいデータを作る
func classificationDesign(t *testing.T, perClass int) *preprocessing.Design {
	t.Helper()
	var a, b, label []float64
	centers := [][2]float64{{0, 0}, {6, 6}, {0, 8}}
	for c, center := range centers {
		for i := 0; i < perClass; i++ {
			a = append(a, center[0]+0.3*math.Sin(float64(i)))
			b = append(b, center[1]+0.3*math.Cos(float64(i)))
			label = append(label, float64(c))
		}
	}
	ds := dataset.MustNew(
		dataset.NewNumeric("a", a),
		dataset.NewNumeric("b", b),
		dataset.NewNumeric("label", label),
	)
	design, err := preprocessing.BuildDesign(ds, "label", []string{"a", "b"})
	require.NoError(t, err)
	return design
}

func newTestSearcher(opts ...SearcherOption) *Searcher {
	opts = append([]SearcherOption{WithLogger(log.NewNopLogger())}, opts...)
	return NewSearcher(DefaultRegistry(), opts...)
}

// assertParamsWithinSpace は best_params のキーと値が探索空間に含まれることを確認する
func assertParamsWithinSpace(t *testing.T, res *SearchResult, space Space) {
	t.Helper()
	for key, value := range res.BestParams {
		candidates, ok := space[key]
		require.True(t, ok, "unexpected parameter %q", key)
		assert.Contains(t, candidates, value, "value of %q", key)
	}
}

func TestParseFamily(t *testing.T) {
	tests := []struct {
		in      string
		want    Family
		wantErr bool
	}{
		{"random_forest", RandomForest, false},
		{"  KNN ", KNN, false},
		{"linear_regression", LinearRegression, false},
		{"logistic_regression", LogisticRegression, false},
		{"xgboost", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFamily(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrUnsupportedFamily))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	text, err := RandomForest.MarshalText()
	require.NoError(t, err)
	var f Family
	require.NoError(t, f.UnmarshalText(text))
	assert.Equal(t, RandomForest, f)
	assert.Equal(t, "unknown", Family(99).String())
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, AllFamilies(), r.Families())
	assert.Equal(t,
		[]Family{LinearRegression, Ridge, DecisionTree, RandomForest, KNN},
		r.FamiliesFor(dataset.Regression))
	assert.Equal(t,
		[]Family{LogisticRegression, DecisionTree, RandomForest, KNN},
		r.FamiliesFor(dataset.Classification))

	t.Run("resolve space", func(t *testing.T) {
		tree, ok := r.Lookup(DecisionTree)
		require.True(t, ok)
		cls, ok := tree.ResolveSpace(dataset.Classification)
		require.True(t, ok)
		assert.Contains(t, cls, "criterion")
		reg, ok := tree.ResolveSpace(dataset.Regression)
		require.True(t, ok)
		assert.NotContains(t, reg, "criterion")

		linear, _ := r.Lookup(LinearRegression)
		space, ok := linear.ResolveSpace(dataset.Regression)
		assert.False(t, ok)
		assert.Empty(t, space)
	})

	t.Run("custom family replaces default", func(t *testing.T) {
		knn, _ := r.Lookup(KNN)
		knn.Fallback = Space{"n_neighbors": {1}}
		custom := DefaultRegistry(WithFamily(knn))
		got, _ := custom.Lookup(KNN)
		assert.Equal(t, Space{"n_neighbors": {1}}, got.Fallback)
		assert.Len(t, custom.Families(), len(AllFamilies()))

		orig, _ := r.Lookup(KNN)
		assert.Len(t, orig.Fallback["n_neighbors"], 5)
	})

	t.Run("invalid specs", func(t *testing.T) {
		_, err := NewRegistry(FamilySpec{Family: Family(42)})
		assert.True(t, errors.Is(err, errors.ErrUnsupportedFamily))

		_, err = NewRegistry(FamilySpec{Family: Ridge, Supports: regressionOnly})
		var valErr *errors.ValidationError
		assert.True(t, errors.As(err, &valErr))
	})
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, canTransition(StatusNotStarted, StatusSpaceResolved))
	assert.True(t, canTransition(StatusSpaceResolved, StatusSearching))
	assert.True(t, canTransition(StatusSearching, StatusDone))
	assert.True(t, canTransition(StatusNotStarted, StatusFailed))
	assert.True(t, canTransition(StatusSearching, StatusFailed))
	assert.False(t, canTransition(StatusNotStarted, StatusSearching))
	assert.False(t, canTransition(StatusDone, StatusFailed))
	assert.False(t, canTransition(StatusFailed, StatusDone))
}

func TestFastRandomForestRegression(t *testing.T) {
	design := regressionDesign(t, 40)
	s := newTestSearcher()

	res := s.Search(context.Background(), RandomForest, dataset.Regression, design, DefaultOptions())
	require.NoError(t, res.Err())
	assert.Equal(t, StatusDone, res.Status)
	assert.Equal(t, Sampled, res.SearchStrategy)
	assert.LessOrEqual(t, res.CandidatesEvaluated, 10)
	assert.Contains(t, []int{2, 3}, res.CVFoldCount)
	assert.Len(t, res.CVScores, res.CVFoldCount)
	assert.Greater(t, res.BestScore, 0.5)
	require.NotNil(t, res.TrainedModel)

	spec, _ := s.Registry().Lookup(RandomForest)
	space, _ := spec.ResolveSpace(dataset.Regression)
	assertParamsWithinSpace(t, res, space)

	pred, err := res.TrainedModel.Predict(design.X)
	require.NoError(t, err)
	rows, _ := pred.Dims()
	assert.Equal(t, 40, rows)
}

func TestEmptySpaceEvaluatesDefaultsOnce(t *testing.T) {
	design := regressionDesign(t, 30)
	res := newTestSearcher().Search(context.Background(), LinearRegression, dataset.Regression,
		design, Options{Strategy: StrategyThorough, Seed: DefaultSeed})

	require.NoError(t, res.Err())
	assert.Equal(t, 1, res.CandidatesEvaluated)
	assert.Equal(t, map[string]interface{}{}, res.BestParams)
	assert.Equal(t, Exhaustive, res.SearchStrategy)
	assert.Equal(t, ThoroughFolds, res.CVFoldCount)
	assert.InDelta(t, 1.0, res.BestScore, 1e-9)
}

func TestThoroughIsExhaustive(t *testing.T) {
	design := regressionDesign(t, 30)
	res := newTestSearcher().Search(context.Background(), Ridge, dataset.Regression,
		design, Options{Strategy: StrategyThorough, Seed: DefaultSeed})

	require.NoError(t, res.Err())
	assert.Equal(t, Exhaustive, res.SearchStrategy)
	assert.Equal(t, 5, res.CandidatesEvaluated)
	assert.Equal(t, ThoroughFolds, res.CVFoldCount)
	// 線形データなので最小のalphaが最良
	assert.Equal(t, 0.01, res.BestParams["alpha"])
}

func TestHintsOverrideDefaults(t *testing.T) {
	design := regressionDesign(t, 40)
	res := newTestSearcher().Search(context.Background(), DecisionTree, dataset.Regression,
		design, Options{Strategy: StrategyFast, Folds: 4, Candidates: 3, Seed: 7})

	require.NoError(t, res.Err())
	assert.Equal(t, 3, res.CandidatesEvaluated)
	assert.Equal(t, 4, res.CVFoldCount)
}

func TestSearchIsDeterministic(t *testing.T) {
	design := regressionDesign(t, 40)
	opts := Options{Strategy: StrategyFast, Candidates: 4, Seed: 11}

	for _, family := range []Family{DecisionTree, RandomForest, KNN} {
		t.Run(family.String(), func(t *testing.T) {
			first := newTestSearcher(WithWorkers(1)).Search(context.Background(), family, dataset.Regression, design, opts)
			second := newTestSearcher(WithWorkers(4)).Search(context.Background(), family, dataset.Regression, design, opts)
			require.NoError(t, first.Err())
			require.NoError(t, second.Err())
			assert.Equal(t, first.BestParams, second.BestParams)
			assert.Equal(t, first.BestScore, second.BestScore)
			assert.Equal(t, first.CVScores, second.CVScores)
		})
	}
}

func TestBestParamsWithinSpace(t *testing.T) {
	r := DefaultRegistry()
	designs := map[dataset.ProblemType]*preprocessing.Design{
		dataset.Regression:     regressionDesign(t, 30),
		dataset.Classification: classificationDesign(t, 10),
	}
	s := newTestSearcher()
	opts := Options{Strategy: StrategyFast, Candidates: 3, Seed: DefaultSeed}

	for pt, design := range designs {
		for _, family := range r.FamiliesFor(pt) {
			t.Run(string(pt)+"/"+family.String(), func(t *testing.T) {
				res := s.Search(context.Background(), family, pt, design, opts)
				require.NoError(t, res.Err())
				spec, _ := r.Lookup(family)
				space, _ := spec.ResolveSpace(pt)
				assertParamsWithinSpace(t, res, space)
			})
		}
	}
}

func TestClassificationSearch(t *testing.T) {
	design := classificationDesign(t, 12)
	s := newTestSearcher()

	for _, family := range []Family{LogisticRegression, KNN, DecisionTree} {
		t.Run(family.String(), func(t *testing.T) {
			res := s.Search(context.Background(), family, dataset.Classification, design, DefaultOptions())
			require.NoError(t, res.Err())
			assert.Greater(t, res.BestScore, 0.8)

			clf, ok := res.TrainedModel.(model.Classifier)
			require.True(t, ok)
			assert.Equal(t, []float64{0, 1, 2}, clf.Classes())
		})
	}

	t.Run("folds shrink to smallest class", func(t *testing.T) {
		small := classificationDesign(t, 2)
		res := s.Search(context.Background(), KNN, dataset.Classification, small,
			Options{Strategy: StrategyThorough, Seed: DefaultSeed})
		require.NoError(t, res.Err())
		assert.Equal(t, 2, res.CVFoldCount)
	})
}

func TestBaseline(t *testing.T) {
	design := regressionDesign(t, 40)
	s := newTestSearcher()
	opts := DefaultOptions()

	base := s.Baseline(context.Background(), RandomForest, dataset.Regression, design, opts)
	tuned := s.Search(context.Background(), RandomForest, dataset.Regression, design, opts)
	require.NoError(t, base.Err())
	require.NoError(t, tuned.Err())

	assert.Equal(t, 1, base.CandidatesEvaluated)
	assert.Empty(t, base.BestParams)
	assert.Equal(t, tuned.CVFoldCount, base.CVFoldCount)
	assert.Equal(t, tuned.SearchStrategy, base.SearchStrategy)
	assert.NotNil(t, base.TrainedModel)
}

func TestSearchFailures(t *testing.T) {
	reg := regressionDesign(t, 30)
	s := newTestSearcher()
	ctx := context.Background()

	t.Run("unsupported problem", func(t *testing.T) {
		res := s.Search(ctx, LogisticRegression, dataset.Regression, reg, DefaultOptions())
		assert.Equal(t, StatusFailed, res.Status)
		assert.True(t, errors.Is(res.Err(), errors.ErrUnsupportedProblem))
		assert.Nil(t, res.TrainedModel)
	})

	t.Run("unregistered family", func(t *testing.T) {
		res := s.Search(ctx, Family(99), dataset.Regression, reg, DefaultOptions())
		assert.True(t, res.Failed())
		assert.True(t, errors.Is(res.Err(), errors.ErrUnsupportedFamily))
		var failed *errors.SearchFailedError
		require.True(t, errors.As(res.Err(), &failed))
		assert.Equal(t, "unknown", failed.Family)
	})

	t.Run("continuous labels for classification", func(t *testing.T) {
		res := s.Search(ctx, KNN, dataset.Classification, reg, DefaultOptions())
		assert.True(t, res.Failed())
		assert.Contains(t, res.Cause, "unsupported label types")
	})

	t.Run("too few samples", func(t *testing.T) {
		tiny := &preprocessing.Design{X: mat.NewDense(1, 1, []float64{1}), Y: mat.NewDense(1, 1, []float64{2})}
		res := s.Search(ctx, Ridge, dataset.Regression, tiny, DefaultOptions())
		assert.True(t, res.Failed())
		var dimErr *errors.DimensionError
		assert.True(t, errors.As(res.Err(), &dimErr))
	})

	t.Run("non-finite target", func(t *testing.T) {
		bad := &preprocessing.Design{
			X: mat.NewDense(3, 1, []float64{1, 2, 3}),
			Y: mat.NewDense(3, 1, []float64{1, math.Inf(1), 3}),
		}
		res := s.Search(ctx, Ridge, dataset.Regression, bad, DefaultOptions())
		assert.True(t, res.Failed())
		assert.Equal(t, "target contains non-finite values", res.Cause)
		var valueErr *errors.ValueError
		assert.True(t, errors.As(res.Err(), &valueErr))
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		res := s.Search(cctx, Ridge, dataset.Regression, reg, DefaultOptions())
		assert.Equal(t, StatusFailed, res.Status)
		assert.Equal(t, CauseCancelled, res.Cause)
		assert.True(t, errors.Is(res.Err(), errors.ErrCancelled))
		assert.Empty(t, res.BestParams)
		assert.Nil(t, res.CVScores)
	})

	t.Run("successful result has no error", func(t *testing.T) {
		res := s.Search(ctx, Ridge, dataset.Regression, reg, DefaultOptions())
		assert.NoError(t, res.Err())
		assert.False(t, res.Failed())
	})
}

type panickyEstimator struct{}

func (panickyEstimator) Fit(X, y mat.Matrix) error { panic("boom") }

func (panickyEstimator) Predict(X mat.Matrix) (mat.Matrix, error) { return nil, nil }

func TestPanickingFamilyFailsAlone(t *testing.T) {
	design := regressionDesign(t, 20)
	broken := FamilySpec{
		Family:   KNN,
		Supports: bothProblems,
		New: func(dataset.ProblemType, int64) (model.Estimator, error) {
			return panickyEstimator{}, nil
		},
	}
	logger, _ := log.NewTestLogger(log.LevelDebug)
	s := NewSearcher(DefaultRegistry(WithFamily(broken)), WithLogger(logger))

	res := s.Search(context.Background(), KNN, dataset.Regression, design, DefaultOptions())
	require.True(t, res.Failed())
	assert.Contains(t, res.Cause, "all 1 candidates failed")
	var panicErr *errors.PanicError
	assert.True(t, errors.As(res.Err(), &panicErr))
	assert.True(t, logger.ContainsMessage("Search failed"))

	other := s.Search(context.Background(), Ridge, dataset.Regression, design, DefaultOptions())
	assert.NoError(t, other.Err())
}

// nanEstimator は常に NaN を予測する
type nanEstimator struct{}

func (nanEstimator) Fit(X, y mat.Matrix) error { return nil }

func (nanEstimator) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, math.NaN())
	}
	return out, nil
}

func TestNonFiniteScoresFailSearch(t *testing.T) {
	design := regressionDesign(t, 20)
	nan := FamilySpec{
		Family:   LinearRegression,
		Supports: regressionOnly,
		New: func(dataset.ProblemType, int64) (model.Estimator, error) {
			return nanEstimator{}, nil
		},
	}
	s := NewSearcher(DefaultRegistry(WithFamily(nan)), WithLogger(log.NewNopLogger()))

	res := s.Search(context.Background(), LinearRegression, dataset.Regression, design, DefaultOptions())
	require.True(t, res.Failed())
	assert.Equal(t, 1, res.CandidatesEvaluated)
	assert.Contains(t, res.Cause, "all 1 candidates failed")
	assert.Contains(t, res.Cause, "numerical instability")
	var valueErr *errors.ValueError
	assert.True(t, errors.As(res.Err(), &valueErr))
}

func TestParseStrategy(t *testing.T) {
	got, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyFast, got)
	got, err = ParseStrategy("thorough")
	require.NoError(t, err)
	assert.Equal(t, StrategyThorough, got)
	_, err = ParseStrategy("exhaustive")
	assert.Error(t, err)
}

func TestDefaultSpacesAreGridCompatible(t *testing.T) {
	for _, spec := range DefaultSpecs() {
		for _, pt := range spec.Supports {
			space, ok := spec.ResolveSpace(pt)
			if !ok {
				continue
			}
			grid := model_selection.ParameterGrid(space)
			assert.Equal(t, model_selection.GridSize(space), len(grid), spec.Family.String())

			est, err := spec.New(pt, DefaultSeed)
			require.NoError(t, err)
			setter, ok := est.(model.ParamSetter)
			require.True(t, ok, spec.Family.String())
			for _, params := range grid {
				assert.NoError(t, setter.SetParams(params), "%s %v", spec.Family, params)
			}
		}
	}
}
