package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/dataset"
	"github.com/YuminosukeSato/autotune/pkg/errors"
	"github.com/YuminosukeSato/autotune/sklearn/linear_model"
)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})
	s := NewStandardScalerDefault()
	Xs, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, s.Mean[0], 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), s.Scale[0], 1e-12)
	// 定数列はスケール1
	assert.Equal(t, 1.0, s.Scale[1])
	assert.Equal(t, 0.0, Xs.At(0, 1))

	back, err := s.InverseTransform(Xs)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))
	assert.Contains(t, s.String(), "n_features=2")
}

func TestStandardScalerErrors(t *testing.T) {
	s := NewStandardScalerDefault()
	_, err := s.Transform(mat.NewDense(1, 1, nil))
	var nfErr *errors.NotFittedError
	assert.True(t, errors.As(err, &nfErr))

	require.NoError(t, s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = s.Transform(mat.NewDense(1, 3, nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestScaledEstimator(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{100, 200, 300, 700, 800, 900})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	est := NewScaledEstimator(linear_model.NewLogisticRegression(linear_model.WithLRMaxIter(300)))
	require.NoError(t, est.SetParams(map[string]interface{}{"C": 10.0}))
	assert.Equal(t, 10.0, est.GetParams()["C"])
	require.NoError(t, est.Fit(X, y))

	pred, err := est.Predict(mat.NewDense(2, 1, []float64{150, 850}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.At(0, 0))
	assert.Equal(t, 1.0, pred.At(1, 0))
	assert.Equal(t, []float64{0, 1}, est.Classes())

	proba, err := est.PredictProba(X)
	require.NoError(t, err)
	_, c := proba.Dims()
	assert.Equal(t, 2, c)

	reg := NewScaledEstimator(linear_model.NewLinearRegression())
	_, err = reg.PredictProba(X)
	assert.Error(t, err)
	assert.Nil(t, reg.Classes())
}

func TestBuildDesign(t *testing.T) {
	nan := math.NaN()
	ds := dataset.MustNew(
		dataset.NewNumeric("price", []float64{10, 20, nan, 40, 50}),
		dataset.NewNumeric("sqft", []float64{1, nan, 3, 4, 100}),
		dataset.NewCategorical("color", []string{"red", "blue", "red", "", "green"}),
	)

	d, err := BuildDesign(ds, "price", []string{"sqft", "color"})
	require.NoError(t, err)

	// 目的変数が欠損の行は落とす
	assert.Equal(t, []int{0, 1, 3, 4}, d.Rows)
	assert.Equal(t, []float64{10, 20, 40, 50}, d.Target())

	assert.Equal(t, []string{"sqft", "color=red", "color=blue", "color=green"}, d.Columns)
	assert.Equal(t, []int{0, 1, 1, 1}, d.Groups)

	// sqft の欠損は残った行 {1, 4, 100} の中央値で埋める
	assert.Equal(t, []float64{1, 4, 4, 100}, d.Column(0))
	assert.Equal(t, []float64{1, 0, 0, 0}, d.Column(1))
	assert.Equal(t, []float64{0, 1, 0, 0}, d.Column(2))
	assert.Equal(t, []float64{0, 0, 0, 1}, d.Column(3))

	assert.InDeltaSlice(t, []float64{0.5, 0.6}, d.Aggregate([]float64{0.5, 0.1, 0.2, 0.3}), 1e-12)
}

func TestBuildDesignLevelCap(t *testing.T) {
	ds := dataset.MustNew(
		dataset.NewNumeric("y", []float64{1, 2, 3, 4, 5, 6}),
		dataset.NewCategorical("c", []string{"a", "b", "b", "c", "c", "c"}),
	)
	d, err := BuildDesign(ds, "y", []string{"c"}, WithMaxLevels(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"c=c", "c=b"}, d.Columns)
}

func TestBuildDesignErrors(t *testing.T) {
	ds := dataset.MustNew(
		dataset.NewNumeric("y", []float64{1, 2}),
		dataset.NewCategorical("c", []string{"a", "b"}),
	)

	_, err := BuildDesign(ds, "missing", []string{"c"})
	assert.True(t, errors.Is(err, errors.ErrColumnNotFound))

	_, err = BuildDesign(ds, "y", []string{"nope"})
	assert.True(t, errors.Is(err, errors.ErrColumnNotFound))

	_, err = BuildDesign(ds, "c", []string{"y"})
	assert.Error(t, err)

	_, err = BuildDesign(ds, "y", nil)
	assert.Error(t, err)
}
