package neighbors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/pkg/errors"
)

func TestKNeighborsRegressor(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{0, 1, 2, 3, 10})
	y := mat.NewDense(5, 1, []float64{0, 10, 20, 30, 100})

	tests := []struct {
		name  string
		opts  []Option
		query float64
		want  float64
	}{
		{"k=1", []Option{WithNNeighbors(1)}, 2.2, 20},
		{"k=2 uniform", []Option{WithNNeighbors(2)}, 1.5, 15},
		{"k=2 distance", []Option{WithNNeighbors(2), WithWeights("distance")}, 1.25, 12.5},
		{"distance exact match", []Option{WithNNeighbors(3), WithWeights("distance")}, 3, 30},
		{"k larger than training set", []Option{WithNNeighbors(50)}, 0, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			knn := NewKNeighborsRegressor(tt.opts...)
			require.NoError(t, knn.Fit(X, y))
			pred, err := knn.Predict(mat.NewDense(1, 1, []float64{tt.query}))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, pred.At(0, 0), 1e-9)
		})
	}
}

func TestKNeighborsClassifier(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		5, 5,
		5, 6,
		6, 5,
	})
	y := mat.NewDense(6, 1, []float64{2, 2, 2, 7, 7, 7})

	knn := NewKNeighborsClassifier(WithNNeighbors(3))
	require.NoError(t, knn.Fit(X, y))
	assert.Equal(t, []float64{2, 7}, knn.Classes())

	query := mat.NewDense(2, 2, []float64{0.5, 0.5, 5.5, 5.5})
	pred, err := knn.Predict(query)
	require.NoError(t, err)
	assert.Equal(t, 2.0, pred.At(0, 0))
	assert.Equal(t, 7.0, pred.At(1, 0))

	proba, err := knn.PredictProba(query)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, proba.At(0, 0), 1e-12)
	assert.InDelta(t, 0.0, proba.At(0, 1), 1e-12)
}

func TestKNeighborsClassifier_TieGoesToSmallerLabel(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{-1, 1})
	y := mat.NewDense(2, 1, []float64{1, 0})
	knn := NewKNeighborsClassifier(WithNNeighbors(2))
	require.NoError(t, knn.Fit(X, y))
	pred, err := knn.Predict(mat.NewDense(1, 1, []float64{0}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.At(0, 0))
}

func TestKNeighbors_ParamsAndErrors(t *testing.T) {
	knn := NewKNeighborsRegressor()
	assert.Equal(t, map[string]interface{}{"n_neighbors": 5, "weights": "uniform"}, knn.GetParams())

	require.NoError(t, knn.SetParams(map[string]interface{}{"n_neighbors": 3.0, "weights": "distance"}))
	assert.Equal(t, 3, knn.GetParams()["n_neighbors"])
	assert.Error(t, knn.SetParams(map[string]interface{}{"p": 1}))

	X := mat.NewDense(2, 1, []float64{0, 1})
	y := mat.NewDense(2, 1, []float64{0, 1})
	bad := NewKNeighborsClassifier(WithWeights("cosine"))
	var vErr *errors.ValidationError
	assert.True(t, errors.As(bad.Fit(X, y), &vErr))

	_, err := NewKNeighborsClassifier().Predict(X)
	var nfErr *errors.NotFittedError
	assert.True(t, errors.As(err, &nfErr))
}
