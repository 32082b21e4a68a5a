package linear_model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/pkg/errors"
)

func init() {
	// 収束警告をテスト出力に出さない
	errors.SetWarningHandler(func(error) {})
}

func TestLogisticRegression_FitPredict_Binary(t *testing.T) {
	// Class 0: points around (1, 1), class 1: points around (3, 3)
	X := mat.NewDense(6, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	lr := NewLogisticRegression(WithLRMaxIter(1000), WithLRTol(1e-4))
	require.NoError(t, lr.Fit(X, y))

	predictions, err := lr.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		assert.Equal(t, y.At(i, 0), predictions.At(i, 0), "sample %d", i)
	}

	testPreds, err := lr.Predict(mat.NewDense(2, 2, []float64{1, 1, 3, 3}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, testPreds.At(0, 0))
	assert.Equal(t, 1.0, testPreds.At(1, 0))
	assert.Equal(t, []float64{0, 1}, lr.Classes())
}

func TestLogisticRegression_PredictProba(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{0, 0, 0, 1, 1, 0, 1, 1})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	lr := NewLogisticRegression(WithLRMaxIter(500))
	require.NoError(t, lr.Fit(X, y))

	proba, err := lr.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	require.Equal(t, 4, r)
	require.Equal(t, 2, c)
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-12)
	}
	// x0 が 1 のほうがクラス1の確率が高い
	assert.Greater(t, proba.At(2, 1), proba.At(0, 1))
}

func TestLogisticRegression_Multiclass(t *testing.T) {
	centers := [][2]float64{{0, 0}, {5, 0}, {0, 5}}
	offsets := [][2]float64{{0.2, 0.1}, {-0.1, 0.3}, {0.3, -0.2}, {-0.2, -0.1}}
	var data, labels []float64
	for class, c := range centers {
		for _, o := range offsets {
			data = append(data, c[0]+o[0], c[1]+o[1])
			labels = append(labels, float64(class+1))
		}
	}
	X := mat.NewDense(len(labels), 2, data)
	y := mat.NewDense(len(labels), 1, labels)

	lr := NewLogisticRegression(WithLRMaxIter(500), WithLRRandomState(3))
	require.NoError(t, lr.Fit(X, y))
	assert.Equal(t, []float64{1, 2, 3}, lr.Classes())

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	for i := range labels {
		assert.Equal(t, labels[i], pred.At(i, 0), "sample %d", i)
	}

	proba, err := lr.PredictProba(X)
	require.NoError(t, err)
	_, c := proba.Dims()
	assert.Equal(t, 3, c)
}

func TestLogisticRegression_Errors(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})

	t.Run("single class", func(t *testing.T) {
		err := NewLogisticRegression().Fit(X, mat.NewDense(3, 1, []float64{1, 1, 1}))
		assert.Error(t, err)
	})

	t.Run("invalid C", func(t *testing.T) {
		err := NewLogisticRegression(WithLRC(0)).Fit(X, mat.NewDense(3, 1, []float64{0, 1, 0}))
		var vErr *errors.ValidationError
		assert.True(t, errors.As(err, &vErr))
	})

	t.Run("not fitted", func(t *testing.T) {
		_, err := NewLogisticRegression().Predict(X)
		var nfErr *errors.NotFittedError
		assert.True(t, errors.As(err, &nfErr))
	})
}

func TestLogisticRegression_Params(t *testing.T) {
	lr := NewLogisticRegression()
	require.NoError(t, lr.SetParams(map[string]interface{}{"C": 0.1, "max_iter": 50.0}))
	params := lr.GetParams()
	assert.Equal(t, 0.1, params["C"])
	assert.Equal(t, 50, params["max_iter"])

	assert.Error(t, lr.SetParams(map[string]interface{}{"solver": "lbfgs"}))
	assert.Error(t, lr.SetParams(map[string]interface{}{"C": "big"}))
}

func TestLogisticRegression_Deterministic(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{0, 0, 0, 1, 1, 0, 1, 1})
	y := mat.NewDense(4, 1, []float64{0, 1, 0, 1})
	fit := func() mat.Matrix {
		lr := NewLogisticRegression(WithLRRandomState(9), WithLRMaxIter(20))
		require.NoError(t, lr.Fit(X, y))
		p, err := lr.PredictProba(X)
		require.NoError(t, err)
		return p
	}
	assert.True(t, mat.Equal(fit(), fit()))
}
