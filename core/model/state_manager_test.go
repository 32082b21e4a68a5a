package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/pkg/errors"
)

func TestStateManager(t *testing.T) {
	sm := NewStateManager("KNeighborsRegressor")
	assert.False(t, sm.IsFitted())

	err := sm.RequireFitted("Predict")
	require.Error(t, err)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, "KNeighborsRegressor", nf.ModelName)

	sm.SetFitted(3, 50)
	assert.True(t, sm.IsFitted())
	f, n := sm.Dimensions()
	assert.Equal(t, 3, f)
	assert.Equal(t, 50, n)

	assert.NoError(t, sm.CheckPredictInput("Predict", mat.NewDense(2, 3, nil)))
	err = sm.CheckPredictInput("Predict", mat.NewDense(2, 4, nil))
	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 4, dimErr.Got)

	sm.Reset()
	assert.False(t, sm.IsFitted())
}

func TestCheckFitInput(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8})

	n, f, err := CheckFitInput("Fit", X, mat.NewDense(4, 1, nil))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 2, f)

	_, _, err = CheckFitInput("Fit", X, mat.NewDense(3, 1, nil))
	assert.Error(t, err)

	_, _, err = CheckFitInput("Fit", X, mat.NewDense(4, 2, nil))
	assert.Error(t, err)

	_, _, err = CheckFitInput("Fit", &mat.Dense{}, mat.NewDense(4, 1, nil))
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}
