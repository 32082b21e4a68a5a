package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "autotune: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "autotune: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)
			assert.Equal(t, tt.wantMsg, err.Error())

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			assert.Contains(t, formatted, "errors_test.go")

			var modelErr *ModelError
			assert.True(t, As(err, &modelErr), "Error should be castable to *ModelError")
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 10, 3, 1)
	assert.Equal(t, "autotune: Predict: dimension mismatch on axis 1 (features). Expected 10, got 3", err.Error())

	var dimErr *DimensionError
	assert.True(t, As(err, &dimErr))
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("DecisionTreeRegressor", "Predict")
	assert.Equal(t, "autotune: DecisionTreeRegressor: this model is not fitted yet. Call Fit() before using Predict()", err.Error())

	var notFittedErr *NotFittedError
	assert.True(t, As(err, &notFittedErr))
}

func TestComputationError(t *testing.T) {
	cause := fmt.Errorf("degenerate input")
	err := NewComputationError("mutual_info", "sqft", cause)

	assert.Equal(t, "autotune: mutual_info failed for feature 'sqft': degenerate input", err.Error())
	assert.True(t, Is(err, cause))

	var compErr *ComputationError
	require.True(t, As(err, &compErr))
	assert.Equal(t, "mutual_info", compErr.Method)
}

func TestSearchFailedError(t *testing.T) {
	err := NewSearchFailedError("random_forest", "cancelled", ErrCancelled)
	assert.Equal(t, "autotune: search for random_forest failed: cancelled", err.Error())
	assert.True(t, Is(err, ErrCancelled))
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrColumnNotFound, "profile price")
	assert.True(t, Is(wrapped, ErrColumnNotFound))
	assert.True(t, strings.Contains(wrapped.Error(), "profile price"))

	wrappedf := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)
	assert.True(t, Is(wrappedf, ErrEmptyData))
	assert.Contains(t, wrappedf.Error(), "in Predict: expected 10, got 5")
}

func TestNumericalHelpers(t *testing.T) {
	assert.Equal(t, 0.0, SafeDivide(1, 0))
	assert.Equal(t, 2.0, SafeDivide(4, 2))
	assert.Equal(t, 10.0, ClipValue(42, 0, 10))
	assert.Equal(t, 0.0, ClipValue(-1, 0, 10))
	assert.Equal(t, 0.0, FiniteOrZero(math.NaN()))
	assert.Equal(t, 0.0, FiniteOrZero(math.Inf(1)))
	assert.Equal(t, 0.5, FiniteOrZero(0.5))
	assert.Error(t, CheckScalar("score", math.NaN()))
	assert.NoError(t, CheckNumericalStability("score", []float64{1, 2, 3}))
}
