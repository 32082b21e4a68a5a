package model_selection

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/core/parallel"
	"github.com/YuminosukeSato/autotune/metrics"
	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// EstimatorFactory builds a fresh, unfitted estimator for one fold.
type EstimatorFactory func() (model.Estimator, error)

// CVResult stores cross-validation results
type CVResult struct {
	TestScores []float64
}

// GetMeanScore returns mean test score
func (cv *CVResult) GetMeanScore() float64 {
	if len(cv.TestScores) == 0 {
		return 0.0
	}
	return stat.Mean(cv.TestScores, nil)
}

// GetStdScore returns the sample standard deviation of test scores
func (cv *CVResult) GetStdScore() float64 {
	if len(cv.TestScores) <= 1 {
		return 0.0
	}
	return stat.StdDev(cv.TestScores, nil)
}

// CrossValScore fits a new estimator per fold and scores it on the held-out
// rows. Folds run on at most nJobs workers; a fold error or panic aborts the
// remaining folds and is returned.
func CrossValScore(ctx context.Context, factory EstimatorFactory, X, y mat.Matrix,
	splitter Splitter, scorer metrics.Scorer, nJobs int) (*CVResult, error) {

	folds, err := splitter.Split(X, y)
	if err != nil {
		return nil, err
	}

	result := &CVResult{TestScores: make([]float64, len(folds))}
	err = parallel.ForEach(ctx, len(folds), nJobs, func(_ context.Context, idx int) error {
		op := fmt.Sprintf("CrossValScore fold %d", idx)
		score, err := errors.SafeCall(op, func() (float64, error) {
			fold := folds[idx]
			trainX, trainY := extractSubset(X, y, fold.TrainIndices)
			testX, testY := extractSubset(X, y, fold.TestIndices)

			est, err := factory()
			if err != nil {
				return 0, err
			}
			if err := est.Fit(trainX, trainY); err != nil {
				return 0, errors.Wrapf(err, "fold %d training failed", idx)
			}
			pred, err := est.Predict(testX)
			if err != nil {
				return 0, errors.Wrapf(err, "fold %d prediction failed", idx)
			}
			return scorer(testY, pred)
		})
		if err != nil {
			return err
		}
		result.TestScores[idx] = score
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
