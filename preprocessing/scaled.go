package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// ScaledEstimator standardises X before delegating to an inner estimator.
// The scaler is refitted on every Fit so that cross-validation folds never
// see statistics of held-out rows.
type ScaledEstimator struct {
	scaler *StandardScaler
	inner  model.Estimator
}

// NewScaledEstimator wraps inner with a StandardScaler.
func NewScaledEstimator(inner model.Estimator) *ScaledEstimator {
	return &ScaledEstimator{scaler: NewStandardScalerDefault(), inner: inner}
}

// Inner returns the wrapped estimator.
func (e *ScaledEstimator) Inner() model.Estimator { return e.inner }

// Fit standardises X and fits the inner estimator.
func (e *ScaledEstimator) Fit(X, y mat.Matrix) error {
	Xs, err := e.scaler.FitTransform(X)
	if err != nil {
		return err
	}
	return e.inner.Fit(Xs, y)
}

// Predict standardises X and predicts with the inner estimator.
func (e *ScaledEstimator) Predict(X mat.Matrix) (mat.Matrix, error) {
	Xs, err := e.scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	return e.inner.Predict(Xs)
}

// PredictProba forwards to the inner estimator when it is a classifier.
func (e *ScaledEstimator) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	clf, ok := e.inner.(model.Classifier)
	if !ok {
		return nil, errors.NewValueError("ScaledEstimator.PredictProba", "inner estimator does not output probabilities")
	}
	Xs, err := e.scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	return clf.PredictProba(Xs)
}

// Classes forwards to the inner classifier, nil otherwise.
func (e *ScaledEstimator) Classes() []float64 {
	if clf, ok := e.inner.(model.Classifier); ok {
		return clf.Classes()
	}
	return nil
}

// SetParams forwards hyperparameters to the inner estimator.
func (e *ScaledEstimator) SetParams(params map[string]interface{}) error {
	setter, ok := e.inner.(model.ParamSetter)
	if !ok {
		if len(params) == 0 {
			return nil
		}
		return errors.NewValueError("ScaledEstimator.SetParams", "inner estimator has no hyperparameters")
	}
	return setter.SetParams(params)
}

// GetParams returns the inner estimator's hyperparameters.
func (e *ScaledEstimator) GetParams() map[string]interface{} {
	if getter, ok := e.inner.(model.ParamGetter); ok {
		return getter.GetParams()
	}
	return map[string]interface{}{}
}
