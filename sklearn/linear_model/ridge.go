package linear_model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// Ridge is least squares with an L2 penalty alpha·||w||². The intercept is
// not penalised.
type Ridge struct {
	state *model.StateManager

	alpha float64

	coef_      []float64
	intercept_ float64
}

// RidgeOption configures Ridge.
type RidgeOption func(*Ridge)

// WithAlpha sets the regularisation strength.
func WithAlpha(alpha float64) RidgeOption {
	return func(r *Ridge) { r.alpha = alpha }
}

// NewRidge creates a ridge regressor with alpha = 1.
func NewRidge(opts ...RidgeOption) *Ridge {
	r := &Ridge{state: model.NewStateManager("Ridge"), alpha: 1.0}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fit solves (XᵀX + αI)w = Xᵀy on centred data with a Cholesky factorisation.
func (r *Ridge) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.CheckFitInput("Ridge.Fit", X, y)
	if err != nil {
		return err
	}
	if r.alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", r.alpha)
	}

	Xc, yc, xMean, yMean := center(X, y)

	gram := mat.NewSymDense(nFeatures, nil)
	gram.SymOuterK(1, Xc.T())
	for j := 0; j < nFeatures; j++ {
		gram.SetSym(j, j, gram.At(j, j)+r.alpha)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return errors.NewModelError("Ridge.Fit", "singular matrix", errors.ErrSingularMatrix)
	}
	var xty, w mat.VecDense
	xty.MulVec(Xc.T(), yc)
	if err := chol.SolveVecTo(&w, &xty); err != nil {
		return errors.NewModelError("Ridge.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	r.coef_ = make([]float64, nFeatures)
	for j := range r.coef_ {
		r.coef_[j] = w.AtVec(j)
	}
	r.intercept_ = yMean - mat.Dot(&w, xMean)
	r.state.SetFitted(nFeatures, nSamples)
	return nil
}

// Predict returns X·coef + intercept.
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.state.CheckPredictInput("Ridge.Predict", X); err != nil {
		return nil, err
	}
	return predictLinear(X, r.coef_, r.intercept_), nil
}

// Coef returns a copy of the fitted coefficients.
func (r *Ridge) Coef() []float64 {
	return append([]float64(nil), r.coef_...)
}

// GetParams returns the hyperparameters.
func (r *Ridge) GetParams() map[string]interface{} {
	return map[string]interface{}{"alpha": r.alpha}
}

// SetParams sets alpha.
func (r *Ridge) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		if key != "alpha" {
			return model.UnknownParam("Ridge", key)
		}
		alpha, err := model.ParamFloat(key, value)
		if err != nil {
			return err
		}
		r.alpha = alpha
	}
	return nil
}
