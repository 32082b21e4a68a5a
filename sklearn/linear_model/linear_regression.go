// Package linear_model provides linear regression, ridge regression and
// logistic regression.
package linear_model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/core/parallel"
	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// rcond is the relative singular value cutoff used to determine rank.
const rcond = 1e-10

// 行数がこれを超えると中心化を並列に行う
const parallelThreshold = 1000

// LinearRegression は最小二乗法による線形回帰です。
// 切片は中心化したデータに対して解くため、ランク落ちした計画行列でも
// SVDによる最小ノルム解が得られます。
type LinearRegression struct {
	state *model.StateManager

	coef_      []float64
	intercept_ float64
}

// NewLinearRegression creates an ordinary least squares regressor.
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{state: model.NewStateManager("LinearRegression")}
}

// Fit は正規方程式の代わりに SVD で最小二乗解を求めます。
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.CheckFitInput("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}

	Xc, yc, xMean, yMean := center(X, y)

	var svd mat.SVD
	if ok := svd.Factorize(Xc, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "SVD failed", errors.ErrSingularMatrix)
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		// 全特徴量が定数: 平均を予測する
		lr.coef_ = make([]float64, nFeatures)
	} else {
		var w mat.VecDense
		svd.SolveVecTo(&w, yc, rank)
		lr.coef_ = make([]float64, nFeatures)
		for j := range lr.coef_ {
			lr.coef_[j] = errors.FiniteOrZero(w.AtVec(j))
		}
	}
	lr.intercept_ = yMean - mat.Dot(mat.NewVecDense(nFeatures, lr.coef_), xMean)

	lr.state.SetFitted(nFeatures, nSamples)
	return nil
}

// Predict returns X·coef + intercept.
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.CheckPredictInput("LinearRegression.Predict", X); err != nil {
		return nil, err
	}
	return predictLinear(X, lr.coef_, lr.intercept_), nil
}

// Coef returns a copy of the fitted coefficients.
func (lr *LinearRegression) Coef() []float64 {
	return append([]float64(nil), lr.coef_...)
}

// Intercept returns the fitted intercept.
func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept_
}

// GetParams returns an empty map: ordinary least squares has no
// hyperparameters.
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{}
}

// SetParams rejects every key.
func (lr *LinearRegression) SetParams(params map[string]interface{}) error {
	for key := range params {
		return model.UnknownParam("LinearRegression", key)
	}
	return nil
}

// center returns column-centred copies of X and y with their means.
func center(X, y mat.Matrix) (*mat.Dense, *mat.VecDense, *mat.VecDense, float64) {
	r, c := X.Dims()
	xMean := mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		var s float64
		for i := 0; i < r; i++ {
			s += X.At(i, j)
		}
		xMean.SetVec(j, s/float64(r))
	}
	var yMean float64
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(r)

	Xc := mat.NewDense(r, c, nil)
	yc := mat.NewVecDense(r, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				Xc.Set(i, j, X.At(i, j)-xMean.AtVec(j))
			}
			yc.SetVec(i, y.At(i, 0)-yMean)
		}
	})
	return Xc, yc, xMean, yMean
}

func predictLinear(X mat.Matrix, coef []float64, intercept float64) *mat.Dense {
	r, c := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		v := intercept
		for j := 0; j < c; j++ {
			v += X.At(i, j) * coef[j]
		}
		out.Set(i, 0, v)
	}
	return out
}
