package tree

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// DecisionTreeRegressor is a CART regressor minimising squared error.
type DecisionTreeRegressor struct {
	params
	state *model.StateManager

	tree *cart
}

// NewDecisionTreeRegressor creates a regressor with unlimited depth.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		params: defaultParams("squared_error"),
		state:  model.NewStateManager("DecisionTreeRegressor"),
	}
	for _, opt := range opts {
		opt(&dt.params)
	}
	return dt
}

// Fit grows the tree on X and y.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	return dt.FitSamples(X, y, nil)
}

// FitSamples grows the tree on the given rows of X, which may repeat. A nil
// samples slice means every row.
func (dt *DecisionTreeRegressor) FitSamples(X, y mat.Matrix, samples []int) error {
	nSamples, nFeatures, err := model.CheckFitInput("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if dt.criterion != "squared_error" {
		return errors.NewValidationError("criterion", "must be squared_error", dt.criterion)
	}
	if samples == nil {
		samples = allRows(nSamples)
	}
	target := &regTarget{y: mat.Col(nil, 0, y)}
	dt.tree = grow(columns(X), target, samples, dt.buildConfig())
	dt.state.SetFitted(nFeatures, len(samples))
	return nil
}

// Predict returns the leaf mean per row.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.CheckPredictInput("DecisionTreeRegressor.Predict", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	out := mat.NewDense(r, 1, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, dt.tree.apply(row)[0])
	}
	return out, nil
}

// FeatureImportances returns normalised impurity decreases.
func (dt *DecisionTreeRegressor) FeatureImportances() ([]float64, error) {
	if err := dt.state.RequireFitted("FeatureImportances"); err != nil {
		return nil, err
	}
	return append([]float64(nil), dt.tree.importances...), nil
}

// GetDepth returns the depth of the fitted tree.
func (dt *DecisionTreeRegressor) GetDepth() int {
	if dt.tree == nil {
		return 0
	}
	return dt.tree.depth
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return dt.params.get()
}

// SetParams sets hyperparameters by name.
func (dt *DecisionTreeRegressor) SetParams(values map[string]interface{}) error {
	return dt.params.set("DecisionTreeRegressor", values, "squared_error")
}
