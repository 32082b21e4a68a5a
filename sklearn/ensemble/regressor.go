package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/pkg/errors"
	"github.com/YuminosukeSato/autotune/sklearn/tree"
)

// RandomForestRegressor averages bootstrap-trained regression trees.
type RandomForestRegressor struct {
	forestParams
	state *model.StateManager
	trees []*tree.DecisionTreeRegressor
}

// NewRandomForestRegressor creates a forest of 100 unlimited-depth trees.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		forestParams: defaultForestParams(),
		state:        model.NewStateManager("RandomForestRegressor"),
	}
	for _, opt := range opts {
		opt(&rf.forestParams)
	}
	return rf
}

// Fit grows the forest.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.CheckFitInput("RandomForestRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be positive", rf.nEstimators)
	}
	maxFeatures := rf.maxFeatures

	trees := make([]*tree.DecisionTreeRegressor, rf.nEstimators)
	err = rf.growAll(nSamples, func(i int, samples []int) error {
		t := tree.NewDecisionTreeRegressor(rf.treeOptions(i, maxFeatures)...)
		if err := t.FitSamples(X, y, samples); err != nil {
			return err
		}
		trees[i] = t
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "RandomForestRegressor.Fit")
	}
	rf.trees = trees
	rf.state.SetFitted(nFeatures, nSamples)
	return nil
}

// Predict returns the mean tree prediction per row.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.CheckPredictInput("RandomForestRegressor.Predict", X); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for _, t := range rf.trees {
		p, err := t.Predict(X)
		if err != nil {
			return nil, err
		}
		out.Add(out, p)
	}
	out.Scale(1/float64(len(rf.trees)), out)
	return out, nil
}

// FeatureImportances returns the normalised mean impurity decrease.
func (rf *RandomForestRegressor) FeatureImportances() ([]float64, error) {
	if err := rf.state.RequireFitted("FeatureImportances"); err != nil {
		return nil, err
	}
	per := make([][]float64, len(rf.trees))
	for i, t := range rf.trees {
		imp, err := t.FeatureImportances()
		if err != nil {
			return nil, err
		}
		per[i] = imp
	}
	nFeatures, _ := rf.state.Dimensions()
	return meanImportances(per, nFeatures), nil
}

// GetParams returns the hyperparameters.
func (rf *RandomForestRegressor) GetParams() map[string]interface{} {
	return rf.forestParams.get()
}

// SetParams sets hyperparameters by name.
func (rf *RandomForestRegressor) SetParams(values map[string]interface{}) error {
	return rf.forestParams.set("RandomForestRegressor", values)
}
