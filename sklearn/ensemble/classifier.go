package ensemble

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/pkg/errors"
	"github.com/YuminosukeSato/autotune/sklearn/tree"
)

// RandomForestClassifier averages class probabilities of bootstrap-trained
// classification trees.
type RandomForestClassifier struct {
	forestParams
	state   *model.StateManager
	trees   []*tree.DecisionTreeClassifier
	classes []float64
}

// NewRandomForestClassifier creates a forest of 100 unlimited-depth trees
// considering sqrt(n_features) features per split.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		forestParams: defaultForestParams(),
		state:        model.NewStateManager("RandomForestClassifier"),
	}
	for _, opt := range opts {
		opt(&rf.forestParams)
	}
	return rf
}

// Fit grows the forest.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.CheckFitInput("RandomForestClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be positive", rf.nEstimators)
	}
	maxFeatures := rf.maxFeatures
	if maxFeatures <= 0 {
		maxFeatures = sqrtFeatures(nFeatures)
	}

	trees := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	err = rf.growAll(nSamples, func(i int, samples []int) error {
		t := tree.NewDecisionTreeClassifier(rf.treeOptions(i, maxFeatures)...)
		if err := t.FitSamples(X, y, samples); err != nil {
			return err
		}
		trees[i] = t
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "RandomForestClassifier.Fit")
	}

	seen := make(map[float64]struct{})
	rf.classes = rf.classes[:0]
	for i := 0; i < nSamples; i++ {
		v := y.At(i, 0)
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			rf.classes = append(rf.classes, v)
		}
	}
	sort.Float64s(rf.classes)
	rf.trees = trees
	rf.state.SetFitted(nFeatures, nSamples)
	return nil
}

// PredictProba averages tree probabilities, aligning each tree's classes
// with the forest's.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.CheckPredictInput("RandomForestClassifier.PredictProba", X); err != nil {
		return nil, err
	}
	index := make(map[float64]int, len(rf.classes))
	for i, c := range rf.classes {
		index[c] = i
	}
	r, _ := X.Dims()
	out := mat.NewDense(r, len(rf.classes), nil)
	for _, t := range rf.trees {
		p, err := t.PredictProba(X)
		if err != nil {
			return nil, err
		}
		for j, c := range t.Classes() {
			col := index[c]
			for i := 0; i < r; i++ {
				out.Set(i, col, out.At(i, col)+p.At(i, j))
			}
		}
	}
	out.Scale(1/float64(len(rf.trees)), out)
	return out, nil
}

// Predict returns the class with the highest mean probability.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, c := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		best := 0
		for j := 1; j < c; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, rf.classes[best])
	}
	return out, nil
}

// Classes returns the sorted class labels.
func (rf *RandomForestClassifier) Classes() []float64 {
	return append([]float64(nil), rf.classes...)
}

// FeatureImportances returns the normalised mean impurity decrease.
func (rf *RandomForestClassifier) FeatureImportances() ([]float64, error) {
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
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return rf.forestParams.get()
}

// SetParams sets hyperparameters by name.
func (rf *RandomForestClassifier) SetParams(values map[string]interface{}) error {
	return rf.forestParams.set("RandomForestClassifier", values)
}
