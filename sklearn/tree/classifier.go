package tree

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// DecisionTreeClassifier is a CART classifier.
type DecisionTreeClassifier struct {
	params
	state *model.StateManager

	tree      *cart
	classes_  []float64
	nClasses_ int
}

// NewDecisionTreeClassifier creates a classifier with the gini criterion and
// unlimited depth.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		params: defaultParams("gini"),
		state:  model.NewStateManager("DecisionTreeClassifier"),
	}
	for _, opt := range opts {
		opt(&dt.params)
	}
	return dt
}

// Fit grows the tree on X and the labels y.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	return dt.FitSamples(X, y, nil)
}

// FitSamples grows the tree on the given rows of X, which may repeat. A nil
// samples slice means every row.
func (dt *DecisionTreeClassifier) FitSamples(X, y mat.Matrix, samples []int) error {
	nSamples, nFeatures, err := model.CheckFitInput("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if dt.criterion != "gini" && dt.criterion != "entropy" {
		return errors.NewValidationError("criterion", "must be gini or entropy", dt.criterion)
	}
	if samples == nil {
		samples = allRows(nSamples)
	}

	dt.classes_ = uniqueSorted(y, samples)
	dt.nClasses_ = len(dt.classes_)
	index := make(map[float64]int, dt.nClasses_)
	for i, c := range dt.classes_ {
		index[c] = i
	}
	labels := make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		if idx, ok := index[y.At(i, 0)]; ok {
			labels[i] = idx
		}
	}

	target := &classTarget{labels: labels, nClasses: dt.nClasses_, criterion: dt.criterion}
	dt.tree = grow(columns(X), target, samples, dt.buildConfig())
	dt.state.SetFitted(nFeatures, len(samples))
	return nil
}

// Predict returns the most probable class per row.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, _ := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, dt.classes_[argmax(mat.Row(nil, i, proba))])
	}
	return out, nil
}

// PredictProba returns the class distribution of the reached leaf per row.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.CheckPredictInput("DecisionTreeClassifier.PredictProba", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	out := mat.NewDense(r, dt.nClasses_, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out.SetRow(i, dt.tree.apply(row))
	}
	return out, nil
}

// Classes returns the sorted class labels seen during Fit.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return append([]float64(nil), dt.classes_...)
}

// Score returns the mean accuracy on X and y, 0 on error.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	r, _ := X.Dims()
	correct := 0
	for i := 0; i < r; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(r)
}

// FeatureImportances returns normalised impurity decreases.
func (dt *DecisionTreeClassifier) FeatureImportances() ([]float64, error) {
	if err := dt.state.RequireFitted("FeatureImportances"); err != nil {
		return nil, err
	}
	return append([]float64(nil), dt.tree.importances...), nil
}

// GetFeatureImportances returns the importances, nil if not fitted.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	imp, _ := dt.FeatureImportances()
	return imp
}

// GetDepth returns the depth of the fitted tree.
func (dt *DecisionTreeClassifier) GetDepth() int {
	if dt.tree == nil {
		return 0
	}
	return dt.tree.depth
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	if dt.tree == nil {
		return 0
	}
	return dt.tree.leaves
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return dt.params.get()
}

// SetParams sets hyperparameters by name.
func (dt *DecisionTreeClassifier) SetParams(values map[string]interface{}) error {
	return dt.params.set("DecisionTreeClassifier", values, "gini", "entropy")
}

func uniqueSorted(y mat.Matrix, samples []int) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for _, s := range samples {
		v := y.At(s, 0)
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func allRows(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// columns copies X into feature-major slices.
func columns(X mat.Matrix) [][]float64 {
	_, c := X.Dims()
	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
	}
	return cols
}
