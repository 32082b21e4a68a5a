// Package neighbors provides k-nearest-neighbour regression and
// classification with Euclidean distance.
package neighbors

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// Option configures a neighbours estimator.
type Option func(*base)

// WithNNeighbors sets k.
func WithNNeighbors(k int) Option {
	return func(b *base) { b.nNeighbors = k }
}

// WithWeights sets the vote weighting: "uniform" or "distance".
func WithWeights(w string) Option {
	return func(b *base) { b.weights = w }
}

// base holds the training data shared by both estimators.
type base struct {
	state *model.StateManager

	nNeighbors int
	weights    string

	rows [][]float64
	y    []float64
}

func newBase(name string, opts []Option) base {
	b := base{state: model.NewStateManager(name), nNeighbors: 5, weights: "uniform"}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) fit(op string, X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.CheckFitInput(op, X, y)
	if err != nil {
		return err
	}
	if b.nNeighbors < 1 {
		return errors.NewValidationError("n_neighbors", "must be positive", b.nNeighbors)
	}
	if b.weights != "uniform" && b.weights != "distance" {
		return errors.NewValidationError("weights", "must be uniform or distance", b.weights)
	}
	b.rows = make([][]float64, nSamples)
	b.y = make([]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		b.rows[i] = mat.Row(nil, i, X)
		b.y[i] = y.At(i, 0)
	}
	b.state.SetFitted(nFeatures, nSamples)
	return nil
}

type neighbor struct {
	index int
	dist  float64
}

// kneighbors returns the k nearest training rows of x, nearest first. Ties
// keep training order.
func (b *base) kneighbors(x []float64) []neighbor {
	all := make([]neighbor, len(b.rows))
	for i, r := range b.rows {
		all[i] = neighbor{index: i, dist: floats.Distance(x, r, 2)}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].dist < all[j].dist })
	k := b.nNeighbors
	if k > len(all) {
		k = len(all)
	}
	return all[:k]
}

// voteWeights returns one weight per neighbour. With distance weighting,
// exact matches take all the weight.
func (b *base) voteWeights(nbrs []neighbor) []float64 {
	w := make([]float64, len(nbrs))
	if b.weights == "uniform" {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	exact := false
	for i, n := range nbrs {
		if n.dist == 0 {
			w[i] = 1
			exact = true
		}
	}
	if exact {
		return w
	}
	for i, n := range nbrs {
		w[i] = 1 / n.dist
	}
	return w
}

func (b *base) params() map[string]interface{} {
	return map[string]interface{}{
		"n_neighbors": b.nNeighbors,
		"weights":     b.weights,
	}
}

func (b *base) setParams(estimator string, params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "n_neighbors":
			b.nNeighbors, err = model.ParamInt(key, value)
		case "weights":
			b.weights, err = model.ParamString(key, value)
		default:
			return model.UnknownParam(estimator, key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// KNeighborsRegressor predicts the (weighted) mean target of the k nearest
// training rows.
type KNeighborsRegressor struct {
	base
}

// NewKNeighborsRegressor creates a regressor with k = 5 and uniform weights.
func NewKNeighborsRegressor(opts ...Option) *KNeighborsRegressor {
	return &KNeighborsRegressor{base: newBase("KNeighborsRegressor", opts)}
}

// Fit stores the training data.
func (r *KNeighborsRegressor) Fit(X, y mat.Matrix) error {
	return r.fit("KNeighborsRegressor.Fit", X, y)
}

// Predict returns the neighbour average per row.
func (r *KNeighborsRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.state.CheckPredictInput("KNeighborsRegressor.Predict", X); err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		nbrs := r.kneighbors(mat.Row(nil, i, X))
		w := r.voteWeights(nbrs)
		var sum float64
		for k, nb := range nbrs {
			sum += w[k] * r.y[nb.index]
		}
		out.Set(i, 0, sum/floats.Sum(w))
	}
	return out, nil
}

// GetParams returns the hyperparameters.
func (r *KNeighborsRegressor) GetParams() map[string]interface{} { return r.params() }

// SetParams sets n_neighbors and weights.
func (r *KNeighborsRegressor) SetParams(params map[string]interface{}) error {
	return r.setParams("KNeighborsRegressor", params)
}

// KNeighborsClassifier predicts the (weighted) majority class of the k
// nearest training rows.
type KNeighborsClassifier struct {
	base
	classes []float64
}

// NewKNeighborsClassifier creates a classifier with k = 5 and uniform weights.
func NewKNeighborsClassifier(opts ...Option) *KNeighborsClassifier {
	return &KNeighborsClassifier{base: newBase("KNeighborsClassifier", opts)}
}

// Fit stores the training data and its sorted class labels.
func (c *KNeighborsClassifier) Fit(X, y mat.Matrix) error {
	if err := c.fit("KNeighborsClassifier.Fit", X, y); err != nil {
		return err
	}
	seen := make(map[float64]bool)
	c.classes = c.classes[:0]
	for _, v := range c.y {
		if !seen[v] {
			seen[v] = true
			c.classes = append(c.classes, v)
		}
	}
	sort.Float64s(c.classes)
	return nil
}

// PredictProba returns normalised neighbour votes per class.
func (c *KNeighborsClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := c.state.CheckPredictInput("KNeighborsClassifier.PredictProba", X); err != nil {
		return nil, err
	}
	index := make(map[float64]int, len(c.classes))
	for k, cl := range c.classes {
		index[cl] = k
	}
	n, _ := X.Dims()
	out := mat.NewDense(n, len(c.classes), nil)
	votes := make([]float64, len(c.classes))
	for i := 0; i < n; i++ {
		for k := range votes {
			votes[k] = 0
		}
		nbrs := c.kneighbors(mat.Row(nil, i, X))
		w := c.voteWeights(nbrs)
		for k, nb := range nbrs {
			votes[index[c.y[nb.index]]] += w[k]
		}
		floats.Scale(1/floats.Sum(votes), votes)
		out.SetRow(i, votes)
	}
	return out, nil
}

// Predict returns the class with the most votes; ties go to the smaller label.
func (c *KNeighborsClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := proba.Dims()
	out := mat.NewDense(n, 1, nil)
	row := make([]float64, len(c.classes))
	for i := 0; i < n; i++ {
		mat.Row(row, i, proba)
		out.Set(i, 0, c.classes[floats.MaxIdx(row)])
	}
	return out, nil
}

// Classes returns the sorted class labels.
func (c *KNeighborsClassifier) Classes() []float64 {
	return append([]float64(nil), c.classes...)
}

// GetParams returns the hyperparameters.
func (c *KNeighborsClassifier) GetParams() map[string]interface{} { return c.params() }

// SetParams sets n_neighbors and weights.
func (c *KNeighborsClassifier) SetParams(params map[string]interface{}) error {
	return c.setParams("KNeighborsClassifier", params)
}

