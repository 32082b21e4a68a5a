package linear_model

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// LogisticRegression implements logistic regression for classification
// trained with full-batch gradient descent. Multiclass problems are fitted
// one-vs-rest.
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	penalty      string  // Regularization: "l2" or "none"
	C            float64 // Inverse regularization strength (1/alpha)
	fitIntercept bool
	maxIter      int
	tol          float64
	randomState  int64

	// Model parameters
	coef_      [][]float64 // 1 x n_features for binary, n_classes x n_features otherwise
	intercept_ []float64
	classes_   []float64
	nClasses_  int
	nIter_     []int
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager("LogisticRegression"),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		maxIter:      100,
		tol:          1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRPenalty sets the regularization type
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.penalty = penalty }
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.C = c }
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.fitIntercept = fit }
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.maxIter = maxIter }
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.tol = tol }
}

// WithLRRandomState sets the seed used to initialise the weights
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.randomState = seed }
}

// Fit trains the logistic regression model
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.CheckFitInput("LogisticRegression.Fit", X, y)
	if err != nil {
		return err
	}
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}
	if lr.penalty != "l2" && lr.penalty != "none" {
		return errors.NewValidationError("penalty", "must be l2 or none", lr.penalty)
	}

	lr.extractClasses(y)
	if lr.nClasses_ < 2 {
		return errors.NewValueError("LogisticRegression.Fit", "needs samples of at least 2 classes")
	}
	lr.initializeWeights(nFeatures)

	if lr.nClasses_ == 2 {
		lr.fitBinary(X, lr.binaryLabels(y, lr.classes_[1]), 0)
	} else {
		for k, class := range lr.classes_ {
			lr.fitBinary(X, lr.binaryLabels(y, class), k)
		}
	}

	lr.state.SetFitted(nFeatures, nSamples)
	return nil
}

// extractClasses identifies unique class labels
func (lr *LogisticRegression) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	seen := make(map[float64]bool)
	lr.classes_ = lr.classes_[:0]
	for i := 0; i < rows; i++ {
		label := y.At(i, 0)
		if !seen[label] {
			seen[label] = true
			lr.classes_ = append(lr.classes_, label)
		}
	}
	sort.Float64s(lr.classes_)
	lr.nClasses_ = len(lr.classes_)
}

// initializeWeights initializes model weights with small seeded noise
func (lr *LogisticRegression) initializeWeights(nFeatures int) {
	sets := lr.nClasses_
	if sets == 2 {
		sets = 1
	}
	rng := rand.New(rand.NewPCG(uint64(lr.randomState), 0))
	lr.coef_ = make([][]float64, sets)
	for i := range lr.coef_ {
		lr.coef_[i] = make([]float64, nFeatures)
		for j := range lr.coef_[i] {
			lr.coef_[i][j] = rng.NormFloat64() * 0.01
		}
	}
	lr.intercept_ = make([]float64, sets)
	lr.nIter_ = make([]int, sets)
}

func (lr *LogisticRegression) binaryLabels(y mat.Matrix, positive float64) []float64 {
	rows, _ := y.Dims()
	out := make([]float64, rows)
	for i := range out {
		if y.At(i, 0) == positive {
			out[i] = 1
		}
	}
	return out
}

// fitBinary fits weight set k using gradient descent with a decaying step.
func (lr *LogisticRegression) fitBinary(X mat.Matrix, target []float64, k int) {
	nSamples, nFeatures := X.Dims()
	weights := lr.coef_[k]
	intercept := &lr.intercept_[k]
	baseLearningRate := 1.0
	gradWeights := make([]float64, nFeatures)

	converged := false
	for iter := 0; iter < lr.maxIter; iter++ {
		for j := range gradWeights {
			gradWeights[j] = 0
		}
		gradIntercept := 0.0

		for i := 0; i < nSamples; i++ {
			z := *intercept
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * weights[j]
			}
			diff := sigmoid(z) - target[i]
			gradIntercept += diff
			for j := 0; j < nFeatures; j++ {
				gradWeights[j] += diff * X.At(i, j)
			}
		}
		for j := range gradWeights {
			gradWeights[j] /= float64(nSamples)
		}
		gradIntercept /= float64(nSamples)

		if lr.penalty == "l2" {
			lambda := 1.0 / (lr.C * float64(nSamples))
			for j := range weights {
				gradWeights[j] += lambda * weights[j]
			}
		}

		learningRate := baseLearningRate / (1.0 + 0.1*float64(iter))
		for j := range weights {
			weights[j] -= learningRate * gradWeights[j]
		}
		if lr.fitIntercept {
			*intercept -= learningRate * gradIntercept
		}
		lr.nIter_[k] = iter + 1

		maxGrad := math.Abs(gradIntercept)
		for _, g := range gradWeights {
			maxGrad = math.Max(maxGrad, math.Abs(g))
		}
		if maxGrad < lr.tol {
			converged = true
			break
		}
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter, ""))
	}
}

func (lr *LogisticRegression) decision(X mat.Matrix, i, k int) float64 {
	z := lr.intercept_[k]
	for j, w := range lr.coef_[k] {
		z += X.At(i, j) * w
	}
	return z
}

// PredictProba returns probability estimates for each class
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.CheckPredictInput("LogisticRegression.PredictProba", X); err != nil {
		return nil, err
	}
	nSamples, _ := X.Dims()
	probas := mat.NewDense(nSamples, lr.nClasses_, nil)

	if lr.nClasses_ == 2 {
		for i := 0; i < nSamples; i++ {
			p := sigmoid(lr.decision(X, i, 0))
			probas.Set(i, 0, 1-p)
			probas.Set(i, 1, p)
		}
		return probas, nil
	}

	// OVR の確率を正規化する
	for i := 0; i < nSamples; i++ {
		var sum float64
		for k := 0; k < lr.nClasses_; k++ {
			p := sigmoid(lr.decision(X, i, k))
			probas.Set(i, k, p)
			sum += p
		}
		for k := 0; k < lr.nClasses_; k++ {
			probas.Set(i, k, errors.SafeDivide(probas.At(i, k), sum))
		}
	}
	return probas, nil
}

// Predict makes predictions for input data
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	nSamples, _ := X.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		best := 0
		for k := 1; k < lr.nClasses_; k++ {
			if probas.At(i, k) > probas.At(i, best) {
				best = k
			}
		}
		predictions.Set(i, 0, lr.classes_[best])
	}
	return predictions, nil
}

// Classes returns the sorted class labels.
func (lr *LogisticRegression) Classes() []float64 {
	return append([]float64(nil), lr.classes_...)
}

// NIter returns the iterations used per weight set.
func (lr *LogisticRegression) NIter() []int {
	return append([]int(nil), lr.nIter_...)
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
		"random_state":  lr.randomState,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "penalty":
			lr.penalty, err = model.ParamString(key, value)
		case "C":
			lr.C, err = model.ParamFloat(key, value)
		case "fit_intercept":
			lr.fitIntercept, err = model.ParamBool(key, value)
		case "max_iter":
			lr.maxIter, err = model.ParamInt(key, value)
		case "tol":
			lr.tol, err = model.ParamFloat(key, value)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(key, value)
			lr.randomState = int64(seed)
		default:
			return model.UnknownParam("LogisticRegression", key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// sigmoid computes the sigmoid function
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
