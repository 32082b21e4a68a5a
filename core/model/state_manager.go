package model

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// StateManager manages the fitted state of an estimator in a thread-safe manner.
// Estimators embed it by composition and call RequireFitted at the top of
// Predict so that an unfitted model fails with a NotFittedError.
type StateManager struct {
	name string
	mu   sync.RWMutex

	fitted    bool
	nFeatures int
	nSamples  int
}

// NewStateManager creates a StateManager for the named estimator.
func NewStateManager(name string) *StateManager {
	return &StateManager{name: name}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted marks the model as fitted with the dimensions seen during Fit.
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

// Reset resets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
}

// Dimensions returns the number of features and samples seen during fitting.
func (s *StateManager) Dimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireFitted returns a NotFittedError if the model has not been fitted.
func (s *StateManager) RequireFitted(method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(s.name, method)
	}
	return nil
}

// CheckPredictInput verifies that X is fitted-compatible: the model must be
// fitted and X must have the same number of columns as the training data.
func (s *StateManager) CheckPredictInput(method string, X mat.Matrix) error {
	if err := s.RequireFitted(method); err != nil {
		return err
	}
	_, c := X.Dims()
	nFeatures, _ := s.Dimensions()
	if c != nFeatures {
		return errors.NewDimensionError(method, nFeatures, c, 1)
	}
	return nil
}

// CheckFitInput validates the shapes of a training pair. y must be a single
// column with one row per sample.
func CheckFitInput(op string, X, y mat.Matrix) (nSamples, nFeatures int, err error) {
	nSamples, nFeatures = X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return 0, 0, errors.Wrapf(errors.ErrEmptyData, "%s", op)
	}
	yr, yc := y.Dims()
	if yr != nSamples {
		return 0, 0, errors.NewDimensionError(op, nSamples, yr, 0)
	}
	if yc != 1 {
		return 0, 0, errors.NewValueError(op, "y must be a single column")
	}
	return nSamples, nFeatures, nil
}
