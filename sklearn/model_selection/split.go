// Package model_selection provides cross-validation splitters, parameter
// grids and cross-validated scoring.
package model_selection

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// Splitter defines interface for cross-validation splitters
type Splitter interface {
	Split(X, y mat.Matrix) ([]CVFold, error)
	GetNSplits() int
}

// CVFold represents a single fold in cross-validation. Both index sets are
// sorted ascending.
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int64
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, randomSeed int64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold. The first
// nSamples % NSplits folds get one extra test sample.
func (kf *KFold) Split(X, _ mat.Matrix) ([]CVFold, error) {
	nSamples, _ := X.Dims()
	if kf.NSplits > nSamples {
		return nil, errors.NewValueError("KFold.Split", "n_splits cannot exceed the number of samples")
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.RandomSeed), uint64(kf.RandomSeed)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	assignment := make([]int, nSamples)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits
	current := 0
	for f := 0; f < kf.NSplits; f++ {
		testSize := foldSize
		if f < remainder {
			testSize++
		}
		for _, idx := range indices[current : current+testSize] {
			assignment[idx] = f
		}
		current += testSize
	}
	return buildFolds(assignment, kf.NSplits), nil
}

// StratifiedKFold implements stratified k-fold cross-validation: every
// fold keeps roughly the class proportions of y.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int64
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed int64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split generates stratified train/test indices for each fold. Classes are
// visited in ascending label order and dealt round-robin across folds,
// continuing where the previous class stopped.
func (skf *StratifiedKFold) Split(X, y mat.Matrix) ([]CVFold, error) {
	nSamples, _ := X.Dims()
	if y == nil {
		return nil, errors.NewValueError("StratifiedKFold.Split", "y is required")
	}
	if skf.NSplits > nSamples {
		return nil, errors.NewValueError("StratifiedKFold.Split", "n_splits cannot exceed the number of samples")
	}

	classIndices := make(map[float64][]int)
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		classIndices[label] = append(classIndices[label], i)
	}
	labels := make([]float64, 0, len(classIndices))
	for label := range classIndices {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	r := rand.New(rand.NewPCG(uint64(skf.RandomSeed), uint64(skf.RandomSeed)))
	assignment := make([]int, nSamples)
	next := 0
	for _, label := range labels {
		indices := classIndices[label]
		if skf.Shuffle {
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
		for _, idx := range indices {
			assignment[idx] = next
			next = (next + 1) % skf.NSplits
		}
	}
	return buildFolds(assignment, skf.NSplits), nil
}

// buildFolds turns a sample→fold assignment into sorted index sets.
func buildFolds(assignment []int, nSplits int) []CVFold {
	folds := make([]CVFold, nSplits)
	for idx, f := range assignment {
		for g := range folds {
			if g == f {
				folds[g].TestIndices = append(folds[g].TestIndices, idx)
			} else {
				folds[g].TrainIndices = append(folds[g].TrainIndices, idx)
			}
		}
	}
	return folds
}

// extractSubset extracts the rows of X and y listed in indices.
func extractSubset(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	_, xCols := X.Dims()
	_, yCols := y.Dims()
	xSubset := mat.NewDense(len(indices), xCols, nil)
	ySubset := mat.NewDense(len(indices), yCols, nil)
	for i, idx := range indices {
		for j := 0; j < xCols; j++ {
			xSubset.Set(i, j, X.At(idx, j))
		}
		for j := 0; j < yCols; j++ {
			ySubset.Set(i, j, y.At(idx, j))
		}
	}
	return xSubset, ySubset
}
