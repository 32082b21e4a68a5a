// Package feature_selection estimates mutual information between features
// and a target with the k-nearest-neighbour estimators of Kraskov et al.
// (continuous target) and Ross (discrete target).
package feature_selection

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/autotune/core/parallel"
	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// DefaultNeighbors is the k used by the estimators unless overridden.
const DefaultNeighbors = 3

// jitter is the relative noise added to break ties between equal values.
const jitter = 1e-10

// Option configures a mutual information estimate.
type Option func(*config)

type config struct {
	nNeighbors  int
	randomState int64
	nJobs       int
}

// WithNNeighbors sets k.
func WithNNeighbors(k int) Option {
	return func(c *config) { c.nNeighbors = k }
}

// WithRandomState seeds the tie-breaking noise.
func WithRandomState(seed int64) Option {
	return func(c *config) { c.randomState = seed }
}

// WithNJobs sets the number of features estimated concurrently.
func WithNJobs(n int) Option {
	return func(c *config) { c.nJobs = n }
}

// MutualInfoRegression estimates the mutual information (in nats) between
// each column of X and a continuous target.
func MutualInfoRegression(X mat.Matrix, y []float64, opts ...Option) ([]float64, error) {
	return estimate("MutualInfoRegression", X, y, false, opts)
}

// MutualInfoClassif estimates the mutual information (in nats) between each
// column of X and a discrete target.
func MutualInfoClassif(X mat.Matrix, y []float64, opts ...Option) ([]float64, error) {
	return estimate("MutualInfoClassif", X, y, true, opts)
}

func estimate(op string, X mat.Matrix, y []float64, discrete bool, opts []Option) ([]float64, error) {
	cfg := config{nNeighbors: DefaultNeighbors}
	for _, opt := range opts {
		opt(&cfg)
	}
	n, nFeatures := X.Dims()
	if n == 0 || nFeatures == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if len(y) != n {
		return nil, errors.NewDimensionError(op, n, len(y), 0)
	}
	if cfg.nNeighbors < 1 {
		return nil, errors.NewValidationError("n_neighbors", "must be positive", cfg.nNeighbors)
	}
	if n <= cfg.nNeighbors {
		return nil, errors.NewValueError(op, "need more samples than n_neighbors")
	}

	target := append([]float64(nil), y...)
	if !discrete {
		// 目的変数も特徴量と同様にスケーリングしてノイズを加える
		perturb(target, rand.New(rand.NewPCG(uint64(cfg.randomState), math.MaxUint64)))
	}

	mi := make([]float64, nFeatures)
	err := parallel.ForEach(context.Background(), nFeatures, cfg.nJobs, func(_ context.Context, j int) error {
		x := mat.Col(nil, j, X)
		perturb(x, rand.New(rand.NewPCG(uint64(cfg.randomState), uint64(j))))
		var v float64
		if discrete {
			v = miContinuousDiscrete(x, target, cfg.nNeighbors)
		} else {
			v = miContinuousContinuous(x, target, cfg.nNeighbors)
		}
		mi[j] = errors.FiniteOrZero(math.Max(v, 0))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	return mi, nil
}

// perturb scales x to unit standard deviation and adds tiny Gaussian noise.
func perturb(x []float64, rng *rand.Rand) {
	_, variance := stat.PopMeanVariance(x, nil)
	if sd := math.Sqrt(variance); sd > 0 {
		floats.Scale(1/sd, x)
	}
	var meanAbs float64
	for _, v := range x {
		meanAbs += math.Abs(v)
	}
	meanAbs /= float64(len(x))
	amp := jitter * math.Max(1, meanAbs)
	for i := range x {
		x[i] += amp * rng.NormFloat64()
	}
}

// miContinuousContinuous is the KSG estimator (algorithm 1) with the
// Chebyshev metric in the joint space.
func miContinuousContinuous(x, y []float64, k int) float64 {
	n := len(x)
	xs := sortedCopy(x)
	ys := sortedCopy(y)
	kth := newKSmallest(k)

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		kth.reset()
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			kth.push(math.Max(math.Abs(x[i]-x[j]), math.Abs(y[i]-y[j])))
		}
		r := math.Nextafter(kth.max(), 0)
		// 自分自身を除いた半径内の点の数
		nx := countWithin(xs, x[i], r) - 1
		ny := countWithin(ys, y[i], r) - 1
		sumX += mathext.Digamma(float64(nx + 1))
		sumY += mathext.Digamma(float64(ny + 1))
	}
	fn := float64(n)
	return mathext.Digamma(fn) + mathext.Digamma(float64(k)) - sumX/fn - sumY/fn
}

// miContinuousDiscrete is the estimator of Ross (2014). Labels that occur
// only once carry no neighbourhood and are ignored.
func miContinuousDiscrete(c, d []float64, k int) float64 {
	groups := make(map[float64][]float64)
	for i, label := range d {
		groups[label] = append(groups[label], c[i])
	}

	var kept []float64
	var radius, labelCounts, kAll []float64
	for i, label := range d {
		g := groups[label]
		if len(g) < 2 {
			continue
		}
		kl := k
		if kl > len(g)-1 {
			kl = len(g) - 1
		}
		kth := newKSmallest(kl)
		self := false
		for _, v := range g {
			if v == c[i] && !self {
				self = true
				continue
			}
			kth.push(math.Abs(c[i] - v))
		}
		kept = append(kept, c[i])
		radius = append(radius, math.Nextafter(kth.max(), 0))
		labelCounts = append(labelCounts, float64(len(g)))
		kAll = append(kAll, float64(kl))
	}
	if len(kept) == 0 {
		return 0
	}

	sorted := sortedCopy(kept)
	var sumK, sumLabel, sumM float64
	for i, v := range kept {
		sumK += mathext.Digamma(kAll[i])
		sumLabel += mathext.Digamma(labelCounts[i])
		sumM += mathext.Digamma(float64(countWithin(sorted, v, radius[i])))
	}
	fn := float64(len(kept))
	return mathext.Digamma(fn) + sumK/fn - sumLabel/fn - sumM/fn
}

func sortedCopy(x []float64) []float64 {
	out := append([]float64(nil), x...)
	sort.Float64s(out)
	return out
}

// countWithin counts values v of sorted with |v - center| <= r. It walks
// outwards from center and compares distances directly; center±r bounds
// round and would admit a neighbour lying exactly at the k-th distance.
func countWithin(sorted []float64, center, r float64) int {
	pos := sort.SearchFloat64s(sorted, center)
	count := 0
	for i := pos - 1; i >= 0 && math.Abs(sorted[i]-center) <= r; i-- {
		count++
	}
	for i := pos; i < len(sorted) && math.Abs(sorted[i]-center) <= r; i++ {
		count++
	}
	return count
}

// kSmallest keeps the k smallest values pushed so far.
type kSmallest struct {
	vals []float64
	k    int
}

func newKSmallest(k int) *kSmallest {
	return &kSmallest{vals: make([]float64, 0, k), k: k}
}

func (s *kSmallest) reset() { s.vals = s.vals[:0] }

func (s *kSmallest) push(v float64) {
	if len(s.vals) < s.k {
		s.vals = append(s.vals, v)
		for i := len(s.vals) - 1; i > 0 && s.vals[i] < s.vals[i-1]; i-- {
			s.vals[i], s.vals[i-1] = s.vals[i-1], s.vals[i]
		}
		return
	}
	if v >= s.vals[s.k-1] {
		return
	}
	s.vals[s.k-1] = v
	for i := s.k - 1; i > 0 && s.vals[i] < s.vals[i-1]; i-- {
		s.vals[i], s.vals[i-1] = s.vals[i-1], s.vals[i]
	}
}

// max returns the k-th smallest value seen.
func (s *kSmallest) max() float64 {
	return s.vals[len(s.vals)-1]
}
