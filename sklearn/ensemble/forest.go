// Package ensemble provides bagged random forests built from sklearn/tree.
package ensemble

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/core/parallel"
	"github.com/YuminosukeSato/autotune/sklearn/tree"
)

// Option configures a random forest.
type Option func(*forestParams)

type forestParams struct {
	nEstimators     int
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	randomState     int64
	nJobs           int
}

func defaultForestParams() forestParams {
	return forestParams{
		nEstimators:     100,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		randomState:     0,
	}
}

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(p *forestParams) { p.nEstimators = n }
}

// WithMaxDepth caps the depth of every tree. Zero means unlimited.
func WithMaxDepth(d int) Option {
	return func(p *forestParams) { p.maxDepth = d }
}

// WithMinSamplesSplit sets the minimum samples to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(p *forestParams) { p.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples per leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(p *forestParams) { p.minSamplesLeaf = n }
}

// WithMaxFeatures sets the features considered per split. Zero selects the
// default: all features for regression, sqrt(n_features) for classification.
func WithMaxFeatures(n int) Option {
	return func(p *forestParams) { p.maxFeatures = n }
}

// WithRandomState seeds bootstrapping and feature subsampling.
func WithRandomState(seed int64) Option {
	return func(p *forestParams) { p.randomState = seed }
}

// WithNJobs sets the worker count used to grow trees. Zero uses one worker
// per CPU core.
func WithNJobs(n int) Option {
	return func(p *forestParams) { p.nJobs = n }
}

func (p *forestParams) get() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      p.nEstimators,
		"max_depth":         p.maxDepth,
		"min_samples_split": p.minSamplesSplit,
		"min_samples_leaf":  p.minSamplesLeaf,
		"max_features":      p.maxFeatures,
		"random_state":      p.randomState,
	}
}

func (p *forestParams) set(estimator string, values map[string]interface{}) error {
	for key, value := range values {
		var err error
		switch key {
		case "n_estimators":
			p.nEstimators, err = model.ParamInt(key, value)
		case "max_depth":
			p.maxDepth, err = model.ParamInt(key, value)
		case "min_samples_split":
			p.minSamplesSplit, err = model.ParamInt(key, value)
		case "min_samples_leaf":
			p.minSamplesLeaf, err = model.ParamInt(key, value)
		case "max_features":
			p.maxFeatures, err = model.ParamInt(key, value)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(key, value)
			p.randomState = int64(seed)
		default:
			return model.UnknownParam(estimator, key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// treeOptions returns the options for tree i, each with its own seed.
func (p *forestParams) treeOptions(i, maxFeatures int) []tree.Option {
	return []tree.Option{
		tree.WithMaxDepth(p.maxDepth),
		tree.WithMinSamplesSplit(p.minSamplesSplit),
		tree.WithMinSamplesLeaf(p.minSamplesLeaf),
		tree.WithMaxFeatures(maxFeatures),
		tree.WithRandomState(p.randomState*1000003 + int64(i)),
	}
}

// bootstrap draws n row indices with replacement for tree i.
func (p *forestParams) bootstrap(i, n int) []int {
	rng := rand.New(rand.NewPCG(uint64(p.randomState), uint64(i)+1))
	out := make([]int, n)
	for k := range out {
		out[k] = rng.IntN(n)
	}
	return out
}

// growAll fits nEstimators trees in parallel. fit is called with the tree
// index and its bootstrap sample.
func (p *forestParams) growAll(n int, fit func(i int, samples []int) error) error {
	return parallel.ForEach(context.Background(), p.nEstimators, p.nJobs, func(_ context.Context, i int) error {
		return fit(i, p.bootstrap(i, n))
	})
}

// meanImportances averages per-tree importances and renormalises them.
func meanImportances(perTree [][]float64, nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	for _, imp := range perTree {
		floats.Add(out, imp)
	}
	total := floats.Sum(out)
	if total > 0 {
		floats.Scale(1/total, out)
	}
	return out
}

func sqrtFeatures(n int) int {
	k := int(math.Sqrt(float64(n)))
	if k < 1 {
		k = 1
	}
	return k
}
