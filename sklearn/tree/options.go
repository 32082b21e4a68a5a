package tree

// Option configures a decision tree.
type Option func(*params)

type params struct {
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	randomState     int64
}

func defaultParams(criterion string) params {
	return params{
		criterion:       criterion,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
}

// WithCriterion sets the split quality measure: "gini" or "entropy" for
// classifiers, "squared_error" for regressors.
func WithCriterion(criterion string) Option {
	return func(p *params) { p.criterion = criterion }
}

// WithMaxDepth limits the depth of the tree. Zero means unlimited.
func WithMaxDepth(depth int) Option {
	return func(p *params) { p.maxDepth = depth }
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(p *params) { p.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(p *params) { p.minSamplesLeaf = n }
}

// WithMaxFeatures sets how many randomly chosen features are considered per
// split. Zero means all features.
func WithMaxFeatures(n int) Option {
	return func(p *params) { p.maxFeatures = n }
}

// WithRandomState seeds feature subsampling.
func WithRandomState(seed int64) Option {
	return func(p *params) { p.randomState = seed }
}

func (p *params) buildConfig() buildConfig {
	minSplit := p.minSamplesSplit
	if minSplit < 2 {
		minSplit = 2
	}
	minLeaf := p.minSamplesLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}
	return buildConfig{
		criterion:       p.criterion,
		maxDepth:        p.maxDepth,
		minSamplesSplit: minSplit,
		minSamplesLeaf:  minLeaf,
		maxFeatures:     p.maxFeatures,
		randomState:     uint64(p.randomState),
	}
}

func (p *params) get() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         p.criterion,
		"max_depth":         p.maxDepth,
		"min_samples_split": p.minSamplesSplit,
		"min_samples_leaf":  p.minSamplesLeaf,
		"max_features":      p.maxFeatures,
		"random_state":      p.randomState,
	}
}
