// Package tree implements CART decision trees for classification and
// regression with impurity-based feature importances.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"
)

const leaf = -1

// node is one node of a fitted tree. Leaves have feature == leaf.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	// value holds class probabilities for classifiers and the mean target
	// for regressors.
	value    []float64
	nSamples int
	impurity float64
}

// buildConfig carries the growth limits shared by both tree types.
type buildConfig struct {
	criterion       string
	maxDepth        int // 0 = unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 = all features
	randomState     uint64
}

// target abstracts the impurity computation over classification labels and
// regression values.
type target interface {
	// leafValue returns the node prediction for samples.
	leafValue(samples []int) []float64
	// impurity returns the node impurity for samples.
	impurity(samples []int) float64
	// bestSplit scans samples sorted by the feature values xs and returns the
	// split position (left = sorted[:pos]) with the lowest weighted child
	// impurity, or -1.
	bestSplit(sorted []int, xs []float64, minLeaf int) (pos int, childImpurity float64)
}

// cart is a fitted tree.
type cart struct {
	nodes       []node
	importances []float64
	depth       int
	leaves      int
}

type builder struct {
	cols   [][]float64
	y      target
	cfg    buildConfig
	rng    *rand.Rand
	tree   *cart
	nTotal float64
}

// grow fits a tree over cols (feature-major) for the given samples.
func grow(cols [][]float64, y target, samples []int, cfg buildConfig) *cart {
	b := &builder{
		cols:   cols,
		y:      y,
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(cfg.randomState, cfg.randomState^0x9e3779b97f4a7c15)),
		tree:   &cart{importances: make([]float64, len(cols))},
		nTotal: float64(len(samples)),
	}
	b.split(samples, 0)

	var total float64
	for _, v := range b.tree.importances {
		total += v
	}
	if total > 0 {
		for i := range b.tree.importances {
			b.tree.importances[i] /= total
		}
	}
	return b.tree
}

func (b *builder) split(samples []int, depth int) int {
	imp := b.y.impurity(samples)
	id := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, node{
		feature:  leaf,
		left:     leaf,
		right:    leaf,
		value:    b.y.leafValue(samples),
		nSamples: len(samples),
		impurity: imp,
	})
	if depth > b.tree.depth {
		b.tree.depth = depth
	}

	n := len(samples)
	stop := imp <= 1e-12 ||
		n < b.cfg.minSamplesSplit ||
		n < 2*b.cfg.minSamplesLeaf ||
		(b.cfg.maxDepth > 0 && depth >= b.cfg.maxDepth)
	if stop {
		b.tree.leaves++
		return id
	}

	feature, threshold, childImp, ok := b.findSplit(samples)
	if !ok {
		b.tree.leaves++
		return id
	}

	var left, right []int
	for _, s := range samples {
		if b.cols[feature][s] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	b.tree.importances[feature] += float64(n) / b.nTotal * (imp - childImp)

	l := b.split(left, depth+1)
	r := b.split(right, depth+1)
	nd := &b.tree.nodes[id]
	nd.feature = feature
	nd.threshold = threshold
	nd.left = l
	nd.right = r
	return id
}

func (b *builder) findSplit(samples []int) (feature int, threshold, childImp float64, ok bool) {
	features, k := b.candidateFeatures()
	sorted := make([]int, len(samples))
	bestImp := math.Inf(1)

	// keep drawing features past k until one yields a valid split
	for i, f := range features {
		if i >= k && ok {
			break
		}
		xs := b.cols[f]
		copy(sorted, samples)
		sort.SliceStable(sorted, func(i, j int) bool { return xs[sorted[i]] < xs[sorted[j]] })

		pos, imp := b.y.bestSplit(sorted, xs, b.cfg.minSamplesLeaf)
		if pos < 0 || imp >= bestImp {
			continue
		}
		bestImp = imp
		feature = f
		lo, hi := xs[sorted[pos-1]], xs[sorted[pos]]
		threshold = lo + (hi-lo)/2
		if threshold >= hi {
			// adjacent floats
			threshold = lo
		}
		ok = true
	}
	return feature, threshold, bestImp, ok
}

// candidateFeatures returns the feature visiting order and how many of them
// must be evaluated.
func (b *builder) candidateFeatures() ([]int, int) {
	nf := len(b.cols)
	if b.cfg.maxFeatures <= 0 || b.cfg.maxFeatures >= nf {
		all := make([]int, nf)
		for i := range all {
			all[i] = i
		}
		return all, nf
	}
	return b.rng.Perm(nf), b.cfg.maxFeatures
}

// apply returns the leaf value reached by row x.
func (c *cart) apply(x []float64) []float64 {
	i := 0
	for {
		nd := &c.nodes[i]
		if nd.feature == leaf {
			return nd.value
		}
		if x[nd.feature] <= nd.threshold {
			i = nd.left
		} else {
			i = nd.right
		}
	}
}

// classTarget holds labels encoded as class indices.
type classTarget struct {
	labels    []int
	nClasses  int
	criterion string
}

func (t *classTarget) counts(samples []int) []float64 {
	c := make([]float64, t.nClasses)
	for _, s := range samples {
		c[t.labels[s]]++
	}
	return c
}

func (t *classTarget) leafValue(samples []int) []float64 {
	c := t.counts(samples)
	n := float64(len(samples))
	for i := range c {
		c[i] /= n
	}
	return c
}

func (t *classTarget) impurity(samples []int) float64 {
	return t.measure(t.counts(samples), float64(len(samples)))
}

func (t *classTarget) measure(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	if t.criterion == "entropy" {
		var h float64
		for _, c := range counts {
			if c > 0 {
				p := c / n
				h -= p * math.Log2(p)
			}
		}
		return h
	}
	g := 1.0
	for _, c := range counts {
		p := c / n
		g -= p * p
	}
	return g
}

func (t *classTarget) bestSplit(sorted []int, xs []float64, minLeaf int) (int, float64) {
	n := len(sorted)
	right := t.counts(sorted)
	left := make([]float64, t.nClasses)
	best, bestImp := -1, math.Inf(1)
	for p := 0; p < n-1; p++ {
		lbl := t.labels[sorted[p]]
		left[lbl]++
		right[lbl]--
		if xs[sorted[p]] == xs[sorted[p+1]] {
			continue
		}
		nl, nr := p+1, n-p-1
		if nl < minLeaf || nr < minLeaf {
			continue
		}
		imp := (float64(nl)*t.measure(left, float64(nl)) + float64(nr)*t.measure(right, float64(nr))) / float64(n)
		if imp < bestImp {
			best, bestImp = p+1, imp
		}
	}
	return best, bestImp
}

// regTarget holds continuous targets; impurity is the mean squared error.
type regTarget struct {
	y []float64
}

func (t *regTarget) leafValue(samples []int) []float64 {
	var sum float64
	for _, s := range samples {
		sum += t.y[s]
	}
	return []float64{sum / float64(len(samples))}
}

func (t *regTarget) impurity(samples []int) float64 {
	var sum, sq float64
	for _, s := range samples {
		sum += t.y[s]
		sq += t.y[s] * t.y[s]
	}
	return mse(sum, sq, float64(len(samples)))
}

func mse(sum, sq, n float64) float64 {
	if n == 0 {
		return 0
	}
	v := sq/n - (sum/n)*(sum/n)
	if v < 0 {
		return 0
	}
	return v
}

func (t *regTarget) bestSplit(sorted []int, xs []float64, minLeaf int) (int, float64) {
	n := len(sorted)
	var totSum, totSq float64
	for _, s := range sorted {
		totSum += t.y[s]
		totSq += t.y[s] * t.y[s]
	}
	var lSum, lSq float64
	best, bestImp := -1, math.Inf(1)
	for p := 0; p < n-1; p++ {
		v := t.y[sorted[p]]
		lSum += v
		lSq += v * v
		if xs[sorted[p]] == xs[sorted[p+1]] {
			continue
		}
		nl, nr := float64(p+1), float64(n-p-1)
		if int(nl) < minLeaf || int(nr) < minLeaf {
			continue
		}
		imp := (nl*mse(lSum, lSq, nl) + nr*mse(totSum-lSum, totSq-lSq, nr)) / float64(n)
		if imp < bestImp {
			best, bestImp = p+1, imp
		}
	}
	return best, bestImp
}
