// Package profile computes per-column quality statistics: null and unique
// ratios, spread, identifier-likeness and the quality score used to rank
// candidate features.
package profile

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/autotune/dataset"
	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// Quality score weights.
const (
	completenessWeight     = 0.4
	numericVarianceWeight  = 0.3
	categoricalVarianceWgt = 0.15
	correlationWeight      = 0.3

	// identifierRatio is the unique ratio above which a name match marks a
	// column as identifier-like.
	identifierRatio = 0.9
)

// ColumnProfile holds the derived attributes of one column.
type ColumnProfile struct {
	Name             string               `json:"name"`
	Type             dataset.SemanticType `json:"type"`
	Rows             int                  `json:"rows"`
	NonNullCount     int                  `json:"non_null_count"`
	UniqueCount      int                  `json:"unique_count"`
	NullRatio        float64              `json:"null_ratio"`
	UniqueRatio      float64              `json:"unique_ratio"`
	IsNumeric        bool                 `json:"is_numeric"`
	IsIntegerValued  bool                 `json:"is_integer_valued"`
	Mean             float64              `json:"mean"`
	StdDev           float64              `json:"std_dev"`
	IsIdentifierLike bool                 `json:"is_identifier_like"`
}

// HasVariance reports whether a numeric column has a positive standard
// deviation, or a non-numeric column has more than one distinct value.
func (p ColumnProfile) HasVariance() bool {
	if p.IsNumeric {
		return p.StdDev > 0
	}
	return p.UniqueCount > 1
}

// IsContinuous reports whether the column is numeric with at least one
// non-integer value.
func (p ColumnProfile) IsContinuous() bool {
	return p.IsNumeric && !p.IsIntegerValued
}

// IsConstant reports whether the column has at most one distinct value.
func (p ColumnProfile) IsConstant() bool {
	return p.UniqueCount <= 1
}

// VarianceComponent is the variance term of the quality score.
func (p ColumnProfile) VarianceComponent() float64 {
	if !p.HasVariance() {
		return 0
	}
	if p.IsNumeric {
		return numericVarianceWeight
	}
	return categoricalVarianceWgt
}

// QualityScore combines completeness, spread and the absolute correlation
// with a target into a single ranking score.
func QualityScore(p ColumnProfile, correlation float64) float64 {
	return (1-p.NullRatio)*completenessWeight + p.VarianceComponent() + math.Abs(correlation)*correlationWeight
}

// Compute profiles the named column of ds.
func Compute(ds *dataset.Dataset, name string) (ColumnProfile, error) {
	col, ok := ds.Column(name)
	if !ok {
		return ColumnProfile{}, errors.Wrapf(errors.ErrColumnNotFound, "profile %q", name)
	}
	return computeColumn(col), nil
}

func computeColumn(col *dataset.Column) ColumnProfile {
	p := ColumnProfile{
		Name:      col.Name(),
		Type:      col.Type(),
		Rows:      col.Len(),
		IsNumeric: col.IsNumeric(),
	}

	distinct := make(map[string]struct{})
	for i := 0; i < p.Rows; i++ {
		if col.IsMissing(i) {
			continue
		}
		p.NonNullCount++
		distinct[col.Key(i)] = struct{}{}
	}
	p.UniqueCount = len(distinct)
	if p.Rows > 0 {
		p.NullRatio = float64(p.Rows-p.NonNullCount) / float64(p.Rows)
	}
	if p.NonNullCount > 0 {
		p.UniqueRatio = float64(p.UniqueCount) / float64(p.NonNullCount)
	}

	consecutive := false
	if p.IsNumeric {
		vals := presentFloats(col)
		p.IsIntegerValued = true
		for _, v := range vals {
			if v != math.Trunc(v) {
				p.IsIntegerValued = false
				break
			}
		}
		switch len(vals) {
		case 0:
		case 1:
			p.Mean = vals[0]
		default:
			p.Mean, p.StdDev = stat.MeanStdDev(vals, nil)
			// 連番: 全値が異なり、max-min が個数-1 に一致する
			consecutive = p.IsIntegerValued && p.UniqueCount == len(vals) &&
				floats.Max(vals)-floats.Min(vals) == float64(len(vals)-1)
		}
	}

	p.IsIdentifierLike = identifierLike(p, consecutive)
	return p
}

// identifierLike applies one rule for validation, recommendation and
// ranking. Semantic identifiers always match. Continuous measurements never
// do. An all-unique integer column matches only when it is a consecutive run
// such as a row counter; an all-unique non-numeric column always matches.
// Otherwise a unique ratio above 0.9 needs an identifier name.
func identifierLike(p ColumnProfile, consecutive bool) bool {
	if p.Type == dataset.Identifier {
		return true
	}
	if p.NonNullCount < 2 || p.IsContinuous() {
		return false
	}
	if p.UniqueRatio == 1.0 && (!p.IsNumeric || consecutive) {
		return true
	}
	return p.UniqueRatio > identifierRatio && dataset.NameLooksLikeIdentifier(p.Name)
}

func presentFloats(col *dataset.Column) []float64 {
	all := col.Floats()
	out := all[:0]
	for _, v := range all {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Profiler memoises column profiles for one engine invocation. It is safe
// for concurrent use.
type Profiler struct {
	ds *dataset.Dataset

	mu    sync.Mutex
	cache map[string]ColumnProfile
}

// NewProfiler creates a Profiler over ds.
func NewProfiler(ds *dataset.Dataset) *Profiler {
	return &Profiler{ds: ds, cache: make(map[string]ColumnProfile)}
}

// Dataset returns the profiled dataset.
func (p *Profiler) Dataset() *dataset.Dataset { return p.ds }

// Profile returns the cached profile of the named column, computing it on
// first use.
func (p *Profiler) Profile(name string) (ColumnProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cp, ok := p.cache[name]; ok {
		return cp, nil
	}
	cp, err := Compute(p.ds, name)
	if err != nil {
		return ColumnProfile{}, err
	}
	p.cache[name] = cp
	return cp, nil
}

// All returns the profiles of every column in declaration order.
func (p *Profiler) All() []ColumnProfile {
	names := p.ds.Names()
	out := make([]ColumnProfile, 0, len(names))
	for _, name := range names {
		cp, err := p.Profile(name)
		if err != nil {
			continue
		}
		out = append(out, cp)
	}
	return out
}

// Correlation returns the Pearson correlation between two numeric columns
// over rows where both are present. It is 0 when either column is missing,
// non-numeric or has no spread.
func Correlation(ds *dataset.Dataset, a, b string) float64 {
	ca, ok := ds.Column(a)
	if !ok || !ca.IsNumeric() {
		return 0
	}
	cb, ok := ds.Column(b)
	if !ok || !cb.IsNumeric() {
		return 0
	}
	return PearsonComplete(ca.Floats(), cb.Floats())
}

// PearsonComplete computes the Pearson correlation of x and y ignoring rows
// where either value is NaN. Degenerate inputs yield 0.
func PearsonComplete(x, y []float64) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if i >= len(y) || math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}
