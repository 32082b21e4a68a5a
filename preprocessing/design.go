package preprocessing

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/dataset"
	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// DefaultMaxLevels caps one-hot expansion per categorical column.
const DefaultMaxLevels = 50

// Design is a numeric design matrix built from dataset columns. Every
// expanded column maps back to the original feature it came from.
type Design struct {
	// X holds one row per retained dataset row.
	X *mat.Dense
	// Y is the target as an n×1 matrix.
	Y *mat.Dense
	// Columns names the expanded columns ("color=red" for one-hot levels).
	Columns []string
	// Groups[j] is the index into Features of expanded column j.
	Groups []int
	// Features lists the original feature names in request order.
	Features []string
	// Rows maps design rows back to dataset rows.
	Rows []int
}

// DesignOption configures BuildDesign.
type DesignOption func(*designConfig)

type designConfig struct {
	maxLevels int
}

// WithMaxLevels caps the number of one-hot levels per column. Levels beyond
// the cap (least frequent first) are encoded as all zeros.
func WithMaxLevels(n int) DesignOption {
	return func(c *designConfig) { c.maxLevels = n }
}

// BuildDesign encodes features against a numeric target. Rows whose target
// is missing are dropped. Numeric and datetime features keep their values
// with NaN imputed by the column median; other features are one-hot
// expanded.
func BuildDesign(ds *dataset.Dataset, target string, features []string, opts ...DesignOption) (*Design, error) {
	cfg := designConfig{maxLevels: DefaultMaxLevels}
	for _, opt := range opts {
		opt(&cfg)
	}

	tcol, ok := ds.Column(target)
	if !ok {
		return nil, errors.Wrapf(errors.ErrColumnNotFound, "target %q", target)
	}
	if !tcol.IsNumeric() {
		return nil, errors.NewValueError("BuildDesign", "target "+target+" is not numeric")
	}
	if len(features) == 0 {
		return nil, errors.NewValueError("BuildDesign", "no features")
	}

	yAll := tcol.Floats()
	var rows []int
	for i, v := range yAll {
		if !math.IsNaN(v) {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, errors.NewModelError("BuildDesign", "target has no values", errors.ErrEmptyData)
	}

	d := &Design{Features: append([]string(nil), features...), Rows: rows}
	var blocks [][]float64
	for g, name := range features {
		col, ok := ds.Column(name)
		if !ok {
			return nil, errors.Wrapf(errors.ErrColumnNotFound, "feature %q", name)
		}
		names, values := encode(col, rows, cfg.maxLevels)
		for k := range names {
			d.Columns = append(d.Columns, names[k])
			d.Groups = append(d.Groups, g)
			blocks = append(blocks, values[k])
		}
	}

	n := len(rows)
	if len(blocks) == 0 {
		// 全特徴量が欠損のみの場合は定数列1本にする
		blocks = [][]float64{make([]float64, n)}
		d.Columns = []string{"(constant)"}
		d.Groups = []int{0}
	}
	d.X = mat.NewDense(n, len(blocks), nil)
	for j, block := range blocks {
		d.X.SetCol(j, block)
	}
	d.Y = mat.NewDense(n, 1, nil)
	for i, r := range rows {
		d.Y.Set(i, 0, yAll[r])
	}
	return d, nil
}

// Target returns a copy of the target values.
func (d *Design) Target() []float64 {
	return mat.Col(nil, 0, d.Y)
}

// Column returns a copy of expanded column j.
func (d *Design) Column(j int) []float64 {
	return mat.Col(nil, j, d.X)
}

// Aggregate sums per-expanded-column scores into per-feature scores.
func (d *Design) Aggregate(scores []float64) []float64 {
	out := make([]float64, len(d.Features))
	for j, s := range scores {
		if j < len(d.Groups) {
			out[d.Groups[j]] += s
		}
	}
	return out
}

// encode returns the expanded column names and values of col restricted to rows.
func encode(col *dataset.Column, rows []int, maxLevels int) ([]string, [][]float64) {
	if vals := col.Floats(); vals != nil {
		out := make([]float64, len(rows))
		var present []float64
		for i, r := range rows {
			out[i] = vals[r]
			if !math.IsNaN(vals[r]) {
				present = append(present, vals[r])
			}
		}
		fill := 0.0
		if len(present) > 0 {
			fill = median(present)
		}
		for i, v := range out {
			if math.IsNaN(v) {
				out[i] = fill
			}
		}
		return []string{col.Name()}, [][]float64{out}
	}

	strs := col.Strings()
	levels := topLevels(strs, rows, maxLevels)
	names := make([]string, len(levels))
	values := make([][]float64, len(levels))
	index := make(map[string]int, len(levels))
	for k, level := range levels {
		names[k] = col.Name() + "=" + level
		values[k] = make([]float64, len(rows))
		index[level] = k
	}
	for i, r := range rows {
		if k, ok := index[strs[r]]; ok {
			values[k][i] = 1
		}
	}
	return names, values
}

// topLevels returns up to maxLevels non-missing levels ordered by
// descending frequency, ties broken by first appearance.
func topLevels(strs []string, rows []int, maxLevels int) []string {
	counts := make(map[string]int)
	var order []string
	for _, r := range rows {
		s := strs[r]
		if s == "" {
			continue
		}
		if _, seen := counts[s]; !seen {
			order = append(order, s)
		}
		counts[s]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if maxLevels > 0 && len(order) > maxLevels {
		order = order[:maxLevels]
	}
	return order
}

// median sorts xs in place and returns its middle value, averaging the two
// central values for even lengths.
func median(xs []float64) float64 {
	sort.Float64s(xs)
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}
