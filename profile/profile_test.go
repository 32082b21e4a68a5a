package profile

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/autotune/dataset"
	"github.com/YuminosukeSato/autotune/pkg/errors"
)

func seq(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func housing(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		dataset.NewNumeric("id", seq(100, func(i int) float64 { return float64(i) })),
		dataset.NewNumeric("price", seq(100, func(int) float64 { return 100 })),
		dataset.NewNumeric("sqft", seq(100, func(i int) float64 { return 1000 + float64(i)*20 })),
		dataset.NewNumeric("ratio", seq(100, func(i int) float64 { return float64(i) + 0.5 })),
		dataset.NewCategorical("city", func() []string {
			out := make([]string, 100)
			for i := range out {
				if i%4 != 0 {
					out[i] = []string{"tokyo", "osaka"}[i%2]
				}
			}
			return out
		}()),
	)
	require.NoError(t, err)
	return ds
}

func TestComputeNumeric(t *testing.T) {
	ds := housing(t)

	p, err := Compute(ds, "price")
	require.NoError(t, err)
	assert.True(t, p.IsNumeric)
	assert.Equal(t, 0.0, p.StdDev)
	assert.False(t, p.HasVariance())
	assert.True(t, p.IsConstant())
	assert.Equal(t, 0.0, p.VarianceComponent())

	p, err = Compute(ds, "sqft")
	require.NoError(t, err)
	assert.InDelta(t, 1990.0, p.Mean, 1e-9)
	assert.Greater(t, p.StdDev, 0.0)
	assert.True(t, p.IsIntegerValued)
	assert.Equal(t, 0.3, p.VarianceComponent())
}

func TestIdentifierLike(t *testing.T) {
	ds := housing(t)

	tests := []struct {
		column string
		want   bool
	}{
		{"id", true},     // consecutive row counter
		{"sqft", false},  // all unique integers with a step of 20
		{"ratio", false}, // all unique but continuous
		{"price", false},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			p, err := Compute(ds, tt.column)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.IsIdentifierLike)
		})
	}

	ratio, _ := Compute(ds, "ratio")
	assert.Equal(t, 1.0, ratio.UniqueRatio)
	assert.True(t, ratio.IsContinuous())

	// 名前が識別子なら連番でなくても該当する
	ds3 := dataset.MustNew(
		dataset.NewNumeric("customer_id", seq(10, func(i int) float64 { return float64(100 + i*7) })),
		dataset.NewCategorical("name", []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}),
	)
	cid, _ := Compute(ds3, "customer_id")
	assert.True(t, cid.IsIdentifierLike)
	name, _ := Compute(ds3, "name")
	assert.True(t, name.IsIdentifierLike)

	near := make([]string, 20)
	for i := range near {
		near[i] = string(rune('a' + i))
	}
	near[19] = near[0]
	ds2 := dataset.MustNew(
		dataset.NewCategorical("order_code", near),
		dataset.NewCategorical("label", near),
	)
	code, _ := Compute(ds2, "order_code")
	assert.InDelta(t, 0.95, code.UniqueRatio, 1e-12)
	assert.True(t, code.IsIdentifierLike)
	label, _ := Compute(ds2, "label")
	assert.False(t, label.IsIdentifierLike)
}

func TestComputeCategoricalWithNulls(t *testing.T) {
	p, err := Compute(housing(t), "city")
	require.NoError(t, err)
	assert.False(t, p.IsNumeric)
	assert.InDelta(t, 0.25, p.NullRatio, 1e-12)
	assert.Equal(t, 2, p.UniqueCount)
	assert.True(t, p.HasVariance())
	assert.Equal(t, 0.15, p.VarianceComponent())
}

func TestComputeNotFound(t *testing.T) {
	_, err := Compute(housing(t), "bedrooms")
	assert.True(t, errors.Is(err, errors.ErrColumnNotFound))
}

func TestQualityScore(t *testing.T) {
	ds := housing(t)
	sqft, _ := Compute(ds, "sqft")
	city, _ := Compute(ds, "city")
	price, _ := Compute(ds, "price")

	assert.InDelta(t, 0.4+0.3+0.5*0.3, QualityScore(sqft, -0.5), 1e-12)
	assert.InDelta(t, 0.75*0.4+0.15, QualityScore(city, 0), 1e-12)
	assert.InDelta(t, 0.4, QualityScore(price, 0), 1e-12)
}

func TestCorrelation(t *testing.T) {
	ds := housing(t)
	assert.InDelta(t, 1.0, Correlation(ds, "sqft", "id"), 1e-12)
	assert.Equal(t, 0.0, Correlation(ds, "sqft", "price"))
	assert.Equal(t, 0.0, Correlation(ds, "sqft", "city"))
	assert.Equal(t, 0.0, Correlation(ds, "sqft", "nope"))

	r := PearsonComplete([]float64{1, 2, math.NaN(), 4}, []float64{2, 4, 5, 8})
	assert.InDelta(t, 1.0, r, 1e-12)
}

func TestProfilerCachesConcurrently(t *testing.T) {
	p := NewProfiler(housing(t))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cp, err := p.Profile("sqft")
			assert.NoError(t, err)
			assert.Equal(t, "sqft", cp.Name)
		}()
	}
	wg.Wait()

	all := p.All()
	require.Len(t, all, 5)
	assert.Equal(t, "id", all[0].Name)
	assert.Equal(t, "city", all[4].Name)
}
