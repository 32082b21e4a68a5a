package dataset

import "math"

// ProblemType distinguishes regression from classification targets.
type ProblemType string

const (
	Regression     ProblemType = "regression"
	Classification ProblemType = "classification"
)

// MaxClassificationLevels is the number of distinct integer target values
// below which a target is treated as class labels.
const MaxClassificationLevels = 20

// DetectProblemType returns Classification when every non-missing value of y
// is an integer and there are fewer than MaxClassificationLevels distinct
// values, Regression otherwise.
func DetectProblemType(y []float64) ProblemType {
	distinct := make(map[float64]struct{})
	for _, v := range y {
		if math.IsNaN(v) {
			continue
		}
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return Regression
		}
		distinct[v] = struct{}{}
		if len(distinct) >= MaxClassificationLevels {
			return Regression
		}
	}
	if len(distinct) == 0 {
		return Regression
	}
	return Classification
}

// Valid reports whether p is a known problem type.
func (p ProblemType) Valid() bool {
	return p == Regression || p == Classification
}
