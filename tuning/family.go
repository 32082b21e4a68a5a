// Package tuning resolves hyperparameter search spaces per model family and
// runs cross-validated exhaustive or sampled searches over them.
package tuning

import (
	"strings"

	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// Family is a supported model family.
type Family int

const (
	LinearRegression Family = iota + 1
	Ridge
	LogisticRegression
	DecisionTree
	RandomForest
	KNN
)

var familyNames = map[Family]string{
	LinearRegression:   "linear_regression",
	Ridge:              "ridge",
	LogisticRegression: "logistic_regression",
	DecisionTree:       "decision_tree",
	RandomForest:       "random_forest",
	KNN:                "knn",
}

// AllFamilies lists every family in declaration order.
func AllFamilies() []Family {
	return []Family{LinearRegression, Ridge, LogisticRegression, DecisionTree, RandomForest, KNN}
}

// String returns the family identifier, e.g. "random_forest".
func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFamily converts an identifier into a Family. Matching ignores case
// and surrounding spaces.
func ParseFamily(s string) (Family, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for f, n := range familyNames {
		if n == name {
			return f, nil
		}
	}
	return 0, errors.Wrapf(errors.ErrUnsupportedFamily, "%q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Family) UnmarshalText(text []byte) error {
	parsed, err := ParseFamily(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
