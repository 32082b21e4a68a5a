package tuning

import (
	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/dataset"
	"github.com/YuminosukeSato/autotune/pkg/errors"
	"github.com/YuminosukeSato/autotune/preprocessing"
	"github.com/YuminosukeSato/autotune/sklearn/ensemble"
	"github.com/YuminosukeSato/autotune/sklearn/linear_model"
	"github.com/YuminosukeSato/autotune/sklearn/neighbors"
	"github.com/YuminosukeSato/autotune/sklearn/tree"
)

// Space maps a hyperparameter name to its ordered candidate values. A nil
// value means "no limit" for size-like parameters.
type Space map[string][]interface{}

// Keys returns the parameter names.
func (s Space) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}

// Constructor builds an unfitted estimator with library defaults for the
// problem type, seeded where the estimator is randomised.
type Constructor func(pt dataset.ProblemType, seed int64) (model.Estimator, error)

// FamilySpec describes how one family is built and tuned.
type FamilySpec struct {
	Family Family
	// Supports lists the problem types the family can solve.
	Supports []dataset.ProblemType
	// Spaces holds problem-specific search spaces.
	Spaces map[dataset.ProblemType]Space
	// Fallback is used when Spaces has no entry for the problem type.
	Fallback Space
	New      Constructor
}

// Supported reports whether the family can solve pt.
func (s FamilySpec) Supported(pt dataset.ProblemType) bool {
	for _, p := range s.Supports {
		if p == pt {
			return true
		}
	}
	return false
}

// ResolveSpace returns the search space for pt: the problem-specific entry,
// then the fallback. ok is false when the family has nothing to tune.
func (s FamilySpec) ResolveSpace(pt dataset.ProblemType) (Space, bool) {
	if space, ok := s.Spaces[pt]; ok && len(space) > 0 {
		return space, true
	}
	if len(s.Fallback) > 0 {
		return s.Fallback, true
	}
	return Space{}, false
}

// Registry maps families to their specs. It is immutable after construction
// and safe for concurrent use.
type Registry struct {
	specs map[Family]FamilySpec
	order []Family
}

// NewRegistry builds a registry from specs. Later specs replace earlier
// ones for the same family.
func NewRegistry(specs ...FamilySpec) (*Registry, error) {
	r := &Registry{specs: make(map[Family]FamilySpec, len(specs))}
	for _, spec := range specs {
		if _, known := familyNames[spec.Family]; !known {
			return nil, errors.Wrapf(errors.ErrUnsupportedFamily, "family %d", int(spec.Family))
		}
		if spec.New == nil {
			return nil, errors.NewValidationError("New", "constructor is required", spec.Family.String())
		}
		if len(spec.Supports) == 0 {
			return nil, errors.NewValidationError("Supports", "at least one problem type is required", spec.Family.String())
		}
		if _, exists := r.specs[spec.Family]; !exists {
			r.order = append(r.order, spec.Family)
		}
		r.specs[spec.Family] = spec
	}
	return r, nil
}

// RegistryOption customises DefaultRegistry.
type RegistryOption func(*[]FamilySpec)

// WithFamily adds or replaces a family spec.
func WithFamily(spec FamilySpec) RegistryOption {
	return func(specs *[]FamilySpec) { *specs = append(*specs, spec) }
}

// DefaultRegistry returns the built-in families. It panics only if an
// option supplies an invalid spec.
func DefaultRegistry(opts ...RegistryOption) *Registry {
	specs := DefaultSpecs()
	for _, opt := range opts {
		opt(&specs)
	}
	r, err := NewRegistry(specs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the spec of f.
func (r *Registry) Lookup(f Family) (FamilySpec, bool) {
	spec, ok := r.specs[f]
	return spec, ok
}

// Families returns the registered families in registration order.
func (r *Registry) Families() []Family {
	return append([]Family(nil), r.order...)
}

// FamiliesFor returns the registered families supporting pt.
func (r *Registry) FamiliesFor(pt dataset.ProblemType) []Family {
	var out []Family
	for _, f := range r.order {
		if r.specs[f].Supported(pt) {
			out = append(out, f)
		}
	}
	return out
}

var (
	regressionOnly     = []dataset.ProblemType{dataset.Regression}
	classificationOnly = []dataset.ProblemType{dataset.Classification}
	bothProblems       = []dataset.ProblemType{dataset.Regression, dataset.Classification}
)

// DefaultSpecs returns the built-in family specs.
func DefaultSpecs() []FamilySpec {
	treeSpace := Space{
		"max_depth":         {nil, 3, 5, 10, 20},
		"min_samples_split": {2, 5, 10},
		"min_samples_leaf":  {1, 2, 4},
	}
	treeClassSpace := Space{
		"criterion":         {"gini", "entropy"},
		"max_depth":         {nil, 3, 5, 10, 20},
		"min_samples_split": {2, 5, 10},
		"min_samples_leaf":  {1, 2, 4},
	}

	return []FamilySpec{
		{
			Family:   LinearRegression,
			Supports: regressionOnly,
			New: func(dataset.ProblemType, int64) (model.Estimator, error) {
				return linear_model.NewLinearRegression(), nil
			},
		},
		{
			Family:   Ridge,
			Supports: regressionOnly,
			Fallback: Space{"alpha": {0.01, 0.1, 1.0, 10.0, 100.0}},
			New: func(dataset.ProblemType, int64) (model.Estimator, error) {
				return linear_model.NewRidge(), nil
			},
		},
		{
			Family:   LogisticRegression,
			Supports: classificationOnly,
			Fallback: Space{"C": {0.01, 0.1, 1.0, 10.0, 100.0}},
			New: func(_ dataset.ProblemType, seed int64) (model.Estimator, error) {
				return preprocessing.NewScaledEstimator(
					linear_model.NewLogisticRegression(linear_model.WithLRRandomState(seed)),
				), nil
			},
		},
		{
			Family:   DecisionTree,
			Supports: bothProblems,
			Spaces:   map[dataset.ProblemType]Space{dataset.Classification: treeClassSpace},
			Fallback: treeSpace,
			New: func(pt dataset.ProblemType, seed int64) (model.Estimator, error) {
				if pt == dataset.Classification {
					return tree.NewDecisionTreeClassifier(tree.WithRandomState(seed)), nil
				}
				return tree.NewDecisionTreeRegressor(tree.WithRandomState(seed)), nil
			},
		},
		{
			Family:   RandomForest,
			Supports: bothProblems,
			Fallback: Space{
				"n_estimators":      {50, 100, 200},
				"max_depth":         {nil, 10, 20},
				"min_samples_split": {2, 5},
				"min_samples_leaf":  {1, 2},
			},
			New: func(pt dataset.ProblemType, seed int64) (model.Estimator, error) {
				if pt == dataset.Classification {
					return ensemble.NewRandomForestClassifier(ensemble.WithRandomState(seed)), nil
				}
				return ensemble.NewRandomForestRegressor(ensemble.WithRandomState(seed)), nil
			},
		},
		{
			Family:   KNN,
			Supports: bothProblems,
			Fallback: Space{
				"n_neighbors": {3, 5, 7, 9, 11},
				"weights":     {"uniform", "distance"},
			},
			New: func(pt dataset.ProblemType, _ int64) (model.Estimator, error) {
				if pt == dataset.Classification {
					return preprocessing.NewScaledEstimator(neighbors.NewKNeighborsClassifier()), nil
				}
				return preprocessing.NewScaledEstimator(neighbors.NewKNeighborsRegressor()), nil
			},
		},
	}
}
