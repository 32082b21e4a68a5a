// Package selection validates a requested prediction target and feature set
// against column quality rules and recommends a replacement selection when
// the request is unusable.
package selection

// IssueKind classifies why a requested variable was rejected.
type IssueKind string

const (
	NotFound     IssueKind = "not_found"
	NotNumeric   IssueKind = "not_numeric"
	NoVariance   IssueKind = "no_variance"
	TooManyNulls IssueKind = "too_many_nulls"
	IDColumn     IssueKind = "id_column"
	Constant     IssueKind = "constant"
)

// Issue is one failed validation rule for one variable.
type Issue struct {
	Variable string    `json:"variable"`
	Kind     IssueKind `json:"kind"`
	Message  string    `json:"message"`
	// Target is true for issues raised against the requested target.
	Target bool `json:"target"`
}

// Result is the outcome of validating a selection. SuggestedTarget is empty
// when no usable target exists.
type Result struct {
	Valid             bool     `json:"valid"`
	OverrideNeeded    bool     `json:"override_needed"`
	Issues            []Issue  `json:"issues"`
	SuggestedTarget   string   `json:"suggested_target,omitempty"`
	SuggestedFeatures []string `json:"suggested_features"`
	Confidence        float64  `json:"confidence"`
	Explanation       string   `json:"explanation"`
}

// HasTarget reports whether the result carries a usable target.
func (r Result) HasTarget() bool { return r.SuggestedTarget != "" }

// TargetIssues returns the issues raised against the target.
func (r Result) TargetIssues() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Target {
			out = append(out, is)
		}
	}
	return out
}

// FeatureIssues returns the issues raised against features.
func (r Result) FeatureIssues() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if !is.Target {
			out = append(out, is)
		}
	}
	return out
}
