package tuning

import (
	"time"

	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/dataset"
	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// Status is the lifecycle state of one search.
type Status string

const (
	StatusNotStarted    Status = "NOT_STARTED"
	StatusSpaceResolved Status = "SPACE_RESOLVED"
	StatusSearching     Status = "SEARCHING"
	StatusDone          Status = "DONE"
	StatusFailed        Status = "FAILED"
)

// 許可される状態遷移。FAILEDはDONE以外のどこからでも到達可能。
var transitions = map[Status][]Status{
	StatusNotStarted:    {StatusSpaceResolved, StatusFailed},
	StatusSpaceResolved: {StatusSearching, StatusFailed},
	StatusSearching:     {StatusDone, StatusFailed},
}

func canTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Strategy is the caller's search hint.
type Strategy string

const (
	// StrategyFast samples a fixed budget of candidates with few folds.
	StrategyFast Strategy = "fast"
	// StrategyThorough evaluates the full cartesian product with more folds.
	StrategyThorough Strategy = "thorough"
)

// ParseStrategy accepts "fast" or "thorough"; the empty string means fast.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyFast:
		return StrategyFast, nil
	case StrategyThorough:
		return StrategyThorough, nil
	}
	return "", errors.NewValidationError("strategy", "must be 'fast' or 'thorough'", s)
}

// SearchKind records how candidates were enumerated.
type SearchKind string

const (
	Exhaustive SearchKind = "exhaustive"
	Sampled    SearchKind = "sampled"
)

// SearchResult is the immutable outcome of one search or baseline run.
type SearchResult struct {
	Family              Family                 `json:"model_family" yaml:"model_family"`
	ProblemType         dataset.ProblemType    `json:"problem_type" yaml:"problem_type"`
	Status              Status                 `json:"status" yaml:"status"`
	Cause               string                 `json:"cause,omitempty" yaml:"cause,omitempty"`
	BestParams          map[string]interface{} `json:"best_params" yaml:"best_params"`
	BestScore           float64                `json:"best_score" yaml:"best_score"`
	CVScores            []float64              `json:"cv_scores,omitempty" yaml:"cv_scores,omitempty"`
	CVFoldCount         int                    `json:"cv_fold_count" yaml:"cv_fold_count"`
	SearchStrategy      SearchKind             `json:"search_strategy" yaml:"search_strategy"`
	CandidatesEvaluated int                    `json:"candidates_evaluated" yaml:"candidates_evaluated"`
	Duration            time.Duration          `json:"duration_ns" yaml:"duration_ns"`

	// TrainedModel is the best candidate refitted on all rows.
	TrainedModel model.Estimator `json:"-" yaml:"-"`

	err error
}

// Failed reports whether the search ended in FAILED.
func (r *SearchResult) Failed() bool { return r.Status == StatusFailed }

// Err returns the SearchFailedError of a failed result, nil otherwise.
func (r *SearchResult) Err() error {
	if !r.Failed() {
		return nil
	}
	return r.err
}

// NewFailedResult returns a FAILED result for a search that could not be
// started, e.g. because no training data could be encoded.
func NewFailedResult(family Family, pt dataset.ProblemType, cause string, err error) *SearchResult {
	return &SearchResult{
		Family:      family,
		ProblemType: pt,
		Status:      StatusFailed,
		Cause:       cause,
		BestParams:  map[string]interface{}{},
		err:         errors.NewSearchFailedError(family.String(), cause, err),
	}
}
