// Package importance ranks candidate features against a target by combining
// tree-ensemble importance, mutual information and absolute correlation.
package importance

import "github.com/YuminosukeSato/autotune/dataset"

// Combination weights of the three relevance signals.
const (
	RFWeight   = 0.4
	MIWeight   = 0.4
	CorrWeight = 0.2
)

// Method names one relevance signal.
type Method string

const (
	MethodRandomForest Method = "random_forest"
	MethodMutualInfo   Method = "mutual_info"
	MethodCorrelation  Method = "correlation"
)

// FeatureScore is the relevance of one original column.
type FeatureScore struct {
	Feature       string  `json:"feature"`
	RFScore       float64 `json:"rf_score"`
	MIScore       float64 `json:"mi_score"`
	CorrScore     float64 `json:"corr_score"`
	CombinedScore float64 `json:"combined_score"`
	Explanation   string  `json:"explanation"`
}

// MethodResult is the outcome of one method over all features. When Err is
// set, Scores is nil and every feature scores 0 for that method.
type MethodResult struct {
	Method Method
	Scores map[string]float64
	Err    error
}

// Score returns the score of feature, 0 when the method failed or did not
// score it.
func (r MethodResult) Score(feature string) float64 {
	if r.Err != nil {
		return 0
	}
	return r.Scores[feature]
}

// Ranking is the full output of one aggregation.
type Ranking struct {
	Target      string              `json:"target"`
	ProblemType dataset.ProblemType `json:"problem_type"`
	Scores      []FeatureScore      `json:"scores"`
	// Excluded lists identifier-like columns left out of the ranking.
	Excluded []string `json:"excluded,omitempty"`
	// Failures maps a failed method to its error message.
	Failures map[Method]string `json:"failures,omitempty"`
}

// Features returns the ranked feature names, best first.
func (r *Ranking) Features() []string {
	out := make([]string, len(r.Scores))
	for i, s := range r.Scores {
		out[i] = s.Feature
	}
	return out
}

// Lookup returns the score of feature.
func (r *Ranking) Lookup(feature string) (FeatureScore, bool) {
	for _, s := range r.Scores {
		if s.Feature == feature {
			return s, true
		}
	}
	return FeatureScore{}, false
}

// Combine returns 0.4·rf + 0.4·mi + 0.2·corr.
func Combine(rf, mi, corr float64) float64 {
	return RFWeight*rf + MIWeight*mi + CorrWeight*corr
}
