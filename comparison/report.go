// Package comparison aggregates per-family search results into a report and
// selects the overall best model.
package comparison

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/autotune/dataset"
	"github.com/YuminosukeSato/autotune/pkg/errors"
	"github.com/YuminosukeSato/autotune/pkg/log"
	"github.com/YuminosukeSato/autotune/tuning"
)

// Entry compares one family's tuned score with its default-parameter score.
type Entry struct {
	Family              tuning.Family          `json:"model_family" yaml:"model_family"`
	DefaultScore        float64                `json:"default_score" yaml:"default_score"`
	OptimizedScore      float64                `json:"optimized_score" yaml:"optimized_score"`
	ImprovementPercent  float64                `json:"improvement_percent" yaml:"improvement_percent"`
	BestParams          map[string]interface{} `json:"best_params" yaml:"best_params"`
	CandidatesEvaluated int                    `json:"candidates_evaluated" yaml:"candidates_evaluated"`
	HasBaseline         bool                   `json:"has_baseline" yaml:"has_baseline"`
	Status              tuning.Status          `json:"status" yaml:"status"`
	Cause               string                 `json:"cause,omitempty" yaml:"cause,omitempty"`
}

// Failed reports whether the tuned search failed.
func (e Entry) Failed() bool { return e.Status == tuning.StatusFailed }

// Report is the ordered comparison of every searched family.
type Report struct {
	ProblemType dataset.ProblemType `json:"problem_type,omitempty" yaml:"problem_type,omitempty"`
	Metric      string              `json:"metric,omitempty" yaml:"metric,omitempty"`
	Entries     []Entry             `json:"entries" yaml:"entries"`
	// BestOverall indexes Entries; -1 when every search failed.
	BestOverall int `json:"best_overall" yaml:"best_overall"`
}

// MetricName returns the scoring metric used for pt.
func MetricName(pt dataset.ProblemType) string {
	if pt == dataset.Classification {
		return "accuracy"
	}
	return "r2"
}

// ImprovementPercent returns (optimized-default)/default*100, or 0 when the
// default score is zero.
func ImprovementPercent(defaultScore, optimizedScore float64) float64 {
	if defaultScore == 0 {
		return 0
	}
	return errors.FiniteOrZero((optimizedScore - defaultScore) / defaultScore * 100)
}

// Compare builds a report with one entry per result, in input order.
// Baselines are matched by family; the first baseline of a family wins and
// failed baselines are ignored. A result without a baseline still gets an
// entry (HasBaseline false, improvement 0) and can be selected as best.
func Compare(results, baselines []*tuning.SearchResult) *Report {
	base := make(map[tuning.Family]*tuning.SearchResult, len(baselines))
	for _, b := range baselines {
		if b == nil || b.Failed() {
			continue
		}
		if _, seen := base[b.Family]; !seen {
			base[b.Family] = b
		}
	}

	report := &Report{Entries: make([]Entry, 0, len(results)), BestOverall: -1}
	for _, res := range results {
		if res == nil {
			continue
		}
		if report.ProblemType == "" && res.ProblemType.Valid() {
			report.ProblemType = res.ProblemType
			report.Metric = MetricName(res.ProblemType)
		}
		entry := Entry{
			Family:              res.Family,
			BestParams:          res.BestParams,
			CandidatesEvaluated: res.CandidatesEvaluated,
			Status:              res.Status,
			Cause:               res.Cause,
		}
		if !res.Failed() {
			entry.OptimizedScore = res.BestScore
		}
		if b, ok := base[res.Family]; ok {
			entry.HasBaseline = true
			entry.DefaultScore = b.BestScore
			if !res.Failed() {
				entry.ImprovementPercent = ImprovementPercent(b.BestScore, res.BestScore)
			}
		}
		report.Entries = append(report.Entries, entry)
	}
	report.BestOverall = selectBest(report.Entries)

	log.GetLoggerWithName("comparison").Debug("Comparison built",
		log.OperationKey, log.OperationCompare,
		"entries", len(report.Entries),
		"best_overall", report.BestOverall,
	)
	return report
}

// selectBest picks the highest optimized score, then fewer candidates, then
// the earliest entry.
func selectBest(entries []Entry) int {
	best := -1
	for i, e := range entries {
		if e.Failed() {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		b := entries[best]
		switch {
		case e.OptimizedScore > b.OptimizedScore:
			best = i
		case e.OptimizedScore == b.OptimizedScore && e.CandidatesEvaluated < b.CandidatesEvaluated:
			best = i
		}
	}
	return best
}

// Best returns the selected entry.
func (r *Report) Best() (Entry, bool) {
	if r == nil || r.BestOverall < 0 || r.BestOverall >= len(r.Entries) {
		return Entry{}, false
	}
	return r.Entries[r.BestOverall], true
}

// Lookup returns the entry of family.
func (r *Report) Lookup(family tuning.Family) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Family == family {
			return e, true
		}
	}
	return Entry{}, false
}

// Summary renders the report as deterministic prose.
func (r *Report) Summary() string {
	var sb strings.Builder
	metric := r.Metric
	if metric == "" {
		metric = "score"
	}

	if best, ok := r.Best(); ok {
		fmt.Fprintf(&sb, "Best model: %s (%s %.4f", best.Family, metric, best.OptimizedScore)
		if best.HasBaseline {
			fmt.Fprintf(&sb, ", %+.2f%% over defaults", best.ImprovementPercent)
		}
		fmt.Fprintf(&sb, ", %d candidates evaluated)\n", best.CandidatesEvaluated)
	} else {
		sb.WriteString("No model family completed its search\n")
	}

	for _, e := range r.Entries {
		if e.Failed() {
			fmt.Fprintf(&sb, "- %s: failed (%s)\n", e.Family, e.Cause)
			continue
		}
		if e.HasBaseline {
			fmt.Fprintf(&sb, "- %s: default %.4f, optimized %.4f (%+.2f%%)\n",
				e.Family, e.DefaultScore, e.OptimizedScore, e.ImprovementPercent)
			continue
		}
		fmt.Fprintf(&sb, "- %s: optimized %.4f\n", e.Family, e.OptimizedScore)
	}
	return sb.String()
}
