package selection

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/autotune/dataset"
	"github.com/YuminosukeSato/autotune/pkg/errors"
	"github.com/YuminosukeSato/autotune/pkg/log"
	"github.com/YuminosukeSato/autotune/profile"
)

const (
	maxTargetNullRatio  = 0.5
	maxFeatureNullRatio = 0.8

	// DefaultMaxFeatures is the number of features recommended at most.
	DefaultMaxFeatures = 10

	cvCap       = 10.0
	cvEpsilon   = 1e-10
	targetNullW = 0.4
	targetCVW   = 0.6

	ConfidenceValid       = 0.95
	ConfidenceSubstituted = 0.85
	ConfidenceNone        = 0.0
)

// Validator checks requested selections and recommends replacements.
type Validator struct {
	maxFeatures int
	profiler    *profile.Profiler
	logger      log.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithMaxFeatures sets how many features are recommended at most.
func WithMaxFeatures(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxFeatures = n
		}
	}
}

// WithProfiler shares a profile cache with other components. It is used
// only when validating the profiler's own dataset.
func WithProfiler(p *profile.Profiler) Option {
	return func(v *Validator) {
		v.profiler = p
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(v *Validator) {
		v.logger = l
	}
}

// NewValidator creates a Validator.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{maxFeatures: DefaultMaxFeatures}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = log.GetLoggerWithName("selection")
	}
	return v
}

// Validate checks target and features against ds with default options.
func Validate(ds *dataset.Dataset, target string, features []string) Result {
	return NewValidator().Validate(ds, target, features)
}

// Validate checks the requested target and features against ds.
//
// A request that passes every rule is returned as is with confidence 0.95.
// Otherwise a recommendation is made: a valid requested target is kept, an
// invalid or missing one is replaced by the best candidate target, and the
// features are re-ranked against the chosen target. When no column can serve
// as a target the result carries confidence 0 and no suggestions.
func (v *Validator) Validate(ds *dataset.Dataset, target string, features []string) Result {
	prof := v.profiler
	if prof == nil || prof.Dataset() != ds {
		prof = profile.NewProfiler(ds)
	}

	res := Result{SuggestedFeatures: []string{}}

	targetOK := false
	if target != "" {
		if is, ok := checkTarget(prof, target); ok {
			targetOK = true
		} else {
			res.Issues = append(res.Issues, is)
		}
	}

	var accepted []string
	seen := map[string]bool{target: true}
	for _, f := range features {
		if seen[f] {
			continue
		}
		seen[f] = true
		if is, ok := checkFeature(prof, f); ok {
			accepted = append(accepted, f)
		} else {
			res.Issues = append(res.Issues, is)
		}
	}

	res.Valid = targetOK && len(res.Issues) == 0
	res.OverrideNeeded = !res.Valid || len(accepted) == 0

	if !res.OverrideNeeded {
		res.SuggestedTarget = target
		res.SuggestedFeatures = accepted
		res.Confidence = ConfidenceValid
		res.Explanation = explain(res)
		v.logResult(target, res)
		return res
	}

	chosen := target
	if !targetOK {
		chosen = recommendTarget(prof)
	}
	if chosen == "" {
		res.Confidence = ConfidenceNone
		res.Explanation = explain(res)
		v.logResult(target, res)
		return res
	}

	res.SuggestedTarget = chosen
	res.SuggestedFeatures = recommendFeatures(prof, chosen, v.maxFeatures)
	res.Confidence = ConfidenceSubstituted
	res.Explanation = explain(res)
	v.logResult(target, res)
	return res
}

func (v *Validator) logResult(requested string, res Result) {
	v.logger.Info("Selection validated",
		log.OperationKey, log.OperationValidate,
		log.TargetKey, requested,
		"selection.valid", res.Valid,
		"selection.issues", len(res.Issues),
		"selection.suggested_target", res.SuggestedTarget,
		log.FeaturesKey, len(res.SuggestedFeatures),
		log.ConfidenceKey, res.Confidence,
	)
}

// checkTarget applies the target rules in order; the first failure wins.
func checkTarget(prof *profile.Profiler, name string) (Issue, bool) {
	p, err := prof.Profile(name)
	if err != nil {
		return newIssue(name, NotFound, true, fmt.Sprintf("column %q does not exist", name)), false
	}
	if !p.IsNumeric {
		return newIssue(name, NotNumeric, true, fmt.Sprintf("column %q is %s, the target must be numeric", name, p.Type)), false
	}
	if p.StdDev <= 0 {
		return newIssue(name, NoVariance, true, fmt.Sprintf("column %q has zero standard deviation", name)), false
	}
	if p.NullRatio > maxTargetNullRatio {
		return newIssue(name, TooManyNulls, true, fmt.Sprintf("column %q is %.1f%% missing (max %.0f%%)", name, p.NullRatio*100, maxTargetNullRatio*100)), false
	}
	return Issue{}, true
}

func checkFeature(prof *profile.Profiler, name string) (Issue, bool) {
	p, err := prof.Profile(name)
	if err != nil {
		return newIssue(name, NotFound, false, fmt.Sprintf("column %q does not exist", name)), false
	}
	if p.IsIdentifierLike {
		return newIssue(name, IDColumn, false, fmt.Sprintf("column %q looks like an identifier (unique ratio %.2f)", name, p.UniqueRatio)), false
	}
	if p.IsConstant() {
		return newIssue(name, Constant, false, fmt.Sprintf("column %q has a single distinct value", name)), false
	}
	if p.NullRatio > maxFeatureNullRatio {
		return newIssue(name, TooManyNulls, false, fmt.Sprintf("column %q is %.1f%% missing (max %.0f%%)", name, p.NullRatio*100, maxFeatureNullRatio*100)), false
	}
	return Issue{}, true
}

func newIssue(name string, kind IssueKind, target bool, msg string) Issue {
	return Issue{Variable: name, Kind: kind, Target: target, Message: msg}
}

// TargetScore rates a candidate target by completeness and relative spread.
func TargetScore(p profile.ColumnProfile) float64 {
	cv := p.StdDev / (math.Abs(p.Mean) + cvEpsilon)
	cv = errors.ClipValue(cv, 0, cvCap)
	return (1-p.NullRatio)*targetNullW + cv/cvCap*targetCVW
}

// recommendTarget returns the best numeric, non-identifier column with
// variance, or "" when none exists. Ties go to the earlier column.
func recommendTarget(prof *profile.Profiler) string {
	best, bestScore := "", math.Inf(-1)
	for _, p := range prof.All() {
		if !p.IsNumeric || p.IsIdentifierLike || p.StdDev <= 0 || p.NullRatio > maxTargetNullRatio {
			continue
		}
		if s := TargetScore(p); s > bestScore {
			best, bestScore = p.Name, s
		}
	}
	return best
}

type scoredFeature struct {
	name  string
	score float64
}

// recommendFeatures ranks every eligible column by quality against target
// and returns the top max names.
func recommendFeatures(prof *profile.Profiler, target string, max int) []string {
	ds := prof.Dataset()
	var scored []scoredFeature
	for _, p := range prof.All() {
		if p.Name == target || p.IsIdentifierLike || p.IsConstant() || p.NullRatio > maxFeatureNullRatio {
			continue
		}
		corr := profile.Correlation(ds, p.Name, target)
		scored = append(scored, scoredFeature{name: p.Name, score: profile.QualityScore(p, corr)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > max {
		scored = scored[:max]
	}
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.name
	}
	return out
}
