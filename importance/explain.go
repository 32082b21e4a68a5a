package importance

import "strings"

// Explain builds the rule-based explanation of a feature score.
func Explain(s FeatureScore, target string) string {
	var clauses []string
	switch {
	case s.CorrScore > 0.7:
		clauses = append(clauses, "strong correlation")
	case s.CorrScore > 0.4:
		clauses = append(clauses, "moderate correlation")
	}
	switch {
	case s.RFScore > 0.1:
		clauses = append(clauses, "high importance in decision-tree models")
	case s.RFScore > 0.05:
		clauses = append(clauses, "moderate importance")
	}
	if s.MIScore > 0.1 {
		clauses = append(clauses, "shares significant information with the target")
	}
	if len(clauses) == 0 {
		return "contributes to predicting " + target
	}
	return strings.Join(clauses, " and ")
}
