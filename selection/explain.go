package selection

import (
	"fmt"
	"strings"
)

const (
	maxTargetIssuesShown  = 3
	maxFeatureIssuesShown = 5
)

func explain(res Result) string {
	var b strings.Builder

	if !res.OverrideNeeded {
		fmt.Fprintf(&b, "The requested selection is valid: target %q with %d features.\n", res.SuggestedTarget, len(res.SuggestedFeatures))
		fmt.Fprintf(&b, "Confidence: %.2f", res.Confidence)
		return b.String()
	}

	writeIssues(&b, "Target issues", res.TargetIssues(), maxTargetIssuesShown)
	writeIssues(&b, "Feature issues", res.FeatureIssues(), maxFeatureIssuesShown)

	if !res.HasTarget() {
		b.WriteString("No column in the dataset can serve as a prediction target.\n")
		fmt.Fprintf(&b, "Confidence: %.2f", res.Confidence)
		return b.String()
	}

	fmt.Fprintf(&b, "Recommended target: %s\n", res.SuggestedTarget)
	if len(res.SuggestedFeatures) > 0 {
		fmt.Fprintf(&b, "Recommended features: %s\n", strings.Join(res.SuggestedFeatures, ", "))
	} else {
		b.WriteString("Recommended features: none\n")
	}
	fmt.Fprintf(&b, "Confidence: %.2f", res.Confidence)
	return b.String()
}

func writeIssues(b *strings.Builder, title string, issues []Issue, limit int) {
	if len(issues) == 0 {
		return
	}
	b.WriteString(title + ":\n")
	for i, is := range issues {
		if i == limit {
			fmt.Fprintf(b, "- ... and %d more\n", len(issues)-limit)
			break
		}
		fmt.Fprintf(b, "- %s (%s): %s\n", is.Variable, is.Kind, is.Message)
	}
}
