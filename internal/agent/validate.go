package agent

import (
	"strings"

	"github.com/scipeer/reviewd/internal/review"
)

// NormalizeIssues drops unusable model findings and canonicalizes fields.
// An issue without a description is useless downstream and is removed.
func NormalizeIssues(issues []Issue) []Issue {
	out := make([]Issue, 0, len(issues))
	for _, issue := range issues {
		issue.Issue = strings.TrimSpace(issue.Issue)
		if issue.Issue == "" {
			continue
		}
		issue.Suggestion = strings.TrimSpace(issue.Suggestion)
		issue.LineHint = strings.TrimSpace(issue.LineHint)
		issue.Severity = NormalizeSeverity(issue.Severity)
		out = append(out, issue)
	}
	return out
}

// NormalizeSeverity maps severity text onto the known levels. Anything the
// model invents collapses to info.
func NormalizeSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case review.SeverityError:
		return review.SeverityError
	case review.SeverityWarning:
		return review.SeverityWarning
	default:
		return review.SeverityInfo
	}
}
