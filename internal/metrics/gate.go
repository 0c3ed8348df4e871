package metrics

import "github.com/naka-gawa/repo-insights/internal/domain"

// InsufficientDataMessage is the explanation carried by every
// KindInsufficientData outcome.
const InsufficientDataMessage = "Need more information. The repository has no stars, forks, open issues, or commits."

// Check is the validity gate. It passes unless the repository shows no
// activity at all. Passing is necessary, not sufficient: each metric still
// checks its own input.
func Check(summary domain.RepositorySummary, commitCount int) (string, bool) {
	if summary.StarCount == 0 && summary.ForkCount == 0 && summary.OpenIssuesCount == 0 && commitCount == 0 {
		return InsufficientDataMessage, false
	}
	return "", true
}
