package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/naka-gawa/repo-insights/internal/metrics"
)

// Metric answers a resolved query with the matching part of the report.
func Metric(w io.Writer, r *metrics.Report, key metrics.Key) error {
	var b strings.Builder
	switch key {
	case metrics.KeyCommitFrequency:
		headerColor.Fprintln(&b, "Commit Frequency")
		series(&b, r.CommitFrequency)
	case metrics.KeyIssueResolution:
		fmt.Fprintf(&b, "Average issue resolution time: %s\n", scalar(r.IssueResolution, "%.2f days"))
	case metrics.KeyPRMergeRate:
		fmt.Fprintf(&b, "Average pull request merge time: %s\n", scalar(r.PRMergeTime, "%.2f days"))
		fmt.Fprintf(&b, "Pull requests merged: %s\n", scalar(r.PRMergeRate, "%.1f%%"))
	case metrics.KeyCodeReviewMetrics:
		fmt.Fprintf(&b, "Average reviews per reviewed pull request: %s\n", scalar(r.ReviewDensity, "%.2f"))
	default:
		return fmt.Errorf("unknown metric %q", key)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
