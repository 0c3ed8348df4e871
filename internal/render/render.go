// Package render turns metric reports into JSON, YAML or terminal text.
// It binds presentation field names; the metrics package stays neutral.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/naka-gawa/repo-insights/internal/metrics"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

const barWidth = 40

var (
	headerColor = color.New(color.FgHiBlue, color.Bold)
	barColor    = color.New(color.FgCyan)
	openColor   = color.New(color.FgYellow)
	noteColor   = color.New(color.FgHiBlack)
)

// Report writes the report in the requested format.
func Report(w io.Writer, r *metrics.Report, format string) error {
	switch format {
	case FormatJSON, "":
		// Marshal the results into a pretty-printed JSON string.
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report to JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to marshal report to YAML: %w", err)
		}
		return enc.Close()
	case FormatText:
		return text(w, r)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func text(w io.Writer, r *metrics.Report) error {
	var b strings.Builder
	repo := r.Repository

	headerColor.Fprintln(&b, "Repository Overview")
	fmt.Fprintf(&b, "  Name:        %s\n", repo.FullName)
	fmt.Fprintf(&b, "  Description: %s\n", repo.Description)
	fmt.Fprintf(&b, "  Language:    %s\n", repo.Language)
	fmt.Fprintf(&b, "  Created:     %s\n", repo.CreatedAt)
	fmt.Fprintf(&b, "  Updated:     %s\n", repo.UpdatedAt)
	fmt.Fprintf(&b, "  Stars:       %d  %s\n", repo.StarCount, stars(r.StarRating))
	fmt.Fprintf(&b, "  Forks:       %d\n", repo.ForkCount)
	fmt.Fprintf(&b, "  Open issues: %d\n\n", repo.OpenIssuesCount)

	headerColor.Fprintln(&b, "Commit Frequency")
	series(&b, r.CommitFrequency)
	headerColor.Fprintln(&b, "Forks by Month")
	series(&b, r.ForkFrequency)

	headerColor.Fprintln(&b, "Issues by Month (created cohort)")
	switch r.IssueCounts.Kind {
	case metrics.KindValue:
		peak := 0
		for _, m := range r.IssueCounts.Value {
			peak = max(peak, m.Total)
		}
		for _, m := range r.IssueCounts.Value {
			fmt.Fprintf(&b, "  %s %s%s %d/%d resolved\n", m.Month,
				barColor.Sprint(bar(m.Resolved, peak)), openColor.Sprint(bar(m.Unresolved, peak)), m.Resolved, m.Total)
		}
	default:
		noteColor.Fprintf(&b, "  %s\n", r.IssueCounts.Message)
	}
	b.WriteString("\n")

	headerColor.Fprintln(&b, "Summary")
	switch r.IssueStatus.Kind {
	case metrics.KindValue:
		fmt.Fprintf(&b, "  Issue status:           %d resolved, %d unresolved\n", r.IssueStatus.Value.Resolved, r.IssueStatus.Value.Unresolved)
	default:
		fmt.Fprintf(&b, "  Issue status:           %s\n", r.IssueStatus.Message)
	}
	fmt.Fprintf(&b, "  Issue resolution time:  %s\n", scalar(r.IssueResolution, "%.2f days"))
	fmt.Fprintf(&b, "  PR merge time:          %s\n", scalar(r.PRMergeTime, "%.2f days"))
	fmt.Fprintf(&b, "  PR merge rate:          %s\n", scalar(r.PRMergeRate, "%.1f%%"))
	fmt.Fprintf(&b, "  Reviews per reviewed PR: %s\n", scalar(r.ReviewDensity, "%.2f"))

	_, err := io.WriteString(w, b.String())
	return err
}

func series(b *strings.Builder, r metrics.Result[[]metrics.MonthlyCount]) {
	switch r.Kind {
	case metrics.KindValue:
		peak := 0
		for _, m := range r.Value {
			peak = max(peak, m.Count)
		}
		for _, m := range r.Value {
			fmt.Fprintf(b, "  %s %s %d\n", m.Month, barColor.Sprint(bar(m.Count, peak)), m.Count)
		}
		if r.Excluded > 0 {
			noteColor.Fprintf(b, "  (%d records excluded)\n", r.Excluded)
		}
	default:
		noteColor.Fprintf(b, "  %s\n", r.Message)
	}
	b.WriteString("\n")
}

func scalar(r metrics.Result[float64], format string) string {
	switch r.Kind {
	case metrics.KindValue:
		return fmt.Sprintf(format, r.Value)
	default:
		return r.Message
	}
}

func bar(n, peak int) string {
	if peak == 0 || n == 0 {
		return ""
	}
	width := n * barWidth / peak
	if width == 0 {
		width = 1
	}
	return strings.Repeat("█", width)
}

func stars(rating float64) string {
	full := int(rating)
	return strings.Repeat("★", full) + strings.Repeat("☆", 5-full)
}
