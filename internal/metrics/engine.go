// Package metrics derives aggregate series and scalar statistics from the
// raw records of one repository.
package metrics

import (
	"fmt"
	"math"
	"strconv"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/repo-insights/internal/domain"
)

const (
	msgNoCommits      = "No commit data available."
	msgNoIssues       = "No issue data available."
	msgNoPullRequests = "No pull request data available."
	msgNoReviews      = "No code review data available."
	msgNoForks        = "No fork data available."
	msgNoResolved     = "No resolved issues."
	msgNoMerged       = "No merged pull requests."
	msgAllMalformed   = "Every record was dropped as malformed."
)

// StatusSplit is the cumulative resolved/unresolved issue snapshot.
type StatusSplit struct {
	Resolved   int `json:"resolved" yaml:"resolved"`
	Unresolved int `json:"unresolved" yaml:"unresolved"`
}

// Engine evaluates metrics for one repository. It holds no mutable state,
// so its operations may run in parallel.
type Engine struct {
	summary     domain.RepositorySummary
	commitCount int
}

// NewEngine creates an Engine gated on the given repository counters.
func NewEngine(summary domain.RepositorySummary, commitCount int) *Engine {
	return &Engine{summary: summary, commitCount: commitCount}
}

// precheck applies the validity gate and the per-metric emptiness check.
func precheck[T any](e *Engine, n int, empty string) (Result[T], bool) {
	if msg, ok := Check(e.summary, e.commitCount); !ok {
		return insufficient[T](msg), true
	}
	if n == 0 {
		return noData[T](empty, nil), true
	}
	return Result[T]{}, false
}

// CommitFrequencyByMonth counts commits per UTC calendar month. The series
// is continuous: months without commits between the first and last active
// month appear with a zero count.
func (e *Engine) CommitFrequencyByMonth(commits []domain.Commit) Result[[]MonthlyCount] {
	if r, stop := precheck[[]MonthlyCount](e, len(commits), msgNoCommits); stop {
		return r
	}
	stamps := make([]domain.Timestamp, 0, len(commits))
	for _, c := range commits {
		stamps = append(stamps, c.AuthoredAt)
	}
	zone := newZoneGuard(stamps)
	var problems []error
	counts := make(map[Month]int)
	for _, c := range commits {
		t, err := zone.instant("commit", c.SHA, "date", c.AuthoredAt)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		counts[MonthOf(t)]++
	}
	if len(counts) == 0 {
		return noData[[]MonthlyCount](msgAllMalformed, problems)
	}
	return valueOf(fillCounts(counts), problems)
}

// ForkCountsByMonth counts forks per creation month, gap-filled like
// CommitFrequencyByMonth.
func (e *Engine) ForkCountsByMonth(forks []domain.Fork) Result[[]MonthlyCount] {
	if r, stop := precheck[[]MonthlyCount](e, len(forks), msgNoForks); stop {
		return r
	}
	stamps := make([]domain.Timestamp, 0, len(forks))
	for _, f := range forks {
		stamps = append(stamps, f.CreatedAt)
	}
	zone := newZoneGuard(stamps)
	var problems []error
	counts := make(map[Month]int)
	for _, f := range forks {
		t, err := zone.instant("fork", f.Username, "date", f.CreatedAt)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		counts[MonthOf(t)]++
	}
	if len(counts) == 0 {
		return noData[[]MonthlyCount](msgAllMalformed, problems)
	}
	return valueOf(fillCounts(counts), problems)
}

// issueSpans resolves the created/closed interval of every usable issue.
func issueSpans(issues []domain.Issue) ([]interval, []error) {
	stamps := make([]domain.Timestamp, 0, 2*len(issues))
	for _, is := range issues {
		stamps = append(stamps, is.CreatedAt, is.ClosedAt)
	}
	zone := newZoneGuard(stamps)
	var problems []error
	spans := make([]interval, 0, len(issues))
	for _, is := range issues {
		iv, ok, err := zone.span("issue", strconv.FormatInt(is.ID, 10), "created_at", is.CreatedAt, "closed_at", is.ClosedAt)
		if err != nil {
			problems = append(problems, err)
		}
		if ok {
			spans = append(spans, iv)
		}
	}
	return spans, problems
}

// IssueResolutionMean is the mean number of whole days between creation and
// closing, over resolved issues only.
func (e *Engine) IssueResolutionMean(issues []domain.Issue) Result[float64] {
	if r, stop := precheck[float64](e, len(issues), msgNoIssues); stop {
		return r
	}
	spans, problems := issueSpans(issues)
	var days stats.Float64Data
	for _, iv := range spans {
		if iv.ended {
			days = append(days, iv.days())
		}
	}
	return meanOf(days, msgNoResolved, problems)
}

// IssueCountsByMonth groups issues into created-month cohorts. An issue
// counts as resolved in the month it was created, whenever it closed.
func (e *Engine) IssueCountsByMonth(issues []domain.Issue) Result[[]IssueMonth] {
	if r, stop := precheck[[]IssueMonth](e, len(issues), msgNoIssues); stop {
		return r
	}
	spans, problems := issueSpans(issues)
	if len(spans) == 0 {
		return noData[[]IssueMonth](msgAllMalformed, problems)
	}
	buckets := make(map[Month]IssueMonth)
	for _, iv := range spans {
		m := MonthOf(iv.start)
		b := buckets[m]
		b.Total++
		if iv.ended {
			b.Resolved++
		}
		buckets[m] = b
	}
	months := monthSpan(buckets)
	series := make([]IssueMonth, 0, len(months))
	for _, m := range months {
		b := buckets[m]
		b.Month = m
		b.Unresolved = b.Total - b.Resolved
		series = append(series, b)
	}
	return valueOf(series, problems)
}

// IssueStatusSplit counts resolved and unresolved issues across all time.
func (e *Engine) IssueStatusSplit(issues []domain.Issue) Result[StatusSplit] {
	if r, stop := precheck[StatusSplit](e, len(issues), msgNoIssues); stop {
		return r
	}
	spans, problems := issueSpans(issues)
	if len(spans) == 0 {
		return noData[StatusSplit](msgAllMalformed, problems)
	}
	var split StatusSplit
	for _, iv := range spans {
		if iv.ended {
			split.Resolved++
		}
	}
	split.Unresolved = len(spans) - split.Resolved
	return valueOf(split, problems)
}

func pullRequestSpans(prs []domain.PullRequest) ([]interval, []error) {
	stamps := make([]domain.Timestamp, 0, 2*len(prs))
	for _, pr := range prs {
		stamps = append(stamps, pr.CreatedAt, pr.MergedAt)
	}
	zone := newZoneGuard(stamps)
	var problems []error
	spans := make([]interval, 0, len(prs))
	for _, pr := range prs {
		iv, ok, err := zone.span("pull request", strconv.FormatInt(pr.ID, 10), "created_at", pr.CreatedAt, "merged_at", pr.MergedAt)
		if err != nil {
			problems = append(problems, err)
		}
		if ok {
			spans = append(spans, iv)
		}
	}
	return spans, problems
}

// PRMergeTimeMean is the mean number of whole days from creation to merge,
// over merged pull requests only.
func (e *Engine) PRMergeTimeMean(prs []domain.PullRequest) Result[float64] {
	if r, stop := precheck[float64](e, len(prs), msgNoPullRequests); stop {
		return r
	}
	spans, problems := pullRequestSpans(prs)
	var days stats.Float64Data
	for _, iv := range spans {
		if iv.ended {
			days = append(days, iv.days())
		}
	}
	return meanOf(days, msgNoMerged, problems)
}

// PRMergeRate is the percentage of pull requests that were merged.
func (e *Engine) PRMergeRate(prs []domain.PullRequest) Result[float64] {
	if r, stop := precheck[float64](e, len(prs), msgNoPullRequests); stop {
		return r
	}
	spans, problems := pullRequestSpans(prs)
	if len(spans) == 0 {
		return noData[float64](msgAllMalformed, problems)
	}
	merged := 0
	for _, iv := range spans {
		if iv.ended {
			merged++
		}
	}
	return valueOf(float64(merged)/float64(len(spans))*100, problems)
}

// ReviewDensityMean is the mean number of reviews per pull request, over
// pull requests that received at least one review. It measures review
// intensity when review happens, not reviews per pull request overall.
func (e *Engine) ReviewDensityMean(reviews []domain.Review) Result[float64] {
	if r, stop := precheck[float64](e, len(reviews), msgNoReviews); stop {
		return r
	}
	var problems []error
	perPR := make(map[int64]int)
	order := make([]int64, 0)
	for _, rv := range reviews {
		if rv.PullRequestID <= 0 {
			problems = append(problems, fmt.Errorf("review by %q: %w", rv.Reviewer, ErrMissingPullRequest))
			continue
		}
		if _, ok := perPR[rv.PullRequestID]; !ok {
			order = append(order, rv.PullRequestID)
		}
		perPR[rv.PullRequestID]++
	}
	counts := make(stats.Float64Data, 0, len(order))
	for _, id := range order {
		counts = append(counts, float64(perPR[id]))
	}
	return meanOf(counts, msgAllMalformed, problems)
}

// StarRating maps the star count onto a 0-5 scale, one point per 50 stars.
func StarRating(summary domain.RepositorySummary) float64 {
	return math.Min(float64(summary.StarCount)/50, 5)
}

func meanOf(data stats.Float64Data, empty string, problems []error) Result[float64] {
	if data.Len() == 0 {
		return noData[float64](empty, problems)
	}
	m, err := stats.Mean(data)
	if err != nil {
		return noData[float64](err.Error(), problems)
	}
	return valueOf(m, problems)
}
