package metrics

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/naka-gawa/repo-insights/internal/domain"
)

// Key names a metric that a query can resolve to.
type Key string

const (
	KeyCommitFrequency   Key = "commit_frequency"
	KeyIssueResolution   Key = "issue_resolution"
	KeyPRMergeRate       Key = "pr_merge_rate"
	KeyCodeReviewMetrics Key = "code_review_metrics"
)

// Report holds every metric derived from one snapshot.
type Report struct {
	Repository      domain.RepositorySummary `json:"repository" yaml:"repository"`
	StarRating      float64                  `json:"star_rating" yaml:"star_rating"`
	CommitFrequency Result[[]MonthlyCount]   `json:"commit_frequency" yaml:"commit_frequency"`
	IssueResolution Result[float64]          `json:"issue_resolution_days" yaml:"issue_resolution_days"`
	IssueCounts     Result[[]IssueMonth]     `json:"issue_counts_by_month" yaml:"issue_counts_by_month"`
	IssueStatus     Result[StatusSplit]      `json:"issue_status" yaml:"issue_status"`
	PRMergeTime     Result[float64]          `json:"pr_merge_time_days" yaml:"pr_merge_time_days"`
	PRMergeRate     Result[float64]          `json:"pr_merge_rate_percent" yaml:"pr_merge_rate_percent"`
	ReviewDensity   Result[float64]          `json:"review_density" yaml:"review_density"`
	ForkFrequency   Result[[]MonthlyCount]   `json:"fork_frequency" yaml:"fork_frequency"`
}

// Fingerprint hashes the record collections of a snapshot so identical
// inputs map to the same memo entry.
func Fingerprint(snap *domain.Snapshot) (string, error) {
	h := sha256.New()
	if err := json.NewEncoder(h).Encode(snap); err != nil {
		return "", fmt.Errorf("failed to fingerprint snapshot: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Memo caches reports by snapshot fingerprint. It is owned by the caller
// and safe for concurrent use.
type Memo struct {
	mu      sync.Mutex
	reports map[string]*Report
}

// NewMemo creates an empty Memo.
func NewMemo() *Memo {
	return &Memo{reports: make(map[string]*Report)}
}

func (m *Memo) Get(key string) (*Report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[key]
	return r, ok
}

func (m *Memo) Put(key string, r *Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[key] = r
}

// Len returns the number of cached reports.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

// Lookup returns the result named by a query key or a report field name.
func (r *Report) Lookup(name string) (any, bool) {
	switch name {
	case string(KeyCommitFrequency):
		return r.CommitFrequency, true
	case string(KeyIssueResolution), "issue_resolution_days":
		return r.IssueResolution, true
	case string(KeyPRMergeRate):
		return map[string]any{"merge_time_days": r.PRMergeTime, "merged_percent": r.PRMergeRate}, true
	case string(KeyCodeReviewMetrics), "review_density":
		return r.ReviewDensity, true
	case "issue_counts_by_month":
		return r.IssueCounts, true
	case "issue_status":
		return r.IssueStatus, true
	case "pr_merge_time_days":
		return r.PRMergeTime, true
	case "pr_merge_rate_percent":
		return r.PRMergeRate, true
	case "fork_frequency":
		return r.ForkFrequency, true
	}
	return nil, false
}
