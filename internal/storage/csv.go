// Package storage persists raw record collections as CSV files, one file per
// record type, keyed by repository name. Saving overwrites.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/naka-gawa/repo-insights/internal/domain"
)

// Record type suffixes used in file names.
const (
	KindRepo         = "repo"
	KindCommits      = "commits"
	KindIssues       = "issues"
	KindPullRequests = "pull_requests"
	KindReviews      = "reviews"
	KindForks        = "forks"
)

var (
	repoHeader   = []string{"name", "full_name", "description", "language", "created_at", "updated_at", "stargazers_count", "forks_count", "open_issues_count"}
	commitHeader = []string{"sha", "author", "date", "message"}
	issueHeader  = []string{"id", "title", "state", "created_at", "closed_at"}
	prHeader     = []string{"id", "title", "created_at", "merged_at", "user"}
	reviewHeader = []string{"pr_id", "reviewer", "submitted_at", "body"}
	forkHeader   = []string{"username", "date", "profile_image"}
)

// CSVStore reads and writes snapshots under a directory.
type CSVStore struct {
	dir    string
	logger *slog.Logger
}

// NewCSVStore creates the storage directory if needed.
func NewCSVStore(dir string, logger *slog.Logger) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &CSVStore{dir: dir, logger: logger}, nil
}

// Path returns the file that holds one record type of a repository.
func (s *CSVStore) Path(repoName, kind string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", repoName, kind))
}

// Save writes every collection of the snapshot verbatim.
func (s *CSVStore) Save(snap *domain.Snapshot) error {
	name := snap.Repository.Name
	if name == "" {
		return errors.New("snapshot has no repository name")
	}
	r := snap.Repository
	tables := []struct {
		kind   string
		header []string
		rows   [][]string
	}{
		{KindRepo, repoHeader, [][]string{{
			r.Name, r.FullName, r.Description, r.Language,
			r.CreatedAt.String(), r.UpdatedAt.String(),
			strconv.Itoa(r.StarCount), strconv.Itoa(r.ForkCount), strconv.Itoa(r.OpenIssuesCount),
		}}},
		{KindCommits, commitHeader, commitRows(snap.Commits)},
		{KindIssues, issueHeader, issueRows(snap.Issues)},
		{KindPullRequests, prHeader, pullRequestRows(snap.PullRequests)},
		{KindReviews, reviewHeader, reviewRows(snap.Reviews)},
		{KindForks, forkHeader, forkRows(snap.Forks)},
	}
	for _, t := range tables {
		path := s.Path(name, t.kind)
		if err := writeTable(path, t.header, t.rows); err != nil {
			return fmt.Errorf("failed to save %s: %w", t.kind, err)
		}
		s.logger.Debug("Data saved", "path", path, "rows", len(t.rows))
	}
	return nil
}

// Load reads back a snapshot saved under repoName. Either every collection
// loads or an error is returned.
func (s *CSVStore) Load(repoName string) (*domain.Snapshot, error) {
	var snap domain.Snapshot

	repo, err := readTable(s.Path(repoName, KindRepo), repoHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", KindRepo, err)
	}
	if len(repo.rows) != 1 {
		return nil, fmt.Errorf("failed to load %s: expected 1 row, got %d", KindRepo, len(repo.rows))
	}
	if snap.Repository, err = repo.summary(repo.rows[0]); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", KindRepo, err)
	}

	commits, err := readTable(s.Path(repoName, KindCommits), commitHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", KindCommits, err)
	}
	for _, row := range commits.rows {
		snap.Commits = append(snap.Commits, domain.Commit{
			SHA:        commits.get(row, "sha"),
			Author:     commits.get(row, "author"),
			AuthoredAt: domain.ParseTimestamp(commits.get(row, "date")),
			Message:    commits.get(row, "message"),
		})
	}

	issues, err := readTable(s.Path(repoName, KindIssues), issueHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", KindIssues, err)
	}
	for _, row := range issues.rows {
		id, err := issues.int64Col(row, "id")
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", KindIssues, err)
		}
		snap.Issues = append(snap.Issues, domain.Issue{
			ID:        id,
			Title:     issues.get(row, "title"),
			State:     issues.get(row, "state"),
			CreatedAt: domain.ParseTimestamp(issues.get(row, "created_at")),
			ClosedAt:  domain.ParseTimestamp(issues.get(row, "closed_at")),
		})
	}

	prs, err := readTable(s.Path(repoName, KindPullRequests), prHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", KindPullRequests, err)
	}
	for _, row := range prs.rows {
		id, err := prs.int64Col(row, "id")
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", KindPullRequests, err)
		}
		snap.PullRequests = append(snap.PullRequests, domain.PullRequest{
			ID:        id,
			Title:     prs.get(row, "title"),
			CreatedAt: domain.ParseTimestamp(prs.get(row, "created_at")),
			MergedAt:  domain.ParseTimestamp(prs.get(row, "merged_at")),
			Author:    prs.get(row, "user"),
		})
	}

	reviews, err := readTable(s.Path(repoName, KindReviews), reviewHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", KindReviews, err)
	}
	for _, row := range reviews.rows {
		// A bad pr_id is kept as 0 so the metric can report it as malformed.
		prID, _ := reviews.int64Col(row, "pr_id")
		snap.Reviews = append(snap.Reviews, domain.Review{
			PullRequestID: prID,
			Reviewer:      reviews.get(row, "reviewer"),
			SubmittedAt:   domain.ParseTimestamp(reviews.get(row, "submitted_at")),
			Body:          reviews.get(row, "body"),
		})
	}

	forks, err := readTable(s.Path(repoName, KindForks), forkHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", KindForks, err)
	}
	for _, row := range forks.rows {
		snap.Forks = append(snap.Forks, domain.Fork{
			Username:  forks.get(row, "username"),
			CreatedAt: domain.ParseTimestamp(forks.get(row, "date")),
			AvatarURL: forks.get(row, "profile_image"),
		})
	}

	s.logger.Debug("Data loaded", "repo", repoName, "commits", len(snap.Commits), "issues", len(snap.Issues))
	return &snap, nil
}

func commitRows(commits []domain.Commit) [][]string {
	rows := make([][]string, 0, len(commits))
	for _, c := range commits {
		rows = append(rows, []string{c.SHA, c.Author, c.AuthoredAt.String(), c.Message})
	}
	return rows
}

func issueRows(issues []domain.Issue) [][]string {
	rows := make([][]string, 0, len(issues))
	for _, is := range issues {
		rows = append(rows, []string{
			strconv.FormatInt(is.ID, 10), is.Title, is.State,
			is.CreatedAt.String(), is.ClosedAt.Format(domain.NotClosed),
		})
	}
	return rows
}

func pullRequestRows(prs []domain.PullRequest) [][]string {
	rows := make([][]string, 0, len(prs))
	for _, pr := range prs {
		rows = append(rows, []string{
			strconv.FormatInt(pr.ID, 10), pr.Title,
			pr.CreatedAt.String(), pr.MergedAt.Format(domain.NotMerged), pr.Author,
		})
	}
	return rows
}

func reviewRows(reviews []domain.Review) [][]string {
	rows := make([][]string, 0, len(reviews))
	for _, rv := range reviews {
		rows = append(rows, []string{strconv.FormatInt(rv.PullRequestID, 10), rv.Reviewer, rv.SubmittedAt.String(), rv.Body})
	}
	return rows
}

func forkRows(forks []domain.Fork) [][]string {
	rows := make([][]string, 0, len(forks))
	for _, f := range forks {
		rows = append(rows, []string{f.Username, f.CreatedAt.String(), f.AvatarURL})
	}
	return rows
}
