// Package domain contains the record model of one repository analysis session.
// Records are immutable snapshots: nothing downstream mutates them.
package domain

import (
	"net/url"
	"strings"
)

// RepositorySummary holds the repository-level counters.
type RepositorySummary struct {
	Name            string    `json:"name" yaml:"name"`
	FullName        string    `json:"full_name" yaml:"full_name"`
	Description     string    `json:"description" yaml:"description"`
	Language        string    `json:"language" yaml:"language"`
	CreatedAt       Timestamp `json:"created_at" yaml:"created_at"`
	UpdatedAt       Timestamp `json:"updated_at" yaml:"updated_at"`
	StarCount       int       `json:"stargazers_count" yaml:"stargazers_count"`
	ForkCount       int       `json:"forks_count" yaml:"forks_count"`
	OpenIssuesCount int       `json:"open_issues_count" yaml:"open_issues_count"`
}

// Commit is a single authored commit.
type Commit struct {
	SHA        string
	Author     string
	AuthoredAt Timestamp
	Message    string
}

// Issue is an issue that is not a pull request.
type Issue struct {
	ID        int64
	Title     string
	State     string
	CreatedAt Timestamp
	ClosedAt  Timestamp
}

// PullRequest is a pull request in any state.
type PullRequest struct {
	ID        int64
	Title     string
	CreatedAt Timestamp
	MergedAt  Timestamp
	Author    string
}

// Review is one submitted review on a pull request.
type Review struct {
	PullRequestID int64
	Reviewer      string
	SubmittedAt   Timestamp
	Body          string
}

// Fork is a fork of the repository.
type Fork struct {
	Username  string
	CreatedAt Timestamp
	AvatarURL string
}

// Snapshot bundles the six collections fetched for one repository.
type Snapshot struct {
	Repository   RepositorySummary
	Commits      []Commit
	Issues       []Issue
	PullRequests []PullRequest
	Reviews      []Review
	Forks        []Fork
}

// RepoRef identifies a repository by owner and name.
type RepoRef struct {
	Owner string
	Name  string
}

func (r RepoRef) String() string { return r.Owner + "/" + r.Name }

// ParseRepoRef accepts 'owner/name' or a URL such as https://github.com/owner/name.
func ParseRepoRef(s string) (RepoRef, error) {
	v := strings.TrimSpace(s)
	if strings.Contains(v, "://") {
		u, err := url.Parse(v)
		if err != nil {
			return RepoRef{}, &ErrInvalidRepoFormat{Repo: s}
		}
		v = u.Path
	}
	v = strings.TrimSuffix(strings.Trim(v, "/"), ".git")
	parts := strings.Split(v, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, &ErrInvalidRepoFormat{Repo: s}
	}
	return RepoRef{Owner: parts[0], Name: parts[1]}, nil
}
