// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/naka-gawa/repo-insights/internal/domain"
)

// Fetcher defines the behavior of a gateway for fetching the records of one repository.
// Each method returns a complete collection or an error, never a partial one.
type Fetcher interface {
	FetchRepository(ctx context.Context, repo domain.RepoRef) (domain.RepositorySummary, error)
	FetchCommits(ctx context.Context, repo domain.RepoRef) ([]domain.Commit, error)
	FetchIssues(ctx context.Context, repo domain.RepoRef) ([]domain.Issue, error)
	FetchPullRequests(ctx context.Context, repo domain.RepoRef) ([]domain.PullRequest, error)
	FetchReviews(ctx context.Context, repo domain.RepoRef) ([]domain.Review, error)
	FetchForks(ctx context.Context, repo domain.RepoRef) ([]domain.Fork, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *slog.Logger
}

type reviewNode struct {
	Author struct {
		Login githubv4.String
	}
	SubmittedAt *githubv4.DateTime
	Body        githubv4.String
}

type reviewConnection struct {
	PageInfo struct {
		HasNextPage bool
		EndCursor   githubv4.String
	}
	Nodes []reviewNode
}

// reviewsQuery pages through pull requests and collects their reviews in one round trip per page.
type reviewsQuery struct {
	Repository struct {
		PullRequests struct {
			PageInfo struct {
				HasNextPage bool
				EndCursor   githubv4.String
			}
			Nodes []struct {
				DatabaseID githubv4.Int
				Number     githubv4.Int
				Reviews    reviewConnection `graphql:"reviews(first: 100)"`
			}
		} `graphql:"pullRequests(first: 50, after: $cursor)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// pullRequestReviewsQuery continues the reviews of one pull request past the first page.
type pullRequestReviewsQuery struct {
	Repository struct {
		PullRequest struct {
			Reviews reviewConnection `graphql:"reviews(first: 100, after: $cursor)"`
		} `graphql:"pullRequest(number: $number)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, logger *slog.Logger) (Fetcher, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

func (g *GitHubGateway) FetchRepository(ctx context.Context, repo domain.RepoRef) (domain.RepositorySummary, error) {
	g.logger.Info("[1/6] Fetching repository summary...", "repo", repo.String())
	r, _, err := g.restClient.Repositories.Get(ctx, repo.Owner, repo.Name)
	if err != nil {
		return domain.RepositorySummary{}, fmt.Errorf("failed to get repository: %w", err)
	}
	return toRepositorySummary(r), nil
}

func (g *GitHubGateway) FetchCommits(ctx context.Context, repo domain.RepoRef) ([]domain.Commit, error) {
	g.logger.Info("[2/6] Fetching commit data...", "repo", repo.String())
	opts := &github.CommitsListOptions{ListOptions: github.ListOptions{PerPage: 100}}
	var commits []domain.Commit
	for {
		page, resp, err := g.restClient.Repositories.ListCommits(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list commits: %w", err)
		}
		for _, c := range page {
			commits = append(commits, toCommit(c))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Debug("Fetching next page of commits...", "page", opts.Page)
	}
	g.logger.Info("Completed fetching commit data.", "count", len(commits))
	return commits, nil
}

func (g *GitHubGateway) FetchIssues(ctx context.Context, repo domain.RepoRef) ([]domain.Issue, error) {
	g.logger.Info("[3/6] Fetching issue data...", "repo", repo.String())
	opts := &github.IssueListByRepoOptions{State: "all", ListOptions: github.ListOptions{PerPage: 100}}
	var issues []domain.Issue
	for {
		page, resp, err := g.restClient.Issues.ListByRepo(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list issues: %w", err)
		}
		for _, is := range page {
			// The issues endpoint also returns pull requests.
			if is.IsPullRequest() {
				continue
			}
			issues = append(issues, toIssue(is))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Debug("Fetching next page of issues...", "page", opts.Page)
	}
	g.logger.Info("Completed fetching issue data.", "count", len(issues))
	return issues, nil
}

func (g *GitHubGateway) FetchPullRequests(ctx context.Context, repo domain.RepoRef) ([]domain.PullRequest, error) {
	g.logger.Info("[4/6] Fetching pull request data...", "repo", repo.String())
	opts := &github.PullRequestListOptions{State: "all", ListOptions: github.ListOptions{PerPage: 100}}
	var prs []domain.PullRequest
	for {
		page, resp, err := g.restClient.PullRequests.List(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests: %w", err)
		}
		for _, pr := range page {
			prs = append(prs, toPullRequest(pr))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Debug("Fetching next page of pull requests...", "page", opts.Page)
	}
	g.logger.Info("Completed fetching pull request data.", "count", len(prs))
	return prs, nil
}

// FetchReviews uses GraphQL so reviews for a page of pull requests arrive in one request.
func (g *GitHubGateway) FetchReviews(ctx context.Context, repo domain.RepoRef) ([]domain.Review, error) {
	g.logger.Info("[5/6] Fetching code review data...", "repo", repo.String())
	variables := map[string]interface{}{
		"owner":  githubv4.String(repo.Owner),
		"name":   githubv4.String(repo.Name),
		"cursor": (*githubv4.String)(nil),
	}
	var reviews []domain.Review
	for {
		var q reviewsQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to execute GraphQL query for reviews: %w", err)
		}
		for _, pr := range q.Repository.PullRequests.Nodes {
			reviews = appendReviews(reviews, int64(pr.DatabaseID), pr.Reviews.Nodes)
			if pr.Reviews.PageInfo.HasNextPage {
				more, err := g.fetchRemainingReviews(ctx, repo, pr.Number, pr.Reviews.PageInfo.EndCursor)
				if err != nil {
					return nil, err
				}
				reviews = appendReviews(reviews, int64(pr.DatabaseID), more)
			}
		}
		if !q.Repository.PullRequests.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Repository.PullRequests.PageInfo.EndCursor)
		g.logger.Debug("Fetching next page of pull requests for reviews...")
	}
	g.logger.Info("Completed fetching code review data.", "count", len(reviews))
	return reviews, nil
}

// fetchRemainingReviews pages the reviews of a single pull request starting after cursor.
func (g *GitHubGateway) fetchRemainingReviews(ctx context.Context, repo domain.RepoRef, number githubv4.Int, cursor githubv4.String) ([]reviewNode, error) {
	variables := map[string]interface{}{
		"owner":  githubv4.String(repo.Owner),
		"name":   githubv4.String(repo.Name),
		"number": number,
		"cursor": githubv4.NewString(cursor),
	}
	var nodes []reviewNode
	for {
		var q pullRequestReviewsQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to fetch reviews of pull request #%d: %w", number, err)
		}
		nodes = append(nodes, q.Repository.PullRequest.Reviews.Nodes...)
		if !q.Repository.PullRequest.Reviews.PageInfo.HasNextPage {
			return nodes, nil
		}
		variables["cursor"] = githubv4.NewString(q.Repository.PullRequest.Reviews.PageInfo.EndCursor)
		g.logger.Debug("Fetching next page of reviews...", "pull_request", int(number))
	}
}

func appendReviews(reviews []domain.Review, pullRequestID int64, nodes []reviewNode) []domain.Review {
	for _, rv := range nodes {
		review := domain.Review{
			PullRequestID: pullRequestID,
			Reviewer:      string(rv.Author.Login),
			Body:          string(rv.Body),
		}
		if rv.SubmittedAt != nil {
			review.SubmittedAt = domain.At(rv.SubmittedAt.Time)
		}
		reviews = append(reviews, review)
	}
	return reviews
}

func (g *GitHubGateway) FetchForks(ctx context.Context, repo domain.RepoRef) ([]domain.Fork, error) {
	g.logger.Info("[6/6] Fetching fork data...", "repo", repo.String())
	opts := &github.RepositoryListForksOptions{ListOptions: github.ListOptions{PerPage: 100}}
	var forks []domain.Fork
	for {
		page, resp, err := g.restClient.Repositories.ListForks(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list forks: %w", err)
		}
		for _, f := range page {
			forks = append(forks, domain.Fork{
				Username:  f.GetOwner().GetLogin(),
				CreatedAt: domain.At(f.GetCreatedAt().Time),
				AvatarURL: f.GetOwner().GetAvatarURL(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Debug("Fetching next page of forks...", "page", opts.Page)
	}
	g.logger.Info("Completed fetching fork data.", "count", len(forks))
	return forks, nil
}

func toRepositorySummary(r *github.Repository) domain.RepositorySummary {
	return domain.RepositorySummary{
		Name:            r.GetName(),
		FullName:        r.GetFullName(),
		Description:     r.GetDescription(),
		Language:        r.GetLanguage(),
		CreatedAt:       domain.At(r.GetCreatedAt().Time),
		UpdatedAt:       domain.At(r.GetUpdatedAt().Time),
		StarCount:       r.GetStargazersCount(),
		ForkCount:       r.GetForksCount(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
	}
}

func toCommit(c *github.RepositoryCommit) domain.Commit {
	return domain.Commit{
		SHA:        c.GetSHA(),
		Author:     c.GetCommit().GetAuthor().GetName(),
		AuthoredAt: domain.At(c.GetCommit().GetAuthor().GetDate().Time),
		Message:    c.GetCommit().GetMessage(),
	}
}

func toIssue(is *github.Issue) domain.Issue {
	return domain.Issue{
		ID:        is.GetID(),
		Title:     is.GetTitle(),
		State:     is.GetState(),
		CreatedAt: domain.At(is.GetCreatedAt().Time),
		ClosedAt:  domain.At(is.GetClosedAt().Time),
	}
}

func toPullRequest(pr *github.PullRequest) domain.PullRequest {
	return domain.PullRequest{
		ID:        pr.GetID(),
		Title:     pr.GetTitle(),
		CreatedAt: domain.At(pr.GetCreatedAt().Time),
		MergedAt:  domain.At(pr.GetMergedAt().Time),
		Author:    pr.GetUser().GetLogin(),
	}
}
