package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/repo-insights/internal/domain"
	"github.com/naka-gawa/repo-insights/internal/metrics"
	"github.com/naka-gawa/repo-insights/internal/storage"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It allows us to simulate the behavior of the GitHub gateway without making real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchRepository(ctx context.Context, repo domain.RepoRef) (domain.RepositorySummary, error) {
	args := m.Called(ctx, repo)
	return args.Get(0).(domain.RepositorySummary), args.Error(1)
}

func (m *mockFetcher) FetchCommits(ctx context.Context, repo domain.RepoRef) ([]domain.Commit, error) {
	args := m.Called(ctx, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Commit), args.Error(1)
}

func (m *mockFetcher) FetchIssues(ctx context.Context, repo domain.RepoRef) ([]domain.Issue, error) {
	args := m.Called(ctx, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Issue), args.Error(1)
}

func (m *mockFetcher) FetchPullRequests(ctx context.Context, repo domain.RepoRef) ([]domain.PullRequest, error) {
	args := m.Called(ctx, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PullRequest), args.Error(1)
}

func (m *mockFetcher) FetchReviews(ctx context.Context, repo domain.RepoRef) ([]domain.Review, error) {
	args := m.Called(ctx, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockFetcher) FetchForks(ctx context.Context, repo domain.RepoRef) ([]domain.Fork, error) {
	args := m.Called(ctx, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Fork), args.Error(1)
}

var testRepo = domain.RepoRef{Owner: "octo", Name: "hello"}

func day(s string) domain.Timestamp {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return domain.At(t)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func fixture() *domain.Snapshot {
	return &domain.Snapshot{
		Repository: domain.RepositorySummary{Name: "hello", FullName: "octo/hello", StarCount: 100},
		Commits: []domain.Commit{
			{SHA: "a", AuthoredAt: day("2024-01-05")},
			{SHA: "b", AuthoredAt: day("2024-03-10")},
		},
		Issues: []domain.Issue{
			{ID: 1, CreatedAt: day("2024-01-01"), ClosedAt: day("2024-01-03")},
			{ID: 2, CreatedAt: day("2024-01-10")},
		},
		PullRequests: []domain.PullRequest{
			{ID: 1, CreatedAt: day("2024-01-01"), MergedAt: day("2024-01-11")},
			{ID: 2, CreatedAt: day("2024-02-01")},
		},
		Reviews: []domain.Review{{PullRequestID: 1}, {PullRequestID: 1}, {PullRequestID: 2}},
		Forks:   []domain.Fork{{Username: "x", CreatedAt: day("2024-02-02")}},
	}
}

func expectFetches(f *mockFetcher, snap *domain.Snapshot, forksErr error) {
	f.On("FetchRepository", mock.Anything, testRepo).Return(snap.Repository, nil)
	f.On("FetchCommits", mock.Anything, testRepo).Return(snap.Commits, nil)
	f.On("FetchIssues", mock.Anything, testRepo).Return(snap.Issues, nil)
	f.On("FetchPullRequests", mock.Anything, testRepo).Return(snap.PullRequests, nil)
	f.On("FetchReviews", mock.Anything, testRepo).Return(snap.Reviews, nil)
	if forksErr != nil {
		f.On("FetchForks", mock.Anything, testRepo).Return(nil, forksErr)
	} else {
		f.On("FetchForks", mock.Anything, testRepo).Return(snap.Forks, nil)
	}
}

func TestAggregator_Analyze(t *testing.T) {
	fetcher := new(mockFetcher)
	expectFetches(fetcher, fixture(), nil)
	aggregator := NewAggregator(fetcher, nil, nil, discard())

	report, err := aggregator.Analyze(context.Background(), testRepo, Options{})
	require.NoError(t, err)

	assert.Equal(t, "octo/hello", report.Repository.FullName)
	assert.Equal(t, 2.0, report.StarRating)
	assert.Len(t, report.CommitFrequency.Value, 3)
	assert.Equal(t, 0, report.CommitFrequency.Value[1].Count)
	assert.Equal(t, 2.0, report.IssueResolution.Value)
	assert.Equal(t, metrics.StatusSplit{Resolved: 1, Unresolved: 1}, report.IssueStatus.Value)
	assert.Equal(t, 10.0, report.PRMergeTime.Value)
	assert.Equal(t, 50.0, report.PRMergeRate.Value)
	assert.Equal(t, 1.5, report.ReviewDensity.Value)
	assert.Equal(t, metrics.KindValue, report.ForkFrequency.Kind)
	fetcher.AssertExpectations(t)
}

func TestAggregator_Collect_AllOrNothing(t *testing.T) {
	fetcher := new(mockFetcher)
	// Other fetches may or may not run before the group is cancelled.
	expectFetches(fetcher, fixture(), errors.New("github api error"))
	aggregator := NewAggregator(fetcher, nil, nil, discard())

	snap, err := aggregator.Collect(context.Background(), testRepo)

	assert.Error(t, err)
	assert.Nil(t, snap)
	assert.Contains(t, err.Error(), "github api error")
}

func TestAggregator_SaveThenOffline(t *testing.T) {
	store, err := storage.NewCSVStore(t.TempDir(), discard())
	require.NoError(t, err)

	fetcher := new(mockFetcher)
	expectFetches(fetcher, fixture(), nil)
	online, err := NewAggregator(fetcher, store, nil, discard()).Analyze(context.Background(), testRepo, Options{Save: true})
	require.NoError(t, err)

	offlineFetcher := new(mockFetcher)
	offline, err := NewAggregator(offlineFetcher, store, nil, discard()).Analyze(context.Background(), testRepo, Options{Offline: true})
	require.NoError(t, err)

	assert.Equal(t, online, offline)
	offlineFetcher.AssertNotCalled(t, "FetchCommits", mock.Anything, mock.Anything)
}

func TestAggregator_NoStore(t *testing.T) {
	aggregator := NewAggregator(new(mockFetcher), nil, nil, discard())

	_, err := aggregator.Analyze(context.Background(), testRepo, Options{Offline: true})
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestAggregator_EvaluateUsesMemo(t *testing.T) {
	memo := metrics.NewMemo()
	aggregator := NewAggregator(nil, nil, memo, discard())

	first, err := aggregator.Evaluate(context.Background(), fixture())
	require.NoError(t, err)
	second, err := aggregator.Evaluate(context.Background(), fixture())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, memo.Len())

	changed := fixture()
	changed.Commits = changed.Commits[:1]
	third, err := aggregator.Evaluate(context.Background(), changed)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, memo.Len())
}

func TestAggregator_EvaluateInsufficientData(t *testing.T) {
	aggregator := NewAggregator(nil, nil, nil, discard())

	report, err := aggregator.Evaluate(context.Background(), &domain.Snapshot{Repository: domain.RepositorySummary{Name: "empty"}})
	require.NoError(t, err)

	assert.Equal(t, metrics.KindInsufficientData, report.CommitFrequency.Kind)
	assert.Equal(t, metrics.KindInsufficientData, report.IssueResolution.Kind)
	assert.Equal(t, metrics.KindInsufficientData, report.ReviewDensity.Kind)
}

func TestAggregator_EvaluateLogsEveryExclusion(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	aggregator := NewAggregator(nil, nil, nil, logger)

	snap := &domain.Snapshot{
		Repository: domain.RepositorySummary{Name: "hello", StarCount: 1},
		Issues: []domain.Issue{
			{ID: 1, CreatedAt: day("2024-01-01"), ClosedAt: domain.ParseTimestamp("garbage")},
			{ID: 2, CreatedAt: day("2024-01-02")},
		},
		PullRequests: []domain.PullRequest{
			{ID: 1, CreatedAt: day("2024-01-01"), MergedAt: domain.ParseTimestamp("garbage")},
			{ID: 2, CreatedAt: day("2024-01-02")},
		},
	}
	_, err := aggregator.Evaluate(context.Background(), snap)
	require.NoError(t, err)

	// issue resolution, issue counts, issue status, merge time, merge rate
	assert.Equal(t, 5, strings.Count(buf.String(), "Records excluded from a metric."))
}
