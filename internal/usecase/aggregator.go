// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/repo-insights/internal/domain"
	"github.com/naka-gawa/repo-insights/internal/gateway"
	"github.com/naka-gawa/repo-insights/internal/metrics"
)

// ErrNoStore is returned when persistence is requested without a store.
var ErrNoStore = errors.New("no snapshot store configured")

// Store persists raw snapshots. Derived metrics are never stored.
type Store interface {
	Save(snap *domain.Snapshot) error
	Load(repoName string) (*domain.Snapshot, error)
}

// Options controls where a snapshot comes from and whether it is kept.
type Options struct {
	// Save writes the fetched snapshot to the store.
	Save bool
	// Offline loads the snapshot from the store instead of fetching it.
	Offline bool
}

// Aggregator is the use case for analysing one repository.
// It orchestrates fetching the records and deriving the metrics.
type Aggregator struct {
	fetcher gateway.Fetcher
	store   Store
	memo    *metrics.Memo
	logger  *slog.Logger
}

// NewAggregator creates a new Aggregator instance. The memo is owned by the
// caller; pass nil to disable memoization.
func NewAggregator(fetcher gateway.Fetcher, store Store, memo *metrics.Memo, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		store:   store,
		memo:    memo,
		logger:  logger,
	}
}

// Analyze obtains a snapshot of the repository and derives its report.
func (a *Aggregator) Analyze(ctx context.Context, repo domain.RepoRef, opts Options) (*metrics.Report, error) {
	var (
		snap *domain.Snapshot
		err  error
	)
	if opts.Offline {
		if a.store == nil {
			return nil, ErrNoStore
		}
		a.logger.Info("Usecase: Loading stored snapshot...", "repo", repo.Name)
		snap, err = a.store.Load(repo.Name)
	} else {
		snap, err = a.Collect(ctx, repo)
	}
	if err != nil {
		return nil, err
	}
	if opts.Save && !opts.Offline {
		if a.store == nil {
			return nil, ErrNoStore
		}
		if err := a.store.Save(snap); err != nil {
			return nil, fmt.Errorf("failed to save snapshot: %w", err)
		}
		a.logger.Info("Usecase: Snapshot saved.", "repo", snap.Repository.Name)
	}
	return a.Evaluate(ctx, snap)
}

// Collect fetches all six record collections concurrently. If any fetch
// fails the whole snapshot is discarded, so callers never see a partial mix.
func (a *Aggregator) Collect(ctx context.Context, repo domain.RepoRef) (*domain.Snapshot, error) {
	if a.fetcher == nil {
		return nil, errors.New("no fetcher configured")
	}
	a.logger.Info("Usecase: Starting data collection...", "repo", repo.String())

	var snap domain.Snapshot

	// Use an errgroup to fetch all data concurrently.
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		var err error
		snap.Repository, err = a.fetcher.FetchRepository(egCtx, repo)
		return err
	})

	eg.Go(func() error {
		var err error
		snap.Commits, err = a.fetcher.FetchCommits(egCtx, repo)
		return err
	})

	eg.Go(func() error {
		var err error
		snap.Issues, err = a.fetcher.FetchIssues(egCtx, repo)
		return err
	})

	eg.Go(func() error {
		var err error
		snap.PullRequests, err = a.fetcher.FetchPullRequests(egCtx, repo)
		return err
	})

	eg.Go(func() error {
		var err error
		snap.Reviews, err = a.fetcher.FetchReviews(egCtx, repo)
		return err
	})

	eg.Go(func() error {
		var err error
		snap.Forks, err = a.fetcher.FetchForks(egCtx, repo)
		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to collect %s: %w", repo, err)
	}
	a.logger.Info("Usecase: All data fetched successfully.")
	return &snap, nil
}

// Evaluate derives every metric of the snapshot. The metrics are independent
// and read-only over the snapshot, so they run in parallel.
func (a *Aggregator) Evaluate(ctx context.Context, snap *domain.Snapshot) (*metrics.Report, error) {
	var key string
	if a.memo != nil {
		var err error
		if key, err = metrics.Fingerprint(snap); err != nil {
			return nil, err
		}
		if r, ok := a.memo.Get(key); ok {
			a.logger.Debug("Usecase: Report served from memo.", "key", key[:12])
			return r, nil
		}
	}

	engine := metrics.NewEngine(snap.Repository, len(snap.Commits))
	report := &metrics.Report{
		Repository: snap.Repository,
		StarRating: metrics.StarRating(snap.Repository),
	}

	eg, egCtx := errgroup.WithContext(ctx)
	run := func(f func()) {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			f()
			return nil
		})
	}
	run(func() { report.CommitFrequency = engine.CommitFrequencyByMonth(snap.Commits) })
	run(func() { report.IssueResolution = engine.IssueResolutionMean(snap.Issues) })
	run(func() { report.IssueCounts = engine.IssueCountsByMonth(snap.Issues) })
	run(func() { report.IssueStatus = engine.IssueStatusSplit(snap.Issues) })
	run(func() { report.PRMergeTime = engine.PRMergeTimeMean(snap.PullRequests) })
	run(func() { report.PRMergeRate = engine.PRMergeRate(snap.PullRequests) })
	run(func() { report.ReviewDensity = engine.ReviewDensityMean(snap.Reviews) })
	run(func() { report.ForkFrequency = engine.ForkCountsByMonth(snap.Forks) })
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, problem := range []error{
		report.CommitFrequency.Err(), report.IssueResolution.Err(), report.IssueCounts.Err(),
		report.IssueStatus.Err(), report.PRMergeTime.Err(), report.PRMergeRate.Err(),
		report.ReviewDensity.Err(), report.ForkFrequency.Err(),
	} {
		if problem != nil {
			a.logger.Debug("Usecase: Records excluded from a metric.", "error", problem)
		}
	}

	if a.memo != nil {
		a.memo.Put(key, report)
	}
	a.logger.Info("Usecase: Report complete.", "repo", snap.Repository.FullName)
	return report, nil
}
