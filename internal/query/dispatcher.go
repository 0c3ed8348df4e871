// Package query maps free-text questions onto precomputed metrics, handing
// anything it does not recognise to a free-text answering collaborator.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/naka-gawa/repo-insights/internal/metrics"
)

// Answerer answers a question the dispatcher could not match.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// ErrNoAnswerer is the cause of a DispatchError when no fallback is configured.
var ErrNoAnswerer = errors.New("no fallback answerer configured")

// DispatchError reports that the fallback answerer failed.
type DispatchError struct {
	Query string
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("Error processing query: %v", e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Resolution is either a metric key or raw answer text. Err is set when the
// fallback failed; Text then carries a printable explanation.
type Resolution struct {
	Metric metrics.Key
	Text   string
	Err    error
}

// IsMetric reports whether the query resolved to a known metric.
func (r Resolution) IsMetric() bool { return r.Metric != "" }

type rule struct {
	key     metrics.Key
	pattern *regexp.Regexp
}

// rules are tried in order; the first match wins.
var rules = []rule{
	{metrics.KeyCommitFrequency, regexp.MustCompile(`(?i)\bcommit frequency\b`)},
	{metrics.KeyIssueResolution, regexp.MustCompile(`(?i)\bissue resolution time\b`)},
	{metrics.KeyPRMergeRate, regexp.MustCompile(`(?i)\bpull request merge rate\b`)},
	{metrics.KeyCodeReviewMetrics, regexp.MustCompile(`(?i)\bcode review metrics\b`)},
}

// Dispatcher resolves free-text queries.
type Dispatcher struct {
	answerer Answerer
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. A nil answerer makes every unmatched
// query resolve to a DispatchError.
func NewDispatcher(answerer Answerer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{answerer: answerer, logger: logger}
}

// Resolve never fails outright: fallback failures come back inside the
// Resolution so the caller can render them.
func (d *Dispatcher) Resolve(ctx context.Context, text string) Resolution {
	q := strings.ToLower(strings.TrimSpace(text))
	for _, r := range rules {
		if r.pattern.MatchString(q) {
			d.logger.Debug("query matched metric", "metric", r.key)
			return Resolution{Metric: r.key}
		}
	}
	d.logger.Debug("query unmatched, delegating to fallback")
	answer, err := d.fallback(ctx, q)
	if err != nil {
		derr := &DispatchError{Query: q, Err: err}
		d.logger.Warn("fallback answer failed", "error", err)
		return Resolution{Text: derr.Error(), Err: derr}
	}
	return Resolution{Text: answer}
}

func (d *Dispatcher) fallback(ctx context.Context, q string) (answer string, err error) {
	if d.answerer == nil {
		return "", ErrNoAnswerer
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("answerer panicked: %v", r)
		}
	}()
	return d.answerer.Answer(ctx, q)
}
