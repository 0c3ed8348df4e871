package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/repo-insights/internal/domain"
	"github.com/naka-gawa/repo-insights/internal/metrics"
	"github.com/naka-gawa/repo-insights/internal/query"
	"github.com/naka-gawa/repo-insights/internal/usecase"
)

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Analyze(ctx context.Context, repo domain.RepoRef, opts usecase.Options) (*metrics.Report, error) {
	args := m.Called(ctx, repo, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metrics.Report), args.Error(1)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, text string) query.Resolution {
	args := m.Called(ctx, text)
	return args.Get(0).(query.Resolution)
}

var octo = domain.RepoRef{Owner: "octo", Name: "hello"}

func testReport() *metrics.Report {
	return &metrics.Report{
		Repository:      domain.RepositorySummary{Name: "hello", FullName: "octo/hello"},
		IssueResolution: metrics.Result[float64]{Kind: metrics.KindValue, Value: 2},
		PRMergeTime:     metrics.Result[float64]{Kind: metrics.KindValue, Value: 4},
		PRMergeRate:     metrics.Result[float64]{Kind: metrics.KindValue, Value: 75},
	}
}

func serve(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func newTestRouter(a Analyzer, r Resolver) http.Handler {
	return NewRouter(a, r, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHealthCheck(t *testing.T) {
	rec, body := serve(t, newTestRouter(new(mockAnalyzer), new(mockResolver)), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestGetReport(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		opts     usecase.Options
		err      error
		wantCode int
	}{
		{"online", "/v1/repos/octo/hello/report", usecase.Options{}, nil, http.StatusOK},
		{"offline", "/v1/repos/octo/hello/report?offline=true", usecase.Options{Offline: true}, nil, http.StatusOK},
		{"analyze failure", "/v1/repos/octo/hello/report", usecase.Options{}, errors.New("boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := new(mockAnalyzer)
			if tt.err != nil {
				analyzer.On("Analyze", mock.Anything, octo, tt.opts).Return(nil, tt.err)
			} else {
				analyzer.On("Analyze", mock.Anything, octo, tt.opts).Return(testReport(), nil)
			}

			rec, body := serve(t, newTestRouter(analyzer, new(mockResolver)), tt.target)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.err == nil {
				repo := body["repository"].(map[string]any)
				assert.Equal(t, "octo/hello", repo["full_name"])
			} else {
				assert.Equal(t, "Failed to analyze repository", body["error"])
			}
			analyzer.AssertExpectations(t)
		})
	}
}

func TestGetReport_BadRepo(t *testing.T) {
	analyzer := new(mockAnalyzer)
	rec, body := serve(t, newTestRouter(analyzer, new(mockResolver)), "/v1/repos/octo/.git/report")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "octo/.git")
	analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetMetric(t *testing.T) {
	analyzer := new(mockAnalyzer)
	analyzer.On("Analyze", mock.Anything, octo, usecase.Options{}).Return(testReport(), nil)
	router := newTestRouter(analyzer, new(mockResolver))

	rec, body := serve(t, router, "/v1/repos/octo/hello/metrics/issue_resolution")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "issue_resolution", body["metric"])
	result := body["result"].(map[string]any)
	assert.Equal(t, "value", result["kind"])
	assert.Equal(t, float64(2), result["value"])

	rec, body = serve(t, router, "/v1/repos/octo/hello/metrics/stars")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Unknown metric: stars", body["error"])
}

func TestGetQuery(t *testing.T) {
	t.Run("metric", func(t *testing.T) {
		analyzer := new(mockAnalyzer)
		analyzer.On("Analyze", mock.Anything, octo, usecase.Options{}).Return(testReport(), nil)
		resolver := new(mockResolver)
		resolver.On("Resolve", mock.Anything, "pull request merge rate").
			Return(query.Resolution{Metric: metrics.KeyPRMergeRate})

		rec, body := serve(t, newTestRouter(analyzer, resolver), "/v1/repos/octo/hello/query?q=pull+request+merge+rate")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "pr_merge_rate", body["metric"])
		result := body["result"].(map[string]any)
		percent := result["merged_percent"].(map[string]any)
		assert.Equal(t, float64(75), percent["value"])
	})

	t.Run("answer", func(t *testing.T) {
		analyzer := new(mockAnalyzer)
		resolver := new(mockResolver)
		resolver.On("Resolve", mock.Anything, "who maintains this?").
			Return(query.Resolution{Text: "The octo team."})

		rec, body := serve(t, newTestRouter(analyzer, resolver), "/v1/repos/octo/hello/query?q=who+maintains+this%3F")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "The octo team.", body["answer"])
		analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("dispatch error", func(t *testing.T) {
		dispatchErr := &query.DispatchError{Query: "anything", Err: query.ErrNoAnswerer}
		resolver := new(mockResolver)
		resolver.On("Resolve", mock.Anything, "anything").
			Return(query.Resolution{Text: dispatchErr.Error(), Err: dispatchErr})

		rec, body := serve(t, newTestRouter(new(mockAnalyzer), resolver), "/v1/repos/octo/hello/query?q=anything")

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "Error processing query: no fallback answerer configured", body["error"])
	})

	t.Run("missing q", func(t *testing.T) {
		rec, body := serve(t, newTestRouter(new(mockAnalyzer), new(mockResolver)), "/v1/repos/octo/hello/query")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing query parameter 'q'", body["error"])
	})
}
