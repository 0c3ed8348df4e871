// Package api serves repository reports and query resolution over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/naka-gawa/repo-insights/internal/domain"
	"github.com/naka-gawa/repo-insights/internal/metrics"
	"github.com/naka-gawa/repo-insights/internal/query"
	"github.com/naka-gawa/repo-insights/internal/usecase"
)

// Analyzer produces a report for a repository.
type Analyzer interface {
	Analyze(ctx context.Context, repo domain.RepoRef, opts usecase.Options) (*metrics.Report, error)
}

// Resolver maps free text onto a metric or an answer.
type Resolver interface {
	Resolve(ctx context.Context, text string) query.Resolution
}

// Handler is the container for API dependencies.
type Handler struct {
	analyzer Analyzer
	resolver Resolver
	logger   *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(analyzer Analyzer, resolver Resolver, logger *slog.Logger) http.Handler {
	h := &Handler{
		analyzer: analyzer,
		resolver: resolver,
		logger:   logger,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/health", h.healthCheck)
	r.Route("/v1/repos/{owner}/{name}", func(r chi.Router) {
		r.Get("/report", h.getReport)
		r.Get("/metrics/{metric}", h.getMetric)
		r.Get("/query", h.getQuery)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getReport returns every metric of a repository.
// GET /v1/repos/{owner}/{name}/report
func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.analyze(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// getMetric returns a single metric result.
// GET /v1/repos/{owner}/{name}/metrics/{metric}
func (h *Handler) getMetric(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "metric")
	report, ok := h.analyze(w, r)
	if !ok {
		return
	}
	result, found := report.Lookup(name)
	if !found {
		respondWithError(w, http.StatusNotFound, "Unknown metric: "+name)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"metric": name, "result": result})
}

// getQuery resolves ?q= to a metric of the repository or a fallback answer.
// GET /v1/repos/{owner}/{name}/query?q=...
func (h *Handler) getQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		respondWithError(w, http.StatusBadRequest, "Missing query parameter 'q'")
		return
	}
	res := h.resolver.Resolve(r.Context(), q)
	if res.Err != nil {
		respondWithError(w, http.StatusBadGateway, res.Text)
		return
	}
	if !res.IsMetric() {
		respondWithJSON(w, http.StatusOK, map[string]string{"answer": res.Text})
		return
	}
	report, ok := h.analyze(w, r)
	if !ok {
		return
	}
	result, _ := report.Lookup(string(res.Metric))
	respondWithJSON(w, http.StatusOK, map[string]any{"metric": res.Metric, "result": result})
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) (*metrics.Report, bool) {
	repo, err := domain.ParseRepoRef(chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "name"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	offline, _ := strconv.ParseBool(r.URL.Query().Get("offline"))
	report, err := h.analyzer.Analyze(r.Context(), repo, usecase.Options{Offline: offline})
	if err != nil {
		h.logger.Error("Failed to analyze repository", "repo", repo.String(), "error", err)
		respondWithError(w, http.StatusBadGateway, "Failed to analyze repository")
		return nil, false
	}
	return report, true
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
