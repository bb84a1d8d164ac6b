// Package httpapi exposes the search server over HTTP: document add/remove,
// ranked search through the request tracker, per-document matching, bulk
// query execution, duplicate removal, window statistics, and health probes.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/avelichko/searchserver/internal/cache"
	"github.com/avelichko/searchserver/internal/ingest"
	"github.com/avelichko/searchserver/internal/search"
	"github.com/avelichko/searchserver/internal/search/bulk"
	"github.com/avelichko/searchserver/internal/search/paginate"
	"github.com/avelichko/searchserver/internal/search/requests"
	apperrors "github.com/avelichko/searchserver/pkg/errors"
	"github.com/avelichko/searchserver/pkg/metrics"
	"github.com/avelichko/searchserver/pkg/middleware"
)

// Handler serves the search API. Cache, notifier, and metrics are optional;
// a nil value disables the corresponding behavior.
type Handler struct {
	server   *search.Server
	tracker  *requests.Queue
	cache    *cache.QueryCache
	notifier *ingest.Notifier
	metrics  *metrics.Metrics
	pageSize int
	logger   *slog.Logger
}

// New builds a Handler. defaultPageSize bounds result pages when the client
// does not pass page_size.
func New(
	server *search.Server,
	tracker *requests.Queue,
	queryCache *cache.QueryCache,
	notifier *ingest.Notifier,
	m *metrics.Metrics,
	defaultPageSize int,
) *Handler {
	if defaultPageSize <= 0 {
		defaultPageSize = search.DefaultMaxResults
	}
	return &Handler{
		server:   server,
		tracker:  tracker,
		cache:    queryCache,
		notifier: notifier,
		metrics:  m,
		pageSize: defaultPageSize,
		logger:   slog.Default().With("component", "http-api"),
	}
}

// Register installs all API and health routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/documents", h.AddDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.RemoveDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}/frequencies", h.WordFrequencies)
	mux.HandleFunc("GET /api/v1/documents/{id}/match", h.MatchDocument)
	mux.HandleFunc("POST /api/v1/documents/deduplicate", h.Deduplicate)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/search/bulk", h.BulkSearch)
	mux.HandleFunc("GET /api/v1/search/stats", h.SearchStats)
	mux.HandleFunc("GET /health/live", h.Live)
	mux.HandleFunc("GET /health/ready", h.Ready)
}

type addDocumentRequest struct {
	ID      int    `json:"id"`
	Text    string `json:"text"`
	Status  int    `json:"status"`
	Ratings []int  `json:"ratings"`
}

func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	var req addDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidDocument, http.StatusBadRequest, "malformed body: %v", err))
		return
	}
	if !search.ValidStatus(req.Status) {
		h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidDocument, http.StatusBadRequest, "unknown status %d", req.Status))
		return
	}
	if err := h.server.AddDocument(req.ID, req.Text, search.DocumentStatus(req.Status), req.Ratings); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.DocsIndexedTotal.Inc()
	}
	h.invalidateCache(r.Context())
	h.writeJSON(w, http.StatusCreated, map[string]any{"document_id": req.ID})
}

func (h *Handler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidDocument, http.StatusBadRequest, "document id must be an integer"))
		return
	}
	h.server.RemoveDocumentExec(parsePolicy(r), id)
	if h.metrics != nil {
		h.metrics.DocsRemovedTotal.Inc()
	}
	h.invalidateCache(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) WordFrequencies(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidDocument, http.StatusBadRequest, "document id must be an integer"))
		return
	}
	// Copy the live view so encoding never races a writer.
	view := h.server.WordFrequencies(id)
	freqs := make(map[string]float64, len(view))
	for word, tf := range view {
		freqs[word] = tf
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"document_id": id,
		"frequencies": freqs,
	})
}

func (h *Handler) MatchDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidDocument, http.StatusBadRequest, "document id must be an integer"))
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	matched, status, err := h.server.MatchDocumentExec(parsePolicy(r), query, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"document_id":   id,
		"status":        int(status),
		"matched_terms": matched,
	})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	status := search.StatusActual
	if v := r.URL.Query().Get("status"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || !search.ValidStatus(parsed) {
			h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest, "unknown status %q", v))
			return
		}
		status = search.DocumentStatus(parsed)
	}
	policy := parsePolicy(r)

	paged, page, size := false, 0, h.pageSize
	if v := r.URL.Query().Get("page"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest, "page must be a non-negative integer"))
			return
		}
		paged, page = true, parsed
		if sv := r.URL.Query().Get("page_size"); sv != "" {
			parsed, err := strconv.Atoi(sv)
			if err != nil || parsed < 1 {
				h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest, "page_size must be a positive integer"))
				return
			}
			size = parsed
		}
	}

	docs, cached, err := h.runSearch(ctx, policy, query, status)

	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(policy.String()).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		h.recordQueryMetric("error", nil)
		h.writeError(w, r, err)
		return
	}
	if len(docs) == 0 {
		h.recordQueryMetric("zero_result", docs)
	} else {
		h.recordQueryMetric("hit", docs)
	}
	middleware.LoggerFrom(ctx).Info("query executed",
		"query", query,
		"policy", policy.String(),
		"status", status.String(),
		"results", len(docs),
		"cached", cached,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	response := map[string]any{
		"query":   query,
		"total":   len(docs),
		"results": docs,
	}
	if paged {
		pageDocs := paginate.Page(docs, size, page)
		if pageDocs == nil {
			pageDocs = []search.Document{}
		}
		response["page"] = page
		response["pages"] = paginate.Count(docs, size)
		response["results"] = pageDocs
	}
	if cached {
		w.Header().Set("X-Cache", "hit")
	}
	h.writeJSON(w, http.StatusOK, response)
}

// runSearch executes the query through the cache when one is configured.
// Cache hits are still recorded in the request tracker: a served query
// counts toward the window no matter where the response came from.
func (h *Handler) runSearch(ctx context.Context, policy search.Policy, query string, status search.DocumentStatus) ([]search.Document, bool, error) {
	if h.cache == nil {
		docs, err := h.tracker.AddFindRequestExec(policy, query, status)
		return docs, false, err
	}
	docs, hit, err := h.cache.GetOrCompute(ctx, query, status, func() ([]search.Document, error) {
		return h.tracker.AddFindRequestExec(policy, query, status)
	})
	if hit {
		h.tracker.Observe(docs)
	}
	return docs, hit, err
}

type bulkSearchRequest struct {
	Queries []string `json:"queries"`
	Joined  bool     `json:"joined"`
}

func (h *Handler) BulkSearch(w http.ResponseWriter, r *http.Request) {
	var req bulkSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest, "malformed body: %v", err))
		return
	}
	if len(req.Queries) == 0 {
		h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest, "queries must not be empty"))
		return
	}
	if req.Joined {
		docs, err := bulk.ProcessQueriesJoined(h.server, req.Queries)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]any{"results": docs, "total": len(docs)})
		return
	}
	perQuery, err := bulk.ProcessQueries(h.server, req.Queries)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"results": perQuery})
}

func (h *Handler) SearchStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"no_result_requests": h.tracker.NoResultRequests(),
	})
}

func (h *Handler) Deduplicate(w http.ResponseWriter, r *http.Request) {
	removed := search.RemoveDuplicates(h.server)
	if h.metrics != nil {
		h.metrics.DuplicatesRemoved.Add(float64(len(removed)))
		h.metrics.DocsRemovedTotal.Add(float64(len(removed)))
	}
	h.notifier.DuplicatesRemoved(r.Context(), removed)
	if len(removed) > 0 {
		h.invalidateCache(r.Context())
	}
	if removed == nil {
		removed = []int{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"removed_ids": removed,
		"count":       len(removed),
	})
}

func (h *Handler) recordQueryMetric(resultType string, docs []search.Document) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	if resultType != "error" {
		h.metrics.SearchResultsCount.Observe(float64(len(docs)))
	}
	h.metrics.NoResultRequests.Set(float64(h.tracker.NoResultRequests()))
}

func (h *Handler) invalidateCache(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
	}
}

func parsePolicy(r *http.Request) search.Policy {
	if r.URL.Query().Get("policy") == "par" {
		return search.Par
	}
	return search.Seq
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	middleware.LoggerFrom(r.Context()).Warn("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
	h.writeJSON(w, status, map[string]any{"error": err.Error()})
}
