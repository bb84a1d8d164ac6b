package httpapi

import (
	"net/http"
	"time"
)

// readyReport is the search-specific readiness payload: index size, window
// statistics, and query-cache state, rather than a generic component map.
type readyReport struct {
	Status           string `json:"status"`
	Documents        int    `json:"documents"`
	NoResultRequests int    `json:"no_result_requests"`
	Cache            string `json:"cache"`
	Timestamp        string `json:"timestamp"`
}

// Live answers liveness probes. The index lives in process memory, so a
// responding process is a live one.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Ready answers readiness probes with the state of the index and its
// optional cache. A failing cache degrades the report but keeps the service
// ready: queries fall through to the engine.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	report := readyReport{
		Status:           "up",
		Documents:        h.server.DocumentCount(),
		NoResultRequests: h.tracker.NoResultRequests(),
		Cache:            "disabled",
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			report.Status = "degraded"
			report.Cache = "down: " + err.Error()
		} else {
			report.Cache = "up"
		}
	}
	h.writeJSON(w, http.StatusOK, report)
}
