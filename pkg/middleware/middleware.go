// Package middleware provides the HTTP middleware for the search API:
// request ids with logger propagation and per-route Prometheus metrics.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avelichko/searchserver/pkg/metrics"
)

type requestIDKey struct{}

// RequestID assigns each request an id (the client's X-Request-Id when
// present, otherwise a random one), stores it in the context for LoggerFrom,
// and echoes it in the X-Request-Id header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			var buf [8]byte
			rand.Read(buf[:])
			id = hex.EncodeToString(buf[:])
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggerFrom returns the default logger, tagged with the request id carried
// by ctx when RequestID handled the request.
func LoggerFrom(ctx context.Context) *slog.Logger {
	log := slog.Default()
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		log = log.With("request_id", id)
	}
	return log
}

// Metrics records request count and latency per route. Paths are collapsed
// to their route shape before labelling so the label set stays bounded: the
// document id segment in /api/v1/documents/7/match varies per request and
// must not mint a new time series.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			route := routeLabel(r.URL.Path)
			m.HTTPRequestsTotal.WithLabelValues(
				r.Method,
				route,
				strconv.Itoa(sw.status),
			).Inc()
			m.HTTPRequestDuration.WithLabelValues(
				r.Method,
				route,
			).Observe(time.Since(start).Seconds())
		})
	}
}

// routeLabel replaces every all-digit path segment with "{id}".
func routeLabel(path string) string {
	if !strings.ContainsAny(path, "0123456789") {
		return path
	}
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if isDigits(segment) {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.wroteHeader = true
	}
	return sw.ResponseWriter.Write(b)
}
