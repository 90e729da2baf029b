package api

import (
	"net/http"
	"runtime/debug"
	"time"
)

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrw, r)

		h.log.InfoContext(r.Context(), "Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrw.status,
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}

func (h *Handler) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.log.ErrorContext(r.Context(), "Panic recovered", "error", err, "stack", string(debug.Stack()))
				writeError(w, http.StatusInternalServerError, "Internal server error", "", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) inflightMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.metrics.InflightRequests.Inc()
		defer h.metrics.InflightRequests.Dec()
		next.ServeHTTP(w, r)
	})
}
