package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/lecternapp/lectern/cms"
	"github.com/lecternapp/lectern/cms/service"
	"github.com/lecternapp/lectern/internal/relstore"
	"github.com/lecternapp/lectern/internal/search"
)

// App holds all application dependencies and services.
type App struct {
	Articles  service.ArticleService
	Rendering service.RenderingService
	Search    *search.Index
	Rel       *relstore.Store
	Config    *cms.Config
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// SlogLoggingMiddleware logs HTTP requests using slog
func SlogLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"size", wrapped.size,
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps a coded operation failure onto a transport response.
// Unknown errors become opaque 500s.
func writeError(w http.ResponseWriter, err error) {
	if oe, ok := cms.AsOpError(err); ok {
		writeJSON(w, statusForCode(oe.Code), map[string]string{
			"code":    string(oe.Code),
			"message": oe.Message,
		})
		return
	}
	slog.Error("unhandled error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"code":    "INTERNAL_ERROR",
		"message": "internal server error",
	})
}

func statusForCode(code cms.Code) int {
	switch code {
	case cms.CodeValidation:
		return http.StatusBadRequest
	case cms.CodeNotFound:
		return http.StatusNotFound
	case cms.CodeForbidden:
		return http.StatusForbidden
	case cms.CodeRateLimited:
		return http.StatusTooManyRequests
	default: // WRITE_ERROR, UPDATE_ERROR, DELETE_ERROR
		return http.StatusInternalServerError
	}
}
