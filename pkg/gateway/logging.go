package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader captures the status code before writing.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write ensures WriteHeader is called if not already done.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// ProvenanceLoggerMiddleware emits one structured log line per request on
// completion: method, path, status, the decided identity, outcome, and
// latency. Logging runs after the response is written and is recover-guarded,
// so a logging failure can never break the response path.
func ProvenanceLoggerMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "provenance")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := context.WithValue(r.Context(), StartTimeKey, start)

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			func() {
				defer func() {
					_ = recover()
				}()
				logRequest(ctx, logger, r, rw.statusCode, time.Since(start), rw.Header().Get(ProvenanceHeader))
			}()
		})
	}
}

func logRequest(ctx context.Context, logger *slog.Logger, r *http.Request, status int, latency time.Duration, provenance string) {
	level := slog.LevelInfo
	if status >= 500 {
		level = slog.LevelError
	} else if status >= 400 {
		level = slog.LevelWarn
	}

	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"latency_ms", latency.Milliseconds(),
		"request_id", GetRequestID(ctx),
		"remote_addr", r.RemoteAddr,
	}
	if ident, ok := GetIdentity(ctx); ok {
		attrs = append(attrs,
			"subject", ident.Subject,
			"org", ident.Org,
			"jurisdiction", ident.Jurisdiction,
		)
	}
	if provenance != "" {
		attrs = append(attrs, "provenance", provenance)
	}

	logger.Log(ctx, level, "request completed", attrs...)
}
