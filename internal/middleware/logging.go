package middleware

import (
	"net/http"
	"time"

	"github.com/evyataryagoni/iptracker/internal/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// LoggingMiddleware logs every request with its outcome
func LoggingMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// Set by chi's RequestID middleware
			requestID := middleware.GetReqID(r.Context())

			log.Debug().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("Request started")

			next.ServeHTTP(ww, r)

			// Handlers that only call Write never set a status
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			// Pick the level from the status class
			logEvent := log.Info()
			if status >= 500 {
				logEvent = log.Error()
			} else if status >= 400 {
				logEvent = log.Warn()
			}

			logEvent.
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration_ms", time.Since(start)).
				Msg("Request completed")
		})
	}
}
