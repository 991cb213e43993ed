package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// RequestLogger attaches logger to every request, tags it with a request id, and
// writes one access line per request.
func RequestLogger(logger *zerolog.Logger) func(http.Handler) http.Handler {
	withLogger := hlog.NewHandler(*logger)
	withRequestID := hlog.RequestIDHandler("request_id", "X-Request-ID")
	withRemote := hlog.RemoteAddrHandler("ip")
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		event := hlog.FromRequest(r).Info()
		if status >= http.StatusInternalServerError {
			event = hlog.FromRequest(r).Error()
		}

		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})

	return func(next http.Handler) http.Handler {
		return withLogger(withRequestID(withRemote(access(next))))
	}
}
