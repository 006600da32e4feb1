package middleware

import (
	"log/slog"
	"net/http"
)

// NewRequestLogger logs each upgrade request before the limiter and
// identity layers see it, including the origin the websocket accept will
// check against the allowlist.
func NewRequestLogger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var ip string
			if reqMeta, ok := ReqMetadataFrom(r.Context()); ok {
				ip = reqMeta.IP
			}

			logger.Info("Upgrade request",
				slog.String("method", r.Method),
				slog.String("uri", r.RequestURI),
				slog.String("ip", ip),
				slog.String("origin", r.Header.Get("Origin")),
			)
			next.ServeHTTP(w, r)
		})
	}
}
