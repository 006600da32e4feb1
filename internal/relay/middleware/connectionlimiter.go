package middleware

import (
	"log/slog"
	"net/http"

	"github.com/JPeixoto/my-whiteboard-app/pkg/config"
)

// IPConnectionCounter reports how many live connections an address has.
type IPConnectionCounter func(ip string) int

// NewConnectionLimiter rejects upgrade requests from addresses that
// already hold the configured number of connections. Rooms carry no user
// accounts, so the limit is keyed by IP rather than by user.
func NewConnectionLimiter(
	logger *slog.Logger,
	counter IPConnectionCounter,
	cfg config.ConnectionLimitConfig,
) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.MaxPerIP <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				logger.Error("Connection limiter could not find request metadata in context. Check middleware order.")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			if count := counter(reqMeta.IP); count >= cfg.MaxPerIP {
				logger.Warn("Connection limit reached for address", slog.String("ip", reqMeta.IP), slog.Int("count", count))
				http.Error(w, "Too Many Active Connections", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
