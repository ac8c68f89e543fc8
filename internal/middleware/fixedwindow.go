// AngelaMos | 2026
// fixedwindow.go

package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/carterperez-dev/househelp-api/internal/ratelimit"
)

// FixedWindow throttles each route of a group per client IP with the
// fixed-window limiter. Routes in the same group count separately. Store
// errors fail open.
func FixedWindow(
	limiter *ratelimit.Limiter,
	name string,
	maxRequests int,
	window time.Duration,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := name + ":" + r.URL.Path + ":ip:" + ClientIP(r)

			res, err := limiter.Check(r.Context(), key, maxRequests, window)
			if err != nil {
				slog.WarnContext(r.Context(), "fixed window limiter error, failing open",
					"error", err,
					"limit", name,
				)
				next.ServeHTTP(w, r)
				return
			}

			now := limiter.Now()
			setLimitHeaders(w.Header(), res.Limit, res.Remaining, now, res.ResetAt)

			if !res.Allowed {
				rejectLimited(w, res.RetryAfter(now))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
