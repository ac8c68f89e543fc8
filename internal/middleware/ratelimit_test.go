// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/househelp-api/internal/core"
)

func TestRateLimiter_FallsBackToLocalLimiter(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := NewRateLimiter(rdb, RateLimitConfig{
		Limit: PerHour(1, 2),
	})
	t.Cleanup(rl.Close)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.1.1.1:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		codes = append(codes, rec.Code)
	}

	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestNormalizeEndpoint(t *testing.T) {
	require.Equal(t,
		"/v1/workers/{id}",
		normalizeEndpoint("/v1/workers/6f1c2a34-9b7d-4e1a-8c2f-0d9e8b7a6c5d"),
	)
	require.Equal(t, "/v1/auth/login", normalizeEndpoint("/v1/auth/login/"))
}

func TestRateLimiter_SkipPaths(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := NewRateLimiter(rdb, RateLimitConfig{
		Limit: PerHour(1, 1),
		Skip:  SkipPaths("/healthz", "/readyz"),
	})
	t.Cleanup(rl.Close)

	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestKeyByUserAndEndpoint(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/households/6f1c2a34-9b7d-4e1a-8c2f-0d9e8b7a6c5d", nil)
	r = r.WithContext(WithAuth(r.Context(), AuthResult{
		Authenticated: true,
		Claims:        &Claims{Kind: core.RoleHousehold, UserID: "h1", Email: "a@b.com"},
	}))

	require.Equal(t,
		"ratelimit:user:household:h1:endpoint:/v1/households/{id}",
		KeyByUserAndEndpoint(r),
	)
}
