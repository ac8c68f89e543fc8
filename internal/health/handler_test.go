// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestReadiness(t *testing.T) {
	h := NewHandler(
		Dependency{Name: "database", Checker: CheckerFunc(ok)},
		Dependency{Name: "redis", Checker: CheckerFunc(ok)},
	)

	rec := serve(h, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Checks, 2)
	require.Equal(t, "database", resp.Checks[0].Name)
	require.Equal(t, "redis", resp.Checks[1].Name)
}

func TestReadiness_RequiredDown(t *testing.T) {
	h := NewHandler(
		Dependency{Name: "database", Checker: CheckerFunc(ok)},
		Dependency{Name: "redis", Checker: CheckerFunc(down)},
	)

	rec := serve(h, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "unavailable", resp.Status)
	require.True(t, resp.Checks[0].Healthy)
	require.False(t, resp.Checks[1].Healthy)
	require.Equal(t, "ping failed", resp.Checks[1].Message)
	require.NotContains(t, rec.Body.String(), "connection refused")
}

func TestReadiness_OptionalDown(t *testing.T) {
	h := NewHandler(
		Dependency{Name: "database", Checker: CheckerFunc(ok)},
		Dependency{Name: "smtp", Checker: CheckerFunc(down), Optional: true},
		Dependency{Name: "sms", Optional: true},
	)

	rec := serve(h, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "degraded", resp.Status)
	require.False(t, resp.Checks[1].Healthy)
	require.True(t, resp.Checks[1].Optional)
	require.Equal(t, "sms checker not configured", resp.Checks[2].Message)
}

func TestShutdown(t *testing.T) {
	h := NewHandler()
	rec := serve(h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var live StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &live))
	require.Equal(t, "ok", live.Status)
	require.NotEmpty(t, live.Uptime)

	h.SetShutdown(true)
	require.Equal(t, http.StatusServiceUnavailable, serve(h, "/livez").Code)
	require.Equal(t, http.StatusServiceUnavailable, serve(h, "/readyz").Code)
}

func TestNotReady(t *testing.T) {
	h := NewHandler(Dependency{Name: "database", Checker: CheckerFunc(ok)})

	h.SetReady(false)
	rec := serve(h, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"status":"not_ready"}`, rec.Body.String())
	require.Equal(t, http.StatusOK, serve(h, "/healthz").Code)

	h.SetReady(true)
	require.Equal(t, http.StatusOK, serve(h, "/readyz").Code)
}
