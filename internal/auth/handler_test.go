// AngelaMos | 2026
// handler_test.go

package auth

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/househelp-api/internal/core"
	"github.com/carterperez-dev/househelp-api/internal/middleware"
	"github.com/carterperez-dev/househelp-api/internal/ratelimit"
)

const (
	sessionCookie = "househelp-session"
	adminCookie   = "househelp-admin-session"
)

type testServer struct {
	*harness
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newLimitedTestServer(t, false)
}

// newLimitedTestServer optionally mounts the per-IP windows with the default
// configured limits.
func newLimitedTestServer(t *testing.T, limited bool) *testServer {
	t.Helper()
	h := newHarness(t)

	csrf := middleware.NewCSRF(h.store, time.Hour, false)
	authn := middleware.NewAuthenticator(h.tokens, sessionCookie, adminCookie)

	mw := Middlewares{
		Authenticate:  authn.Require,
		RejectRevoked: middleware.RejectRevoked(h.denylist),
		CSRF:          csrf.Handler,
	}
	if limited {
		limiter := ratelimit.New(h.store).WithClock(func() time.Time { return h.now })
		mw.LoginLimit = middleware.FixedWindow(limiter, "login", 5, 15*time.Minute)
		mw.RegisterLimit = middleware.FixedWindow(limiter, "register", 5, time.Hour)
		mw.SendLimit = middleware.FixedWindow(limiter, "code-send", 10, 10*time.Minute)
		mw.VerifyLimit = middleware.FixedWindow(limiter, "code-verify", 30, 15*time.Minute)
	}

	r := chi.NewRouter()
	NewHandler(h.svc, csrf, CookieConfig{Name: sessionCookie, AdminName: adminCookie}).
		RegisterRoutes(r, mw)

	return &testServer{harness: h, router: r}
}

func (s *testServer) do(t *testing.T, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, fn := range mutate {
		fn(req)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookie(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(c) }
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func tokenPayload(t *testing.T, token string) map[string]any {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	return payload
}

func TestHouseholdRegisterVerifyLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/register/household", map[string]string{
		"name":     "Amina Uwase",
		"email":    "a@b.com",
		"phone":    "+250788000000",
		"password": "Passw0rd!",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	reg := decodeBody[RegisterResponse](t, rec)
	require.NotEmpty(t, reg.Token)
	require.True(t, reg.OTPSent)
	require.Equal(t, "verifying", reg.User.Status)
	require.NotNil(t, cookieNamed(rec, sessionCookie))

	rec = s.do(t, http.MethodPost, "/auth/otp/verify", map[string]string{
		"identifier": "a@b.com",
		"code":       s.outbox.lastCode(t, "a@b.com"),
		"user_type":  "household",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, decodeBody[VerifiedResponse](t, rec).Verified)

	rec = s.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":     "a@b.com",
		"password":  "Passw0rd!",
		"user_type": "household",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	session := decodeBody[SessionResponse](t, rec)
	require.Equal(t, "household", tokenPayload(t, session.Token)["userType"])
	require.Equal(t, "active", session.User.Status)
}

func TestRegister_Errors(t *testing.T) {
	s := newTestServer(t)
	s.identities.seed(t, core.RoleHousehold, "a@b.com", "+250788000000", "Passw0rd!", core.StatusActive)

	tests := []struct {
		name   string
		path   string
		body   map[string]string
		status int
		code   string
	}{
		{
			name:   "duplicate email",
			path:   "/auth/register/household",
			body:   map[string]string{"name": "Amina", "email": "a@b.com", "phone": "0788000001", "password": "Passw0rd!"},
			status: http.StatusConflict,
			code:   "CONFLICT",
		},
		{
			name:   "bad phone",
			path:   "/auth/register/worker",
			body:   map[string]string{"full_name": "Jean", "phone": "123456", "password": "Passw0rd!"},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "short password",
			path:   "/auth/register/worker",
			body:   map[string]string{"full_name": "Jean", "phone": "0788123456", "password": "short"},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "admin cannot self register",
			path:   "/auth/register/admin",
			body:   map[string]string{"name": "x", "email": "x@househelp.rw", "phone": "0788123456", "password": "Passw0rd!"},
			status: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.code != "" {
				require.Equal(t, tt.code, decodeBody[core.ErrorResponse](t, rec).Code)
			}
		})
	}
}

func TestLoginHandler_Failures(t *testing.T) {
	s := newTestServer(t)
	s.identities.seed(t, core.RoleWorker, "w@x.rw", "+250788111222", "Passw0rd!", core.StatusSuspended)

	rec := s.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "w@x.rw", "password": "bad-password", "user_type": "worker",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "w@x.rw", "password": "Passw0rd!", "user_type": "worker",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "w@x.rw", "password": "Passw0rd!", "user_type": "customer",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandler_AdminCookie(t *testing.T) {
	s := newTestServer(t)
	s.identities.seed(t, core.RoleAdmin, adminEmail, "+250788333444", "Passw0rd!", core.StatusActive)

	rec := s.do(t, http.MethodPost, "/auth/login", map[string]any{
		"email": adminEmail, "password": "Passw0rd!", "user_type": "admin", "remember_me": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	c := cookieNamed(rec, adminCookie)
	require.NotNil(t, c)
	require.True(t, c.HttpOnly)
	require.Positive(t, c.MaxAge)
	require.Nil(t, cookieNamed(rec, sessionCookie))
}

func TestVerifyOTPHandler_Errors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/otp/verify", map[string]string{
		"identifier": "a@b.com", "code": "12ab56", "user_type": "household",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_ERROR", decodeBody[core.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/auth/otp/verify", map[string]string{
		"identifier": "a@b.com", "code": "123456", "user_type": "household",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "CODE_INVALID", decodeBody[core.ErrorResponse](t, rec).Code)
}

func TestForgotPasswordHandler_Uniform(t *testing.T) {
	s := newTestServer(t)
	s.identities.seed(t, core.RoleHousehold, "a@b.com", "+250788000000", "Passw0rd!", core.StatusActive)

	known := s.do(t, http.MethodPost, "/auth/password/forgot", map[string]string{
		"identifier": "a@b.com", "user_type": "household",
	})
	unknown := s.do(t, http.MethodPost, "/auth/password/forgot", map[string]string{
		"identifier": "ghost@b.com", "user_type": "household",
	})

	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, known.Code, unknown.Code)
	require.JSONEq(t, known.Body.String(), unknown.Body.String())
}

func TestPasswordResetHandlers(t *testing.T) {
	s := newTestServer(t)
	s.identities.seed(t, core.RoleHousehold, "a@b.com", "+250788000000", "Passw0rd!", core.StatusActive)

	rec := s.do(t, http.MethodPost, "/auth/password/forgot", map[string]string{
		"identifier": "a@b.com", "user_type": "household",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	code := s.outbox.lastCode(t, "a@b.com")

	rec = s.do(t, http.MethodPost, "/auth/password/verify-code", map[string]string{
		"identifier": "a@b.com", "code": code, "user_type": "household",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/auth/password/reset", map[string]string{
		"identifier": "a@b.com", "code": code, "user_type": "household", "new_password": "NewPassw0rd!",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@b.com", "password": "NewPassw0rd!", "user_type": "household",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPasswordResetFlow_WithRouteLimits(t *testing.T) {
	s := newLimitedTestServer(t, true)
	s.identities.seed(t, core.RoleHousehold, "a@b.com", "+250788000000", "Passw0rd!", core.StatusActive)

	rec := s.do(t, http.MethodPost, "/auth/password/forgot", map[string]string{
		"identifier": "a@b.com", "user_type": "household",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	code := s.outbox.lastCode(t, "a@b.com")

	typo := []byte(code)
	typo[0] = '0' + (typo[0]-'0'+1)%10
	rec = s.do(t, http.MethodPost, "/auth/password/verify-code", map[string]string{
		"identifier": "a@b.com", "code": string(typo), "user_type": "household",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/auth/password/verify-code", map[string]string{
		"identifier": "a@b.com", "code": code, "user_type": "household",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/auth/password/reset", map[string]string{
		"identifier": "a@b.com", "code": code, "user_type": "household", "new_password": "NewPassw0rd!",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@b.com", "password": "NewPassw0rd!", "user_type": "household",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestEmailVerifyHandler(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/register/household", map[string]string{
		"name": "Amina", "email": "a@b.com", "phone": "0788000000", "password": "Passw0rd!",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	token := decodeBody[RegisterResponse](t, rec).Token

	rec = s.do(t, http.MethodPost, "/auth/email/send-verification", nil, bearer(token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	link := s.outbox.lastLinkToken(t, "a@b.com")

	rec = s.do(t, http.MethodGet, "/auth/email/verify?token="+link+"&email=a%40b.com&user_type=household", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/auth/email/verify?token="+link+"&email=a%40b.com&user_type=household", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/auth/email/verify?token=nothex&email=a%40b.com&user_type=household", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "CODE_INVALID", decodeBody[core.ErrorResponse](t, rec).Code)
}

func TestMeAndLogout_Bearer(t *testing.T) {
	s := newTestServer(t)
	s.identities.seed(t, core.RoleHousehold, "a@b.com", "+250788000000", "Passw0rd!", core.StatusActive)

	rec := s.do(t, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@b.com", "password": "Passw0rd!", "user_type": "household",
	})
	token := decodeBody[SessionResponse](t, rec).Token

	rec = s.do(t, http.MethodGet, "/auth/me", nil, bearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "a@b.com", decodeBody[MeResponse](t, rec).User.Email)

	rec = s.do(t, http.MethodPost, "/auth/logout", nil, bearer(token))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/auth/me", nil, bearer(token))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCookieSessionRequiresCSRF(t *testing.T) {
	s := newTestServer(t)
	s.identities.seed(t, core.RoleHousehold, "a@b.com", "+250788000000", "Passw0rd!", core.StatusActive)

	rec := s.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@b.com", "password": "Passw0rd!", "user_type": "household",
	})
	session := cookieNamed(rec, sessionCookie)
	require.NotNil(t, session)

	rec = s.do(t, http.MethodGet, "/auth/me", nil, withCookie(session))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/logout", nil, withCookie(session))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/auth/csrf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	csrfCookie := cookieNamed(rec, middleware.CSRFCookieName)
	require.NotNil(t, csrfCookie)
	csrfToken := decodeBody[CSRFResponse](t, rec).CSRFToken

	rec = s.do(t, http.MethodPost, "/auth/logout", nil,
		withCookie(session),
		withCookie(csrfCookie),
		func(r *http.Request) { r.Header.Set(middleware.CSRFHeader, csrfToken) },
	)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cleared := cookieNamed(rec, sessionCookie)
	require.NotNil(t, cleared)
	require.Negative(t, cleared.MaxAge)
}

func TestChangePasswordHandler(t *testing.T) {
	s := newTestServer(t)
	s.identities.seed(t, core.RoleHousehold, "a@b.com", "+250788000000", "Passw0rd!", core.StatusActive)

	rec := s.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@b.com", "password": "Passw0rd!", "user_type": "household",
	})
	old := decodeBody[SessionResponse](t, rec).Token

	rec = s.do(t, http.MethodPost, "/auth/change-password", map[string]string{
		"current_password": "nope", "new_password": "NewPassw0rd!",
	}, bearer(old))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody[core.ErrorResponse](t, rec).Details, "current_password")

	rec = s.do(t, http.MethodPost, "/auth/change-password", map[string]string{
		"current_password": "Passw0rd!", "new_password": "NewPassw0rd!",
	}, bearer(old))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fresh := decodeBody[TokenResponse](t, rec).Token

	require.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/auth/me", nil, bearer(old)).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/auth/me", nil, bearer(fresh)).Code)
}

func TestSuspendedTokenCannotChangePassword(t *testing.T) {
	s := newTestServer(t)
	seeded := s.identities.seed(t, core.RoleHousehold, "a@b.com", "+250788000000", "Passw0rd!", core.StatusActive)

	rec := s.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@b.com", "password": "Passw0rd!", "user_type": "household",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decodeBody[SessionResponse](t, rec).Token

	require.NoError(t, s.identities.update(core.RoleHousehold, seeded.ID, func(i *IdentityInfo) {
		i.Status = core.StatusSuspended
	}))

	rec = s.do(t, http.MethodPost, "/auth/change-password", map[string]string{
		"current_password": "Passw0rd!", "new_password": "NewPassw0rd!",
	}, bearer(token))
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	require.Equal(t, "account suspended", decodeBody[core.ErrorResponse](t, rec).Error)
	require.NotContains(t, rec.Body.String(), "token")

	require.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/auth/me", nil, bearer(token)).Code)
}
