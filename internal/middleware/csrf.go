// AngelaMos | 2026
// csrf.go

package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/carterperez-dev/househelp-api/internal/core"
	"github.com/carterperez-dev/househelp-api/internal/kv"
)

const (
	CSRFHeader     = "X-CSRF-Token"
	CSRFCookieName = "househelp-csrf"

	csrfKeyPrefix = "csrf:"
)

// CSRF implements double-submit protection for cookie-authenticated
// requests. Tokens are also recorded in the store so forged cookie/header
// pairs the server never issued are rejected.
type CSRF struct {
	store  kv.Store
	ttl    time.Duration
	secure bool
}

func NewCSRF(store kv.Store, ttl time.Duration, secure bool) *CSRF {
	return &CSRF{store: store, ttl: ttl, secure: secure}
}

// Issue stores a fresh token and sets it as a readable cookie.
func (c *CSRF) Issue(ctx context.Context, w http.ResponseWriter) (string, error) {
	token, err := core.GenerateSecureToken(32)
	if err != nil {
		return "", fmt.Errorf("issue csrf token: %w", err)
	}

	if err := c.store.Set(ctx, csrfKeyPrefix+core.HashToken(token), []byte{1}, c.ttl); err != nil {
		return "", fmt.Errorf("issue csrf token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})

	return token, nil
}

func (c *CSRF) Valid(r *http.Request) (bool, error) {
	header := r.Header.Get(CSRFHeader)
	cookie, err := r.Cookie(CSRFCookieName)
	if header == "" || err != nil || cookie.Value == "" {
		return false, nil
	}

	if subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
		return false, nil
	}

	_, ok, err := c.store.Get(r.Context(), csrfKeyPrefix+core.HashToken(header))
	if err != nil {
		return false, fmt.Errorf("check csrf token: %w", err)
	}
	return ok, nil
}

// Handler enforces the check on unsafe methods when the caller authenticated
// with a cookie. Header-authenticated clients are exempt.
func (c *CSRF) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if safeMethod(r.Method) || GetAuth(r.Context()).Source != SourceCookie {
			next.ServeHTTP(w, r)
			return
		}

		ok, err := c.Valid(r)
		if err != nil {
			core.InternalServerError(w, err)
			return
		}
		if !ok {
			core.JSONError(w, core.ForbiddenError("invalid csrf token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
