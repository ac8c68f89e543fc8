// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/househelp-api/internal/core"
)

const authKey contextKey = "auth_result"

// Claims is the verified content of a bearer token. Kind tags which role the
// token was issued for.
type Claims struct {
	Kind      core.Role
	UserID    string
	Email     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c *Claims) IsAdmin() bool {
	return c.Kind == core.RoleAdmin
}

type TokenVerifier interface {
	Verify(token string) *Claims
}

type Source int

const (
	SourceNone Source = iota
	SourceHeader
	SourceCookie
)

type AuthResult struct {
	Authenticated bool
	Claims        *Claims
	Source        Source
	Error         string
}

func (a AuthResult) UserID() string {
	if a.Claims == nil {
		return ""
	}
	return a.Claims.UserID
}

func (a AuthResult) Role() core.Role {
	if a.Claims == nil {
		return ""
	}
	return a.Claims.Kind
}

func (a AuthResult) IsAdmin() bool {
	return a.Authenticated && a.Claims != nil && a.Claims.IsAdmin()
}

// Authorize grants access to a resource owned by ownerID. Admins bypass the
// ownership check.
func Authorize(auth AuthResult, ownerID string) bool {
	if !auth.Authenticated || auth.Claims == nil {
		return false
	}

	switch auth.Claims.Kind {
	case core.RoleAdmin:
		return true
	case core.RoleWorker, core.RoleHousehold:
		return ownerID != "" && auth.Claims.UserID == ownerID
	}
	return false
}

type Authenticator struct {
	verifier TokenVerifier
	cookies  []string
}

// NewAuthenticator reads the Authorization header first and falls back to
// the named cookies in order.
func NewAuthenticator(verifier TokenVerifier, cookieNames ...string) *Authenticator {
	return &Authenticator{verifier: verifier, cookies: cookieNames}
}

func (a *Authenticator) Authenticate(r *http.Request) AuthResult {
	token, source := a.extract(r)
	if token == "" {
		return AuthResult{Error: core.MsgNoToken}
	}

	claims := a.verifier.Verify(token)
	if claims == nil {
		return AuthResult{Source: source, Error: core.MsgInvalidToken}
	}

	return AuthResult{Authenticated: true, Claims: claims, Source: source}
}

func (a *Authenticator) extract(r *http.Request) (string, Source) {
	if token := ExtractBearer(r.Header.Get("Authorization")); token != "" {
		return token, SourceHeader
	}

	for _, name := range a.cookies {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return c.Value, SourceCookie
		}
	}

	return "", SourceNone
}

// Require rejects unauthenticated requests with 401.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := a.Authenticate(r)
		if !res.Authenticated {
			if res.Error == core.MsgNoToken {
				core.JSONError(w, core.NoTokenError())
				return
			}
			core.JSONError(w, core.TokenInvalidError())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), res)))
	})
}

// RequireAdmin admits admin tokens whose email passes the allow-list.
func RequireAdmin(allowed func(email string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := GetAuth(r.Context())
			if !res.Authenticated {
				core.JSONError(w, core.NoTokenError())
				return
			}

			if !res.IsAdmin() || !allowed(res.Claims.Email) {
				core.JSONError(w, core.ForbiddenError("insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type Denylist interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RejectRevoked consults the denylist for the authenticated token. Mount it
// after Require.
func RejectRevoked(denylist Denylist) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				core.JSONError(w, core.NoTokenError())
				return
			}

			revoked, err := denylist.IsRevoked(r.Context(), claims.TokenID)
			if err != nil {
				core.InternalServerError(w, err)
				return
			}
			if revoked {
				core.JSONError(w, core.TokenRevokedError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type SuspensionChecker interface {
	IsSuspended(ctx context.Context, role core.Role, id string) (bool, error)
}

// RejectSuspended refuses tokens whose identity was suspended after the
// token was issued. Mount it after Require.
func RejectSuspended(checker SuspensionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				core.JSONError(w, core.NoTokenError())
				return
			}

			suspended, err := checker.IsSuspended(r.Context(), claims.Kind, claims.UserID)
			switch {
			case errors.Is(err, core.ErrNotFound):
				core.JSONError(w, core.TokenInvalidError())
				return
			case err != nil:
				core.InternalServerError(w, err)
				return
			case suspended:
				core.JSONError(w, core.ForbiddenError("account suspended"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ExtractBearer returns the token from a "Bearer <token>" header value, or
// "" when the scheme is absent.
func ExtractBearer(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func WithAuth(ctx context.Context, res AuthResult) context.Context {
	return context.WithValue(ctx, authKey, res)
}

func GetAuth(ctx context.Context) AuthResult {
	if res, ok := ctx.Value(authKey).(AuthResult); ok {
		return res
	}
	return AuthResult{Error: core.MsgNoToken}
}

func GetClaims(ctx context.Context) *Claims {
	return GetAuth(ctx).Claims
}

func GetUserID(ctx context.Context) string {
	return GetAuth(ctx).UserID()
}
