// AngelaMos | 2026
// gate.go

package gate

import (
	"net/http"
	"strings"

	"github.com/carterperez-dev/househelp-api/internal/core"
	"github.com/carterperez-dev/househelp-api/internal/middleware"
)

const (
	adminLogin     = "/admin"
	adminDashboard = "/admin/dashboard"
)

// Decision is the outcome for one page request.
type Decision struct {
	Redirect bool   `json:"redirect"`
	Location string `json:"location,omitempty"`
}

var pass = Decision{}

func redirect(location string) Decision {
	return Decision{Redirect: true, Location: location}
}

type Config struct {
	SessionCookie string
	AdminCookie   string
	AdminAllowed  func(email string) bool
}

// Gate decides page access from session cookies alone. It verifies tokens
// but never loads identities.
type Gate struct {
	verifier      middleware.TokenVerifier
	sessionCookie string
	adminCookie   string
	adminAllowed  func(email string) bool
}

func New(verifier middleware.TokenVerifier, cfg Config) *Gate {
	if cfg.AdminAllowed == nil {
		cfg.AdminAllowed = func(string) bool { return false }
	}
	return &Gate{
		verifier:      verifier,
		sessionCookie: cfg.SessionCookie,
		adminCookie:   cfg.AdminCookie,
		adminAllowed:  cfg.AdminAllowed,
	}
}

func (g *Gate) Decide(r *http.Request) Decision {
	return g.DecidePath(r, r.URL.Path)
}

// DecidePath applies the rules to path using the cookies on r.
func (g *Gate) DecidePath(r *http.Request, path string) Decision {
	path = cleanPath(path)

	if path == adminLogin || strings.HasPrefix(path, adminLogin+"/") {
		return g.admin(r, path)
	}

	for _, role := range []core.Role{core.RoleWorker, core.RoleHousehold} {
		prefix := "/" + role.String()
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return g.member(r, role, path)
		}
	}

	return pass
}

func (g *Gate) admin(r *http.Request, path string) Decision {
	claims := g.claims(r, g.adminCookie)
	ok := claims != nil && claims.IsAdmin() && g.adminAllowed(claims.Email)

	if path == adminLogin {
		if ok {
			return redirect(adminDashboard)
		}
		return pass
	}

	if !ok {
		return redirect(adminLogin)
	}
	return pass
}

func (g *Gate) member(r *http.Request, role core.Role, path string) Decision {
	if strings.Contains(path, "/login") || strings.Contains(path, "/register") {
		return pass
	}

	claims := g.claims(r, g.sessionCookie)
	if claims == nil || claims.Kind != role {
		return redirect("/" + role.String() + "/login")
	}
	return pass
}

func (g *Gate) claims(r *http.Request, cookie string) *middleware.Claims {
	if cookie == "" {
		return nil
	}
	c, err := r.Cookie(cookie)
	if err != nil || c.Value == "" {
		return nil
	}
	return g.verifier.Verify(c.Value)
}

// Handler redirects page requests that fail the rules and passes the rest
// through untouched.
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d := g.Decide(r); d.Redirect {
			http.Redirect(w, r, d.Location, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Check reports the decision for the path query parameter so an edge proxy
// in front of the web app can apply it.
func (g *Gate) Check(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		core.BadRequest(w, "path is required")
		return
	}
	core.OK(w, g.DecidePath(r, path))
}

func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
