// AngelaMos | 2026
// handler.go

package identity

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/househelp-api/internal/core"
	"github.com/carterperez-dev/househelp-api/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

// RegisterRoutes mounts /workers/{id}, /households/{id} and /admins/{id}.
// Each is readable and writable by its owner or by an admin.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	middlewares ...func(http.Handler) http.Handler,
) {
	for _, role := range core.Roles() {
		r.Route("/"+role.String()+"s/{id}", func(r chi.Router) {
			for _, mw := range middlewares {
				if mw != nil {
					r.Use(mw)
				}
			}
			r.Use(h.ownerOnly(role))

			r.Get("/", h.get(role))
			r.Put("/", h.update(role))
		})
	}
}

// RegisterAdminRoutes mounts identity management for admins.
func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	middlewares ...func(http.Handler) http.Handler,
) {
	r.Route("/admin/identities/{role}", func(r chi.Router) {
		for _, mw := range middlewares {
			if mw != nil {
				r.Use(mw)
			}
		}

		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Put("/{id}/status", h.UpdateStatus)
	})
}

func (h *Handler) ownerOnly(role core.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := middleware.GetAuth(r.Context())
			if !auth.Authenticated {
				core.JSONError(w, core.NoTokenError())
				return
			}

			id := chi.URLParam(r, "id")
			if (!auth.IsAdmin() && auth.Role() != role) || !middleware.Authorize(auth, id) {
				core.Forbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) get(role core.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := h.service.GetIdentity(r.Context(), role, chi.URLParam(r, "id"))
		if err != nil {
			h.fail(w, role, err)
			return
		}

		core.OK(w, ToIdentityResponse(identity))
	}
}

func (h *Handler) update(role core.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateIdentityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			core.BadRequest(w, "invalid request body")
			return
		}

		if err := h.validator.Struct(req); err != nil {
			core.ValidationFailed(w, err)
			return
		}

		identity, err := h.service.UpdateIdentity(r.Context(), role, chi.URLParam(r, "id"), req)
		if err != nil {
			h.fail(w, role, err)
			return
		}

		core.OK(w, ToIdentityResponse(identity))
	}
}

// List returns a page of identities for one role.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	role, ok := roleParam(w, r)
	if !ok {
		return
	}

	params := ListParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Search:   r.URL.Query().Get("search"),
		Status:   r.URL.Query().Get("status"),
	}
	params.Normalize()

	identities, total, err := h.service.ListIdentities(r.Context(), role, params)
	if err != nil {
		h.fail(w, role, err)
		return
	}

	core.Paginated(
		w,
		ToIdentityResponseList(identities),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	role, ok := roleParam(w, r)
	if !ok {
		return
	}

	identity, err := h.service.GetIdentity(r.Context(), role, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, role, err)
		return
	}

	core.OK(w, ToIdentityResponse(identity))
}

// UpdateStatus suspends or reinstates an identity.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	role, ok := roleParam(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.ValidationFailed(w, err)
		return
	}

	status, err := core.ParseStatus(req.Status)
	if err != nil {
		core.BadRequest(w, "invalid status")
		return
	}

	identity, err := h.service.UpdateStatus(
		r.Context(),
		middleware.GetUserID(r.Context()),
		role,
		chi.URLParam(r, "id"),
		status,
	)
	if err != nil {
		h.fail(w, role, err)
		return
	}

	core.OK(w, ToIdentityResponse(identity))
}

func (h *Handler) fail(w http.ResponseWriter, role core.Role, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, role.String())
	case errors.Is(err, core.ErrDuplicateKey):
		core.Conflict(w, core.ConflictField(err))
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "insufficient permissions")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "invalid request")
	default:
		core.InternalServerError(w, err)
	}
}

func roleParam(w http.ResponseWriter, r *http.Request) (core.Role, bool) {
	role, err := core.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		core.NotFound(w, "role")
		return "", false
	}
	return role, true
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
