// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/househelp-api/internal/core"
	"github.com/carterperez-dev/househelp-api/internal/middleware"
)

type CookieConfig struct {
	Name      string
	AdminName string
	Domain    string
	Secure    bool
}

// Middlewares are mounted per route group. Nil entries are skipped.
type Middlewares struct {
	Authenticate  func(http.Handler) http.Handler
	RejectRevoked func(http.Handler) http.Handler
	CSRF          func(http.Handler) http.Handler
	LoginLimit    func(http.Handler) http.Handler
	RegisterLimit func(http.Handler) http.Handler
	SendLimit     func(http.Handler) http.Handler
	VerifyLimit   func(http.Handler) http.Handler
}

type Handler struct {
	service   *Service
	csrf      *middleware.CSRF
	cookies   CookieConfig
	validator *validator.Validate
}

func NewHandler(service *Service, csrf *middleware.CSRF, cookies CookieConfig) *Handler {
	return &Handler{
		service:   service,
		csrf:      csrf,
		cookies:   cookies,
		validator: core.NewValidator(),
	}
}

func use(r chi.Router, mws ...func(http.Handler) http.Handler) {
	for _, mw := range mws {
		if mw != nil {
			r.Use(mw)
		}
	}
}

func (h *Handler) RegisterRoutes(r chi.Router, mw Middlewares) {
	r.Route("/auth", func(r chi.Router) {
		r.Get("/csrf", h.CSRFToken)

		r.Group(func(r chi.Router) {
			use(r, mw.LoginLimit)
			r.Post("/login", h.Login)
		})

		r.Group(func(r chi.Router) {
			use(r, mw.RegisterLimit)
			r.Post("/register/{role}", h.Register)
		})

		r.Group(func(r chi.Router) {
			use(r, mw.SendLimit)
			r.Post("/otp/resend", h.ResendOTP)
			r.Post("/password/forgot", h.ForgotPassword)
		})

		r.Group(func(r chi.Router) {
			use(r, mw.VerifyLimit)
			r.Post("/otp/verify", h.VerifyOTP)
			r.Post("/password/verify-code", h.VerifyResetCode)
			r.Post("/password/reset", h.ResetPassword)
			r.Get("/email/verify", h.VerifyEmail)
		})

		r.Group(func(r chi.Router) {
			use(r, mw.Authenticate, mw.RejectRevoked, mw.CSRF)
			r.Get("/me", h.Me)
			r.Post("/logout", h.Logout)
			r.Post("/change-password", h.ChangePassword)
			r.Post("/email/send-verification", h.SendEmailVerification)
		})
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.ValidationFailed(w, err)
		return false
	}

	return true
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			slog.InfoContext(r.Context(), "login failed",
				"user_type", req.UserType,
				"ip", middleware.ClientIP(r),
			)
		}
		h.fail(w, err)
		return
	}

	h.setSessionCookie(w, session, req.RememberMe)

	core.OK(w, SessionResponse{
		Success: true,
		User:    ToUserResponse(session.Identity),
		Token:   session.Token,
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	role, err := core.ParseRole(chi.URLParam(r, "role"))
	if err != nil || !role.SelfRegisters() {
		core.NotFound(w, "registration")
		return
	}

	var (
		in       NewIdentity
		password string
	)

	switch role {
	case core.RoleWorker:
		var req WorkerRegisterRequest
		if !h.decode(w, r, &req) {
			return
		}
		in = NewIdentity{Role: role, Name: req.FullName, Email: req.Email, Phone: req.Phone}
		password = req.Password
	case core.RoleHousehold:
		var req HouseholdRegisterRequest
		if !h.decode(w, r, &req) {
			return
		}
		in = NewIdentity{Role: role, Name: req.Name, Email: req.Email, Phone: req.Phone}
		password = req.Password
	case core.RoleAdmin:
		core.NotFound(w, "registration")
		return
	}

	reg, err := h.service.Register(r.Context(), in, password)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.setSessionCookie(w, &reg.Session, false)

	core.Created(w, RegisterResponse{
		Success: true,
		User:    ToUserResponse(reg.Identity),
		Token:   reg.Token,
		OTPSent: reg.OTPSent,
	})
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.VerifyOTP(r.Context(), req); err != nil {
		h.fail(w, err)
		return
	}

	core.OK(w, VerifiedResponse{Success: true, Verified: true})
}

func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req ResendOTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.ResendOTP(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}

	core.OK(w, CodeRequestResponse{Success: true, Message: result.Message, ExpiresIn: result.ExpiresIn})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.ForgotPassword(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}

	core.OK(w, CodeRequestResponse{Success: true, Message: result.Message, ExpiresIn: result.ExpiresIn})
}

func (h *Handler) VerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyResetCodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.VerifyResetCode(r.Context(), req); err != nil {
		h.fail(w, err)
		return
	}

	core.OK(w, VerifiedResponse{Success: true, Verified: true})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		h.fail(w, err)
		return
	}

	core.OK(w, MessageResponse{Success: true, Message: "password updated"})
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := VerifyEmailQuery{
		Token:    q.Get("token"),
		Email:    q.Get("email"),
		UserType: q.Get("user_type"),
	}

	if err := h.validator.Struct(query); err != nil {
		core.JSONError(w, core.CodeInvalidError())
		return
	}

	if err := h.service.VerifyEmail(r.Context(), query); err != nil {
		h.fail(w, err)
		return
	}

	core.OK(w, VerifiedResponse{Success: true, Verified: true})
}

func (h *Handler) SendEmailVerification(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SendEmailVerification(r.Context(), middleware.GetClaims(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}

	core.OK(w, CodeRequestResponse{Success: true, Message: result.Message, ExpiresIn: result.ExpiresIn})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := h.service.Me(r.Context(), middleware.GetClaims(r.Context()))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.JSONError(w, core.TokenInvalidError())
			return
		}
		h.fail(w, err)
		return
	}

	core.OK(w, MeResponse{Success: true, User: ToUserResponse(identity)})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), middleware.GetClaims(r.Context())); err != nil {
		core.InternalServerError(w, err)
		return
	}

	h.clearCookie(w, h.cookies.Name)
	h.clearCookie(w, h.cookies.AdminName)

	core.OK(w, MessageResponse{Success: true})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.service.ChangePassword(r.Context(), middleware.GetClaims(r.Context()), req)
	if err != nil {
		h.fail(w, err)
		return
	}

	if middleware.GetAuth(r.Context()).Source == middleware.SourceCookie {
		h.setSessionCookie(w, session, false)
	}

	core.OK(w, TokenResponse{Success: true, Token: session.Token})
}

func (h *Handler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrf.Issue(r.Context(), w)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, CSRFResponse{CSRFToken: token})
}

func (h *Handler) cookieName(session *Session) string {
	if session.Claims.IsAdmin() {
		return h.cookies.AdminName
	}
	return h.cookies.Name
}

// setSessionCookie sets the role's session cookie. Without remember the
// cookie lasts for the browser session only.
func (h *Handler) setSessionCookie(w http.ResponseWriter, session *Session, remember bool) {
	name := h.cookieName(session)
	if name == "" {
		return
	}

	cookie := &http.Cookie{
		Name:     name,
		Value:    session.Token,
		Path:     "/",
		Domain:   h.cookies.Domain,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.MaxAge = int(session.Claims.ExpiresAt.Sub(session.Claims.IssuedAt).Seconds())
		cookie.Expires = session.Claims.ExpiresAt
	}

	http.SetCookie(w, cookie)
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	if name == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		core.JSONError(w, core.UnauthorizedError("invalid credentials"))
	case errors.Is(err, core.ErrAccountLocked):
		core.JSONError(w, core.ForbiddenError("account suspended"))
	case errors.Is(err, ErrInvalidPhone):
		core.JSONError(w, core.ValidationError(map[string]string{
			"phone": "invalid phone number",
		}))
	case errors.Is(err, core.ErrDuplicateKey):
		field := core.ConflictField(err)
		if field == "" {
			field = "account"
		}
		core.JSONError(w, core.DuplicateError(field))
	case errors.Is(err, core.ErrCodeExpired):
		core.JSONError(w, core.CodeExpiredError())
	case errors.Is(err, core.ErrCodeInvalid):
		core.JSONError(w, core.CodeInvalidError())
	case errors.Is(err, core.ErrRateLimited):
		core.TooManyRequests(w)
	case errors.Is(err, ErrWrongPassword):
		core.JSONError(w, core.ValidationError(map[string]string{
			"current_password": ErrWrongPassword.Error(),
		}))
	case errors.Is(err, ErrNoEmail):
		core.BadRequest(w, ErrNoEmail.Error())
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "invalid request")
	case errors.Is(err, core.ErrForbidden):
		core.JSONError(w, core.ForbiddenError(""))
	default:
		core.InternalServerError(w, err)
	}
}
