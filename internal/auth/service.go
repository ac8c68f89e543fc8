// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/househelp-api/internal/config"
	"github.com/carterperez-dev/househelp-api/internal/core"
	"github.com/carterperez-dev/househelp-api/internal/middleware"
	"github.com/carterperez-dev/househelp-api/internal/otp"
	"github.com/carterperez-dev/househelp-api/internal/ratelimit"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrNoEmail            = errors.New("no email address on file")
)

const (
	codeSentMessage  = "If an account exists, a verification code has been sent."
	resetSentMessage = "If an account exists, a password reset code has been sent."
)

type ServiceConfig struct {
	Tokens       *TokenManager
	Identities   IdentityProvider
	Codes        *otp.Service
	Limiter      *ratelimit.Limiter
	Denylist     *Denylist
	CodeLimit    config.WindowLimit
	AttemptLimit config.WindowLimit
	AdminAllowed func(email string) bool
	Logger       *slog.Logger
}

type Service struct {
	tokens       *TokenManager
	identities   IdentityProvider
	codes        *otp.Service
	limiter      *ratelimit.Limiter
	denylist     *Denylist
	codeLimit    config.WindowLimit
	attemptLimit config.WindowLimit
	adminAllowed func(email string) bool
	logger       *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.AdminAllowed == nil {
		cfg.AdminAllowed = func(string) bool { return false }
	}
	return &Service{
		tokens:       cfg.Tokens,
		identities:   cfg.Identities,
		codes:        cfg.Codes,
		limiter:      cfg.Limiter,
		denylist:     cfg.Denylist,
		codeLimit:    cfg.CodeLimit,
		attemptLimit: cfg.AttemptLimit,
		adminAllowed: cfg.AdminAllowed,
		logger:       cfg.Logger,
	}
}

type Session struct {
	Identity *IdentityInfo
	Token    string
	Claims   *middleware.Claims
}

type Registration struct {
	Session
	OTPSent bool
}

type CodeRequest struct {
	Message   string
	ExpiresIn int
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	ctx, span := core.StartSpan(ctx, "auth.Login",
		attribute.String("auth.user_type", req.UserType),
	)
	defer span.End()

	role, err := core.ParseRole(req.UserType)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	identity, err := s.identities.GetByLogin(ctx, role, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}

	valid, newHash := core.VerifyPasswordTimingSafe(req.Password, &identity.PasswordHash)
	if !valid {
		core.AddSpanEvent(ctx, "auth.password_mismatch")
		return nil, ErrInvalidCredentials
	}

	if role == core.RoleAdmin && !s.adminAllowed(identity.Email) {
		return nil, ErrInvalidCredentials
	}

	if identity.IsSuspended() {
		return nil, fmt.Errorf("login: %w", core.ErrAccountLocked)
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.identities.UpdatePassword(ctx, role, identity.ID, newHash)
	}

	return s.newSession(identity)
}

// Register creates a worker or household identity in the verifying state and
// sends a registration code: households by email, workers by SMS.
func (s *Service) Register(
	ctx context.Context,
	in NewIdentity,
	password string,
) (*Registration, error) {
	if !in.Role.SelfRegisters() {
		return nil, fmt.Errorf("register %s: %w", in.Role, core.ErrForbidden)
	}

	phone, err := s.identities.NormalizePhone(in.Phone)
	if err != nil {
		return nil, ErrInvalidPhone
	}
	in.Phone = phone
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	in.PasswordHash, err = core.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	identity, err := s.identities.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	session, err := s.newSession(identity)
	if err != nil {
		return nil, err
	}

	reg := &Registration{Session: *session}

	purpose, identifier := registrationTarget(identity)
	issued, err := s.codes.Issue(ctx, identity.Role, identifier, purpose)
	if err != nil {
		s.logger.ErrorContext(ctx, "issue registration code",
			"role", identity.Role,
			"error", err,
		)
		return reg, nil
	}

	reg.OTPSent = issued.Delivered
	return reg, nil
}

func registrationTarget(identity *IdentityInfo) (otp.Purpose, string) {
	switch identity.Role {
	case core.RoleHousehold:
		return otp.PurposeRegistration, identity.Email
	case core.RoleWorker, core.RoleAdmin:
		return otp.PurposePhoneVerification, identity.Phone
	}
	return otp.PurposePhoneVerification, identity.Phone
}

func defaultVerifyPurpose(identifier string) otp.Purpose {
	if strings.Contains(identifier, "@") {
		return otp.PurposeRegistration
	}
	return otp.PurposePhoneVerification
}

// VerifyOTP consumes a registration or phone verification code and activates
// the identity in the same transaction.
func (s *Service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) error {
	role, identifier, err := s.resolve(req.UserType, req.Identifier)
	if err != nil {
		return fmt.Errorf("verify otp: %w", core.ErrCodeInvalid)
	}

	purpose := defaultVerifyPurpose(identifier)
	if req.Purpose != "" {
		if purpose, err = otp.ParsePurpose(req.Purpose); err != nil {
			return err
		}
	}

	if err := s.throttle(ctx, "otp-attempt", role, identifier, s.attemptLimit); err != nil {
		return err
	}

	identity, err := s.identities.GetByLogin(ctx, role, identifier)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("verify otp: %w", core.ErrCodeInvalid)
		}
		return fmt.Errorf("get identity: %w", err)
	}

	err = s.codes.Consume(ctx, role, identifier, req.Code, purpose,
		func(ctx context.Context) error {
			return s.identities.Activate(ctx, role, identity.ID)
		})
	if err != nil {
		return err
	}

	s.clearThrottle(ctx, "otp-attempt", role, identifier)
	return nil
}

// ResendOTP reissues a registration code. The response never reveals
// whether the account exists or is already verified.
func (s *Service) ResendOTP(ctx context.Context, req ResendOTPRequest) (*CodeRequest, error) {
	purpose := otp.PurposeRegistration
	if req.Purpose != "" {
		p, err := otp.ParsePurpose(req.Purpose)
		if err != nil {
			return nil, err
		}
		purpose = p
	}

	result := &CodeRequest{Message: codeSentMessage, ExpiresIn: int(purpose.TTL().Seconds())}

	role, identifier, err := s.resolve(req.UserType, req.Identifier)
	if err != nil {
		return result, nil
	}
	if req.Purpose == "" {
		purpose = defaultVerifyPurpose(identifier)
		result.ExpiresIn = int(purpose.TTL().Seconds())
	}

	if err := s.throttle(ctx, "otp-send", role, identifier, s.codeLimit); err != nil {
		return nil, err
	}

	identity, err := s.identities.GetByLogin(ctx, role, identifier)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return result, nil
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}

	if identity.Status != core.StatusVerifying {
		return result, nil
	}

	if _, err := s.codes.Issue(ctx, role, identifier, purpose); err != nil {
		return nil, err
	}

	return result, nil
}

// ForgotPassword sends a reset code when the account exists. The response is
// the same either way.
func (s *Service) ForgotPassword(
	ctx context.Context,
	req ForgotPasswordRequest,
) (*CodeRequest, error) {
	result := &CodeRequest{
		Message:   resetSentMessage,
		ExpiresIn: int(otp.PurposePasswordReset.TTL().Seconds()),
	}

	role, identifier, err := s.resolve(req.UserType, req.Identifier)
	if err != nil {
		return result, nil
	}

	if err := s.throttle(ctx, "reset-send", role, identifier, s.codeLimit); err != nil {
		return nil, err
	}

	identity, err := s.identities.GetByLogin(ctx, role, identifier)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return result, nil
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}

	if identity.IsSuspended() {
		return result, nil
	}

	if _, err := s.codes.Issue(ctx, role, identifier, otp.PurposePasswordReset); err != nil {
		return nil, err
	}

	return result, nil
}

// VerifyResetCode checks a reset code without consuming it.
func (s *Service) VerifyResetCode(ctx context.Context, req VerifyResetCodeRequest) error {
	role, identifier, err := s.resolve(req.UserType, req.Identifier)
	if err != nil {
		return fmt.Errorf("verify reset code: %w", core.ErrCodeInvalid)
	}

	if err := s.throttle(ctx, "reset-attempt", role, identifier, s.attemptLimit); err != nil {
		return err
	}

	return s.codes.Check(ctx, role, identifier, req.Code, otp.PurposePasswordReset)
}

// ResetPassword consumes the reset code and stores the new hash atomically.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	role, identifier, err := s.resolve(req.UserType, req.Identifier)
	if err != nil {
		return fmt.Errorf("reset password: %w", core.ErrCodeInvalid)
	}

	if err := s.throttle(ctx, "reset-attempt", role, identifier, s.attemptLimit); err != nil {
		return err
	}

	identity, err := s.identities.GetByLogin(ctx, role, identifier)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("reset password: %w", core.ErrCodeInvalid)
		}
		return fmt.Errorf("get identity: %w", err)
	}

	hash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.codes.Consume(ctx, role, identifier, req.Code, otp.PurposePasswordReset,
		func(ctx context.Context) error {
			return s.identities.UpdatePassword(ctx, role, identity.ID, hash)
		})
	if err != nil {
		return err
	}

	s.clearThrottle(ctx, "reset-attempt", role, identifier)
	return nil
}

// SendEmailVerification emails a 24 hour verification link to the caller.
func (s *Service) SendEmailVerification(
	ctx context.Context,
	claims *middleware.Claims,
) (*CodeRequest, error) {
	identity, err := s.activeIdentity(ctx, claims)
	if err != nil {
		return nil, err
	}

	if identity.Email == "" {
		return nil, ErrNoEmail
	}

	result := &CodeRequest{
		ExpiresIn: int(otp.PurposeEmailVerification.TTL().Seconds()),
	}

	if identity.VerificationStatus == core.VerificationVerified {
		result.Message = "Email address already verified."
		return result, nil
	}

	if err := s.throttle(ctx, "email-send", identity.Role, identity.Email, s.codeLimit); err != nil {
		return nil, err
	}

	if _, err := s.codes.Issue(ctx, identity.Role, identity.Email, otp.PurposeEmailVerification); err != nil {
		return nil, err
	}

	result.Message = "Verification email sent."
	return result, nil
}

// VerifyEmail consumes an email verification link token.
func (s *Service) VerifyEmail(ctx context.Context, q VerifyEmailQuery) error {
	role, err := core.ParseRole(q.UserType)
	if err != nil {
		return fmt.Errorf("verify email: %w", core.ErrCodeInvalid)
	}
	email := strings.ToLower(strings.TrimSpace(q.Email))

	identity, err := s.identities.GetByLogin(ctx, role, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("verify email: %w", core.ErrCodeInvalid)
		}
		return fmt.Errorf("get identity: %w", err)
	}

	return s.codes.Consume(ctx, role, email, strings.ToLower(q.Token), otp.PurposeEmailVerification,
		func(ctx context.Context) error {
			return s.identities.MarkEmailVerified(ctx, role, identity.ID)
		})
}

func (s *Service) Me(ctx context.Context, claims *middleware.Claims) (*IdentityInfo, error) {
	return s.activeIdentity(ctx, claims)
}

// Logout denylists the presented token until it expires.
func (s *Service) Logout(ctx context.Context, claims *middleware.Claims) error {
	return s.denylist.Revoke(ctx, claims)
}

// ChangePassword replaces the password, retires the presented token and
// returns a fresh session.
func (s *Service) ChangePassword(
	ctx context.Context,
	claims *middleware.Claims,
	req ChangePasswordRequest,
) (*Session, error) {
	identity, err := s.activeIdentity(ctx, claims)
	if err != nil {
		return nil, err
	}

	if !core.VerifyPassword(req.CurrentPassword, identity.PasswordHash) {
		return nil, ErrWrongPassword
	}

	hash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := s.identities.UpdatePassword(ctx, identity.Role, identity.ID, hash); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}

	if err := s.denylist.Revoke(ctx, claims); err != nil {
		return nil, err
	}

	return s.newSession(identity)
}

// activeIdentity loads the token's identity and refuses suspended accounts,
// whose tokens stay valid until expiry.
func (s *Service) activeIdentity(
	ctx context.Context,
	claims *middleware.Claims,
) (*IdentityInfo, error) {
	identity, err := s.identities.GetByID(ctx, claims.Kind, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	if identity.IsSuspended() {
		return nil, fmt.Errorf("%s: %w", claims.Kind, core.ErrAccountLocked)
	}
	return identity, nil
}

func (s *Service) newSession(identity *IdentityInfo) (*Session, error) {
	if identity.IsSuspended() {
		return nil, fmt.Errorf("new session: %w", core.ErrAccountLocked)
	}

	token, claims, err := s.tokens.Issue(identity)
	if err != nil {
		return nil, err
	}
	return &Session{Identity: identity, Token: token, Claims: claims}, nil
}

// resolve parses the role and canonicalizes an email address or phone
// number so codes are keyed consistently.
func (s *Service) resolve(userType, identifier string) (core.Role, string, error) {
	role, err := core.ParseRole(userType)
	if err != nil {
		return "", "", err
	}

	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return role, strings.ToLower(identifier), nil
	}

	phone, err := s.identities.NormalizePhone(identifier)
	if err != nil {
		return "", "", err
	}
	return role, phone, nil
}

func (s *Service) throttle(
	ctx context.Context,
	scope string,
	role core.Role,
	identifier string,
	limit config.WindowLimit,
) error {
	if s.limiter == nil || limit.Max <= 0 {
		return nil
	}

	key := throttleKey(scope, role, identifier)
	res, err := s.limiter.Check(ctx, key, limit.Max, limit.Window)
	if err != nil {
		s.logger.WarnContext(ctx, "code limiter error, failing open",
			"scope", scope,
			"error", err,
		)
		return nil
	}

	if !res.Allowed {
		return fmt.Errorf("%s: %w", scope, core.ErrRateLimited)
	}
	return nil
}

// clearThrottle forgets failed attempts once a code has been accepted.
func (s *Service) clearThrottle(
	ctx context.Context,
	scope string,
	role core.Role,
	identifier string,
) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Reset(ctx, throttleKey(scope, role, identifier)); err != nil {
		s.logger.WarnContext(ctx, "clear attempt window", "scope", scope, "error", err)
	}
}

func throttleKey(scope string, role core.Role, identifier string) string {
	return scope + ":" + role.String() + ":" + identifier
}
