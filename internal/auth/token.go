// AngelaMos | 2026
// token.go

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/househelp-api/internal/config"
	"github.com/carterperez-dev/househelp-api/internal/core"
	"github.com/carterperez-dev/househelp-api/internal/middleware"
)

const (
	MinSecretLength    = 32
	DefaultTokenExpire = 7 * 24 * time.Hour

	claimUserID   = "userId"
	claimEmail    = "email"
	claimUserType = "userType"
)

var ErrWeakSecret = errors.New("token secret must be at least 32 bytes")

// TokenManager signs and verifies HS256 bearer tokens carrying
// {userId, email, userType}.
type TokenManager struct {
	key    jwk.Key
	issuer string
	expire time.Duration
	now    func() time.Time
}

func NewTokenManager(cfg config.AuthConfig) (*TokenManager, error) {
	if len(cfg.TokenSecret) < MinSecretLength {
		return nil, fmt.Errorf("token manager: %w", ErrWeakSecret)
	}

	key, err := jwk.Import([]byte(cfg.TokenSecret))
	if err != nil {
		return nil, fmt.Errorf("import signing key: %w", err)
	}

	if setErr := key.Set(jwk.AlgorithmKey, jwa.HS256()); setErr != nil {
		return nil, fmt.Errorf("set algorithm: %w", setErr)
	}

	expire := cfg.TokenExpire
	if expire <= 0 {
		expire = DefaultTokenExpire
	}

	return &TokenManager{
		key:    key,
		issuer: cfg.Issuer,
		expire: expire,
		now:    time.Now,
	}, nil
}

// WithClock replaces the time source used for issuing and validation.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

func (m *TokenManager) Lifetime() time.Duration {
	return m.expire
}

func (m *TokenManager) Issue(identity *IdentityInfo) (string, *middleware.Claims, error) {
	if identity == nil || identity.ID == "" || !identity.Role.Valid() {
		return "", nil, fmt.Errorf("issue token: %w", core.ErrInvalidInput)
	}

	email := identity.LoginIdentifier()
	if email == "" {
		return "", nil, fmt.Errorf("issue token: missing email: %w", core.ErrInvalidInput)
	}

	now := m.now().Truncate(time.Second)
	claims := &middleware.Claims{
		Kind:      identity.Role,
		UserID:    identity.ID,
		Email:     email,
		TokenID:   uuid.New().String(),
		IssuedAt:  now,
		ExpiresAt: now.Add(m.expire),
	}

	builder := jwt.NewBuilder().
		JwtID(claims.TokenID).
		Subject(claims.UserID).
		IssuedAt(claims.IssuedAt).
		Expiration(claims.ExpiresAt).
		Claim(claimUserID, claims.UserID).
		Claim(claimEmail, claims.Email).
		Claim(claimUserType, claims.Kind.String())
	if m.issuer != "" {
		builder = builder.Issuer(m.issuer)
	}

	token, err := builder.Build()
	if err != nil {
		return "", nil, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), m.key))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	return string(signed), claims, nil
}

// Verify returns the token's claims, or nil when the token is malformed,
// badly signed, expired or missing a required claim.
func (m *TokenManager) Verify(tokenString string) *middleware.Claims {
	claims, err := m.Parse(tokenString)
	if err != nil {
		return nil
	}
	return claims
}

// Parse is Verify with the failure reason kept for logging. Callers must not
// surface the reason to clients.
func (m *TokenManager) Parse(tokenString string) (*middleware.Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("parse token: empty: %w", core.ErrTokenInvalid)
	}

	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256(), m.key),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", core.ErrTokenInvalid)
	}

	exp, ok := token.Expiration()
	if !ok {
		return nil, fmt.Errorf("parse token: missing exp: %w", core.ErrTokenInvalid)
	}
	if !m.now().Before(exp) {
		return nil, fmt.Errorf("parse token: %w", core.ErrTokenExpired)
	}

	validateOpts := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(m.now)),
	}
	if m.issuer != "" {
		validateOpts = append(validateOpts, jwt.WithIssuer(m.issuer))
	}
	if err := jwt.Validate(token, validateOpts...); err != nil {
		return nil, fmt.Errorf("parse token: %w", core.ErrTokenInvalid)
	}

	var userID, email, userType string
	if err := token.Get(claimUserID, &userID); err != nil || userID == "" {
		return nil, fmt.Errorf("parse token: missing %s: %w", claimUserID, core.ErrTokenInvalid)
	}
	if err := token.Get(claimEmail, &email); err != nil || email == "" {
		return nil, fmt.Errorf("parse token: missing %s: %w", claimEmail, core.ErrTokenInvalid)
	}
	if err := token.Get(claimUserType, &userType); err != nil {
		return nil, fmt.Errorf("parse token: missing %s: %w", claimUserType, core.ErrTokenInvalid)
	}

	role := core.Role(userType)
	if !role.Valid() {
		return nil, fmt.Errorf("parse token: unknown role %q: %w", userType, core.ErrTokenInvalid)
	}

	claims := &middleware.Claims{
		Kind:   role,
		UserID: userID,
		Email:  email,
	}
	if jti, ok := token.JwtID(); ok {
		claims.TokenID = jti
	}
	if iat, ok := token.IssuedAt(); ok {
		claims.IssuedAt = iat
	}
	claims.ExpiresAt = exp

	return claims, nil
}

var _ middleware.TokenVerifier = (*TokenManager)(nil)
