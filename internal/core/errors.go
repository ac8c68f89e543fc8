// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrTokenInvalid  = errors.New("token invalid")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenRevoked  = errors.New("token revoked")
	ErrRateLimited   = errors.New("rate limited")
	ErrCodeInvalid   = errors.New("invalid or expired code")
	ErrCodeExpired   = errors.New("code expired")
	ErrAccountLocked = errors.New("account suspended")
)

// FieldConflict reports which unique field collided on insert or update.
type FieldConflict struct {
	Field string
}

func (e *FieldConflict) Error() string {
	return e.Field + " already registered"
}

func (e *FieldConflict) Unwrap() error {
	return ErrDuplicateKey
}

// ConflictField returns the colliding field name, or "" when err is not a
// FieldConflict.
func ConflictField(err error) string {
	var fc *FieldConflict
	if errors.As(err, &fc) {
		return fc.Field
	}
	return ""
}

type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	StatusCode int               `json:"-"`
	Code       string            `json:"code"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, status int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: status,
		Code:       code,
	}
}

func ValidationError(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrInvalidInput,
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
		Details:    details,
	}
}

func BadRequestError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest, "BAD_REQUEST")
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, "UNAUTHORIZED")
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		resource+" not found",
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func DuplicateError(field string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		field+" already registered",
		http.StatusConflict,
		"CONFLICT",
	)
}

func RateLimitedError() *AppError {
	return NewAppError(
		ErrRateLimited,
		"too many requests, please try again later",
		http.StatusTooManyRequests,
		"RATE_LIMITED",
	)
}

// The authenticator only ever surfaces these two messages.
const (
	MsgNoToken      = "no token provided"
	MsgInvalidToken = "invalid or expired token"
)

func NoTokenError() *AppError {
	return NewAppError(ErrUnauthorized, MsgNoToken, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TokenInvalidError() *AppError {
	return NewAppError(ErrTokenInvalid, MsgInvalidToken, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TokenRevokedError() *AppError {
	return NewAppError(ErrTokenRevoked, MsgInvalidToken, http.StatusUnauthorized, "UNAUTHORIZED")
}

func CodeInvalidError() *AppError {
	return NewAppError(
		ErrCodeInvalid,
		"invalid or expired code",
		http.StatusBadRequest,
		"CODE_INVALID",
	)
}

func CodeExpiredError() *AppError {
	return NewAppError(
		ErrCodeExpired,
		"code expired, request a new one",
		http.StatusBadRequest,
		"CODE_EXPIRED",
	)
}

func InternalError() *AppError {
	return NewAppError(
		nil,
		"an internal error occurred",
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
	)
}
