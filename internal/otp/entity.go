// AngelaMos | 2026
// entity.go

package otp

import (
	"fmt"
	"time"

	"github.com/carterperez-dev/househelp-api/internal/core"
)

type Purpose string

const (
	PurposeRegistration      Purpose = "registration"
	PurposePasswordReset     Purpose = "password_reset"
	PurposePhoneVerification Purpose = "phone_verification"
	PurposeEmailVerification Purpose = "email_verification"
)

const codeLength = 6

func ParsePurpose(s string) (Purpose, error) {
	p := Purpose(s)
	switch p {
	case PurposeRegistration,
		PurposePasswordReset,
		PurposePhoneVerification,
		PurposeEmailVerification:
		return p, nil
	}
	return "", fmt.Errorf("parse purpose %q: %w", s, core.ErrInvalidInput)
}

func (p Purpose) TTL() time.Duration {
	switch p {
	case PurposeRegistration, PurposePhoneVerification:
		return 10 * time.Minute
	case PurposePasswordReset:
		return 15 * time.Minute
	case PurposeEmailVerification:
		return 24 * time.Hour
	}
	return 0
}

// Opaque purposes use a hex link token instead of a numeric code.
func (p Purpose) Opaque() bool {
	return p == PurposeEmailVerification
}

// Activates reports whether consuming the code proves control of the
// identifier and therefore verifies the identity.
func (p Purpose) Activates() bool {
	switch p {
	case PurposeRegistration, PurposePhoneVerification, PurposeEmailVerification:
		return true
	case PurposePasswordReset:
		return false
	}
	return false
}

// Code is one issued code or link token. Only the SHA-256 of the value is
// stored. Rows are never deleted: they are consumed, superseded, or left to
// expire.
type Code struct {
	ID         string     `db:"id"`
	Role       core.Role  `db:"role"`
	Identifier string     `db:"identifier"`
	CodeHash   string     `db:"code_hash"`
	Purpose    Purpose    `db:"purpose"`
	ExpiresAt  time.Time  `db:"expires_at"`
	Used       bool       `db:"used"`
	UsedAt     *time.Time `db:"used_at"`
	CreatedAt  time.Time  `db:"created_at"`
}

func (c *Code) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
