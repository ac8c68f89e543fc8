// AngelaMos | 2026
// provider.go

package auth

import (
	"context"

	"github.com/carterperez-dev/househelp-api/internal/core"
)

type IdentityInfo struct {
	ID                 string
	Email              string
	Phone              string
	Name               string
	Role               core.Role
	PasswordHash       string
	Status             core.Status
	VerificationStatus core.VerificationStatus
}

// LoginIdentifier is the address codes are sent to and the value carried in
// the token's email claim. Workers may register with a phone number only.
func (i *IdentityInfo) LoginIdentifier() string {
	if i.Email != "" {
		return i.Email
	}
	return i.Phone
}

func (i *IdentityInfo) IsSuspended() bool {
	return i.Status == core.StatusSuspended
}

type NewIdentity struct {
	Role         core.Role
	Email        string
	Phone        string
	Name         string
	PasswordHash string
}

type IdentityProvider interface {
	// GetByLogin resolves an email address or phone number within a role.
	GetByLogin(ctx context.Context, role core.Role, login string) (*IdentityInfo, error)
	GetByID(ctx context.Context, role core.Role, id string) (*IdentityInfo, error)
	Create(ctx context.Context, in NewIdentity) (*IdentityInfo, error)
	UpdatePassword(ctx context.Context, role core.Role, id, passwordHash string) error
	Activate(ctx context.Context, role core.Role, id string) error
	MarkEmailVerified(ctx context.Context, role core.Role, id string) error
	NormalizePhone(raw string) (string, error)
}
