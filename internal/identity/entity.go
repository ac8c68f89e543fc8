// AngelaMos | 2026
// entity.go

package identity

import (
	"time"

	"github.com/carterperez-dev/househelp-api/internal/core"
)

// Identity is one record in a role table. Email is empty for workers who
// registered with a phone number only.
type Identity struct {
	ID                 string                  `db:"id"`
	Role               core.Role               `db:"-"`
	Email              string                  `db:"email"`
	Phone              string                  `db:"phone"`
	Name               string                  `db:"name"`
	PasswordHash       string                  `db:"password_hash"`
	Status             core.Status             `db:"status"`
	VerificationStatus core.VerificationStatus `db:"verification_status"`
	CreatedAt          time.Time               `db:"created_at"`
	UpdatedAt          time.Time               `db:"updated_at"`
}
