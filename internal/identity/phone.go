// AngelaMos | 2026
// phone.go

package identity

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/carterperez-dev/househelp-api/internal/core"
)

// PhoneNormalizer validates numbers against a default region and formats
// them as E.164. Numbers written with a leading + may belong to any region.
type PhoneNormalizer struct {
	region string
}

func NewPhoneNormalizer(region string) *PhoneNormalizer {
	return &PhoneNormalizer{region: strings.ToUpper(region)}
}

func (n *PhoneNormalizer) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("normalize phone: empty: %w", core.ErrInvalidInput)
	}

	num, err := phonenumbers.Parse(raw, n.region)
	if err != nil {
		return "", fmt.Errorf("normalize phone: %w", core.ErrInvalidInput)
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("normalize phone: invalid number: %w", core.ErrInvalidInput)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
