// AngelaMos | 2026
// phone_test.go

package identity

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/househelp-api/internal/core"
)

func TestPhoneNormalizer(t *testing.T) {
	n := NewPhoneNormalizer("rw")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"e164", "+250788000000", "+250788000000"},
		{"national", "0788000000", "+250788000000"},
		{"spaced", "078 800 0000", "+250788000000"},
		{"without trunk prefix", "788000000", "+250788000000"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := n.Normalize(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestPhoneNormalizer_Rejects(t *testing.T) {
	n := NewPhoneNormalizer("RW")

	for _, in := range []string{"", "   ", "not a phone", "0788", "+2507880000001234"} {
		_, err := n.Normalize(in)
		require.ErrorIs(t, err, core.ErrInvalidInput, in)
	}
}
