// AngelaMos | 2026
// message.go

package otp

import (
	"fmt"
	"net/url"

	"github.com/carterperez-dev/househelp-api/internal/core"
	"github.com/carterperez-dev/househelp-api/internal/notify"
)

const productName = "HouseHelp"

func (s *Service) compose(
	role core.Role,
	identifier, value string,
	purpose Purpose,
) notify.Message {
	msg := notify.Message{
		Channel: notify.ChannelFor(identifier),
		To:      identifier,
	}

	minutes := int(purpose.TTL().Minutes())

	switch purpose {
	case PurposeRegistration, PurposePhoneVerification:
		msg.Subject = productName + " verification code"
		msg.Body = fmt.Sprintf(
			"Your %s verification code is %s. It expires in %d minutes.",
			productName, value, minutes,
		)
	case PurposePasswordReset:
		msg.Subject = productName + " password reset"
		msg.Body = fmt.Sprintf(
			"Your %s password reset code is %s. It expires in %d minutes. "+
				"If you did not ask to reset your password, ignore this message.",
			productName, value, minutes,
		)
	case PurposeEmailVerification:
		msg.Subject = "Confirm your " + productName + " email address"
		msg.Body = fmt.Sprintf(
			"Open this link to confirm your email address:\n\n%s\n\n"+
				"The link is valid for 24 hours.",
			s.verificationLink(role, identifier, value),
		)
	}

	return msg
}

func (s *Service) verificationLink(role core.Role, email, token string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", email)
	q.Set("user_type", role.String())
	return s.linkBase + "/v1/auth/email/verify?" + q.Encode()
}
