// AngelaMos | 2026
// notify.go

package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// ChannelFor picks the delivery channel for an identifier: email addresses
// go by email, everything else is treated as a phone number.
func ChannelFor(identifier string) Channel {
	if strings.Contains(identifier, "@") {
		return ChannelEmail
	}
	return ChannelSMS
}

type Message struct {
	Channel Channel
	To      string
	Subject string
	Body    string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

var ErrNoSender = errors.New("no sender for channel")

type Dispatcher struct {
	senders map[Channel]Notifier
}

func NewDispatcher(email, sms Notifier) *Dispatcher {
	senders := make(map[Channel]Notifier, 2)
	if email != nil {
		senders[ChannelEmail] = email
	}
	if sms != nil {
		senders[ChannelSMS] = sms
	}
	return &Dispatcher{senders: senders}
}

func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	sender, ok := d.senders[msg.Channel]
	if !ok {
		return fmt.Errorf("send %s: %w", msg.Channel, ErrNoSender)
	}
	return sender.Send(ctx, msg)
}

// LogNotifier writes messages to the log instead of delivering them. Bodies
// carry codes, so they are only logged when revealBody is set; otherwise the
// body is redacted and Send reports the message as undelivered.
type LogNotifier struct {
	logger     *slog.Logger
	revealBody bool
}

func NewLogNotifier(logger *slog.Logger, revealBody bool) *LogNotifier {
	return &LogNotifier{logger: logger, revealBody: revealBody}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	if !n.revealBody {
		n.logger.WarnContext(ctx, "notification not delivered",
			"channel", msg.Channel,
			"to", msg.To,
			"subject", msg.Subject,
			"body", "[redacted]",
		)
		return fmt.Errorf("send %s: %w", msg.Channel, ErrNoSender)
	}

	n.logger.InfoContext(ctx, "notification",
		"channel", msg.Channel,
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
