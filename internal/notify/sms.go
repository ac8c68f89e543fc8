// AngelaMos | 2026
// sms.go

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/carterperez-dev/househelp-api/internal/config"
)

// SMSGateway posts messages to an HTTP SMS provider as JSON
// {"to", "from", "message"} with a bearer API key.
type SMSGateway struct {
	cfg    config.SMSConfig
	client *http.Client
}

func NewSMSGateway(cfg config.SMSConfig) *SMSGateway {
	return &SMSGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type smsPayload struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

func (g *SMSGateway) Send(ctx context.Context, msg Message) error {
	if g.cfg.URL == "" {
		return errors.New("sms gateway not configured")
	}

	payload, err := json.Marshal(smsPayload{
		To:      msg.To,
		From:    g.cfg.Sender,
		Message: msg.Body,
	})
	if err != nil {
		return fmt.Errorf("encode sms: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.cfg.URL,
		bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // body drained below

	//nolint:errcheck // drain for connection reuse
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("send sms: provider returned %d", resp.StatusCode)
	}
	return nil
}
