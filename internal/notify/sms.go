package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// SMSConfig configures the HTTP SMS gateway transport.
type SMSConfig struct {
	GatewayURL string
	Sender     string
	Timeout    time.Duration
}

// SMSTransport delivers through an HTTP SMS gateway. Subjects do not fit an
// SMS; subject and body are collapsed into one message.
type SMSTransport struct {
	config SMSConfig
	client *http.Client
}

func NewSMSTransport(config SMSConfig) *SMSTransport {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &SMSTransport{
		config: config,
		client: &http.Client{Timeout: timeout},
	}
}

type smsPayload struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

func (t *SMSTransport) Send(ctx context.Context, recipient, subject, body string) error {
	if t.config.GatewayURL == "" {
		return fmt.Errorf("sms transport not configured")
	}

	payload, err := json.Marshal(smsPayload{
		To:      recipient,
		From:    t.config.Sender,
		Message: subject + "\n" + body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode sms payload: %w", err)
	}

	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.GatewayURL, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("sms gateway returned %d", resp.StatusCode))
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
		}
		return nil
	})
}
