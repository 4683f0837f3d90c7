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

// WebhookConfig configures the outbound webhook transport.
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
}

// WebhookTransport POSTs rendered messages to an external endpoint. A single
// delivery attempt retries transient HTTP failures a few times with backoff;
// the durable retry ledger stays with the dispatcher.
type WebhookTransport struct {
	config WebhookConfig
	client *http.Client
}

func NewWebhookTransport(config WebhookConfig) *WebhookTransport {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WebhookTransport{
		config: config,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookPayload struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

func (t *WebhookTransport) Send(ctx context.Context, recipient, subject, body string) error {
	if t.config.URL == "" {
		return fmt.Errorf("webhook transport not configured")
	}

	payload, err := json.Marshal(webhookPayload{
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.URL, bytes.NewReader(payload))
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
			return retry.RetryableError(fmt.Errorf("webhook returned %d", resp.StatusCode))
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("webhook returned %d", resp.StatusCode)
		}
		return nil
	})
}
