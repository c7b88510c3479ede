package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/loglens/loglens/pkg/types"
)

// WebhookNotifier POSTs alert payloads as JSON. Any 2xx response counts as
// delivered; everything else is a failure.
type WebhookNotifier struct {
	client *http.Client
}

// NewWebhookNotifier builds a notifier with a client-level timeout as a
// backstop behind the per-delivery context deadline.
func NewWebhookNotifier(timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	return &WebhookNotifier{client: &http.Client{Timeout: timeout}}
}

func (w *WebhookNotifier) Send(ctx context.Context, url string, payload types.AlertPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
