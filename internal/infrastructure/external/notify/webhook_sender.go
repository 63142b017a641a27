// Package notify delivers creditor and customer notifications over channel
// webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/domain/entity"
)

// WebhookSender implements port.NotificationSender by posting rendered
// messages to per-channel webhook endpoints.
type WebhookSender struct {
	endpoints  map[string]string // channel -> URL
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhookSender creates a sender with one endpoint per channel
func NewWebhookSender(creditorURL, customerURL string, timeout time.Duration, logger *zap.Logger) *WebhookSender {
	return &WebhookSender{
		endpoints: map[string]string{
			entity.ChannelCreditor: creditorURL,
			entity.ChannelCustomer: customerURL,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type webhookPayload struct {
	CaseID   string `json:"case_id"`
	Template string `json:"template"`
	Message  string `json:"message"`
	DedupKey string `json:"dedup_key"`
}

// Send delivers one notification task over its channel's webhook
func (s *WebhookSender) Send(ctx context.Context, task *entity.NotificationTask) error {
	url, ok := s.endpoints[task.Channel]
	if !ok || url == "" {
		return fmt.Errorf("no endpoint configured for channel %q", task.Channel)
	}

	message, err := Render(task)
	if err != nil {
		return err
	}

	body, err := json.Marshal(webhookPayload{
		CaseID:   task.CaseID,
		Template: task.Template,
		Message:  message,
		DedupKey: task.DedupKey,
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Receivers can use the dedup key to drop redeliveries.
	req.Header.Set("X-Dedup-Key", task.DedupKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver to %s channel: %w", task.Channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("channel %s returned %d: %s", task.Channel, resp.StatusCode, payload)
	}

	s.logger.Debug("Webhook delivered",
		zap.String("channel", task.Channel),
		zap.String("dedup_key", task.DedupKey))
	return nil
}

var _ port.NotificationSender = (*WebhookSender)(nil)
