// Package bankcore implements the account and payment collaborators against
// the bank's core system HTTP API.
package bankcore

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
)

// Client talks to the bank core API. It implements both port.AccountService
// and port.PaymentService; the core system exposes both surfaces.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new bank core client
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// do issues one API call and decodes the response into out (if non-nil).
// Transport failures and 5xx responses are transient; 4xx responses are
// permanent denials.
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return port.TransientError("bankcore", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return port.TransientError("bankcore", op,
			fmt.Errorf("core returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return port.PermanentError("bankcore", op,
			fmt.Errorf("core denied request with %d: %s", resp.StatusCode, payload))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return port.TransientError("bankcore", op,
				fmt.Errorf("decode %s response: %w", op, err))
		}
	}

	return nil
}
