// Package ticket implements the operator ticketing collaborator.
package ticket

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

// Client implements port.TicketSystem against the ticketing tool's HTTP API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new ticketing client
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type openRequest struct {
	CaseID       string `json:"case_id"`
	CaseNumber   string `json:"case_number"`
	CreditorName string `json:"creditor_name"`
	Amount       string `json:"amount"`
	Summary      string `json:"summary"`
}

type openResponse struct {
	TicketID string `json:"ticket_id"`
}

// Open creates a tracking ticket for a new case
func (c *Client) Open(ctx context.Context, garnishment *entity.Case) (string, error) {
	req := openRequest{
		CaseID:       garnishment.ID,
		CaseNumber:   garnishment.CaseNumber,
		CreditorName: garnishment.Creditor.Name,
		Amount:       garnishment.Amount.String(),
		Summary: fmt.Sprintf("Garnishment order %s from %s",
			garnishment.CaseNumber, garnishment.Creditor.Name),
	}

	var resp openResponse
	if err := c.post(ctx, "open", "/api/tickets", req, &resp); err != nil {
		return "", err
	}
	if resp.TicketID == "" {
		return "", port.TransientError("ticket", "open", fmt.Errorf("ticket system returned no ticket ID"))
	}

	c.logger.Info("Tracking ticket opened",
		zap.String("case_id", garnishment.ID),
		zap.String("ticket_id", resp.TicketID))
	return resp.TicketID, nil
}

// Close resolves the tracking ticket with the case's final outcome
func (c *Client) Close(ctx context.Context, ticketID, outcome string) error {
	path := fmt.Sprintf("/api/tickets/%s/close", ticketID)
	body := map[string]string{"outcome": outcome}

	if err := c.post(ctx, "close", path, body, nil); err != nil {
		return err
	}

	c.logger.Info("Tracking ticket closed",
		zap.String("ticket_id", ticketID),
		zap.String("outcome", outcome))
	return nil
}

func (c *Client) post(ctx context.Context, op, path string, body, out interface{}) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return port.TransientError("ticket", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return port.TransientError("ticket", op, fmt.Errorf("ticket system returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return port.PermanentError("ticket", op,
			fmt.Errorf("ticket system rejected request with %d: %s", resp.StatusCode, payload))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return port.TransientError("ticket", op, fmt.Errorf("decode %s response: %w", op, err))
		}
	}
	return nil
}

var _ port.TicketSystem = (*Client)(nil)
