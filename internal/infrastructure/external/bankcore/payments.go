package bankcore

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/domain/entity"
)

type paymentRequest struct {
	CaseID            string          `json:"case_id"`
	AccountID         string          `json:"account_id"`
	Amount            decimal.Decimal `json:"amount"`
	CreditorName      string          `json:"creditor_name"`
	CreditorReference string          `json:"creditor_reference,omitempty"`
}

type paymentResponse struct {
	Settled   bool   `json:"settled"`
	Reference string `json:"reference"`
}

// Trigger executes the garnishment payment. The case ID doubles as the core's
// idempotency key, so re-triggering a settled payment returns the original
// reference instead of paying twice.
func (c *Client) Trigger(ctx context.Context, caseID, accountID string, amount decimal.Decimal, creditor entity.Creditor) (*port.PaymentResult, error) {
	req := paymentRequest{
		CaseID:            caseID,
		AccountID:         accountID,
		Amount:            amount,
		CreditorName:      creditor.Name,
		CreditorReference: creditor.Reference,
	}

	var resp paymentResponse
	if err := c.do(ctx, "payment", http.MethodPost, "/api/v1/payments", req, &resp); err != nil {
		return nil, err
	}

	c.logger.Info("Payment triggered",
		zap.String("case_id", caseID),
		zap.String("amount", amount.String()),
		zap.Bool("settled", resp.Settled),
		zap.String("reference", resp.Reference))

	return &port.PaymentResult{
		Settled:   resp.Settled,
		Reference: resp.Reference,
	}, nil
}

var _ port.PaymentService = (*Client)(nil)
