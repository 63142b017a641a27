package bankcore

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
)

// Freeze places a hold on the account. The core treats freeze as idempotent:
// freezing a frozen account succeeds.
func (c *Client) Freeze(ctx context.Context, accountID string) error {
	path := fmt.Sprintf("/api/v1/accounts/%s/freeze", accountID)
	if err := c.do(ctx, "freeze", http.MethodPost, path, nil, nil); err != nil {
		return err
	}
	c.logger.Info("Account frozen", zap.String("account_id", accountID))
	return nil
}

// CancelProduct cancels an active product on the account. Cancelling an
// already-cancelled product succeeds.
func (c *Client) CancelProduct(ctx context.Context, accountID, productID string) error {
	path := fmt.Sprintf("/api/v1/accounts/%s/products/%s/cancel", accountID, productID)
	if err := c.do(ctx, "cancel_product", http.MethodPost, path, nil, nil); err != nil {
		return err
	}
	c.logger.Info("Product cancelled",
		zap.String("account_id", accountID),
		zap.String("product_id", productID))
	return nil
}

// ActiveProducts lists products still active on the account
func (c *Client) ActiveProducts(ctx context.Context, accountID string) ([]string, error) {
	var resp struct {
		Products []string `json:"products"`
	}
	path := fmt.Sprintf("/api/v1/accounts/%s/products", accountID)
	if err := c.do(ctx, "active_products", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// Balance returns the account's current balance
func (c *Client) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var resp struct {
		Balance decimal.Decimal `json:"balance"`
	}
	path := fmt.Sprintf("/api/v1/accounts/%s/balance", accountID)
	if err := c.do(ctx, "balance", http.MethodGet, path, nil, &resp); err != nil {
		return decimal.Decimal{}, err
	}
	return resp.Balance, nil
}

var _ port.AccountService = (*Client)(nil)
