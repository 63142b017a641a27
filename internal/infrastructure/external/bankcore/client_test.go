package bankcore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/domain/entity"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", 2*time.Second, zap.NewNop())
}

func TestClient_Freeze(t *testing.T) {
	var gotPath, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.Freeze(context.Background(), "ACC-1001"))
	assert.Equal(t, "/api/v1/accounts/ACC-1001/freeze", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestClient_ActiveProductsAndCancel(t *testing.T) {
	cancelled := map[string]bool{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/accounts/ACC-1001/products":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"products": []string{"overdraft", "standing-order"},
			})
		case "/api/v1/accounts/ACC-1001/products/overdraft/cancel",
			"/api/v1/accounts/ACC-1001/products/standing-order/cancel":
			cancelled[r.URL.Path] = true
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	products, err := c.ActiveProducts(context.Background(), "ACC-1001")
	require.NoError(t, err)
	assert.Equal(t, []string{"overdraft", "standing-order"}, products)

	for _, p := range products {
		require.NoError(t, c.CancelProduct(context.Background(), "ACC-1001", p))
	}
	assert.Len(t, cancelled, 2)
}

func TestClient_Balance(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/accounts/ACC-1001/balance", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"balance": "1043.75"})
	})

	balance, err := c.Balance(context.Background(), "ACC-1001")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("1043.75")))
}

func TestClient_TriggerPayment(t *testing.T) {
	var got paymentRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/payments", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(paymentResponse{Settled: true, Reference: "PAY-42"})
	})

	res, err := c.Trigger(context.Background(), "case-1", "ACC-1001",
		decimal.RequireFromString("750.50"),
		entity.Creditor{Name: "Acme Collections", Reference: "REF-9"})
	require.NoError(t, err)

	assert.True(t, res.Settled)
	assert.Equal(t, "PAY-42", res.Reference)
	assert.Equal(t, "case-1", got.CaseID)
	assert.Equal(t, "Acme Collections", got.CreditorName)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("750.50")))
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := c.Freeze(context.Background(), "ACC-1001")
	require.Error(t, err)
	assert.True(t, port.IsTransient(err))
}

func TestClient_ClientErrorIsPermanent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "account is under legal hold already", http.StatusConflict)
	})

	err := c.Freeze(context.Background(), "ACC-1001")
	require.Error(t, err)
	assert.False(t, port.IsTransient(err))
	assert.Contains(t, err.Error(), "legal hold")
}

func TestClient_ConnectionFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listening anymore
	c := NewClient(srv.URL, "", time.Second, zap.NewNop())

	_, err := c.Balance(context.Background(), "ACC-1001")
	require.Error(t, err)
	assert.True(t, port.IsTransient(err))
}
