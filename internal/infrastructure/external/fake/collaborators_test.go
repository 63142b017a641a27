package fake

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/domain/entity"
)

func claimFor(accountNumber string) port.CustomerClaim {
	return port.CustomerClaim{Name: "John Smith", AccountNumber: accountNumber}
}

func TestExtractorParsesFieldLines(t *testing.T) {
	res, err := Extractor{}.Extract(context.Background(), []byte(
		"WRIT OF EXECUTION\ncase_number: GRN-2024-001\naccount_number: ACC-1001\ncustomer_name: John Smith\n"))
	require.NoError(t, err)

	assert.Equal(t, "GRN-2024-001", res.Fields["case_number"])
	assert.Equal(t, "ACC-1001", res.Fields["account_number"])
	assert.InDelta(t, 0.95, res.Confidence, 0.0001)
	assert.Equal(t, entity.DocTypeGarnishmentOrder, res.Classification)
}

func TestExtractorLowConfidenceWithoutFields(t *testing.T) {
	res, err := Extractor{}.Extract(context.Background(), []byte("free text with no structure"))
	require.NoError(t, err)
	assert.Less(t, res.Confidence, 0.5)
}

func TestAccountsSeededLedger(t *testing.T) {
	a := NewAccounts()
	a.Seed(&entity.Account{
		ID:             "ACC-1001",
		Balance:        decimal.NewFromInt(250),
		ActiveProducts: []string{"overdraft", "savings-plan"},
	})

	balance, err := a.Balance(context.Background(), "ACC-1001")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(250)))

	require.NoError(t, a.Freeze(context.Background(), "ACC-1001"))
	assert.True(t, a.Frozen("ACC-1001"))

	require.NoError(t, a.CancelProduct(context.Background(), "ACC-1001", "overdraft"))
	products, err := a.ActiveProducts(context.Background(), "ACC-1001")
	require.NoError(t, err)
	assert.Equal(t, []string{"savings-plan"}, products)
}

func TestAccountsUnknownAccountMaterializes(t *testing.T) {
	a := NewAccounts()

	balance, err := a.Balance(context.Background(), "ACC-9999")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(1000)))

	products, err := a.ActiveProducts(context.Background(), "ACC-9999")
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.False(t, a.Frozen("ACC-9999"))
}

func TestVerifierMatchesByAccountNumber(t *testing.T) {
	v := &Verifier{Customers: []*entity.Customer{
		{ID: "CUST-1", Name: "John Smith", AccountNumbers: []string{"ACC-1001"}},
	}}

	res, err := v.Verify(context.Background(), claimFor("ACC-1001"))
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "CUST-1", res.CustomerID)

	res, err = v.Verify(context.Background(), claimFor("ACC-9999"))
	require.NoError(t, err)
	assert.False(t, res.Matched)
}
