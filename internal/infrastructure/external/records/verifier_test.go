package records

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/domain/entity"
)

type staticDirectory struct {
	customers []*entity.Customer
	err       error
}

func (d *staticDirectory) All(context.Context) ([]*entity.Customer, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.customers, nil
}

func directory() *staticDirectory {
	return &staticDirectory{customers: []*entity.Customer{
		{ID: "CUST-1001", Name: "John A. Smith", AccountNumbers: []string{"ACC-1001", "ACC-1002"}, VerificationStatus: entity.VerificationVerified},
		{ID: "CUST-1002", Name: "Maria Garcia", AccountNumbers: []string{"ACC-2001"}},
	}}
}

func TestVerifier_FullMatch(t *testing.T) {
	v := NewVerifier(directory(), zap.NewNop())

	res, err := v.Verify(context.Background(), port.CustomerClaim{
		Name:          "John Smith",
		AccountNumber: "ACC-1001",
	})
	require.NoError(t, err)

	assert.True(t, res.Matched)
	assert.InDelta(t, 1.0, res.Score, 0.0001)
	assert.Equal(t, "CUST-1001", res.CustomerID)
}

func TestVerifier_AccountOnlyMatchesBelowNameWeight(t *testing.T) {
	v := NewVerifier(directory(), zap.NewNop())

	res, err := v.Verify(context.Background(), port.CustomerClaim{
		Name:          "Completely Different",
		AccountNumber: "ACC-2001",
	})
	require.NoError(t, err)

	assert.True(t, res.Matched, "account number alone clears the match floor")
	assert.InDelta(t, 0.6, res.Score, 0.0001)
	assert.Equal(t, "CUST-1002", res.CustomerID)
}

func TestVerifier_NameOnlyDoesNotMatch(t *testing.T) {
	v := NewVerifier(directory(), zap.NewNop())

	res, err := v.Verify(context.Background(), port.CustomerClaim{
		Name:          "Maria Garcia",
		AccountNumber: "ACC-9999",
	})
	require.NoError(t, err)

	assert.False(t, res.Matched, "a name without the account must stay below the floor")
	assert.InDelta(t, 0.4, res.Score, 0.0001)
}

func TestVerifier_PicksBestCandidate(t *testing.T) {
	dir := directory()
	dir.customers = append(dir.customers, &entity.Customer{
		ID: "CUST-1003", Name: "John Smithers", AccountNumbers: []string{"ACC-3001"},
	})
	v := NewVerifier(dir, zap.NewNop())

	res, err := v.Verify(context.Background(), port.CustomerClaim{
		Name:          "John A. Smith",
		AccountNumber: "ACC-1002",
	})
	require.NoError(t, err)
	assert.Equal(t, "CUST-1001", res.CustomerID)
	assert.InDelta(t, 1.0, res.Score, 0.0001)
}

func TestVerifier_RejectedRecordNeverMatches(t *testing.T) {
	dir := directory()
	dir.customers[0].VerificationStatus = entity.VerificationRejected
	v := NewVerifier(dir, zap.NewNop())

	res, err := v.Verify(context.Background(), port.CustomerClaim{
		Name:          "John Smith",
		AccountNumber: "ACC-1001",
	})
	require.NoError(t, err)

	assert.False(t, res.Matched, "a rejected record must not resolve a claim")
	assert.Zero(t, res.Score)
	assert.Empty(t, res.CustomerID)
}

func TestVerifier_NoSignalsIsPermanentError(t *testing.T) {
	v := NewVerifier(directory(), zap.NewNop())

	_, err := v.Verify(context.Background(), port.CustomerClaim{})
	require.Error(t, err)
	assert.False(t, port.IsTransient(err))
}

func TestVerifier_DirectoryFailureIsTransient(t *testing.T) {
	v := NewVerifier(&staticDirectory{err: errors.New("database locked")}, zap.NewNop())

	_, err := v.Verify(context.Background(), port.CustomerClaim{Name: "John Smith"})
	require.Error(t, err)
	assert.True(t, port.IsTransient(err))
}

func TestVerifier_EmptyDirectory(t *testing.T) {
	v := NewVerifier(&staticDirectory{}, zap.NewNop())

	res, err := v.Verify(context.Background(), port.CustomerClaim{Name: "John Smith", AccountNumber: "ACC-1001"})
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Zero(t, res.Score)
	assert.Empty(t, res.CustomerID)
}

func TestNameMatches(t *testing.T) {
	tests := []struct {
		claimed  string
		recorded string
		want     bool
	}{
		{"John Smith", "John Smith", true},
		{"john smith", "JOHN SMITH", true},
		{"John Smith", "John A. Smith", true},
		{"John", "John A. Smith", true},
		{"Jane Smith", "John A. Smith", false},
		{"", "John Smith", false},
		{"John Smith", "", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, nameMatches(tt.claimed, tt.recorded),
			"claimed=%q recorded=%q", tt.claimed, tt.recorded)
	}
}
