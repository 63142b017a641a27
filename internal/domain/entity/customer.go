package entity

import "github.com/shopspring/decimal"

// Verification status values for a customer snapshot
const (
	VerificationUnverified = "UNVERIFIED"
	VerificationVerified   = "VERIFIED"
	VerificationRejected   = "REJECTED"
)

// Customer is a read-only snapshot of the garnishee held per case. The system
// of record is owned by the verification collaborator.
type Customer struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Address            string   `json:"address"`
	Email              string   `json:"email,omitempty"`
	AccountNumbers     []string `json:"account_numbers"`
	VerificationStatus string   `json:"verification_status"`
}

// Account is a read-only view of the garnishee's account. The engine issues
// commands through the account collaborator and never mutates this directly.
type Account struct {
	ID             string          `json:"id"`
	Balance        decimal.Decimal `json:"balance"`
	Frozen         bool            `json:"frozen"`
	ActiveProducts []string        `json:"active_products"`
}
