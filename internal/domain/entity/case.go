package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Case represents one garnishment order processed end-to-end.
// Mutated only by the workflow engine; terminal cases are archived, never deleted.
type Case struct {
	ID          string          `json:"id"`
	CaseNumber  string          `json:"case_number"` // court docket number
	Stage       string          `json:"stage"`
	Version     int64           `json:"version"`
	CustomerID  string          `json:"customer_id"`
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Creditor    Creditor        `json:"creditor"`
	DocumentIDs []string        `json:"document_ids"`
	// IntakePath references the raw uploaded content before extraction has
	// produced a Document record.
	IntakePath string `json:"intake_path,omitempty"`
	TicketID   string `json:"ticket_id,omitempty"`
	// PaymentReference is set once the payment has settled.
	PaymentReference string    `json:"payment_reference,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Creditor identifies the party entitled to the garnished funds
type Creditor struct {
	Name      string `json:"name"`
	Reference string `json:"reference,omitempty"`
	Address   string `json:"address,omitempty"`
}

// Clone returns a deep copy of the case. The engine recomputes transitions on a
// copy so a compare-and-swap conflict never leaves a half-mutated case behind.
func (c *Case) Clone() *Case {
	cp := *c
	cp.DocumentIDs = append([]string(nil), c.DocumentIDs...)
	return &cp
}
