package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dkrause/garnishflow/internal/domain/entity"
)

// ExtractionResult represents structured fields extracted from a court document
type ExtractionResult struct {
	Fields          map[string]string
	FieldConfidence map[string]float64
	Confidence      float64
	Classification  string
}

// ExtractionService turns a raw document into structured fields with confidence.
// The engine treats the output as untrusted input behind a threshold gate.
type ExtractionService interface {
	Extract(ctx context.Context, document []byte) (*ExtractionResult, error)
}

// CustomerClaim is the identity asserted by an extracted document
type CustomerClaim struct {
	Name          string
	AccountNumber string
	CaseNumber    string
}

// VerificationResult represents a customer match attempt against records
type VerificationResult struct {
	Matched    bool
	Score      float64
	CustomerID string
}

// VerificationService matches an extracted customer identity against the
// customer system of record
type VerificationService interface {
	Verify(ctx context.Context, claim CustomerClaim) (*VerificationResult, error)
}

// AccountService issues commands against the garnishee's account. The account
// system of record is owned by the collaborator; freeze and cancel are
// idempotent and safe to retry.
type AccountService interface {
	Freeze(ctx context.Context, accountID string) error
	CancelProduct(ctx context.Context, accountID, productID string) error
	ActiveProducts(ctx context.Context, accountID string) ([]string, error)
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// PaymentResult reports settlement status for a triggered payment
type PaymentResult struct {
	Settled   bool
	Reference string
}

// PaymentService executes a garnishment payment to the creditor
type PaymentService interface {
	Trigger(ctx context.Context, caseID, accountID string, amount decimal.Decimal, creditor entity.Creditor) (*PaymentResult, error)
}

// TicketSystem tracks each case in the operator ticketing tool
type TicketSystem interface {
	Open(ctx context.Context, c *entity.Case) (string, error)
	Close(ctx context.Context, ticketID, outcome string) error
}

// NotificationSender delivers a notification task over its channel. Called by
// the dispatcher's delivery worker, never from the case's critical path.
type NotificationSender interface {
	Send(ctx context.Context, task *entity.NotificationTask) error
}
