// Package fake provides deterministic in-memory collaborators for local
// development and demos, so the service runs end-to-end without a bank core,
// an OpenAI key, or a ticketing tool.
package fake

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/document"
	"github.com/dkrause/garnishflow/internal/domain/entity"
)

var fieldPattern = regexp.MustCompile(`(?m)^([a-z_]+):\s*(.+)$`)

// Extractor parses "key: value" lines out of the document text instead of
// calling a model. Classification still runs through keyword detection so
// fake documents behave like real ones.
type Extractor struct{}

func (Extractor) Extract(_ context.Context, content []byte) (*port.ExtractionResult, error) {
	text := string(content)

	fields := map[string]string{}
	for _, m := range fieldPattern.FindAllStringSubmatch(text, -1) {
		fields[m[1]] = m[2]
	}

	confidence := 0.95
	if len(fields) == 0 {
		confidence = 0.30
	}

	fieldConfidence := make(map[string]float64, len(fields))
	for k := range fields {
		fieldConfidence[k] = confidence
	}

	return &port.ExtractionResult{
		Fields:          fields,
		FieldConfidence: fieldConfidence,
		Confidence:      confidence,
		Classification:  document.DetectType(text),
	}, nil
}

// Verifier matches claims against a fixed customer list
type Verifier struct {
	Customers []*entity.Customer
}

func (v *Verifier) Verify(_ context.Context, claim port.CustomerClaim) (*port.VerificationResult, error) {
	for _, c := range v.Customers {
		for _, acc := range c.AccountNumbers {
			if acc == claim.AccountNumber {
				return &port.VerificationResult{Matched: true, Score: 1.0, CustomerID: c.ID}, nil
			}
		}
	}
	return &port.VerificationResult{Matched: false, Score: 0}, nil
}

// Accounts is an in-memory account ledger. Unknown accounts materialize on
// first touch with a default balance so any submitted case can run end-to-end.
type Accounts struct {
	mu       sync.Mutex
	accounts map[string]*entity.Account
}

func NewAccounts() *Accounts {
	return &Accounts{accounts: map[string]*entity.Account{}}
}

// Seed installs an account with a known balance and product list
func (a *Accounts) Seed(acct *entity.Account) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[acct.ID] = acct
}

func (a *Accounts) get(accountID string) *entity.Account {
	if acct, ok := a.accounts[accountID]; ok {
		return acct
	}
	acct := &entity.Account{
		ID:      accountID,
		Balance: decimal.NewFromInt(1000),
	}
	a.accounts[accountID] = acct
	return acct
}

func (a *Accounts) Freeze(_ context.Context, accountID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.get(accountID).Frozen = true
	return nil
}

func (a *Accounts) Frozen(accountID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.get(accountID).Frozen
}

func (a *Accounts) CancelProduct(_ context.Context, accountID, productID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	acct := a.get(accountID)
	remaining := acct.ActiveProducts[:0]
	for _, p := range acct.ActiveProducts {
		if p != productID {
			remaining = append(remaining, p)
		}
	}
	acct.ActiveProducts = remaining
	return nil
}

func (a *Accounts) ActiveProducts(_ context.Context, accountID string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.get(accountID).ActiveProducts...), nil
}

func (a *Accounts) Balance(_ context.Context, accountID string) (decimal.Decimal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.get(accountID).Balance, nil
}

// Payments settles every payment with a generated reference
type Payments struct {
	counter atomic.Int64
}

func (p *Payments) Trigger(_ context.Context, caseID, _ string, _ decimal.Decimal, _ entity.Creditor) (*port.PaymentResult, error) {
	return &port.PaymentResult{
		Settled:   true,
		Reference: fmt.Sprintf("FAKE-PAY-%d", p.counter.Add(1)),
	}, nil
}

// Tickets tracks opened and closed tickets in memory
type Tickets struct {
	mu      sync.Mutex
	counter int64
	Closed  map[string]string
}

func NewTickets() *Tickets {
	return &Tickets{Closed: map[string]string{}}
}

func (t *Tickets) Open(_ context.Context, _ *entity.Case) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counter++
	return fmt.Sprintf("FAKE-TKT-%d", t.counter), nil
}

func (t *Tickets) Close(_ context.Context, ticketID, outcome string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed[ticketID] = outcome
	return nil
}

// Sender logs deliveries into memory
type Sender struct {
	mu   sync.Mutex
	Sent []*entity.NotificationTask
}

func (s *Sender) Send(_ context.Context, task *entity.NotificationTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, task)
	return nil
}

var (
	_ port.ExtractionService   = (*Extractor)(nil)
	_ port.VerificationService = (*Verifier)(nil)
	_ port.AccountService      = (*Accounts)(nil)
	_ port.PaymentService      = (*Payments)(nil)
	_ port.TicketSystem        = (*Tickets)(nil)
	_ port.NotificationSender  = (*Sender)(nil)
)
