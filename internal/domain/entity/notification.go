package entity

import (
	"fmt"
	"time"
)

// Notification channels
const (
	ChannelCreditor = "creditor"
	ChannelCustomer = "customer"
)

// Notification delivery states
const (
	NotificationPending = "PENDING"
	NotificationSent    = "SENT"
	NotificationFailed  = "FAILED"
)

// Notification templates
const (
	TemplateRejectionReason     = "rejection_reason"
	TemplateInsufficientFunds   = "insufficient_funds"
	TemplatePaymentConfirmation = "payment_confirmation"
	TemplateCaseCancelled       = "case_cancelled"
)

// NotificationTask is a pending creditor/customer message produced by a stage
// transition. Deduplicated by DedupKey so repeated enqueue of the same
// (case, stage, channel) triggers at most one externally visible send.
type NotificationTask struct {
	ID         string            `json:"id"`
	CaseID     string            `json:"case_id"`
	Channel    string            `json:"channel"`
	Template   string            `json:"template"`
	Params     map[string]string `json:"params,omitempty"`
	DedupKey   string            `json:"dedup_key"`
	State      string            `json:"state"`
	Attempts   int               `json:"attempts"`
	LastError  string            `json:"last_error,omitempty"`
	SentAt     *time.Time        `json:"sent_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// DedupKeyFor builds the canonical dedup key for a (case, stage, channel) triple
func DedupKeyFor(caseID, stage, channel string) string {
	return fmt.Sprintf("%s:%s:%s", caseID, stage, channel)
}
