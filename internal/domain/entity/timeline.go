package entity

import "time"

// Actor values recorded in timeline entries
const (
	ActorEngine   = "engine"
	ActorOperator = "operator"
)

// Transition outcomes recorded in timeline entries
const (
	OutcomeApplied  = "APPLIED"
	OutcomeRejected = "REJECTED"
	OutcomeError    = "ERROR"
)

// TimelineEntry is one record of the append-only audit trail. Every stage
// change has exactly one corresponding entry; the idempotency key guards
// against re-applying the same transition on event redelivery.
type TimelineEntry struct {
	ID             int64     `json:"id"`
	CaseID         string    `json:"case_id"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	Actor          string    `json:"actor"`
	FromStage      string    `json:"from_stage"`
	ToStage        string    `json:"to_stage"`
	Outcome        string    `json:"outcome"`
	Detail         string    `json:"detail,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
