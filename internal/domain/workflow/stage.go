package workflow

// Stage represents a garnishment case's position in its lifecycle
type Stage string

const (
	StageReceived            Stage = "RECEIVED"
	StageExtracting          Stage = "EXTRACTING"
	StagePendingVerification Stage = "PENDING_VERIFICATION"
	StageVerified            Stage = "VERIFIED"
	StageRejected            Stage = "REJECTED"
	StageAccountFrozen       Stage = "ACCOUNT_FROZEN"
	StageBalanceChecked      Stage = "BALANCE_CHECKED"
	StagePaymentPending      Stage = "PAYMENT_PENDING"
	StageInsufficientFunds   Stage = "INSUFFICIENT_FUNDS"
	StagePaymentSent         Stage = "PAYMENT_SENT"
	StageClosed              Stage = "CLOSED"
	StageNeedsManualReview   Stage = "NEEDS_MANUAL_REVIEW"
	StageFailed              Stage = "FAILED"
	StageCancelled           Stage = "CANCELLED"
)

var allStages = []Stage{
	StageReceived,
	StageExtracting,
	StagePendingVerification,
	StageVerified,
	StageRejected,
	StageAccountFrozen,
	StageBalanceChecked,
	StagePaymentPending,
	StageInsufficientFunds,
	StagePaymentSent,
	StageClosed,
	StageNeedsManualReview,
	StageFailed,
	StageCancelled,
}

// Once a case is terminal no trigger moves it again.
var terminalStages = map[Stage]bool{
	StageRejected:          true,
	StageInsufficientFunds: true,
	StageClosed:            true,
	StageNeedsManualReview: true,
	StageFailed:            true,
	StageCancelled:         true,
}

var validStages = func() map[Stage]bool {
	m := make(map[Stage]bool, len(allStages))
	for _, s := range allStages {
		m[s] = true
	}
	return m
}()

// Stages returns every defined stage in lifecycle order
func Stages() []Stage {
	out := make([]Stage, len(allStages))
	copy(out, allStages)
	return out
}

// IsValid returns true if the stage is a defined workflow stage
func (s Stage) IsValid() bool {
	return validStages[s]
}

// IsTerminal returns true if no further transitions are permitted from the stage
func (s Stage) IsTerminal() bool {
	return terminalStages[s]
}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}
