package workflow

import (
	"context"

	"github.com/shopspring/decimal"

	domainwf "github.com/dkrause/garnishflow/internal/domain/workflow"
)

// Thresholds holds the decision boundaries for the confidence and match gates
type Thresholds struct {
	// ExtractionConfidence is the minimum overall extraction confidence for a
	// case to proceed to verification; below it the case needs manual review.
	ExtractionConfidence float64

	// VerificationMatch is the minimum customer match score for verification;
	// below it the case is rejected.
	VerificationMatch float64
}

// DefaultThresholds returns the default gate configuration
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExtractionConfidence: 0.70,
		VerificationMatch:    0.80,
	}
}

// Decision carries the collaborator results a transition's guards decide on.
// The engine fills it before firing; guards read it, so each transition stays
// a pure function of (current stage, collaborator result).
type Decision struct {
	ExtractionConfidence float64
	MatchScore           float64
	Balance              decimal.Decimal
	AmountOwed           decimal.Decimal
}

// BuildCaseMachine creates the garnishment state machine positioned at the
// given stage. Decision points are guard-routed: the confidence, match and
// balance gates each take one trigger whose target depends on the decision.
func BuildCaseMachine(initial domainwf.Stage, thresholds Thresholds, d *Decision) domainwf.StateMachine {
	confidenceOK := func(ctx context.Context) bool {
		return d.ExtractionConfidence >= thresholds.ExtractionConfidence
	}
	matchOK := func(ctx context.Context) bool {
		return d.MatchScore >= thresholds.VerificationMatch
	}
	fundsOK := func(ctx context.Context) bool {
		return d.Balance.GreaterThanOrEqual(d.AmountOwed)
	}
	always := func(ctx context.Context) bool { return true }

	b := domainwf.NewBuilder()

	b.Configure(domainwf.StageReceived).
		Permit(domainwf.TriggerIngestDocument, domainwf.StageExtracting)

	b.Configure(domainwf.StageExtracting).
		PermitIf(domainwf.TriggerCompleteExtraction, domainwf.StagePendingVerification, confidenceOK).
		PermitIf(domainwf.TriggerCompleteExtraction, domainwf.StageNeedsManualReview, always)

	b.Configure(domainwf.StagePendingVerification).
		PermitIf(domainwf.TriggerCompleteVerification, domainwf.StageVerified, matchOK).
		PermitIf(domainwf.TriggerCompleteVerification, domainwf.StageRejected, always)

	b.Configure(domainwf.StageVerified).
		Permit(domainwf.TriggerConfirmFreeze, domainwf.StageAccountFrozen)

	b.Configure(domainwf.StageAccountFrozen).
		Permit(domainwf.TriggerReportBalance, domainwf.StageBalanceChecked)

	b.Configure(domainwf.StageBalanceChecked).
		PermitIf(domainwf.TriggerEvaluateFunds, domainwf.StagePaymentPending, fundsOK).
		PermitIf(domainwf.TriggerEvaluateFunds, domainwf.StageInsufficientFunds, always)

	b.Configure(domainwf.StagePaymentPending).
		Permit(domainwf.TriggerConfirmSettlement, domainwf.StagePaymentSent)

	b.Configure(domainwf.StagePaymentSent).
		Permit(domainwf.TriggerCloseCase, domainwf.StageClosed)

	// The absorbing states are reachable from any non-terminal stage;
	// cancellation additionally requires the case not to have reached
	// PaymentSent. Terminal stages get no outgoing transitions at all.
	for _, stage := range domainwf.Stages() {
		if stage.IsTerminal() {
			continue
		}
		cfg := b.Configure(stage)
		cfg.Permit(domainwf.TriggerEscalate, domainwf.StageNeedsManualReview)
		cfg.Permit(domainwf.TriggerFail, domainwf.StageFailed)
		if stage != domainwf.StagePaymentSent {
			cfg.Permit(domainwf.TriggerCancel, domainwf.StageCancelled)
		}
	}

	return b.Build(initial)
}
