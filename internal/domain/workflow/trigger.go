package workflow

// Trigger represents a case event that can cause a stage transition. Decision
// points (extraction confidence, match score, balance check) use a single
// trigger routed by guards, so the outcome is part of the transition table.
type Trigger string

const (
	TriggerIngestDocument       Trigger = "INGEST_DOCUMENT"
	TriggerCompleteExtraction   Trigger = "COMPLETE_EXTRACTION"
	TriggerCompleteVerification Trigger = "COMPLETE_VERIFICATION"
	TriggerConfirmFreeze        Trigger = "CONFIRM_FREEZE"
	TriggerReportBalance        Trigger = "REPORT_BALANCE"
	TriggerEvaluateFunds        Trigger = "EVALUATE_FUNDS"
	TriggerConfirmSettlement    Trigger = "CONFIRM_SETTLEMENT"
	TriggerCloseCase            Trigger = "CLOSE_CASE"
	TriggerEscalate             Trigger = "ESCALATE"
	TriggerFail                 Trigger = "FAIL"
	TriggerCancel               Trigger = "CANCEL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
