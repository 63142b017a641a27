package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/dispatcher"
	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/domain/entity"
	"github.com/dkrause/garnishflow/internal/domain/event"
	domainwf "github.com/dkrause/garnishflow/internal/domain/workflow"
)

// Collaborators bundles the external services the engine commands but does
// not own
type Collaborators struct {
	Extraction   port.ExtractionService
	Verification port.VerificationService
	Accounts     port.AccountService
	Payments     port.PaymentService
	Tickets      port.TicketSystem
}

// engineImpl is the concrete implementation of Engine
type engineImpl struct {
	cases     port.CaseStore
	timeline  port.TimelineRepository
	documents port.DocumentRepository
	files     port.FileStorage
	txManager port.TransactionManager
	collab    Collaborators
	notifier  dispatcher.Dispatcher
	reporter  Reporter

	thresholds  Thresholds
	retry       RetryPolicy
	callTimeout time.Duration
	casAttempts int

	logger *zap.Logger
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithThresholds overrides the default decision thresholds
func WithThresholds(t Thresholds) EngineOption {
	return func(e *engineImpl) { e.thresholds = t }
}

// WithRetryPolicy overrides the default collaborator retry policy
func WithRetryPolicy(p RetryPolicy) EngineOption {
	return func(e *engineImpl) { e.retry = p }
}

// WithCallTimeout bounds a single collaborator call
func WithCallTimeout(d time.Duration) EngineOption {
	return func(e *engineImpl) { e.callTimeout = d }
}

// WithReporter sets the closure report exporter
func WithReporter(r Reporter) EngineOption {
	return func(e *engineImpl) { e.reporter = r }
}

// NewEngine creates a new workflow engine
func NewEngine(
	cases port.CaseStore,
	timeline port.TimelineRepository,
	documents port.DocumentRepository,
	files port.FileStorage,
	txManager port.TransactionManager,
	collab Collaborators,
	notifier dispatcher.Dispatcher,
	logger *zap.Logger,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		cases:       cases,
		timeline:    timeline,
		documents:   documents,
		files:       files,
		txManager:   txManager,
		collab:      collab,
		notifier:    notifier,
		thresholds:  DefaultThresholds(),
		retry:       DefaultRetryPolicy(),
		callTimeout: 30 * time.Second,
		casAttempts: 5,
		logger:      logger,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// HandleEvent processes an inbound case event. Events for a single case are
// expected in observation order; duplicates of already-applied transitions
// are absorbed by the idempotency short-circuit.
func (e *engineImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	if evt == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if evt.CaseID == "" {
		return fmt.Errorf("event has no case ID")
	}
	if !evt.Type.IsValid() {
		return fmt.Errorf("unknown event type: %s", evt.Type)
	}

	switch evt.Type {
	case event.TypeCancelRequested:
		return e.Cancel(ctx, evt.CaseID, evt.PayloadString("requested_by"), evt.PayloadString("reason"))
	case event.TypeRetryRequested:
		return e.Retry(ctx, evt.CaseID)
	default:
		return e.runPipeline(ctx, evt.CaseID)
	}
}

// CurrentStage returns the case's current stage
func (e *engineImpl) CurrentStage(ctx context.Context, caseID string) (domainwf.Stage, error) {
	c, err := e.cases.Load(ctx, caseID)
	if err != nil {
		return "", err
	}
	return domainwf.Stage(c.Stage), nil
}

// Cancel transitions the case to Cancelled if it has not reached PaymentSent
func (e *engineImpl) Cancel(ctx context.Context, caseID, requestedBy, reason string) error {
	if requestedBy == "" {
		requestedBy = entity.ActorOperator
	}
	detail := "case cancelled"
	if reason != "" {
		detail = fmt.Sprintf("case cancelled: %s", reason)
	}

	_, _, err := e.applyTransition(ctx, caseID, transitionRequest{
		trigger: domainwf.TriggerCancel,
		actor:   requestedBy,
		detail:  detail,
		notifications: []*entity.NotificationTask{
			e.taskFor(caseID, domainwf.StageCancelled, entity.ChannelCustomer, entity.TemplateCaseCancelled, map[string]string{
				"reason": reason,
			}),
		},
	})
	if errors.Is(err, domainwf.ErrIllegalTransition) {
		e.recordRejectedAttempt(ctx, caseID, domainwf.TriggerCancel, requestedBy, err)
	}
	return err
}

// Retry re-drives a stalled non-terminal case
func (e *engineImpl) Retry(ctx context.Context, caseID string) error {
	c, err := e.cases.Load(ctx, caseID)
	if err != nil {
		return err
	}
	if domainwf.Stage(c.Stage).IsTerminal() {
		return fmt.Errorf("%w: cannot retry case in terminal stage %s", domainwf.ErrIllegalTransition, c.Stage)
	}
	return e.runPipeline(ctx, caseID)
}

// runPipeline advances the case one stage at a time until it reaches a
// terminal stage or a step makes no progress. Collaborator calls happen here,
// outside any exclusive section; only the write-back is guarded by the
// compare-and-swap.
func (e *engineImpl) runPipeline(ctx context.Context, caseID string) error {
	for {
		c, err := e.cases.Load(ctx, caseID)
		if err != nil {
			return err
		}

		stage := domainwf.Stage(c.Stage)
		if stage.IsTerminal() {
			return nil
		}

		progressed, err := e.step(ctx, c)
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
}

// step performs the work of the case's current stage and applies the
// resulting transition. Returns true if the case advanced.
func (e *engineImpl) step(ctx context.Context, c *entity.Case) (bool, error) {
	switch domainwf.Stage(c.Stage) {
	case domainwf.StageReceived:
		return e.stepReceived(ctx, c)
	case domainwf.StageExtracting:
		return e.stepExtracting(ctx, c)
	case domainwf.StagePendingVerification:
		return e.stepVerification(ctx, c)
	case domainwf.StageVerified:
		return e.stepFreeze(ctx, c)
	case domainwf.StageAccountFrozen:
		return e.stepBalance(ctx, c)
	case domainwf.StageBalanceChecked:
		return e.stepEvaluateFunds(ctx, c)
	case domainwf.StagePaymentPending:
		return e.stepPayment(ctx, c)
	case domainwf.StagePaymentSent:
		return e.stepClose(ctx, c)
	default:
		return false, nil
	}
}

func (e *engineImpl) stepReceived(ctx context.Context, c *entity.Case) (bool, error) {
	_, applied, err := e.applyTransition(ctx, c.ID, transitionRequest{
		trigger: domainwf.TriggerIngestDocument,
		detail:  "document ingested",
	})
	return applied, err
}

func (e *engineImpl) stepExtracting(ctx context.Context, c *entity.Case) (bool, error) {
	raw, err := e.files.Read(c.IntakePath)
	if err != nil {
		return e.escalate(ctx, c.ID, fmt.Sprintf("validation error: cannot read intake document: %v", err))
	}

	var res *port.ExtractionResult
	err = e.retry.do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
		var callErr error
		res, callErr = e.collab.Extraction.Extract(callCtx, raw)
		return callErr
	})
	if err != nil {
		if port.IsTransient(err) {
			return e.escalate(ctx, c.ID, fmt.Sprintf("collaborator timeout: extraction failed after retries: %v", err))
		}
		// Failed extraction produces no Document, only the error record.
		return e.escalate(ctx, c.ID, fmt.Sprintf("validation error: extraction rejected: %v", err))
	}

	d := &Decision{ExtractionConfidence: res.Confidence}
	doc := &entity.Document{
		ID:              uuid.NewString(),
		CaseID:          c.ID,
		ContentPath:     c.IntakePath,
		Classification:  res.Classification,
		Fields:          res.Fields,
		FieldConfidence: res.FieldConfidence,
		Confidence:      res.Confidence,
		ExtractedAt:     time.Now(),
		CreatedAt:       time.Now(),
	}

	detail := fmt.Sprintf("extraction completed: classification=%s confidence=%.2f", res.Classification, res.Confidence)
	if res.Confidence < e.thresholds.ExtractionConfidence {
		detail = fmt.Sprintf("validation error: extraction confidence %.2f below threshold %.2f",
			res.Confidence, e.thresholds.ExtractionConfidence)
	}

	_, applied, err := e.applyTransition(ctx, c.ID, transitionRequest{
		trigger:  domainwf.TriggerCompleteExtraction,
		decision: d,
		detail:   detail,
		mutate: func(cp *entity.Case) {
			cp.DocumentIDs = append(cp.DocumentIDs, doc.ID)
		},
		sideEffects: func(txCtx context.Context) error {
			return e.documents.Create(txCtx, doc)
		},
	})
	return applied, err
}

func (e *engineImpl) stepVerification(ctx context.Context, c *entity.Case) (bool, error) {
	claim, err := e.claimFor(ctx, c)
	if err != nil {
		return e.escalate(ctx, c.ID, fmt.Sprintf("validation error: %v", err))
	}

	var res *port.VerificationResult
	err = e.retry.do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
		var callErr error
		res, callErr = e.collab.Verification.Verify(callCtx, claim)
		return callErr
	})
	if err != nil {
		if port.IsTransient(err) {
			return e.escalate(ctx, c.ID, fmt.Sprintf("collaborator timeout: verification failed after retries: %v", err))
		}
		return e.escalate(ctx, c.ID, fmt.Sprintf("verification failure: %v", err))
	}

	d := &Decision{MatchScore: res.Score}
	verified := res.Matched && res.Score >= e.thresholds.VerificationMatch

	var detail string
	var notifications []*entity.NotificationTask
	if verified {
		detail = fmt.Sprintf("customer verified: customer=%s score=%.2f", res.CustomerID, res.Score)
	} else {
		d.MatchScore = 0 // an unmatched result never passes the gate
		if res.Matched {
			d.MatchScore = res.Score
		}
		detail = fmt.Sprintf("verification failure: match score %.2f below threshold %.2f",
			res.Score, e.thresholds.VerificationMatch)
		notifications = append(notifications,
			e.taskFor(c.ID, domainwf.StageRejected, entity.ChannelCreditor, entity.TemplateRejectionReason, map[string]string{
				"case_number": c.CaseNumber,
				"score":       fmt.Sprintf("%.2f", res.Score),
			}))
	}

	_, applied, err := e.applyTransition(ctx, c.ID, transitionRequest{
		trigger:  domainwf.TriggerCompleteVerification,
		decision: d,
		detail:   detail,
		mutate: func(cp *entity.Case) {
			if verified && res.CustomerID != "" {
				cp.CustomerID = res.CustomerID
			}
		},
		notifications: notifications,
	})
	return applied, err
}

func (e *engineImpl) stepFreeze(ctx context.Context, c *entity.Case) (bool, error) {
	// Freeze and product cancellation are idempotent on the collaborator
	// side, so the whole block is safe to retry.
	err := e.retry.do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		defer cancel()

		if err := e.collab.Accounts.Freeze(callCtx, c.AccountID); err != nil {
			return err
		}

		products, err := e.collab.Accounts.ActiveProducts(callCtx, c.AccountID)
		if err != nil {
			return err
		}
		for _, product := range products {
			if err := e.collab.Accounts.CancelProduct(callCtx, c.AccountID, product); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if port.IsTransient(err) {
			return e.escalate(ctx, c.ID, fmt.Sprintf("collaborator timeout: account freeze failed after retries: %v", err))
		}
		return e.escalate(ctx, c.ID, fmt.Sprintf("collaborator rejected: account freeze denied: %v", err))
	}

	_, applied, err := e.applyTransition(ctx, c.ID, transitionRequest{
		trigger: domainwf.TriggerConfirmFreeze,
		detail:  fmt.Sprintf("account %s frozen, products cancelled", c.AccountID),
	})
	return applied, err
}

func (e *engineImpl) stepBalance(ctx context.Context, c *entity.Case) (bool, error) {
	balance, err := e.queryBalance(ctx, c)
	if err != nil {
		if port.IsTransient(err) {
			return e.escalate(ctx, c.ID, fmt.Sprintf("collaborator timeout: balance query failed after retries: %v", err))
		}
		return e.escalate(ctx, c.ID, fmt.Sprintf("collaborator rejected: balance query denied: %v", err))
	}

	_, applied, err := e.applyTransition(ctx, c.ID, transitionRequest{
		trigger: domainwf.TriggerReportBalance,
		detail:  fmt.Sprintf("balance reported: %s against owed %s", balance.String(), c.Amount.String()),
	})
	return applied, err
}

func (e *engineImpl) stepEvaluateFunds(ctx context.Context, c *entity.Case) (bool, error) {
	// Re-queried rather than carried over so a pipeline resumed after a crash
	// decides on a fresh figure.
	balance, err := e.queryBalance(ctx, c)
	if err != nil {
		if port.IsTransient(err) {
			return e.escalate(ctx, c.ID, fmt.Sprintf("collaborator timeout: balance query failed after retries: %v", err))
		}
		return e.escalate(ctx, c.ID, fmt.Sprintf("collaborator rejected: balance query denied: %v", err))
	}

	d := &Decision{Balance: balance, AmountOwed: c.Amount}
	sufficient := balance.GreaterThanOrEqual(c.Amount)

	var detail string
	var notifications []*entity.NotificationTask
	if sufficient {
		detail = fmt.Sprintf("funds sufficient: balance %s covers %s", balance.String(), c.Amount.String())
	} else {
		detail = fmt.Sprintf("insufficient funds: balance %s below owed amount %s", balance.String(), c.Amount.String())
		notifications = append(notifications,
			e.taskFor(c.ID, domainwf.StageInsufficientFunds, entity.ChannelCustomer, entity.TemplateInsufficientFunds, map[string]string{
				"balance": balance.String(),
				"amount":  c.Amount.String(),
			}))
	}

	_, applied, err := e.applyTransition(ctx, c.ID, transitionRequest{
		trigger:       domainwf.TriggerEvaluateFunds,
		decision:      d,
		detail:        detail,
		notifications: notifications,
	})
	return applied, err
}

func (e *engineImpl) stepPayment(ctx context.Context, c *entity.Case) (bool, error) {
	var res *port.PaymentResult
	err := e.retry.do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
		var callErr error
		res, callErr = e.collab.Payments.Trigger(callCtx, c.ID, c.AccountID, c.Amount, c.Creditor)
		return callErr
	})
	if err != nil {
		if port.IsTransient(err) {
			return e.escalate(ctx, c.ID, fmt.Sprintf("collaborator timeout: payment failed after retries: %v", err))
		}
		return e.fail(ctx, c.ID, fmt.Sprintf("payment failure: %v", err))
	}
	if !res.Settled {
		return e.fail(ctx, c.ID, fmt.Sprintf("payment failure: payment not settled, reference=%s", res.Reference))
	}

	_, applied, err := e.applyTransition(ctx, c.ID, transitionRequest{
		trigger: domainwf.TriggerConfirmSettlement,
		detail:  fmt.Sprintf("payment settled: reference=%s amount=%s", res.Reference, c.Amount.String()),
		mutate: func(cp *entity.Case) {
			cp.PaymentReference = res.Reference
		},
	})
	return applied, err
}

func (e *engineImpl) stepClose(ctx context.Context, c *entity.Case) (bool, error) {
	params := map[string]string{
		"amount":    c.Amount.String(),
		"creditor":  c.Creditor.Name,
		"reference": c.PaymentReference,
	}

	// Closure requires both confirmations accepted by the dispatcher;
	// delivery itself stays off the critical path.
	_, applied, err := e.applyTransition(ctx, c.ID, transitionRequest{
		trigger: domainwf.TriggerCloseCase,
		detail:  "creditor and customer confirmations dispatched",
		notifications: []*entity.NotificationTask{
			e.taskFor(c.ID, domainwf.StagePaymentSent, entity.ChannelCreditor, entity.TemplatePaymentConfirmation, params),
			e.taskFor(c.ID, domainwf.StagePaymentSent, entity.ChannelCustomer, entity.TemplatePaymentConfirmation, params),
		},
	})
	return applied, err
}

// escalate moves the case to NeedsManualReview with the failure recorded
func (e *engineImpl) escalate(ctx context.Context, caseID, detail string) (bool, error) {
	_, applied, err := e.applyTransition(ctx, caseID, transitionRequest{
		trigger: domainwf.TriggerEscalate,
		detail:  detail,
	})
	if err != nil {
		return false, err
	}
	// Escalation parks the case; the pipeline must not keep stepping.
	_ = applied
	return false, nil
}

// fail moves the case to Failed with the failure recorded
func (e *engineImpl) fail(ctx context.Context, caseID, detail string) (bool, error) {
	_, _, err := e.applyTransition(ctx, caseID, transitionRequest{
		trigger: domainwf.TriggerFail,
		detail:  detail,
	})
	return false, err
}

func (e *engineImpl) queryBalance(ctx context.Context, c *entity.Case) (balance decimal.Decimal, err error) {
	err = e.retry.do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
		var callErr error
		balance, callErr = e.collab.Accounts.Balance(callCtx, c.AccountID)
		return callErr
	})
	return balance, err
}

// claimFor builds the customer claim from the case's extracted document
func (e *engineImpl) claimFor(ctx context.Context, c *entity.Case) (port.CustomerClaim, error) {
	docs, err := e.documents.GetByCaseID(ctx, c.ID)
	if err != nil {
		return port.CustomerClaim{}, fmt.Errorf("load documents: %w", err)
	}
	if len(docs) == 0 {
		return port.CustomerClaim{}, fmt.Errorf("no extracted document for case")
	}

	doc := docs[len(docs)-1]
	return port.CustomerClaim{
		Name:          doc.Fields["customer_name"],
		AccountNumber: doc.Fields["account_number"],
		CaseNumber:    doc.Fields["case_number"],
	}, nil
}

func (e *engineImpl) taskFor(caseID string, stage domainwf.Stage, channel, template string, params map[string]string) *entity.NotificationTask {
	return &entity.NotificationTask{
		ID:       uuid.NewString(),
		CaseID:   caseID,
		Channel:  channel,
		Template: template,
		Params:   params,
		DedupKey: entity.DedupKeyFor(caseID, stage.String(), channel),
	}
}
