package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/domain/entity"
	domainwf "github.com/dkrause/garnishflow/internal/domain/workflow"
)

// transitionRequest describes one stage transition to apply under the
// per-case exclusive section.
type transitionRequest struct {
	trigger  domainwf.Trigger
	decision *Decision
	actor    string
	detail   string

	// mutate adjusts case fields before the compare-and-swap write
	mutate func(cp *entity.Case)

	// sideEffects runs extra writes inside the transition's transaction
	sideEffects func(txCtx context.Context) error

	// notifications are enqueued inside the transaction so a committed
	// transition never loses its messages; dedup keys make re-enqueue a no-op
	notifications []*entity.NotificationTask
}

// idempotencyKey derives the transition key from case and target stage. A
// timeline entry holding the key proves the transition was already applied.
func idempotencyKey(caseID string, to domainwf.Stage) string {
	return fmt.Sprintf("%s:%s", caseID, to)
}

// applyTransition evaluates the trigger against the case's fresh state and
// writes the result back conditioned on the version being unchanged. On a
// version conflict the transition is recomputed against the fresh state;
// every transition is a pure function of (current stage, decision), so the
// recompute is safe. Returns the target stage and whether the transition was
// applied (false on the idempotent no-op path).
func (e *engineImpl) applyTransition(ctx context.Context, caseID string, req transitionRequest) (domainwf.Stage, bool, error) {
	actor := req.actor
	if actor == "" {
		actor = entity.ActorEngine
	}
	decision := req.decision
	if decision == nil {
		decision = &Decision{}
	}

	for attempt := 1; attempt <= e.casAttempts; attempt++ {
		c, err := e.cases.Load(ctx, caseID)
		if err != nil {
			return "", false, err
		}

		from := domainwf.Stage(c.Stage)
		machine := BuildCaseMachine(from, e.thresholds, decision)
		to, err := machine.Peek(ctx, req.trigger)
		if err != nil {
			return "", false, err
		}

		key := idempotencyKey(caseID, to)
		applied, err := e.timeline.HasIdempotencyKey(ctx, key)
		if err != nil {
			return "", false, fmt.Errorf("idempotency lookup: %w", err)
		}
		if applied {
			e.logger.Debug("Transition already applied, skipping",
				zap.String("case_id", caseID),
				zap.String("idempotency_key", key))
			return to, false, nil
		}

		now := time.Now()
		cp := c.Clone()
		if req.mutate != nil {
			req.mutate(cp)
		}
		cp.Stage = to.String()
		cp.UpdatedAt = now

		entry := &entity.TimelineEntry{
			CaseID:         caseID,
			IdempotencyKey: key,
			Actor:          actor,
			FromStage:      from.String(),
			ToStage:        to.String(),
			Outcome:        entity.OutcomeApplied,
			Detail:         req.detail,
			Timestamp:      now,
		}

		err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := e.timeline.Append(txCtx, entry); err != nil {
				return fmt.Errorf("append timeline: %w", err)
			}
			if req.sideEffects != nil {
				if err := req.sideEffects(txCtx); err != nil {
					return err
				}
			}
			for _, task := range req.notifications {
				if err := e.notifier.Enqueue(txCtx, task); err != nil {
					return err
				}
			}
			return e.cases.CompareAndSwap(txCtx, c.Version, cp)
		})
		if errors.Is(err, port.ErrVersionConflict) || errors.Is(err, port.ErrDuplicateEntry) {
			// A concurrent applier either moved the version or committed this
			// very transition between our reads and the write. Recompute from
			// fresh state; the idempotency check above turns an already-applied
			// transition into a no-op.
			e.logger.Debug("Transition write lost race, recomputing",
				zap.String("case_id", caseID),
				zap.String("trigger", req.trigger.String()),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return "", false, err
		}

		e.logger.Info("Stage transition applied",
			zap.String("case_id", caseID),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.String("trigger", req.trigger.String()))

		if to.IsTerminal() {
			e.onTerminal(ctx, cp, to)
		}

		return to, true, nil
	}

	e.recordExhaustedAttempt(ctx, caseID, req.trigger, actor)
	return "", false, fmt.Errorf("transition %s on case %s: version conflict persisted after %d attempts",
		req.trigger, caseID, e.casAttempts)
}

// recordExhaustedAttempt appends an error entry after the compare-and-swap
// loop gives up, so operators can see the contended transition in the audit
// trail. Best-effort: the caller already returns the exhaustion error.
func (e *engineImpl) recordExhaustedAttempt(ctx context.Context, caseID string, trigger domainwf.Trigger, actor string) {
	c, err := e.cases.Load(ctx, caseID)
	if err != nil {
		e.logger.Warn("Cannot record exhausted transition attempt",
			zap.String("case_id", caseID), zap.Error(err))
		return
	}

	entry := &entity.TimelineEntry{
		CaseID:    caseID,
		Actor:     actor,
		FromStage: c.Stage,
		ToStage:   c.Stage,
		Outcome:   entity.OutcomeError,
		Detail:    fmt.Sprintf("transition %s abandoned: version conflict persisted", trigger),
		Timestamp: time.Now(),
	}
	if err := e.timeline.Append(ctx, entry); err != nil {
		e.logger.Warn("Failed to append exhausted-attempt entry",
			zap.String("case_id", caseID), zap.Error(err))
	}
}

// onTerminal runs the post-commit side effects of entering a terminal stage:
// the tracking ticket is closed with the outcome and closed cases get their
// settlement report. Both are best-effort and logged on failure; the case
// state is already durable.
func (e *engineImpl) onTerminal(ctx context.Context, c *entity.Case, stage domainwf.Stage) {
	if e.collab.Tickets != nil && c.TicketID != "" {
		if err := e.collab.Tickets.Close(ctx, c.TicketID, stage.String()); err != nil {
			e.logger.Warn("Failed to close tracking ticket",
				zap.String("case_id", c.ID),
				zap.String("ticket_id", c.TicketID),
				zap.Error(err))
		}
	}

	if stage == domainwf.StageClosed && e.reporter != nil {
		history, err := e.timeline.GetByCaseID(ctx, c.ID)
		if err != nil {
			e.logger.Warn("Failed to load timeline for settlement report",
				zap.String("case_id", c.ID), zap.Error(err))
			return
		}
		path, err := e.reporter.Generate(ctx, c, history)
		if err != nil {
			e.logger.Warn("Failed to generate settlement report",
				zap.String("case_id", c.ID), zap.Error(err))
			return
		}
		e.logger.Info("Settlement report generated",
			zap.String("case_id", c.ID),
			zap.String("path", path))
	}
}

// recordRejectedAttempt appends a timeline entry for a transition that was
// rejected as illegal, so refused cancellations and similar requests stay
// discoverable in the audit trail.
func (e *engineImpl) recordRejectedAttempt(ctx context.Context, caseID string, trigger domainwf.Trigger, actor string, cause error) {
	c, err := e.cases.Load(ctx, caseID)
	if err != nil {
		e.logger.Warn("Cannot record rejected transition attempt",
			zap.String("case_id", caseID), zap.Error(err))
		return
	}

	entry := &entity.TimelineEntry{
		CaseID:    caseID,
		Actor:     actor,
		FromStage: c.Stage,
		ToStage:   c.Stage,
		Outcome:   entity.OutcomeRejected,
		Detail:    fmt.Sprintf("illegal transition: %s refused: %v", trigger, cause),
		Timestamp: time.Now(),
	}
	if err := e.timeline.Append(ctx, entry); err != nil {
		e.logger.Warn("Failed to append rejected-attempt entry",
			zap.String("case_id", caseID), zap.Error(err))
	}
}
