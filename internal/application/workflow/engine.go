package workflow

import (
	"context"

	"github.com/dkrause/garnishflow/internal/domain/entity"
	"github.com/dkrause/garnishflow/internal/domain/event"
	domainwf "github.com/dkrause/garnishflow/internal/domain/workflow"
)

// Engine orchestrates garnishment cases: it evaluates transitions against the
// state machine, calls collaborators outside the exclusive section, records
// every outcome to the timeline, and enqueues notifications where a
// transition specifies them.
type Engine interface {
	// HandleEvent processes an inbound case event (new document, collaborator
	// response, timer, operator request) and advances the case as far as the
	// available collaborator results allow.
	HandleEvent(ctx context.Context, evt *event.Event) error

	// CurrentStage returns the case's current stage
	CurrentStage(ctx context.Context, caseID string) (domainwf.Stage, error)

	// Cancel transitions a non-terminal, pre-settlement case to Cancelled.
	// Returns an illegal-transition error once the case has reached
	// PaymentSent or later; the rejected attempt is recorded to the timeline.
	Cancel(ctx context.Context, caseID, requestedBy, reason string) error

	// Retry re-drives a stalled non-terminal case through its pipeline
	Retry(ctx context.Context, caseID string) error
}

// Reporter exports a closure report for a settled case
type Reporter interface {
	Generate(ctx context.Context, c *entity.Case, history []*entity.TimelineEntry) (string, error)
}
