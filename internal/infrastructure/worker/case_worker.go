package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/workflow"
	"github.com/dkrause/garnishflow/internal/domain/event"
)

// CaseWorker consumes case events off an in-process queue and runs each one
// through the workflow engine. It implements service.EventQueue.
type CaseWorker struct {
	engine workflow.Engine
	logger *zap.Logger
	events chan *event.Event
	done   chan struct{}
	mu     sync.Mutex
	open   bool
}

func NewCaseWorker(engine workflow.Engine, queueSize int, logger *zap.Logger) *CaseWorker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &CaseWorker{
		engine: engine,
		logger: logger,
		events: make(chan *event.Event, queueSize),
		done:   make(chan struct{}),
	}
}

func (w *CaseWorker) Name() string { return "case-worker" }

// Submit enqueues an event for processing. It fails fast when the queue is
// full rather than blocking HTTP handlers.
func (w *CaseWorker) Submit(evt *event.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return fmt.Errorf("case worker not running")
	}
	select {
	case w.events <- evt:
		return nil
	default:
		return fmt.Errorf("event queue full")
	}
}

func (w *CaseWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.open {
		w.mu.Unlock()
		return fmt.Errorf("case worker already started")
	}
	w.open = true
	w.mu.Unlock()

	go w.run(ctx)
	return nil
}

func (w *CaseWorker) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-w.events:
			w.handle(ctx, evt)
		}
	}
}

func (w *CaseWorker) handle(ctx context.Context, evt *event.Event) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Panic while processing case event",
				zap.String("case_id", evt.CaseID),
				zap.String("event_type", string(evt.Type)),
				zap.Any("panic", r))
		}
	}()

	if err := w.engine.HandleEvent(ctx, evt); err != nil {
		// The engine records escalation and failure in the case itself;
		// an error here means the event could not be applied at all.
		w.logger.Error("Case event failed",
			zap.String("case_id", evt.CaseID),
			zap.String("event_type", string(evt.Type)),
			zap.Error(err))
		return
	}
	w.logger.Debug("Case event processed",
		zap.String("case_id", evt.CaseID),
		zap.String("event_type", string(evt.Type)))
}

func (w *CaseWorker) Stop() error {
	w.mu.Lock()
	if !w.open {
		w.mu.Unlock()
		return nil
	}
	w.open = false
	w.mu.Unlock()

	<-w.done
	return nil
}
