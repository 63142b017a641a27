package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/dispatcher"
)

// NotifyWorker periodically drains pending notification tasks through the
// dispatcher.
type NotifyWorker struct {
	dispatcher dispatcher.Dispatcher
	interval   time.Duration
	batchSize  int
	logger     *zap.Logger
	done       chan struct{}
	mu         sync.Mutex
	started    bool
}

func NewNotifyWorker(d dispatcher.Dispatcher, interval time.Duration, batchSize int, logger *zap.Logger) *NotifyWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &NotifyWorker{
		dispatcher: d,
		interval:   interval,
		batchSize:  batchSize,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

func (w *NotifyWorker) Name() string { return "notify-worker" }

func (w *NotifyWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return fmt.Errorf("notify worker already started")
	}
	w.started = true
	w.mu.Unlock()

	go w.run(ctx)
	return nil
}

func (w *NotifyWorker) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *NotifyWorker) drain(ctx context.Context) {
	sent, err := w.dispatcher.DeliverPending(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("Notification delivery pass failed", zap.Error(err))
		return
	}
	if sent > 0 {
		w.logger.Info("Notifications delivered", zap.Int("count", sent))
	}
}

func (w *NotifyWorker) Stop() error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = false
	w.mu.Unlock()

	<-w.done
	return nil
}
