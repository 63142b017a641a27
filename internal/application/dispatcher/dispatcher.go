// Package dispatcher implements at-least-once, deduplicated fan-out of
// creditor and customer notifications. Delivery is decoupled from the case's
// critical path: a transition that enqueues a notification completes whether
// or not the message has been delivered yet.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/domain/entity"
)

// Dispatcher accepts notification tasks produced by stage transitions and
// delivers them in the background.
type Dispatcher interface {
	// Enqueue admits a task for delivery. Never blocks beyond admission;
	// repeated enqueue of the same dedup key is a no-op.
	Enqueue(ctx context.Context, task *entity.NotificationTask) error

	// Status returns the delivery state for a dedup key
	Status(ctx context.Context, dedupKey string) (string, error)

	// DeliverPending drains up to limit admitted tasks, delivering each over
	// its channel. Returns the number of tasks attempted. Called by the
	// delivery worker, independent of case-state retries.
	DeliverPending(ctx context.Context, limit int) (int, error)
}

// Option configures the dispatcher
type Option func(*taskDispatcher)

// WithMaxDeliveryAttempts bounds redelivery of a failing task
func WithMaxDeliveryAttempts(n int) Option {
	return func(d *taskDispatcher) {
		d.maxAttempts = n
	}
}

// WithSendTimeout bounds a single delivery attempt
func WithSendTimeout(timeout time.Duration) Option {
	return func(d *taskDispatcher) {
		d.sendTimeout = timeout
	}
}

type taskDispatcher struct {
	tasks       port.NotificationRepository
	sender      port.NotificationSender
	logger      *zap.Logger
	maxAttempts int
	sendTimeout time.Duration
}

// NewDispatcher creates a notification dispatcher
func NewDispatcher(tasks port.NotificationRepository, sender port.NotificationSender, logger *zap.Logger, opts ...Option) Dispatcher {
	d := &taskDispatcher{
		tasks:       tasks,
		sender:      sender,
		logger:      logger,
		maxAttempts: 5,
		sendTimeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *taskDispatcher) Enqueue(ctx context.Context, task *entity.NotificationTask) error {
	if task.CaseID == "" || task.Channel == "" || task.Template == "" {
		return fmt.Errorf("notification task missing case, channel or template")
	}

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.DedupKey == "" {
		return fmt.Errorf("notification task missing dedup key")
	}
	task.State = entity.NotificationPending
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	err := d.tasks.Create(ctx, task)
	if errors.Is(err, port.ErrDuplicateTask) {
		d.logger.Debug("Notification already enqueued",
			zap.String("dedup_key", task.DedupKey))
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}

	d.logger.Info("Notification enqueued",
		zap.String("case_id", task.CaseID),
		zap.String("channel", task.Channel),
		zap.String("template", task.Template),
		zap.String("dedup_key", task.DedupKey))
	return nil
}

func (d *taskDispatcher) Status(ctx context.Context, dedupKey string) (string, error) {
	task, err := d.tasks.GetByDedupKey(ctx, dedupKey)
	if err != nil {
		return "", err
	}
	return task.State, nil
}

func (d *taskDispatcher) DeliverPending(ctx context.Context, limit int) (int, error) {
	pending, err := d.tasks.GetPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("load pending notifications: %w", err)
	}

	for _, task := range pending {
		d.deliver(ctx, task)
	}

	return len(pending), nil
}

// deliver attempts one send. Failures keep the task pending for the next
// sweep until attempts run out; the channel may therefore see a message more
// than once, never fewer.
func (d *taskDispatcher) deliver(ctx context.Context, task *entity.NotificationTask) {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	err := d.send(sendCtx, task)
	if err == nil {
		if markErr := d.tasks.MarkSent(ctx, task.ID); markErr != nil {
			d.logger.Error("Failed to mark notification sent",
				zap.String("task_id", task.ID), zap.Error(markErr))
		}
		d.logger.Info("Notification delivered",
			zap.String("case_id", task.CaseID),
			zap.String("channel", task.Channel),
			zap.String("dedup_key", task.DedupKey))
		return
	}

	d.logger.Warn("Notification delivery failed",
		zap.String("task_id", task.ID),
		zap.String("channel", task.Channel),
		zap.Int("attempt", task.Attempts+1),
		zap.Error(err))

	if task.Attempts+1 >= d.maxAttempts {
		if markErr := d.tasks.MarkFailed(ctx, task.ID, err.Error()); markErr != nil {
			d.logger.Error("Failed to mark notification failed",
				zap.String("task_id", task.ID), zap.Error(markErr))
		}
		return
	}

	if recErr := d.tasks.RecordAttempt(ctx, task.ID, err.Error()); recErr != nil {
		d.logger.Error("Failed to record notification attempt",
			zap.String("task_id", task.ID), zap.Error(recErr))
	}
}

// send runs the sender with panic recovery so a broken channel implementation
// cannot take the delivery worker down.
func (d *taskDispatcher) send(ctx context.Context, task *entity.NotificationTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
		}
	}()

	return d.sender.Send(ctx, task)
}
