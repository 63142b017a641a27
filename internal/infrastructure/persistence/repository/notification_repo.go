package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/domain/entity"
	"github.com/dkrause/garnishflow/internal/infrastructure/persistence/sqlite"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification task repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a new notification task. The dedup key column is unique;
// inserting a key that already exists returns ErrDuplicateTask so enqueue
// stays an idempotent no-op.
func (r *NotificationRepository) Create(ctx context.Context, task *entity.NotificationTask) error {
	query := `
		INSERT INTO notification_tasks (
			id, case_id, channel, template, params, dedup_key,
			state, attempts, last_error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0, '', ?, ?)
	`

	params, err := json.Marshal(task.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		task.ID,
		task.CaseID,
		task.Channel,
		task.Template,
		string(params),
		task.DedupKey,
		task.State,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: dedup key %s", port.ErrDuplicateTask, task.DedupKey)
		}
		r.logger.Error("Failed to create notification task",
			zap.String("dedup_key", task.DedupKey),
			zap.Error(err))
		return fmt.Errorf("failed to create notification task: %w", err)
	}

	return nil
}

// GetByDedupKey retrieves a task by its dedup key
func (r *NotificationRepository) GetByDedupKey(ctx context.Context, dedupKey string) (*entity.NotificationTask, error) {
	query := selectTask + ` WHERE dedup_key = ?`

	task, err := r.scanTask(r.getExecutor(ctx).QueryRowContext(ctx, query, dedupKey))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: notification %s", port.ErrNotFound, dedupKey)
	}
	if err != nil {
		r.logger.Error("Failed to get notification task", zap.String("dedup_key", dedupKey), zap.Error(err))
		return nil, fmt.Errorf("failed to get notification task: %w", err)
	}

	return task, nil
}

// GetPending retrieves up to limit pending tasks, oldest first
func (r *NotificationRepository) GetPending(ctx context.Context, limit int) ([]*entity.NotificationTask, error) {
	query := selectTask + ` WHERE state = ? ORDER BY created_at ASC LIMIT ?`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, entity.NotificationPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending notifications", zap.Error(err))
		return nil, fmt.Errorf("failed to get pending notifications: %w", err)
	}
	defer rows.Close()

	var tasks []*entity.NotificationTask
	for rows.Next() {
		task, err := r.scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// MarkSent records successful delivery
func (r *NotificationRepository) MarkSent(ctx context.Context, id string) error {
	query := `
		UPDATE notification_tasks
		SET state = ?, sent_at = ?, updated_at = ?
		WHERE id = ?
	`

	now := time.Now()
	return r.exec(ctx, query, id, entity.NotificationSent, now, now, id)
}

// RecordAttempt increments the attempt counter and keeps the task pending
func (r *NotificationRepository) RecordAttempt(ctx context.Context, id string, errorMsg string) error {
	query := `
		UPDATE notification_tasks
		SET attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE id = ?
	`

	return r.exec(ctx, query, id, errorMsg, time.Now(), id)
}

// MarkFailed moves the task to its failed state after attempts are exhausted
func (r *NotificationRepository) MarkFailed(ctx context.Context, id string, errorMsg string) error {
	query := `
		UPDATE notification_tasks
		SET state = ?, attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE id = ?
	`

	return r.exec(ctx, query, id, entity.NotificationFailed, errorMsg, time.Now(), id)
}

const selectTask = `
	SELECT id, case_id, channel, template, params, dedup_key,
		state, attempts, last_error, sent_at, created_at, updated_at
	FROM notification_tasks
`

func (r *NotificationRepository) exec(ctx context.Context, query, id string, args ...interface{}) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update notification task", zap.String("task_id", id), zap.Error(err))
		return fmt.Errorf("failed to update notification task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: notification task %s", port.ErrNotFound, id)
	}

	return nil
}

func (r *NotificationRepository) scanTask(row rowScanner) (*entity.NotificationTask, error) {
	var task entity.NotificationTask
	var params string
	var sentAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.CaseID,
		&task.Channel,
		&task.Template,
		&params,
		&task.DedupKey,
		&task.State,
		&task.Attempts,
		&task.LastError,
		&sentAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(params), &task.Params); err != nil {
		return nil, fmt.Errorf("invalid stored params: %w", err)
	}
	if sentAt.Valid {
		task.SentAt = &sentAt.Time
	}

	return &task, nil
}

// getExecutor returns the ambient transaction if present, the pool otherwise
func (r *NotificationRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
