package port

import (
	"context"

	"github.com/dkrause/garnishflow/internal/domain/entity"
)

// CaseStore defines persistence operations for Case records. Writes are guarded
// by optimistic concurrency: CompareAndSwap only applies when the stored version
// matches the version the case was loaded at, and bumps it by one.
type CaseStore interface {
	Create(ctx context.Context, c *entity.Case) error

	// Load returns the case including its current version
	Load(ctx context.Context, caseID string) (*entity.Case, error)

	// CompareAndSwap persists the case if the stored version equals
	// expectedVersion. Returns ErrVersionConflict otherwise.
	CompareAndSwap(ctx context.Context, expectedVersion int64, c *entity.Case) error

	// ListByStage returns cases in the given stage; stage "" lists all
	ListByStage(ctx context.Context, stage string, limit, offset int) ([]*entity.Case, error)
}

// TimelineRepository defines persistence operations for the append-only audit trail
type TimelineRepository interface {
	Append(ctx context.Context, entry *entity.TimelineEntry) error
	GetByCaseID(ctx context.Context, caseID string) ([]*entity.TimelineEntry, error)

	// HasIdempotencyKey reports whether a transition with the given key was
	// already applied
	HasIdempotencyKey(ctx context.Context, key string) (bool, error)
}

// DocumentRepository defines persistence operations for ingested documents
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	GetByCaseID(ctx context.Context, caseID string) ([]*entity.Document, error)
}

// NotificationRepository defines persistence operations for notification tasks.
// Create is a no-op (returning ErrDuplicateTask) when a task with the same
// dedup key already exists.
type NotificationRepository interface {
	Create(ctx context.Context, task *entity.NotificationTask) error
	GetByDedupKey(ctx context.Context, dedupKey string) (*entity.NotificationTask, error)
	GetPending(ctx context.Context, limit int) ([]*entity.NotificationTask, error)
	MarkSent(ctx context.Context, id string) error

	// RecordAttempt increments the attempt counter and keeps the task pending
	RecordAttempt(ctx context.Context, id string, errorMsg string) error

	// MarkFailed moves the task to its failed state after attempts are exhausted
	MarkFailed(ctx context.Context, id string, errorMsg string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
