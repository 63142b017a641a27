package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/domain/entity"
	"github.com/dkrause/garnishflow/internal/infrastructure/persistence/sqlite"
)

// TimelineRepository implements port.TimelineRepository. The timeline is
// append-only: there are no update or delete paths.
type TimelineRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTimelineRepository creates a new timeline repository
func NewTimelineRepository(db *sql.DB, logger *zap.Logger) port.TimelineRepository {
	return &TimelineRepository{
		db:     db,
		logger: logger,
	}
}

// Append adds one entry to the case's timeline. The idempotency key column is
// unique, so re-appending an already-applied transition fails the enclosing
// transaction instead of duplicating history.
func (r *TimelineRepository) Append(ctx context.Context, entry *entity.TimelineEntry) error {
	query := `
		INSERT INTO case_timeline (
			case_id, idempotency_key, actor, from_stage, to_stage,
			outcome, detail, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	// Empty keys are stored as NULL; rejected attempts carry no key and must
	// not collide with each other under the unique index.
	var key sql.NullString
	if entry.IdempotencyKey != "" {
		key = sql.NullString{String: entry.IdempotencyKey, Valid: true}
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entry.CaseID,
		key,
		entry.Actor,
		entry.FromStage,
		entry.ToStage,
		entry.Outcome,
		entry.Detail,
		entry.Timestamp,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: idempotency key %s", port.ErrDuplicateEntry, entry.IdempotencyKey)
		}
		r.logger.Error("Failed to append timeline entry",
			zap.String("case_id", entry.CaseID),
			zap.Error(err))
		return fmt.Errorf("failed to append timeline entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// GetByCaseID retrieves the case's timeline in append order
func (r *TimelineRepository) GetByCaseID(ctx context.Context, caseID string) ([]*entity.TimelineEntry, error) {
	query := `
		SELECT id, case_id, idempotency_key, actor, from_stage, to_stage,
			outcome, detail, timestamp
		FROM case_timeline
		WHERE case_id = ?
		ORDER BY id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, caseID)
	if err != nil {
		r.logger.Error("Failed to get timeline", zap.String("case_id", caseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get timeline: %w", err)
	}
	defer rows.Close()

	var entries []*entity.TimelineEntry
	for rows.Next() {
		var entry entity.TimelineEntry
		var key sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.CaseID,
			&key,
			&entry.Actor,
			&entry.FromStage,
			&entry.ToStage,
			&entry.Outcome,
			&entry.Detail,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timeline entry: %w", err)
		}
		if key.Valid {
			entry.IdempotencyKey = key.String
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// HasIdempotencyKey reports whether a transition with the given key was
// already applied
func (r *TimelineRepository) HasIdempotencyKey(ctx context.Context, key string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM case_timeline WHERE idempotency_key = ?)`

	var exists bool
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, key).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check idempotency key", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("failed to check idempotency key: %w", err)
	}

	return exists, nil
}

// getExecutor returns the ambient transaction if present, the pool otherwise
func (r *TimelineRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.TimelineRepository = (*TimelineRepository)(nil)
