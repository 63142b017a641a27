package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/domain/entity"
	"github.com/dkrause/garnishflow/internal/infrastructure/persistence/sqlite"
)

// CaseRepository implements port.CaseStore
type CaseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *sql.DB, logger *zap.Logger) port.CaseStore {
	return &CaseRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a new case at version 1
func (r *CaseRepository) Create(ctx context.Context, c *entity.Case) error {
	query := `
		INSERT INTO cases (
			id, case_number, stage, version, customer_id, account_id,
			amount, creditor_name, creditor_reference, creditor_address,
			document_ids, intake_path, ticket_id, payment_reference,
			created_at, updated_at
		) VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	docIDs, err := json.Marshal(c.DocumentIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal document ids: %w", err)
	}

	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.Version = 1

	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		c.ID,
		c.CaseNumber,
		c.Stage,
		c.CustomerID,
		c.AccountID,
		c.Amount.String(),
		c.Creditor.Name,
		c.Creditor.Reference,
		c.Creditor.Address,
		string(docIDs),
		c.IntakePath,
		c.TicketID,
		c.PaymentReference,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create case", zap.String("case_id", c.ID), zap.Error(err))
		return fmt.Errorf("failed to create case: %w", err)
	}

	return nil
}

// Load retrieves a case including its current version
func (r *CaseRepository) Load(ctx context.Context, caseID string) (*entity.Case, error) {
	query := `
		SELECT id, case_number, stage, version, customer_id, account_id,
			amount, creditor_name, creditor_reference, creditor_address,
			document_ids, intake_path, ticket_id, payment_reference,
			created_at, updated_at
		FROM cases
		WHERE id = ?
	`

	c, err := r.scanCase(r.getExecutor(ctx).QueryRowContext(ctx, query, caseID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: case %s", port.ErrNotFound, caseID)
	}
	if err != nil {
		r.logger.Error("Failed to load case", zap.String("case_id", caseID), zap.Error(err))
		return nil, fmt.Errorf("failed to load case: %w", err)
	}

	return c, nil
}

// CompareAndSwap persists the case if the stored version equals
// expectedVersion, bumping the version by one. Returns ErrVersionConflict
// when another writer got there first.
func (r *CaseRepository) CompareAndSwap(ctx context.Context, expectedVersion int64, c *entity.Case) error {
	query := `
		UPDATE cases SET
			stage = ?, version = version + 1, customer_id = ?,
			amount = ?, creditor_name = ?, creditor_reference = ?, creditor_address = ?,
			document_ids = ?, intake_path = ?, ticket_id = ?, payment_reference = ?,
			updated_at = ?
		WHERE id = ? AND version = ?
	`

	docIDs, err := json.Marshal(c.DocumentIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal document ids: %w", err)
	}

	c.UpdatedAt = time.Now()

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		c.Stage,
		c.CustomerID,
		c.Amount.String(),
		c.Creditor.Name,
		c.Creditor.Reference,
		c.Creditor.Address,
		string(docIDs),
		c.IntakePath,
		c.TicketID,
		c.PaymentReference,
		c.UpdatedAt,
		c.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update case", zap.String("case_id", c.ID), zap.Error(err))
		return fmt.Errorf("failed to update case: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// Either the version moved or the case does not exist; distinguish
		// so callers only retry genuine conflicts.
		var exists bool
		checkErr := r.getExecutor(ctx).QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM cases WHERE id = ?)`, c.ID).Scan(&exists)
		if checkErr == nil && !exists {
			return fmt.Errorf("%w: case %s", port.ErrNotFound, c.ID)
		}
		return fmt.Errorf("%w: case %s at version %d", port.ErrVersionConflict, c.ID, expectedVersion)
	}

	c.Version = expectedVersion + 1
	return nil
}

// ListByStage returns cases in the given stage; stage "" lists all
func (r *CaseRepository) ListByStage(ctx context.Context, stage string, limit, offset int) ([]*entity.Case, error) {
	query := `
		SELECT id, case_number, stage, version, customer_id, account_id,
			amount, creditor_name, creditor_reference, creditor_address,
			document_ids, intake_path, ticket_id, payment_reference,
			created_at, updated_at
		FROM cases
	`
	args := []interface{}{}
	if stage != "" {
		query += ` WHERE stage = ?`
		args = append(args, stage)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list cases", zap.String("stage", stage), zap.Error(err))
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	var cases []*entity.Case
	for rows.Next() {
		c, err := r.scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, c)
	}

	return cases, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *CaseRepository) scanCase(row rowScanner) (*entity.Case, error) {
	var c entity.Case
	var amount, docIDs string

	err := row.Scan(
		&c.ID,
		&c.CaseNumber,
		&c.Stage,
		&c.Version,
		&c.CustomerID,
		&c.AccountID,
		&amount,
		&c.Creditor.Name,
		&c.Creditor.Reference,
		&c.Creditor.Address,
		&docIDs,
		&c.IntakePath,
		&c.TicketID,
		&c.PaymentReference,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	if err := json.Unmarshal([]byte(docIDs), &c.DocumentIDs); err != nil {
		return nil, fmt.Errorf("invalid stored document ids: %w", err)
	}

	return &c, nil
}

// getExecutor returns the ambient transaction if present, the pool otherwise
func (r *CaseRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Verify interface compliance
var _ port.CaseStore = (*CaseRepository)(nil)
