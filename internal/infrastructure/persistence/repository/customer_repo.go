package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/domain/entity"
	"github.com/dkrause/garnishflow/internal/infrastructure/persistence/sqlite"
)

// CustomerRepository reads the local customer records snapshot used by
// verification. The snapshot is seeded from the system of record; the
// workflow never writes it.
type CustomerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *sql.DB, logger *zap.Logger) *CustomerRepository {
	return &CustomerRepository{
		db:     db,
		logger: logger,
	}
}

// All returns every customer in the snapshot
func (r *CustomerRepository) All(ctx context.Context) ([]*entity.Customer, error) {
	query := `
		SELECT id, name, address, email, account_numbers, verification_status
		FROM customers
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list customers", zap.Error(err))
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []*entity.Customer
	for rows.Next() {
		c, err := r.scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}

	return customers, rows.Err()
}

// GetByID retrieves a customer by ID
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	query := `
		SELECT id, name, address, email, account_numbers, verification_status
		FROM customers
		WHERE id = ?
	`

	c, err := r.scanCustomer(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: customer %s", port.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get customer", zap.String("customer_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return c, nil
}

func (r *CustomerRepository) scanCustomer(row rowScanner) (*entity.Customer, error) {
	var c entity.Customer
	var accountNumbers string

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Address,
		&c.Email,
		&accountNumbers,
		&c.VerificationStatus,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(accountNumbers), &c.AccountNumbers); err != nil {
		return nil, fmt.Errorf("invalid stored account numbers: %w", err)
	}

	return &c, nil
}

// getExecutor returns the ambient transaction if present, the pool otherwise
func (r *CustomerRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}
