package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/domain/entity"
	"github.com/dkrause/garnishflow/internal/infrastructure/persistence/sqlite"
)

// DocumentRepository implements port.DocumentRepository
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) port.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists an extracted document
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	query := `
		INSERT INTO documents (
			id, case_id, filename, content_path, classification,
			fields, field_confidence, confidence, extracted_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	fields, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}
	fieldConfidence, err := json.Marshal(doc.FieldConfidence)
	if err != nil {
		return fmt.Errorf("failed to marshal field confidence: %w", err)
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		doc.ID,
		doc.CaseID,
		doc.Filename,
		doc.ContentPath,
		doc.Classification,
		string(fields),
		string(fieldConfidence),
		doc.Confidence,
		doc.ExtractedAt,
		doc.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create document",
			zap.String("document_id", doc.ID),
			zap.String("case_id", doc.CaseID),
			zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	query := `
		SELECT id, case_id, filename, content_path, classification,
			fields, field_confidence, confidence, extracted_at, created_at
		FROM documents
		WHERE id = ?
	`

	doc, err := r.scanDocument(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: document %s", port.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get document", zap.String("document_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// GetByCaseID retrieves a case's documents in extraction order
func (r *DocumentRepository) GetByCaseID(ctx context.Context, caseID string) ([]*entity.Document, error) {
	query := `
		SELECT id, case_id, filename, content_path, classification,
			fields, field_confidence, confidence, extracted_at, created_at
		FROM documents
		WHERE case_id = ?
		ORDER BY extracted_at ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, caseID)
	if err != nil {
		r.logger.Error("Failed to get documents", zap.String("case_id", caseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get documents: %w", err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := r.scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

func (r *DocumentRepository) scanDocument(row rowScanner) (*entity.Document, error) {
	var doc entity.Document
	var fields, fieldConfidence string

	err := row.Scan(
		&doc.ID,
		&doc.CaseID,
		&doc.Filename,
		&doc.ContentPath,
		&doc.Classification,
		&fields,
		&fieldConfidence,
		&doc.Confidence,
		&doc.ExtractedAt,
		&doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(fields), &doc.Fields); err != nil {
		return nil, fmt.Errorf("invalid stored fields: %w", err)
	}
	if err := json.Unmarshal([]byte(fieldConfidence), &doc.FieldConfidence); err != nil {
		return nil, fmt.Errorf("invalid stored field confidence: %w", err)
	}

	return &doc, nil
}

// getExecutor returns the ambient transaction if present, the pool otherwise
func (r *DocumentRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.DocumentRepository = (*DocumentRepository)(nil)
