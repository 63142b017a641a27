package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	appwf "github.com/dkrause/garnishflow/internal/application/workflow"
	"github.com/dkrause/garnishflow/internal/domain/entity"
	"github.com/dkrause/garnishflow/internal/domain/event"
	domainwf "github.com/dkrause/garnishflow/internal/domain/workflow"
)

// EventQueue accepts case events for background processing by the engine
type EventQueue interface {
	Submit(evt *event.Event) error
}

// SubmitDocumentRequest carries an inbound court document and what is already
// known about the order it asserts
type SubmitDocumentRequest struct {
	Filename     string
	Content      []byte
	CaseNumber   string
	AccountID    string
	Amount       decimal.Decimal
	CreditorName string
	CreditorRef  string
}

// CaseDetail bundles a case with its audit timeline
type CaseDetail struct {
	Case     *entity.Case            `json:"case"`
	Timeline []*entity.TimelineEntry `json:"timeline"`
}

// CaseService exposes the operator-facing case operations
type CaseService interface {
	// SubmitDocument creates a case from a received court document and hands
	// it to the engine for processing
	SubmitDocument(ctx context.Context, req SubmitDocumentRequest) (*entity.Case, error)

	// GetCase returns the case and its timeline
	GetCase(ctx context.Context, caseID string) (*CaseDetail, error)

	// ListCases returns cases, optionally filtered by stage
	ListCases(ctx context.Context, stage string, limit, offset int) ([]*entity.Case, error)

	// RetryCase re-drives a stalled non-terminal case
	RetryCase(ctx context.Context, caseID string) error

	// CancelCase cancels a case that has not reached PaymentSent
	CancelCase(ctx context.Context, caseID, requestedBy, reason string) error
}

type caseServiceImpl struct {
	cases    port.CaseStore
	timeline port.TimelineRepository
	files    port.FileStorage
	tickets  port.TicketSystem
	engine   appwf.Engine
	queue    EventQueue
	logger   *zap.Logger
}

// NewCaseService creates a new CaseService
func NewCaseService(
	cases port.CaseStore,
	timeline port.TimelineRepository,
	files port.FileStorage,
	tickets port.TicketSystem,
	engine appwf.Engine,
	queue EventQueue,
	logger *zap.Logger,
) CaseService {
	return &caseServiceImpl{
		cases:    cases,
		timeline: timeline,
		files:    files,
		tickets:  tickets,
		engine:   engine,
		queue:    queue,
		logger:   logger,
	}
}

func (s *caseServiceImpl) SubmitDocument(ctx context.Context, req SubmitDocumentRequest) (*entity.Case, error) {
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: document content is empty", port.ErrValidation)
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		return nil, fmt.Errorf("%w: owed amount must be positive", port.ErrValidation)
	}
	if req.CreditorName == "" {
		return nil, fmt.Errorf("%w: creditor name is required", port.ErrValidation)
	}

	caseID := uuid.NewString()

	path, err := s.files.Save(caseID, req.Filename, req.Content)
	if err != nil {
		return nil, fmt.Errorf("store intake document: %w", err)
	}

	now := time.Now()
	c := &entity.Case{
		ID:         caseID,
		CaseNumber: req.CaseNumber,
		Stage:      domainwf.StageReceived.String(),
		AccountID:  req.AccountID,
		Amount:     req.Amount,
		Creditor: entity.Creditor{
			Name:      req.CreditorName,
			Reference: req.CreditorRef,
		},
		IntakePath: path,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Tracking ticket is best-effort: a ticketing outage must not block
	// intake of a court order.
	if s.tickets != nil {
		ticketID, err := s.tickets.Open(ctx, c)
		if err != nil {
			s.logger.Warn("Failed to open tracking ticket",
				zap.String("case_id", caseID), zap.Error(err))
		} else {
			c.TicketID = ticketID
		}
	}

	if err := s.cases.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create case: %w", err)
	}

	entry := &entity.TimelineEntry{
		CaseID:    caseID,
		Actor:     entity.ActorEngine,
		FromStage: "",
		ToStage:   domainwf.StageReceived.String(),
		Outcome:   entity.OutcomeApplied,
		Detail:    fmt.Sprintf("case created from document %s", req.Filename),
		Timestamp: now,
	}
	if err := s.timeline.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append creation entry: %w", err)
	}

	// The creditor's case number threads through the event stream so log
	// lines for one garnishment order correlate across workers.
	payload := map[string]interface{}{"filename": req.Filename}
	var evt *event.Event
	if req.CaseNumber != "" {
		evt = event.NewWithCorrelation(event.TypeDocumentIngested, caseID, payload, req.CaseNumber)
	} else {
		evt = event.New(event.TypeDocumentIngested, caseID, payload)
	}
	if err := s.queue.Submit(evt); err != nil {
		// The case is durable; an operator retry re-drives it.
		s.logger.Error("Failed to queue case for processing",
			zap.String("case_id", caseID), zap.Error(err))
	}

	s.logger.Info("Case created",
		zap.String("case_id", caseID),
		zap.String("case_number", req.CaseNumber),
		zap.String("creditor", req.CreditorName),
		zap.String("amount", req.Amount.String()))

	return c, nil
}

func (s *caseServiceImpl) GetCase(ctx context.Context, caseID string) (*CaseDetail, error) {
	c, err := s.cases.Load(ctx, caseID)
	if err != nil {
		return nil, err
	}

	history, err := s.timeline.GetByCaseID(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("load timeline: %w", err)
	}

	return &CaseDetail{Case: c, Timeline: history}, nil
}

func (s *caseServiceImpl) ListCases(ctx context.Context, stage string, limit, offset int) ([]*entity.Case, error) {
	if stage != "" && !domainwf.Stage(stage).IsValid() {
		return nil, fmt.Errorf("%w: %q", domainwf.ErrInvalidStage, stage)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.cases.ListByStage(ctx, stage, limit, offset)
}

func (s *caseServiceImpl) RetryCase(ctx context.Context, caseID string) error {
	return s.engine.Retry(ctx, caseID)
}

func (s *caseServiceImpl) CancelCase(ctx context.Context, caseID, requestedBy, reason string) error {
	return s.engine.Cancel(ctx, caseID, requestedBy, reason)
}
