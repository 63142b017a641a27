package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/domain/entity"
	"github.com/dkrause/garnishflow/internal/domain/event"
	domainwf "github.com/dkrause/garnishflow/internal/domain/workflow"
)

type stubCases struct {
	created   *entity.Case
	createErr error
	cases     map[string]*entity.Case
	listStage string
	listLimit int
}

func (s *stubCases) Create(_ context.Context, c *entity.Case) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = c
	return nil
}

func (s *stubCases) Load(_ context.Context, caseID string) (*entity.Case, error) {
	c, ok := s.cases[caseID]
	if !ok {
		return nil, port.ErrNotFound
	}
	return c, nil
}

func (s *stubCases) CompareAndSwap(context.Context, int64, *entity.Case) error {
	return nil
}

func (s *stubCases) ListByStage(_ context.Context, stage string, limit, _ int) ([]*entity.Case, error) {
	s.listStage = stage
	s.listLimit = limit
	return nil, nil
}

type stubTimeline struct {
	entries   []*entity.TimelineEntry
	appendErr error
}

func (s *stubTimeline) Append(_ context.Context, entry *entity.TimelineEntry) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubTimeline) GetByCaseID(_ context.Context, caseID string) ([]*entity.TimelineEntry, error) {
	var out []*entity.TimelineEntry
	for _, e := range s.entries {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubTimeline) HasIdempotencyKey(context.Context, string) (bool, error) {
	return false, nil
}

type stubFiles struct {
	saved map[string][]byte
	err   error
}

func (s *stubFiles) Save(caseID, filename string, content []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	path := "/intake/" + caseID + "/" + filename
	s.saved[path] = content
	return path, nil
}

func (s *stubFiles) Read(path string) ([]byte, error) {
	content, ok := s.saved[path]
	if !ok {
		return nil, fmt.Errorf("no file at %s", path)
	}
	return content, nil
}

type stubTickets struct {
	opened int
	err    error
}

func (s *stubTickets) Open(context.Context, *entity.Case) (string, error) {
	s.opened++
	if s.err != nil {
		return "", s.err
	}
	return "TKT-1", nil
}

func (s *stubTickets) Close(context.Context, string, string) error { return nil }

type stubEngine struct {
	retried   []string
	cancelled []string
}

func (s *stubEngine) HandleEvent(context.Context, *event.Event) error { return nil }

func (s *stubEngine) CurrentStage(context.Context, string) (domainwf.Stage, error) {
	return domainwf.StageReceived, nil
}

func (s *stubEngine) Cancel(_ context.Context, caseID, _, _ string) error {
	s.cancelled = append(s.cancelled, caseID)
	return nil
}

func (s *stubEngine) Retry(_ context.Context, caseID string) error {
	s.retried = append(s.retried, caseID)
	return nil
}

type stubQueue struct {
	events []*event.Event
	err    error
}

func (s *stubQueue) Submit(evt *event.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, evt)
	return nil
}

type serviceFixture struct {
	cases    *stubCases
	timeline *stubTimeline
	files    *stubFiles
	tickets  *stubTickets
	engine   *stubEngine
	queue    *stubQueue
	svc      CaseService
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		cases:    &stubCases{cases: map[string]*entity.Case{}},
		timeline: &stubTimeline{},
		files:    &stubFiles{},
		tickets:  &stubTickets{},
		engine:   &stubEngine{},
		queue:    &stubQueue{},
	}
	f.svc = NewCaseService(f.cases, f.timeline, f.files, f.tickets, f.engine, f.queue, zap.NewNop())
	return f
}

func validRequest() SubmitDocumentRequest {
	return SubmitDocumentRequest{
		Filename:     "order.pdf",
		Content:      []byte("%PDF-1.4 garnishment order"),
		CaseNumber:   "GRN-2024-001",
		AccountID:    "ACC-1001",
		Amount:       decimal.NewFromInt(750),
		CreditorName: "Ajax Collections",
		CreditorRef:  "REF-9",
	}
}

func TestSubmitDocumentCreatesCase(t *testing.T) {
	f := newServiceFixture()

	c, err := f.svc.SubmitDocument(context.Background(), validRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, domainwf.StageReceived.String(), c.Stage)
	assert.Equal(t, "TKT-1", c.TicketID)
	assert.NotEmpty(t, c.IntakePath)
	require.NotNil(t, f.cases.created)

	// Creation is recorded to the timeline and the case is queued.
	require.Len(t, f.timeline.entries, 1)
	assert.Equal(t, domainwf.StageReceived.String(), f.timeline.entries[0].ToStage)
	require.Len(t, f.queue.events, 1)
	assert.Equal(t, event.TypeDocumentIngested, f.queue.events[0].Type)
	assert.Equal(t, c.ID, f.queue.events[0].CaseID)
	assert.Equal(t, "GRN-2024-001", f.queue.events[0].CorrelationID,
		"creditor case number threads through as the correlation id")
}

func TestSubmitDocumentWithoutCaseNumberGeneratesCorrelation(t *testing.T) {
	f := newServiceFixture()

	req := validRequest()
	req.CaseNumber = ""
	_, err := f.svc.SubmitDocument(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, f.queue.events, 1)
	assert.NotEmpty(t, f.queue.events[0].CorrelationID)
}

func TestSubmitDocumentValidation(t *testing.T) {
	f := newServiceFixture()

	req := validRequest()
	req.Content = nil
	_, err := f.svc.SubmitDocument(context.Background(), req)
	assert.ErrorIs(t, err, port.ErrValidation)

	req = validRequest()
	req.Amount = decimal.Zero
	_, err = f.svc.SubmitDocument(context.Background(), req)
	assert.ErrorIs(t, err, port.ErrValidation)

	req = validRequest()
	req.CreditorName = ""
	_, err = f.svc.SubmitDocument(context.Background(), req)
	assert.ErrorIs(t, err, port.ErrValidation)
}

func TestSubmitDocumentTicketOutageDoesNotBlockIntake(t *testing.T) {
	f := newServiceFixture()
	f.tickets.err = errors.New("ticket system down")

	c, err := f.svc.SubmitDocument(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Empty(t, c.TicketID)
	assert.Equal(t, 1, f.tickets.opened)
}

func TestSubmitDocumentQueueFailureStillCreatesCase(t *testing.T) {
	f := newServiceFixture()
	f.queue.err = errors.New("queue full")

	c, err := f.svc.SubmitDocument(context.Background(), validRequest())
	require.NoError(t, err)
	assert.NotNil(t, f.cases.created)
	assert.NotEmpty(t, c.ID)
}

func TestGetCaseReturnsTimeline(t *testing.T) {
	f := newServiceFixture()
	f.cases.cases["case-1"] = &entity.Case{ID: "case-1", Stage: "EXTRACTING"}
	f.timeline.entries = []*entity.TimelineEntry{
		{CaseID: "case-1", ToStage: "EXTRACTING", Outcome: entity.OutcomeApplied},
		{CaseID: "other", ToStage: "RECEIVED", Outcome: entity.OutcomeApplied},
	}

	detail, err := f.svc.GetCase(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Equal(t, "case-1", detail.Case.ID)
	require.Len(t, detail.Timeline, 1)
}

func TestGetCaseNotFound(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.GetCase(context.Background(), "missing")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestListCasesValidatesStage(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.ListCases(context.Background(), "NOT_A_STAGE", 10, 0)
	assert.ErrorIs(t, err, domainwf.ErrInvalidStage)

	_, err = f.svc.ListCases(context.Background(), "RECEIVED", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "RECEIVED", f.cases.listStage)
	assert.Equal(t, 100, f.cases.listLimit)
}

func TestRetryAndCancelDelegate(t *testing.T) {
	f := newServiceFixture()

	require.NoError(t, f.svc.RetryCase(context.Background(), "case-1"))
	require.NoError(t, f.svc.CancelCase(context.Background(), "case-1", "ops.jane", "duplicate"))
	assert.Equal(t, []string{"case-1"}, f.engine.retried)
	assert.Equal(t, []string{"case-1"}, f.engine.cancelled)
}
