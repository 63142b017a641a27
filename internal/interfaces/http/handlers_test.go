package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/application/service"
	"github.com/dkrause/garnishflow/internal/domain/entity"
	"github.com/dkrause/garnishflow/internal/domain/workflow"
)

type stubCaseService struct {
	submitted *service.SubmitDocumentRequest
	cancelErr error
	retryErr  error
	getErr    error
	listErr   error
	listStage string
}

func (s *stubCaseService) SubmitDocument(_ context.Context, req service.SubmitDocumentRequest) (*entity.Case, error) {
	s.submitted = &req
	if req.CreditorName == "" {
		return nil, fmt.Errorf("%w: creditor name is required", port.ErrValidation)
	}
	return &entity.Case{ID: "case-1", CaseNumber: req.CaseNumber, Stage: "RECEIVED"}, nil
}

func (s *stubCaseService) GetCase(_ context.Context, caseID string) (*service.CaseDetail, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &service.CaseDetail{
		Case: &entity.Case{ID: caseID, Stage: "EXTRACTING"},
		Timeline: []*entity.TimelineEntry{
			{CaseID: caseID, FromStage: "RECEIVED", ToStage: "EXTRACTING", Outcome: entity.OutcomeApplied},
		},
	}, nil
}

func (s *stubCaseService) ListCases(_ context.Context, stage string, _, _ int) ([]*entity.Case, error) {
	s.listStage = stage
	if s.listErr != nil {
		return nil, s.listErr
	}
	return []*entity.Case{{ID: "case-1", Stage: "RECEIVED"}}, nil
}

func (s *stubCaseService) RetryCase(context.Context, string) error { return s.retryErr }

func (s *stubCaseService) CancelCase(context.Context, string, string, string) error {
	return s.cancelErr
}

func newTestServer(svc service.CaseService) *Server {
	return NewServer(DefaultServerConfig(), svc, zap.NewNop())
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("document", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestSubmitDocument(t *testing.T) {
	svc := &stubCaseService{}
	srv := newTestServer(svc)

	body, contentType := multipartBody(t, map[string]string{
		"case_number":   "GRN-2024-001",
		"account_id":    "ACC-1001",
		"amount":        "750.00",
		"creditor_name": "Ajax Collections",
	}, "order.pdf", "%PDF-1.4 garnishment order")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.submitted)
	assert.Equal(t, "order.pdf", svc.submitted.Filename)
	assert.Equal(t, "GRN-2024-001", svc.submitted.CaseNumber)
	assert.True(t, svc.submitted.Amount.Equal(decimal.RequireFromString("750.00")))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestSubmitDocumentMissingFile(t *testing.T) {
	srv := newTestServer(&stubCaseService{})

	body, contentType := multipartBody(t, map[string]string{
		"amount":        "100",
		"creditor_name": "Ajax",
	}, "", "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitDocumentInvalidAmount(t *testing.T) {
	srv := newTestServer(&stubCaseService{})

	body, contentType := multipartBody(t, map[string]string{
		"amount":        "not-a-number",
		"creditor_name": "Ajax",
	}, "order.pdf", "x")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCase(t *testing.T) {
	srv := newTestServer(&stubCaseService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cases/case-1", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestGetCaseNotFound(t *testing.T) {
	srv := newTestServer(&stubCaseService{getErr: port.ErrNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cases/nope", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCasesPassesStageFilter(t *testing.T) {
	svc := &stubCaseService{}
	srv := newTestServer(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cases?stage=RECEIVED&limit=10", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "RECEIVED", svc.listStage)
}

func TestListCasesUnknownStageBadRequest(t *testing.T) {
	srv := newTestServer(&stubCaseService{
		listErr: fmt.Errorf("%w: %q", workflow.ErrInvalidStage, "NOT_A_STAGE"),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cases?stage=NOT_A_STAGE", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelCaseIllegalTransitionConflicts(t *testing.T) {
	srv := newTestServer(&stubCaseService{
		cancelErr: fmt.Errorf("%w: cannot cancel after settlement", workflow.ErrIllegalTransition),
	})

	body := strings.NewReader(`{"requested_by":"ops.jane","reason":"duplicate filing"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases/case-1/cancel", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelCaseRequiresReason(t *testing.T) {
	srv := newTestServer(&stubCaseService{})

	body := strings.NewReader(`{"requested_by":"ops.jane"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases/case-1/cancel", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRetryCaseNotFound(t *testing.T) {
	srv := newTestServer(&stubCaseService{retryErr: port.ErrNotFound})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases/nope/retry", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(&stubCaseService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
