package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/application/service"
	"github.com/dkrause/garnishflow/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	caseService service.CaseService
	logger      *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(caseService service.CaseService, logger *zap.Logger) *Handlers {
	return &Handlers{
		caseService: caseService,
		logger:      logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SubmitDocumentForm carries the multipart fields accompanying the uploaded
// court document
type SubmitDocumentForm struct {
	CaseNumber   string `form:"case_number"`
	AccountID    string `form:"account_id"`
	Amount       string `form:"amount" binding:"required"`
	CreditorName string `form:"creditor_name" binding:"required"`
	CreditorRef  string `form:"creditor_reference"`
}

// ListCasesRequest represents query parameters for listing cases
type ListCasesRequest struct {
	Stage  string `form:"stage"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// CancelCaseRequest carries the operator cancel parameters
type CancelCaseRequest struct {
	RequestedBy string `json:"requested_by" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// SubmitDocument handles POST /api/v1/cases
func (h *Handlers) SubmitDocument(c *gin.Context) {
	var form SubmitDocumentForm
	if err := c.ShouldBind(&form); err != nil {
		h.logger.Error("Invalid submission form", zap.Error(err))
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "amount and creditor_name are required",
		})
		return
	}

	amount, err := decimal.NewFromString(form.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid amount",
		})
		return
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "document file is required",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded document", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to read document",
		})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read uploaded document", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to read document",
		})
		return
	}

	created, err := h.caseService.SubmitDocument(c.Request.Context(), service.SubmitDocumentRequest{
		Filename:     fileHeader.Filename,
		Content:      content,
		CaseNumber:   form.CaseNumber,
		AccountID:    form.AccountID,
		Amount:       amount,
		CreditorName: form.CreditorName,
		CreditorRef:  form.CreditorRef,
	})
	if err != nil {
		h.respondError(c, err, "failed to submit document")
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    created,
	})
}

// GetCase handles GET /api/v1/cases/:id
func (h *Handlers) GetCase(c *gin.Context) {
	detail, err := h.caseService.GetCase(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to retrieve case")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    detail,
	})
}

// ListCases handles GET /api/v1/cases
func (h *Handlers) ListCases(c *gin.Context) {
	var req ListCasesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	cases, err := h.caseService.ListCases(c.Request.Context(), req.Stage, req.Limit, req.Offset)
	if err != nil {
		h.respondError(c, err, "failed to list cases")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    cases,
	})
}

// RetryCase handles POST /api/v1/cases/:id/retry
func (h *Handlers) RetryCase(c *gin.Context) {
	if err := h.caseService.RetryCase(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "failed to retry case")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// CancelCase handles POST /api/v1/cases/:id/cancel
func (h *Handlers) CancelCase(c *gin.Context) {
	var req CancelCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "requested_by and reason are required",
		})
		return
	}

	if err := h.caseService.CancelCase(c.Request.Context(), c.Param("id"), req.RequestedBy, req.Reason); err != nil {
		h.respondError(c, err, "failed to cancel case")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// respondError maps service errors onto HTTP statuses
func (h *Handlers) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, port.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   "case not found",
		})
	case errors.Is(err, workflow.ErrIllegalTransition):
		c.JSON(http.StatusConflict, Response{
			Success: false,
			Error:   err.Error(),
		})
	case errors.Is(err, port.ErrValidation), errors.Is(err, workflow.ErrInvalidStage):
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
	default:
		h.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   fallback,
		})
	}
}
