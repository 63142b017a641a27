// Package openai implements the document extraction collaborator on the
// OpenAI chat completion API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/document"
)

// textReader abstracts PDF-to-text so the extractor can be tested without
// rendering real PDFs
type textReader interface {
	Text(content []byte) (string, error)
}

// chatClient is the slice of the OpenAI client the extractor uses
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Extractor implements port.ExtractionService
type Extractor struct {
	client chatClient
	reader textReader
	model  string
	logger *zap.Logger
}

// NewExtractor creates a new AI document extractor
func NewExtractor(apiKey, model string, logger *zap.Logger) *Extractor {
	return &Extractor{
		client: openai.NewClient(apiKey),
		reader: document.NewReader(logger),
		model:  model,
		logger: logger,
	}
}

// extractionPayload is the JSON shape the model is instructed to return
type extractionPayload struct {
	DocumentType    string          `json:"document_type"`
	CustomerName    string          `json:"customer_name"`
	AccountNumber   string          `json:"account_number"`
	CaseNumber      string          `json:"case_number"`
	CreditorName    string          `json:"creditor_name"`
	Amount          json.Number     `json:"amount"`
	DateFiled       string          `json:"date_filed"`
	BankName        string          `json:"bank_name"`
	ConfidenceScore json.Number     `json:"confidence_score"`
}

// Extract turns a raw court document into structured fields with confidence
func (e *Extractor) Extract(ctx context.Context, content []byte) (*port.ExtractionResult, error) {
	text, err := e.reader.Text(content)
	if err != nil {
		return nil, port.PermanentError("extraction", "read", err)
	}

	docType := document.DetectType(text)
	e.logger.Debug("Detected document type", zap.String("type", docType))

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: promptFor(docType, text)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, classifyAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, port.TransientError("extraction", "classify", fmt.Errorf("empty completion response"))
	}

	var payload extractionPayload
	content2 := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content2), &payload); err != nil {
		e.logger.Error("Model returned unparseable extraction",
			zap.String("content", content2), zap.Error(err))
		return nil, port.PermanentError("extraction", "classify",
			fmt.Errorf("unparseable extraction result: %w", err))
	}

	confidence, _ := payload.ConfidenceScore.Float64()
	confidence = confidence / 100
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	classification := payload.DocumentType
	if classification == "" {
		classification = docType
	}

	fields := map[string]string{
		"customer_name":  strings.TrimSpace(payload.CustomerName),
		"account_number": strings.TrimSpace(payload.AccountNumber),
		"case_number":    strings.TrimSpace(payload.CaseNumber),
		"creditor_name":  strings.TrimSpace(payload.CreditorName),
		"amount":         payload.Amount.String(),
		"date_filed":     strings.TrimSpace(payload.DateFiled),
		"bank_name":      strings.TrimSpace(payload.BankName),
	}

	// Per-field confidence from a single-shot completion: the model reports
	// one score, empty fields get zero.
	fieldConfidence := make(map[string]float64, len(fields))
	for k, v := range fields {
		if v != "" {
			fieldConfidence[k] = confidence
		} else {
			fieldConfidence[k] = 0
		}
	}

	e.logger.Info("Document extracted",
		zap.String("classification", classification),
		zap.Float64("confidence", confidence),
		zap.String("case_number", fields["case_number"]))

	return &port.ExtractionResult{
		Fields:          fields,
		FieldConfidence: fieldConfidence,
		Confidence:      confidence,
		Classification:  classification,
	}, nil
}

// classifyAPIError maps OpenAI failures onto the retry taxonomy: rate limits
// and server errors are worth retrying, everything else is not.
func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return port.TransientError("extraction", "classify", err)
		}
		return port.PermanentError("extraction", "classify", err)
	}
	// Transport-level failure: connection reset, timeout.
	return port.TransientError("extraction", "classify", err)
}

var _ port.ExtractionService = (*Extractor)(nil)
