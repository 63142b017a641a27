// Package document handles raw court document content: pulling text out of
// PDFs and a first-pass type detection that picks the extraction prompt.
package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

var pdfMagic = []byte("%PDF")

// Reader extracts plain text from uploaded court documents
type Reader struct {
	logger *zap.Logger
}

// NewReader creates a new document reader
func NewReader(logger *zap.Logger) *Reader {
	return &Reader{logger: logger}
}

// Text returns the document's plain text. PDF content is rendered page by
// page; anything else is assumed to already be text (scanned intake often
// arrives pre-OCRed).
func (r *Reader) Text(content []byte) (string, error) {
	if !bytes.HasPrefix(content, pdfMagic) {
		return string(content), nil
	}

	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var sb strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			r.logger.Warn("Failed to extract page text", zap.Int("page", i), zap.Error(err))
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text extracted from PDF (%d pages)", doc.NumPage())
	}

	r.logger.Debug("Extracted text from PDF",
		zap.Int("pages", doc.NumPage()),
		zap.Int("chars", len(text)))
	return text, nil
}
