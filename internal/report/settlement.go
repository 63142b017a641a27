// Package report exports closure workbooks for settled garnishment cases.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/domain/entity"
)

const sheetName = "Settlement"

// SettlementReporter writes one Excel workbook per closed case: a summary
// block and the full audit timeline.
type SettlementReporter struct {
	outputDir string
	logger    *zap.Logger
}

// NewSettlementReporter creates a reporter writing workbooks under outputDir
func NewSettlementReporter(outputDir string, logger *zap.Logger) (*SettlementReporter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &SettlementReporter{
		outputDir: outputDir,
		logger:    logger,
	}, nil
}

// Generate builds the closure report and returns the written workbook's path
func (r *SettlementReporter) Generate(_ context.Context, c *entity.Case, history []*entity.TimelineEntry) (string, error) {
	if c == nil {
		return "", fmt.Errorf("case is required")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return "", fmt.Errorf("rename sheet: %w", err)
	}

	r.setCell(f, "A1", "Garnishment Settlement Report")
	r.setCell(f, "A3", "Case Number")
	r.setCell(f, "B3", c.CaseNumber)
	r.setCell(f, "A4", "Case ID")
	r.setCell(f, "B4", c.ID)
	r.setCell(f, "A5", "Final Stage")
	r.setCell(f, "B5", c.Stage)
	r.setCell(f, "A6", "Customer")
	r.setCell(f, "B6", c.CustomerID)
	r.setCell(f, "A7", "Account")
	r.setCell(f, "B7", c.AccountID)
	r.setCell(f, "A8", "Creditor")
	r.setCell(f, "B8", c.Creditor.Name)
	r.setCell(f, "A9", "Creditor Reference")
	r.setCell(f, "B9", c.Creditor.Reference)
	r.setCell(f, "A10", "Garnished Amount")
	r.setCell(f, "B10", c.Amount.StringFixed(2))
	r.setCell(f, "A11", "Payment Reference")
	r.setCell(f, "B11", c.PaymentReference)
	r.setCell(f, "A12", "Opened")
	r.setCell(f, "B12", c.CreatedAt.Format("2006-01-02 15:04:05"))
	r.setCell(f, "A13", "Closed")
	r.setCell(f, "B13", c.UpdatedAt.Format("2006-01-02 15:04:05"))

	// Timeline table.
	headerRow := 15
	headers := []string{"Timestamp", "Actor", "From", "To", "Outcome", "Detail"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		r.setCell(f, cell, h)
	}
	for i, entry := range history {
		row := headerRow + 1 + i
		values := []string{
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Actor,
			entry.FromStage,
			entry.ToStage,
			entry.Outcome,
			entry.Detail,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			r.setCell(f, cell, v)
		}
	}

	outputPath := filepath.Join(r.outputDir, fmt.Sprintf("%s_settlement.xlsx", c.ID))
	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	r.logger.Info("Settlement report written",
		zap.String("case_id", c.ID),
		zap.String("case_number", c.CaseNumber),
		zap.String("path", outputPath))
	return outputPath, nil
}

func (r *SettlementReporter) setCell(f *excelize.File, cell, value string) {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		r.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}
