package entity

import "time"

// Document classification labels produced by extraction
const (
	DocTypeGarnishmentOrder = "garnishment_order"
	DocTypeCourtNotice      = "court_notice"
	DocTypeFreezeOrder      = "account_freeze_order"
	DocTypeUnknown          = "unknown"
)

// Document is an ingested court document. Immutable once extraction succeeds;
// a failed extraction produces no Document, only a timeline error record.
type Document struct {
	ID             string            `json:"id"`
	CaseID         string            `json:"case_id"`
	Filename       string            `json:"filename"`
	ContentPath    string            `json:"content_path"`
	Classification string            `json:"classification"`
	Fields         map[string]string `json:"fields"`
	// FieldConfidence holds per-field confidence; Confidence is the overall score.
	FieldConfidence map[string]float64 `json:"field_confidence,omitempty"`
	Confidence      float64            `json:"confidence"`
	ExtractedAt     time.Time          `json:"extracted_at"`
	CreatedAt       time.Time          `json:"created_at"`
}
