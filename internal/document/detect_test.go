package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/domain/entity"
)

func TestDetectType(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "writ of execution",
			text: "WRIT OF EXECUTION\nThe Sheriff is commanded to satisfy the judgment...",
			want: entity.DocTypeGarnishmentOrder,
		},
		{
			name: "earnings withholding order",
			text: "This Earnings Withholding Order is directed to the employer of the judgment debtor.",
			want: entity.DocTypeGarnishmentOrder,
		},
		{
			name: "levy notice",
			text: "LEVY NOTICE: pursuant to court order, funds held are subject to levy.",
			want: entity.DocTypeCourtNotice,
		},
		{
			name: "notice to financial institution",
			text: "NOTICE TO FINANCIAL INSTITUTION regarding account of John Smith",
			want: entity.DocTypeCourtNotice,
		},
		{
			name: "freeze order",
			text: "The court hereby issues a Freeze Order against the named accounts.",
			want: entity.DocTypeFreezeOrder,
		},
		{
			name: "account freeze directive",
			text: "Immediate account freeze is required per the attached judgment.",
			want: entity.DocTypeFreezeOrder,
		},
		{
			name: "unrelated text",
			text: "Monthly account statement for ACC-1001",
			want: entity.DocTypeUnknown,
		},
		{
			name: "empty",
			text: "",
			want: entity.DocTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectType(tt.text))
		})
	}
}

func TestReader_PlainTextPassthrough(t *testing.T) {
	r := NewReader(zap.NewNop())

	text, err := r.Text([]byte("WRIT OF EXECUTION\ncase GRN-2024-001"))
	assert.NoError(t, err)
	assert.Contains(t, text, "WRIT OF EXECUTION")
}

func TestReader_RejectsBrokenPDF(t *testing.T) {
	r := NewReader(zap.NewNop())

	_, err := r.Text([]byte("%PDF-1.7 this is not a real pdf"))
	assert.Error(t, err)
}
