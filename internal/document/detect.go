package document

import (
	"strings"

	"github.com/dkrause/garnishflow/internal/domain/entity"
)

// DetectType classifies a court document from its text content. Keyword
// detection runs before the AI extraction so the right extraction prompt can
// be chosen; the AI's own classification later overrides this when it is
// confident.
func DetectType(text string) string {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "writ of execution"),
		strings.Contains(lower, "earnings withholding"):
		return entity.DocTypeGarnishmentOrder
	case strings.Contains(lower, "notice to financial institution"),
		strings.Contains(lower, "levy notice"):
		return entity.DocTypeCourtNotice
	case strings.Contains(lower, "account freeze"),
		strings.Contains(lower, "freeze order"):
		return entity.DocTypeFreezeOrder
	default:
		return entity.DocTypeUnknown
	}
}
