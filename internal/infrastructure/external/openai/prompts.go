package openai

import (
	"fmt"

	"github.com/dkrause/garnishflow/internal/domain/entity"
)

const systemPrompt = "You are an expert legal document analyzer. Extract information accurately and return only valid JSON."

const garnishmentOrderPrompt = `Analyze this garnishment order and extract the following information in JSON format:

Document text:
%s

Please extract:
1. document_type ("garnishment_order")
2. customer_name (the judgment debtor)
3. account_number
4. case_number (court docket number)
5. creditor_name (the judgment creditor)
6. amount (total amount to be garnished, numeric)
7. date_filed
8. bank_name (the garnishee institution)
9. confidence_score (0-100, your confidence in the extraction)

Return only valid JSON.`

const courtNoticePrompt = `Analyze this court notice to a financial institution and extract the following information in JSON format:

Document text:
%s

Please extract:
1. document_type ("court_notice")
2. customer_name (the named account holder)
3. account_number
4. case_number
5. creditor_name (the party on whose behalf the notice issues)
6. amount (levied amount if specified, numeric)
7. date_filed
8. bank_name
9. confidence_score (0-100, your confidence in the extraction)

Return only valid JSON.`

const freezeOrderPrompt = `Analyze this account freeze order and extract the following information in JSON format:

Document text:
%s

Please extract:
1. document_type ("account_freeze_order")
2. customer_name
3. account_number (the account to be frozen)
4. case_number
5. creditor_name
6. amount (secured amount if specified, numeric)
7. date_filed
8. bank_name
9. confidence_score (0-100, your confidence in the extraction)

Return only valid JSON.`

const genericPrompt = `Analyze this legal document and extract the following information in JSON format:

Document text:
%s

Please extract:
1. document_type (e.g. "garnishment_order", "court_notice", "account_freeze_order", "legal_notice")
2. customer_name
3. account_number
4. case_number
5. creditor_name
6. amount (if specified, numeric)
7. date_filed
8. bank_name
9. confidence_score (0-100, your confidence in the extraction)

Return only valid JSON.`

// promptFor picks the extraction prompt matching the detected document type
func promptFor(docType, text string) string {
	switch docType {
	case entity.DocTypeGarnishmentOrder:
		return fmt.Sprintf(garnishmentOrderPrompt, text)
	case entity.DocTypeCourtNotice:
		return fmt.Sprintf(courtNoticePrompt, text)
	case entity.DocTypeFreezeOrder:
		return fmt.Sprintf(freezeOrderPrompt, text)
	default:
		return fmt.Sprintf(genericPrompt, text)
	}
}
