package event

// Type identifies the type of case event
type Type string

// Collaborator calls are made synchronously inside the pipeline, so the only
// events are the ones that start or re-drive a case.
const (
	TypeDocumentIngested Type = "document.ingested"
	TypeRetryRequested   Type = "case.retry_requested"
	TypeCancelRequested  Type = "case.cancel_requested"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeDocumentIngested,
		TypeRetryRequested,
		TypeCancelRequested:
		return true
	default:
		return false
	}
}
