package port

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned by CompareAndSwap when the stored version
	// has moved since the case was loaded. Always handled by recomputing the
	// transition, never surfaced to callers.
	ErrVersionConflict = errors.New("version conflict")

	// ErrDuplicateTask is returned when a notification task with the same
	// dedup key already exists
	ErrDuplicateTask = errors.New("duplicate notification task")

	// ErrDuplicateEntry is returned by the timeline when an entry with the
	// same idempotency key already exists: a concurrent applier won the race
	// after this one's pre-check. Handled like a version conflict, never
	// surfaced to callers.
	ErrDuplicateEntry = errors.New("duplicate timeline entry")

	// ErrValidation marks malformed or low-confidence extraction output
	ErrValidation = errors.New("validation error")

	// ErrVerificationFailure marks a failed customer match
	ErrVerificationFailure = errors.New("verification failure")

	// ErrInsufficientFunds marks a balance below the owed amount
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrPaymentFailure marks a payment that could not be settled
	ErrPaymentFailure = errors.New("payment failure")
)

// CollaboratorError wraps a failure from an external collaborator with its
// retry classification. Transient failures (timeouts, 5xx-equivalents) are
// retried with backoff; permanent failures (validation rejections, explicit
// denials) transition the case without retry.
type CollaboratorError struct {
	Collaborator string
	Op           string
	Transient    bool
	Err          error
}

func (e *CollaboratorError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s.%s: %s failure: %v", e.Collaborator, e.Op, kind, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// TransientError builds a retryable collaborator error
func TransientError(collaborator, op string, err error) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Op: op, Transient: true, Err: err}
}

// PermanentError builds a non-retryable collaborator error
func PermanentError(collaborator, op string, err error) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Op: op, Transient: false, Err: err}
}

// IsTransient reports whether the error should be retried. Collaborator errors
// carry their own classification; context deadline expiry and network timeouts
// are transient by definition.
func IsTransient(err error) bool {
	var collab *CollaboratorError
	if errors.As(err, &collab) {
		return collab.Transient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
