package aggregate

import "fmt"

// DomainError is the typed rejection a Handler.Validate returns when a
// command fails an invariant. Kind is a closed tag (spec §4.4:
// "NotFound, InvariantViolated, AlreadyExists, PreconditionFailed"); it is
// exported so command-handling callers can branch on it without string
// matching.
type DomainError struct {
	Kind    DomainErrorKind
	Message string
}

// DomainErrorKind enumerates the rejection reasons a Handler may report.
type DomainErrorKind string

const (
	NotFound           DomainErrorKind = "NotFound"
	AlreadyExists      DomainErrorKind = "AlreadyExists"
	InvariantViolated  DomainErrorKind = "InvariantViolated"
	PreconditionFailed DomainErrorKind = "PreconditionFailed"
)

func (e *DomainError) Error() string {
	return fmt.Sprintf("aggregate: %s: %s", e.Kind, e.Message)
}

// NewDomainError builds a DomainError with the given kind and message.
func NewDomainError(kind DomainErrorKind, format string, args ...any) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Conflict is returned by Runtime.Handle when every retry attempt against
// ConcurrencyConflict has been exhausted (spec §4.4, step 5).
type Conflict struct {
	AggregateID string
	Attempts    int
}

func (e *Conflict) Error() string {
	return fmt.Sprintf("aggregate: %s: exhausted %d concurrency-conflict retries", e.AggregateID, e.Attempts)
}
