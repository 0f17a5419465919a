package contact

import (
	"errors"
	"fmt"

	"github.com/chatdesk/backend/internal/domain/shared"
)

// Identity resolution errors
var (
	// ErrMalformedIdentifier is returned for empty or unparseable raw identifiers
	ErrMalformedIdentifier = shared.NewDomainError("MALFORMED_IDENTIFIER", "Raw identifier is empty or malformed")
	// ErrStaleContact is returned when an association targets a contact that no longer exists
	ErrStaleContact = shared.NewDomainError("STALE_CONTACT", "Contact no longer exists")
	// ErrTransportUnavailable marks a failed or timed out transport query
	ErrTransportUnavailable = shared.NewDomainError("TRANSPORT_UNAVAILABLE", "Transport session is unavailable")
	// ErrPersistence marks a failure of the underlying store
	ErrPersistence = shared.NewDomainError("PERSISTENCE_ERROR", "Contact store failed")
	// ErrGroupIdentity is returned when a linked-identifier operation targets a group
	ErrGroupIdentity = shared.NewDomainError("GROUP_IDENTITY", "Group identities do not take part in linked identifier resolution")
)

// PersistenceError wraps a store failure with the operation that failed.
// errors.Is matches both ErrPersistence and the underlying cause.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("contact: %s: %v", e.Op, e.Err)
}

// Unwrap exposes ErrPersistence and the cause
func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// NewPersistenceError wraps err, returning nil for a nil err
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
