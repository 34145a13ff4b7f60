package reservation

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrInvalidToken       = errors.New("invalid reservation token")
	ErrSessionExpired     = errors.New("reservation session expired")
	ErrSessionClosed      = errors.New("reservation session closed")
	ErrSessionLocked      = errors.New("reservation session locked")
	ErrSubmissionInFlight = errors.New("payment submission already in flight")
	ErrPaymentDeclined    = errors.New("payment declined")
	ErrCommitConflict     = errors.New("slot taken after payment")
	ErrOutcomeUnknown     = errors.New("payment outcome unknown")
	ErrInvalidTransition  = errors.New("invalid session transition")
)

// ValidationError carries the selection fields that failed, keyed by JSON path.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
