package payment

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrCardInvalid      = errors.New("card details invalid")
	ErrUnknownReference = errors.New("unknown authorization reference")
)

// DeclineMessage is shown to the customer on a processor decline.
const DeclineMessage = "Payment declined. Please check your card details and try again."

// CardError lists the card fields that failed local validation.
type CardError struct {
	Fields map[string]string
}

func (e *CardError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "card details invalid: " + strings.Join(parts, "; ")
}

func (e *CardError) Unwrap() error { return ErrCardInvalid }
