package payment

import "context"

// Adapter authorizes charges against the external processor.
//
// Authorize is called at most once per customer submission and never retries
// on its own. A nil error with Approved=false is a decline. A non-nil error
// means the outcome is unknown: the charge may or may not have happened.
type Adapter interface {
	Authorize(ctx context.Context, amountCents int64, card Card) (Authorization, error)
}

// Voider is implemented by adapters that can cancel an approved authorization.
type Voider interface {
	Void(ctx context.Context, reference string) error
}
