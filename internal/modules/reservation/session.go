package reservation

import (
	"time"

	"pcbooking/internal/domain"
)

// DefaultWindow is how long a session accepts payment after it is opened.
const DefaultWindow = 600 * time.Second

type State string

const (
	StateSelection State = "selection"
	StatePayment   State = "payment"
	StateSuccess   State = "success"
	StateExpired   State = "expired"
	StateFailed    State = "failed"
)

type FailureReason string

const (
	FailureDeclined    FailureReason = "declined"
	FailureInvalidCard FailureReason = "invalid_card"
	FailureConflict    FailureReason = "conflict"
	FailureUnknown     FailureReason = "unknown"
)

// Retryable reports whether a failed session may submit again.
func (r FailureReason) Retryable() bool {
	return r == FailureDeclined || r == FailureInvalidCard
}

// Session is the time-boxed state between selection and payment. It travels
// to the client inside the signed reservation token.
type Session struct {
	ID          string             `json:"id"`
	ServiceType domain.ServiceType `json:"serviceType"`
	Date        string             `json:"date"`
	Time        string             `json:"time"`
	IsRush      bool               `json:"isRush"`
	Contact     domain.Contact     `json:"contact"`
	TotalCents  int64              `json:"totalCents"`
	CreatedAt   time.Time          `json:"createdAt"`
	ExpiresAt   time.Time          `json:"expiresAt"`
}

// Expired is true from ExpiresAt onwards.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *Session) Remaining(now time.Time) time.Duration {
	if d := s.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
