package reservation

import (
	"time"

	"pcbooking/internal/domain"
	"pcbooking/internal/modules/payment"
)

// TokenHeader carries the reservation token on session-scoped requests.
const TokenHeader = "X-Reservation-Token"

type ContactInput struct {
	Handle string `json:"handle" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
}

// Selection is what the customer picks before paying. Date and Time may be
// omitted for rush bookings.
type Selection struct {
	ServiceType domain.ServiceType `json:"serviceType" validate:"required,oneof=optimization repair"`
	Date        string             `json:"date" validate:"required_unless=IsRush true"`
	Time        string             `json:"time" validate:"required_unless=IsRush true"`
	IsRush      bool               `json:"isRush"`
	Contact     ContactInput       `json:"contact"`
}

type PayRequest struct {
	Token string       `json:"token"`
	Card  payment.Card `json:"card"`
}

// SessionView is the client-facing rendering of a session.
type SessionView struct {
	ID               string             `json:"id"`
	State            State              `json:"state"`
	ServiceType      domain.ServiceType `json:"serviceType"`
	ServiceLabel     string             `json:"serviceLabel"`
	Date             string             `json:"date"`
	Time             string             `json:"time"`
	IsRush           bool               `json:"isRush"`
	Contact          domain.Contact     `json:"contact"`
	TotalCents       int64              `json:"totalCents"`
	CreatedAt        time.Time          `json:"createdAt"`
	ExpiresAt        time.Time          `json:"expiresAt"`
	RemainingSeconds int                `json:"remainingSeconds"`
}

type OpenResult struct {
	Token   string      `json:"token"`
	Session SessionView `json:"session"`
}

func newSessionView(s *Session, state State, now time.Time) SessionView {
	return SessionView{
		ID:               s.ID,
		State:            state,
		ServiceType:      s.ServiceType,
		ServiceLabel:     s.ServiceType.Label(),
		Date:             s.Date,
		Time:             s.Time,
		IsRush:           s.IsRush,
		Contact:          s.Contact,
		TotalCents:       s.TotalCents,
		CreatedAt:        s.CreatedAt,
		ExpiresAt:        s.ExpiresAt,
		RemainingSeconds: int(s.Remaining(now).Seconds()),
	}
}
