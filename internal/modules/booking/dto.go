package booking

import (
	"time"

	"pcbooking/internal/domain"
)

type ContactRequest struct {
	Handle string `json:"handle" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
}

// CreateBookingRequest is an operator's manual entry. Rush bookings may omit
// date and time.
type CreateBookingRequest struct {
	ServiceType domain.ServiceType `json:"serviceType" validate:"required,oneof=optimization repair"`
	Date        string             `json:"date" validate:"required_unless=IsRush true"`
	Time        string             `json:"time" validate:"required_unless=IsRush true"`
	IsRush      bool               `json:"isRush"`
	Contact     ContactRequest     `json:"contact"`
}

// PublicBooking is what anonymous callers see: no contact details or payment data.
type PublicBooking struct {
	ID          string             `json:"id"`
	ServiceType domain.ServiceType `json:"serviceType"`
	Date        string             `json:"date"`
	Time        string             `json:"time"`
	IsRush      bool               `json:"isRush"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
}

func NewPublicBooking(b domain.Booking) PublicBooking {
	return PublicBooking{
		ID:          b.ID,
		ServiceType: b.ServiceType,
		Date:        b.Date,
		Time:        b.Time,
		IsRush:      b.IsRush,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
	}
}

type SlotView struct {
	Time  string `json:"time"`
	Taken bool   `json:"taken"`
}

type Stats struct {
	Confirmed    int            `json:"confirmed"`
	Cancelled    int            `json:"cancelled"`
	Rush         int            `json:"rush"`
	ByService    map[string]int `json:"byService"`
	RevenueCents int64          `json:"revenueCents"`
	Revenue      string         `json:"revenue"`
}
