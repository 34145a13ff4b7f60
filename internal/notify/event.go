package notify

import (
	"time"

	"pcbooking/internal/domain"

	"github.com/google/uuid"
)

const EventBookingConfirmed = "booking.confirmed"

// Event is the structured summary sent for every confirmed booking.
type Event struct {
	EventID      string         `json:"eventId"`
	Type         string         `json:"type"`
	BookingID    string         `json:"bookingId"`
	Service      string         `json:"service"`
	ServiceLabel string         `json:"serviceLabel"`
	TotalCents   int64          `json:"totalCents"`
	Total        string         `json:"total"`
	IsRush       bool           `json:"isRush"`
	Contact      domain.Contact `json:"contact"`
	Date         string         `json:"date"`
	Time         string         `json:"time"`
	BookedAt     time.Time      `json:"bookedAt"`
	Timestamp    time.Time      `json:"timestamp"`
}

func NewEvent(b domain.Booking, now time.Time) Event {
	return Event{
		EventID:      uuid.NewString(),
		Type:         EventBookingConfirmed,
		BookingID:    b.ID,
		Service:      string(b.ServiceType),
		ServiceLabel: b.ServiceType.Label(),
		TotalCents:   b.TotalCents,
		Total:        domain.FormatCents(b.TotalCents),
		IsRush:       b.IsRush,
		Contact:      b.Contact,
		Date:         b.Date,
		Time:         b.Time,
		BookedAt:     b.CreatedAt,
		Timestamp:    now.UTC(),
	}
}
