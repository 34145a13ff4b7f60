package reservation

import (
	"context"

	"pcbooking/internal/domain"
)

// BookingStore is the part of the reservation store the customer flow needs.
// Put must be an atomic conditional write that fails with
// repository.ErrSlotTaken when the slot is already claimed.
type BookingStore interface {
	Put(ctx context.Context, b *domain.Booking) error
	GetByPrefix(ctx context.Context, prefix string) ([]domain.Booking, error)
}

// Notifier is told about every confirmed booking. It must not block.
type Notifier interface {
	Notify(b domain.Booking)
}
