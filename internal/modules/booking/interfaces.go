package booking

import (
	"context"

	"pcbooking/internal/domain"
)

// BookingRepository defines the interface for booking operations
type BookingRepository interface {
	Put(ctx context.Context, b *domain.Booking) error
	GetByPrefix(ctx context.Context, prefix string) ([]domain.Booking, error)
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	Delete(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) (*domain.Booking, error)
}

// Notifier is told about every confirmed booking.
type Notifier interface {
	Notify(b domain.Booking)
}
