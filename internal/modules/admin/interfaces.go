package admin

import (
	"context"

	"pcbooking/internal/domain"
	"pcbooking/internal/modules/auth"
	"pcbooking/internal/modules/booking"

	"github.com/gorilla/websocket"
)

// BookingManager is the slice of the booking service the admin panel drives.
type BookingManager interface {
	ListAll(ctx context.Context, date string) ([]domain.Booking, error)
	Cancel(ctx context.Context, id string) (*domain.Booking, error)
	Delete(ctx context.Context, id string) error
	CreateTestBooking(ctx context.Context) (*domain.Booking, error)
	Stats(ctx context.Context) (*booking.Stats, error)
}

type AccountCreator interface {
	CreateAdmin(ctx context.Context, createdBy *int64, req auth.CreateAdminRequest) (*domain.User, error)
}

// FeedHub holds the live admin feed connections.
type FeedHub interface {
	Register(userID int64, conn *websocket.Conn)
	Unregister(userID int64, conn *websocket.Conn)
	OnlineCount() int
}
