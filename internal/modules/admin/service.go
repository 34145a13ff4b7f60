package admin

import (
	"context"

	"pcbooking/internal/domain"
	"pcbooking/internal/modules/auth"

	"go.uber.org/zap"
)

type Service struct {
	bookings BookingManager
	accounts AccountCreator
	feed     FeedHub
}

func NewService(bookings BookingManager, accounts AccountCreator, feed FeedHub) *Service {
	return &Service{bookings: bookings, accounts: accounts, feed: feed}
}

// ListBookings returns full records, contact details and cancelled ones included.
func (s *Service) ListBookings(ctx context.Context, f BookingListFilter) ([]domain.Booking, error) {
	return s.bookings.ListAll(ctx, f.Date)
}

func (s *Service) CancelBooking(ctx context.Context, adminID int64, id string) (*domain.Booking, error) {
	b, err := s.bookings.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	zap.L().Info("admin cancelled booking", zap.Int64("admin_id", adminID), zap.String("booking_id", id))
	return b, nil
}

func (s *Service) DeleteBooking(ctx context.Context, adminID int64, id string) error {
	if err := s.bookings.Delete(ctx, id); err != nil {
		return err
	}
	zap.L().Info("admin deleted booking", zap.Int64("admin_id", adminID), zap.String("booking_id", id))
	return nil
}

func (s *Service) CreateAdmin(ctx context.Context, adminID int64, req auth.CreateAdminRequest) (*domain.User, error) {
	return s.accounts.CreateAdmin(ctx, &adminID, req)
}

func (s *Service) CreateTestBooking(ctx context.Context) (*domain.Booking, error) {
	return s.bookings.CreateTestBooking(ctx)
}

func (s *Service) GetStats(ctx context.Context) (*StatisticsResponse, error) {
	st, err := s.bookings.Stats(ctx)
	if err != nil {
		return nil, err
	}
	resp := &StatisticsResponse{Stats: *st}
	if s.feed != nil {
		resp.FeedClients = s.feed.OnlineCount()
	}
	return resp, nil
}
