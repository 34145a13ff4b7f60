package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"pcbooking/internal/domain"
	"pcbooking/internal/pkg/validator"
	"pcbooking/internal/repository"

	"go.uber.org/zap"
)

// Test booking contact used by the admin panel to exercise notifications.
const (
	TestContactHandle = "TestUser#1234"
	TestContactEmail  = "test@example.com"
)

type Service struct {
	bookings BookingRepository
	notifier Notifier
	now      func() time.Time
}

func NewService(bookings BookingRepository, notifier Notifier, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{bookings: bookings, notifier: notifier, now: now}
}

// ListConfirmed returns every confirmed booking, rush ones included.
func (s *Service) ListConfirmed(ctx context.Context) ([]domain.Booking, error) {
	all, err := s.bookings.GetByPrefix(ctx, domain.BookingIDPrefix)
	if err != nil {
		return nil, err
	}
	return confirmedOnly(all), nil
}

func (s *Service) ListConfirmedByDate(ctx context.Context, date string) ([]domain.Booking, error) {
	all, err := s.ListAll(ctx, date)
	if err != nil {
		return nil, err
	}
	return confirmedOnly(all), nil
}

// ListAll returns bookings in any status, optionally limited to one date.
func (s *Service) ListAll(ctx context.Context, date string) ([]domain.Booking, error) {
	prefix := domain.BookingIDPrefix
	if date != "" {
		if _, err := domain.ParseDate(date, time.UTC); err != nil {
			return nil, &ValidationError{Fields: map[string]string{"date": "must be YYYY-MM-DD"}}
		}
		prefix = domain.DatePrefix(date)
	}
	return s.bookings.GetByPrefix(ctx, prefix)
}

// Slots reports every hourly slot of date with whether it is taken.
func (s *Service) Slots(ctx context.Context, date string) ([]SlotView, error) {
	bookings, err := s.ListConfirmedByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	out := make([]SlotView, 0, len(domain.TimeSlots))
	for _, label := range domain.TimeSlots {
		candidate := domain.Booking{Date: date, Time: label, Status: domain.BookingConfirmed}
		out = append(out, SlotView{Time: label, Taken: !domain.IsClaimable(bookings, candidate)})
	}
	return out, nil
}

// Create stores a confirmed booking entered by an operator. It goes through
// the same conditional write as paid bookings.
func (s *Service) Create(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	req.Contact.Handle = strings.TrimSpace(req.Contact.Handle)
	req.Contact.Email = strings.TrimSpace(req.Contact.Email)

	fields := validator.Validate(req)
	if fields == nil {
		fields = make(map[string]string)
	}
	if !req.IsRush {
		if _, bad := fields["date"]; !bad {
			if _, err := domain.ParseDate(req.Date, time.UTC); err != nil {
				fields["date"] = "must be YYYY-MM-DD"
			}
		}
		if _, bad := fields["time"]; !bad && !domain.IsValidSlot(req.Time) {
			fields["time"] = "must be one of the hourly slots"
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	now := s.now()
	date, slot := req.Date, req.Time
	if req.IsRush {
		slot = domain.RushTime
		date = now.Format(domain.DateLayout)
	}

	b := &domain.Booking{
		ID:          domain.NewBookingID(date, slot, now),
		ServiceType: req.ServiceType,
		Date:        date,
		Time:        slot,
		IsRush:      req.IsRush,
		Contact:     domain.Contact{Handle: req.Contact.Handle, Email: req.Contact.Email},
		TotalCents:  domain.PriceCents(req.ServiceType, req.IsRush),
		Status:      domain.BookingConfirmed,
		CreatedAt:   now,
	}
	if err := s.bookings.Put(ctx, b); err != nil {
		return nil, err
	}

	zap.L().Info("booking created manually", zap.String("booking_id", b.ID))
	if s.notifier != nil {
		s.notifier.Notify(*b)
	}
	return b, nil
}

// CreateTestBooking stores a rush booking for the test contact so operators
// can check that notifications arrive.
func (s *Service) CreateTestBooking(ctx context.Context) (*domain.Booking, error) {
	return s.Create(ctx, CreateBookingRequest{
		ServiceType: domain.ServiceOptimization,
		IsRush:      true,
		Contact:     ContactRequest{Handle: TestContactHandle, Email: TestContactEmail},
	})
}

// Delete is idempotent.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.bookings.Delete(ctx, id)
}

// Cancel marks a booking cancelled and frees its slot.
func (s *Service) Cancel(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.bookings.Cancel(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	zap.L().Info("booking cancelled", zap.String("booking_id", b.ID))
	return b, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	all, err := s.bookings.GetByPrefix(ctx, domain.BookingIDPrefix)
	if err != nil {
		return nil, err
	}

	st := &Stats{ByService: map[string]int{
		string(domain.ServiceOptimization): 0,
		string(domain.ServiceRepair):       0,
	}}
	for _, b := range all {
		if b.Status != domain.BookingConfirmed {
			st.Cancelled++
			continue
		}
		st.Confirmed++
		st.ByService[string(b.ServiceType)]++
		st.RevenueCents += b.TotalCents
		if b.IsRush {
			st.Rush++
		}
	}
	st.Revenue = domain.FormatCents(st.RevenueCents)
	return st, nil
}

func confirmedOnly(in []domain.Booking) []domain.Booking {
	out := make([]domain.Booking, 0, len(in))
	for _, b := range in {
		if b.Status == domain.BookingConfirmed {
			out = append(out, b)
		}
	}
	return out
}
