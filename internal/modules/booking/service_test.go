package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"pcbooking/internal/domain"
	"pcbooking/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Put(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByPrefix(ctx context.Context, prefix string) ([]domain.Booking, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookingRepository) Cancel(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

type recordingNotifier struct {
	mu       sync.Mutex
	bookings []domain.Booking
}

func (n *recordingNotifier) Notify(b domain.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bookings = append(n.bookings, b)
}

func (n *recordingNotifier) all() []domain.Booking {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Booking(nil), n.bookings...)
}

var fixedNow = time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func stored(date, slot string, rush bool, status domain.BookingStatus, service domain.ServiceType) domain.Booking {
	if rush {
		slot = domain.RushTime
	}
	return domain.Booking{
		ID:          domain.NewBookingID(date, slot, fixedNow),
		ServiceType: service,
		Date:        date,
		Time:        slot,
		IsRush:      rush,
		Contact:     domain.Contact{Handle: "gamer#1", Email: "g@example.com"},
		TotalCents:  domain.PriceCents(service, rush),
		Status:      status,
		CreatedAt:   fixedNow,
	}
}

func TestListConfirmedSkipsCancelled(t *testing.T) {
	repo := new(MockBookingRepository)
	repo.On("GetByPrefix", mock.Anything, domain.BookingIDPrefix).Return([]domain.Booking{
		stored("2025-03-10", "09:00 AM", false, domain.BookingConfirmed, domain.ServiceRepair),
		stored("2025-03-10", "10:00 AM", false, domain.BookingCancelled, domain.ServiceRepair),
		stored("2025-03-09", "", true, domain.BookingConfirmed, domain.ServiceOptimization),
	}, nil)

	svc := NewService(repo, nil, clock)
	list, err := svc.ListConfirmed(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, b := range list {
		assert.Equal(t, domain.BookingConfirmed, b.Status)
	}
}

func TestListByDateRejectsMalformedDate(t *testing.T) {
	repo := new(MockBookingRepository)
	svc := NewService(repo, nil, clock)

	_, err := svc.ListConfirmedByDate(context.Background(), "10-03-2025")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "date")
	repo.AssertNotCalled(t, "GetByPrefix", mock.Anything, mock.Anything)
}

func TestSlotsMarksTakenHours(t *testing.T) {
	repo := new(MockBookingRepository)
	repo.On("GetByPrefix", mock.Anything, domain.DatePrefix("2025-03-10")).Return([]domain.Booking{
		stored("2025-03-10", "09:00 AM", false, domain.BookingConfirmed, domain.ServiceRepair),
		stored("2025-03-10", "11:00 AM", false, domain.BookingCancelled, domain.ServiceRepair),
		stored("2025-03-10", "", true, domain.BookingConfirmed, domain.ServiceRepair),
	}, nil)

	svc := NewService(repo, nil, clock)
	slots, err := svc.Slots(context.Background(), "2025-03-10")
	require.NoError(t, err)
	require.Len(t, slots, len(domain.TimeSlots))

	taken := map[string]bool{}
	for _, s := range slots {
		taken[s.Time] = s.Taken
	}
	assert.True(t, taken["09:00 AM"])
	assert.False(t, taken["11:00 AM"])
	assert.False(t, taken["10:00 AM"])
}

func TestCreateStoresAndNotifies(t *testing.T) {
	repo := new(MockBookingRepository)
	notifier := &recordingNotifier{}
	repo.On("Put", mock.Anything, mock.MatchedBy(func(b *domain.Booking) bool {
		return b.Date == "2025-03-12" && b.Time == "02:00 PM" && b.TotalCents == domain.PriceRepairCents
	})).Return(nil)

	svc := NewService(repo, notifier, clock)
	b, err := svc.Create(context.Background(), CreateBookingRequest{
		ServiceType: domain.ServiceRepair,
		Date:        "2025-03-12",
		Time:        "02:00 PM",
		Contact:     ContactRequest{Handle: " walkin ", Email: "walkin@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	assert.Equal(t, "walkin", b.Contact.Handle)
	require.Len(t, notifier.all(), 1)
	assert.Equal(t, b.ID, notifier.all()[0].ID)
}

func TestCreateRejectsUnknownSlot(t *testing.T) {
	repo := new(MockBookingRepository)
	svc := NewService(repo, nil, clock)

	_, err := svc.Create(context.Background(), CreateBookingRequest{
		ServiceType: domain.ServiceRepair,
		Date:        "2025-03-12",
		Time:        "08:00 AM",
		Contact:     ContactRequest{Handle: "x", Email: "x@example.com"},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "time")
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCreateReportsTakenSlot(t *testing.T) {
	repo := new(MockBookingRepository)
	notifier := &recordingNotifier{}
	repo.On("Put", mock.Anything, mock.Anything).Return(repository.ErrSlotTaken)

	svc := NewService(repo, notifier, clock)
	_, err := svc.Create(context.Background(), CreateBookingRequest{
		ServiceType: domain.ServiceOptimization,
		Date:        "2025-03-12",
		Time:        "09:00 AM",
		Contact:     ContactRequest{Handle: "x", Email: "x@example.com"},
	})
	assert.ErrorIs(t, err, repository.ErrSlotTaken)
	assert.Empty(t, notifier.all())
}

func TestCreateTestBookingIsRushForToday(t *testing.T) {
	repo := new(MockBookingRepository)
	notifier := &recordingNotifier{}
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(repo, notifier, clock)
	b, err := svc.CreateTestBooking(context.Background())
	require.NoError(t, err)

	assert.True(t, b.IsRush)
	assert.Equal(t, domain.RushTime, b.Time)
	assert.Equal(t, "2025-03-09", b.Date)
	assert.Equal(t, domain.ServiceOptimization, b.ServiceType)
	assert.Equal(t, int64(5000), b.TotalCents)
	assert.Equal(t, TestContactHandle, b.Contact.Handle)
	assert.Equal(t, TestContactEmail, b.Contact.Email)
	assert.Len(t, notifier.all(), 1)
}

func TestCancelMapsMissingBooking(t *testing.T) {
	repo := new(MockBookingRepository)
	repo.On("Cancel", mock.Anything, "booking:nope").Return(nil, repository.ErrNotFound)

	svc := NewService(repo, nil, clock)
	_, err := svc.Cancel(context.Background(), "booking:nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatsCountsConfirmedRevenue(t *testing.T) {
	repo := new(MockBookingRepository)
	repo.On("GetByPrefix", mock.Anything, domain.BookingIDPrefix).Return([]domain.Booking{
		stored("2025-03-10", "09:00 AM", false, domain.BookingConfirmed, domain.ServiceOptimization),
		stored("2025-03-10", "", true, domain.BookingConfirmed, domain.ServiceRepair),
		stored("2025-03-10", "10:00 AM", false, domain.BookingCancelled, domain.ServiceRepair),
	}, nil)

	svc := NewService(repo, nil, clock)
	st, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, st.Confirmed)
	assert.Equal(t, 1, st.Cancelled)
	assert.Equal(t, 1, st.Rush)
	assert.Equal(t, 1, st.ByService["optimization"])
	assert.Equal(t, 1, st.ByService["repair"])
	assert.Equal(t, int64(7000), st.RevenueCents)
	assert.Equal(t, "$70.00", st.Revenue)
}
