package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"pcbooking/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrSlotTaken = errors.New("slot already taken")
	ErrNotFound  = errors.New("record not found")
)

// BookingRepository is the reservation store. Writes that claim a slot are
// conditional: the claim predicate and the insert run in one transaction and
// a unique index on slot_key rejects whatever slips past a concurrent writer.
type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type bookingModel struct {
	ID            string    `gorm:"column:id;primaryKey;size:191"`
	ServiceType   string    `gorm:"column:service_type;size:32;not null"`
	Date          string    `gorm:"column:date;size:10;index;not null"`
	Time          string    `gorm:"column:time;size:16;not null"`
	IsRush        bool      `gorm:"column:is_rush;not null"`
	ContactHandle string    `gorm:"column:contact_handle;not null"`
	ContactEmail  string    `gorm:"column:contact_email;not null"`
	TotalCents    int64     `gorm:"column:total_cents;not null"`
	PaymentRef    *string   `gorm:"column:payment_ref"`
	Status        string    `gorm:"column:status;size:16;index;not null"`
	SlotKey       *string   `gorm:"column:slot_key;size:40;uniqueIndex:idx_bookings_slot_key"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (bookingModel) TableName() string { return "bookings" }

// Models lists the gorm models owned by this package, for migrations.
func Models() []any {
	return []any{&bookingModel{}, &userModel{}, &domain.RevokedToken{}}
}

func toDomainBooking(m bookingModel) domain.Booking {
	var ref string
	if m.PaymentRef != nil {
		ref = *m.PaymentRef
	}
	return domain.Booking{
		ID:          m.ID,
		ServiceType: domain.ServiceType(m.ServiceType),
		Date:        m.Date,
		Time:        m.Time,
		IsRush:      m.IsRush,
		Contact:     domain.Contact{Handle: m.ContactHandle, Email: m.ContactEmail},
		TotalCents:  m.TotalCents,
		PaymentRef:  ref,
		Status:      domain.BookingStatus(m.Status),
		CreatedAt:   m.CreatedAt,
	}
}

func toBookingModel(b *domain.Booking) bookingModel {
	var ref, slot *string
	if b.PaymentRef != "" {
		v := b.PaymentRef
		ref = &v
	}
	if key := b.SlotKey(); key != "" {
		slot = &key
	}
	return bookingModel{
		ID:            b.ID,
		ServiceType:   string(b.ServiceType),
		Date:          b.Date,
		Time:          b.Time,
		IsRush:        b.IsRush,
		ContactHandle: b.Contact.Handle,
		ContactEmail:  strings.TrimSpace(b.Contact.Email),
		TotalCents:    b.TotalCents,
		PaymentRef:    ref,
		Status:        string(b.Status),
		SlotKey:       slot,
		CreatedAt:     b.CreatedAt,
	}
}

// Put commits b if its slot is claimable against the current store state.
// Returns ErrSlotTaken when another confirmed non-rush booking holds the slot.
func (r *BookingRepository) Put(ctx context.Context, b *domain.Booking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if b.OccupiesSlot() {
			var rows []bookingModel
			if err := tx.Where("date = ? AND time = ? AND status = ? AND is_rush = ?",
				b.Date, b.Time, string(domain.BookingConfirmed), false).
				Find(&rows).Error; err != nil {
				return err
			}
			existing := make([]domain.Booking, 0, len(rows))
			for _, m := range rows {
				existing = append(existing, toDomainBooking(m))
			}
			if !domain.IsClaimable(existing, *b) {
				return ErrSlotTaken
			}
		}

		m := toBookingModel(b)
		if err := tx.Create(&m).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrSlotTaken
			}
			return err
		}
		*b = toDomainBooking(m)
		return nil
	})
}

// GetByPrefix returns bookings whose id starts with prefix, ordered by date,
// slot and creation time.
func (r *BookingRepository) GetByPrefix(ctx context.Context, prefix string) ([]domain.Booking, error) {
	var rows []bookingModel
	if err := r.db.WithContext(ctx).
		Where("id LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.Booking, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainBooking(m))
	}
	sortBookings(out)
	return out, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var m bookingModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	b := toDomainBooking(m)
	return &b, nil
}

// Delete removes a booking. Deleting an unknown id is not an error.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&bookingModel{}).Error
}

// Cancel marks a booking cancelled and releases its slot.
func (r *BookingRepository) Cancel(ctx context.Context, id string) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m bookingModel
		if err := tx.Where("id = ?", id).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Model(&bookingModel{}).Where("id = ?", id).Updates(map[string]any{
			"status":     string(domain.BookingCancelled),
			"slot_key":   nil,
			"updated_at": time.Now(),
		}).Error; err != nil {
			return err
		}
		m.Status = string(domain.BookingCancelled)
		m.SlotKey = nil
		b := toDomainBooking(m)
		out = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func sortBookings(list []domain.Booking) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		ai, bi := domain.SlotIndex(a.Time), domain.SlotIndex(b.Time)
		if ai != bi {
			return ai < bi
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func isUniqueConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed")
}
