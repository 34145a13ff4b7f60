package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ServiceType string

const (
	ServiceOptimization ServiceType = "optimization"
	ServiceRepair       ServiceType = "repair"
)

func (s ServiceType) Valid() bool {
	return s == ServiceOptimization || s == ServiceRepair
}

// Label is the human-readable service name used in notifications.
func (s ServiceType) Label() string {
	switch s {
	case ServiceOptimization:
		return "PC Optimization"
	case ServiceRepair:
		return "PC Repair"
	default:
		return string(s)
	}
}

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

const (
	// BookingIDPrefix is shared by every booking id; GetByPrefix(BookingIDPrefix) lists all.
	BookingIDPrefix = "booking:"
	// RushTime is the time label stored on rush bookings.
	RushTime = "ASAP"
	// DateLayout is the ISO calendar date format used in ids and requests.
	DateLayout = "2006-01-02"
)

// Prices in cents.
const (
	PriceOptimizationCents = 3000
	PriceRepairCents       = 2000
	RushSurchargeCents     = 2000
)

type Contact struct {
	Handle string `json:"handle"`
	Email  string `json:"email"`
}

type Booking struct {
	ID          string        `json:"id"`
	ServiceType ServiceType   `json:"serviceType"`
	Date        string        `json:"date"`
	Time        string        `json:"time"`
	IsRush      bool          `json:"isRush"`
	Contact     Contact       `json:"contact"`
	TotalCents  int64         `json:"totalCents"`
	PaymentRef  string        `json:"paymentRef,omitempty"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// OccupiesSlot reports whether the booking holds its (date, time) exclusively.
func (b *Booking) OccupiesSlot() bool {
	return b.Status == BookingConfirmed && !b.IsRush
}

// SlotKey is the uniqueness key of an occupied slot, empty otherwise.
func (b *Booking) SlotKey() string {
	if !b.OccupiesSlot() {
		return ""
	}
	return b.Date + "|" + b.Time
}

// PriceCents returns the charge for a service, including the rush surcharge.
func PriceCents(service ServiceType, rush bool) int64 {
	var base int64
	switch service {
	case ServiceOptimization:
		base = PriceOptimizationCents
	case ServiceRepair:
		base = PriceRepairCents
	}
	if rush {
		base += RushSurchargeCents
	}
	return base
}

// FormatCents renders an amount in cents as dollars, e.g. "$30.00".
func FormatCents(c int64) string {
	return fmt.Sprintf("$%d.%02d", c/100, c%100)
}

// NewBookingID builds an id of the form booking:{date}:{time}:{unixMilli}-{suffix}.
func NewBookingID(date, slot string, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%s:%s:%d-%s", BookingIDPrefix, date, slot, at.UnixMilli(), suffix)
}

// DatePrefix is the id prefix selecting every booking on a date.
func DatePrefix(date string) string {
	return BookingIDPrefix + date + ":"
}

// IsClaimable decides whether candidate may be committed given the bookings
// already stored for its date. Rush candidates are always claimable.
func IsClaimable(existing []Booking, candidate Booking) bool {
	if candidate.IsRush {
		return true
	}
	for i := range existing {
		b := &existing[i]
		if !b.OccupiesSlot() {
			continue
		}
		if b.Date == candidate.Date && b.Time == candidate.Time {
			return false
		}
	}
	return true
}
