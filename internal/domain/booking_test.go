package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func confirmed(date, slot string, rush bool) Booking {
	return Booking{Date: date, Time: slot, IsRush: rush, Status: BookingConfirmed}
}

func TestIsClaimable(t *testing.T) {
	existing := []Booking{
		confirmed("2025-03-10", "10:00 AM", false),
		confirmed("2025-03-10", RushTime, true),
		{Date: "2025-03-10", Time: "11:00 AM", Status: BookingCancelled},
	}

	tests := []struct {
		name      string
		candidate Booking
		want      bool
	}{
		{"taken slot", confirmed("2025-03-10", "10:00 AM", false), false},
		{"free slot", confirmed("2025-03-10", "12:00 PM", false), true},
		{"same time other date", confirmed("2025-03-11", "10:00 AM", false), true},
		{"cancelled booking frees slot", confirmed("2025-03-10", "11:00 AM", false), true},
		{"rush on busy date", confirmed("2025-03-10", RushTime, true), true},
		{"rush with taken label", confirmed("2025-03-10", "10:00 AM", true), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsClaimable(existing, tt.candidate))
		})
	}
}

func TestRushBookingDoesNotBlockSlot(t *testing.T) {
	existing := []Booking{confirmed("2025-03-10", "10:00 AM", true)}
	assert.True(t, IsClaimable(existing, confirmed("2025-03-10", "10:00 AM", false)))
}

func TestPriceCents(t *testing.T) {
	assert.Equal(t, int64(3000), PriceCents(ServiceOptimization, false))
	assert.Equal(t, int64(2000), PriceCents(ServiceRepair, false))
	assert.Equal(t, int64(4000), PriceCents(ServiceRepair, true))
	assert.Equal(t, int64(5000), PriceCents(ServiceOptimization, true))
}

func TestNewBookingIDMatchesDatePrefix(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	id := NewBookingID("2025-03-10", "10:00 AM", at)

	assert.True(t, strings.HasPrefix(id, DatePrefix("2025-03-10")))
	assert.True(t, strings.HasPrefix(id, BookingIDPrefix))
	assert.NotEqual(t, id, NewBookingID("2025-03-10", "10:00 AM", at))
}

func TestSlotKey(t *testing.T) {
	b := confirmed("2025-03-10", "10:00 AM", false)
	assert.Equal(t, "2025-03-10|10:00 AM", b.SlotKey())

	b.IsRush = true
	assert.Empty(t, b.SlotKey())
}

func TestWithinBookingWindow(t *testing.T) {
	now := time.Date(2025, 3, 9, 15, 0, 0, 0, time.UTC)

	assert.True(t, WithinBookingWindow("2025-03-09", now))
	assert.True(t, WithinBookingWindow("2025-03-22", now))
	assert.False(t, WithinBookingWindow("2025-03-23", now))
	assert.False(t, WithinBookingWindow("2025-03-08", now))
	assert.False(t, WithinBookingWindow("not-a-date", now))
}

func TestSlotIndexOrdersRushLast(t *testing.T) {
	assert.Equal(t, 0, SlotIndex("09:00 AM"))
	assert.Equal(t, 12, SlotIndex("09:00 PM"))
	assert.Equal(t, 13, SlotIndex(RushTime))
	assert.Equal(t, -1, SlotIndex("25:00"))
	assert.False(t, IsValidSlot(RushTime))
}
