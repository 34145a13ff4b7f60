package domain

import "time"

// BookingWindowDays is how many calendar days, starting today, accept bookings.
const BookingWindowDays = 14

// TimeSlots are the bookable hourly labels, in calendar order.
var TimeSlots = []string{
	"09:00 AM", "10:00 AM", "11:00 AM", "12:00 PM",
	"01:00 PM", "02:00 PM", "03:00 PM", "04:00 PM",
	"05:00 PM", "06:00 PM", "07:00 PM", "08:00 PM",
	"09:00 PM",
}

// SlotIndex returns the position of label in TimeSlots, -1 if unknown.
// RushTime sorts after every fixed slot.
func SlotIndex(label string) int {
	if label == RushTime {
		return len(TimeSlots)
	}
	for i, s := range TimeSlots {
		if s == label {
			return i
		}
	}
	return -1
}

func IsValidSlot(label string) bool {
	return label != RushTime && SlotIndex(label) >= 0
}

// ParseDate parses an ISO date in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, loc)
}

// WithinBookingWindow reports whether date falls in [today, today+BookingWindowDays).
func WithinBookingWindow(date string, now time.Time) bool {
	d, err := ParseDate(date, now.Location())
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	last := today.AddDate(0, 0, BookingWindowDays)
	return !d.Before(today) && d.Before(last)
}
