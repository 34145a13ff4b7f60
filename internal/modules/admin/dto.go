package admin

import "pcbooking/internal/modules/booking"

type BookingListFilter struct {
	Date string `form:"date"`
}

type StatisticsResponse struct {
	booking.Stats
	FeedClients int `json:"feedClients"`
}
