package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	return s == BookingStatusConfirmed || s == BookingStatusCancelled
}

type Booking struct {
	ID             int64           `json:"booking_id"`
	UserID         int64           `json:"user_id"`
	TravelOptionID int64           `json:"travel_option_id"`
	Seats          int             `json:"number_of_seats"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Status         BookingStatus   `json:"status"`
	PassengerNames []string        `json:"passenger_details"`
	BookingDate    time.Time       `json:"booking_date"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CanCancel reports whether the booking is still confirmed and departure is
// more than window away from now.
func (b Booking) CanCancel(departure, now time.Time, window time.Duration) bool {
	if b.Status != BookingStatusConfirmed {
		return false
	}
	return departure.Sub(now) > window
}

type BookingDetails struct {
	Booking      Booking      `json:"booking"`
	TravelOption TravelOption `json:"travel_option"`
	CanCancel    bool         `json:"can_cancel"`
}
