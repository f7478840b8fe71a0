package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TravelType string

const (
	TravelTypeFlight TravelType = "flight"
	TravelTypeTrain  TravelType = "train"
	TravelTypeBus    TravelType = "bus"
)

func (t TravelType) Valid() bool {
	switch t {
	case TravelTypeFlight, TravelTypeTrain, TravelTypeBus:
		return true
	}
	return false
}

// TravelOption is a scheduled trip with a fixed capacity. AvailableSeats is
// only ever changed by the inventory ledger and stays within [0, TotalSeats].
type TravelOption struct {
	ID             int64           `json:"travel_id"`
	Type           TravelType      `json:"travel_type"`
	Source         string          `json:"source"`
	Destination    string          `json:"destination"`
	DepartureAt    time.Time       `json:"departure_datetime"`
	ArrivalAt      time.Time       `json:"arrival_datetime"`
	Price          decimal.Decimal `json:"price"`
	AvailableSeats int             `json:"available_seats"`
	TotalSeats     int             `json:"total_seats"`
	Operator       string          `json:"operator"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (t TravelOption) IsAvailable(now time.Time) bool {
	return t.AvailableSeats > 0 && t.DepartureAt.After(now)
}

func (t TravelOption) Departed(now time.Time) bool {
	return !t.DepartureAt.After(now)
}

// Duration renders the trip length as "3h 20m".
func (t TravelOption) Duration() string {
	d := t.ArrivalAt.Sub(t.DepartureAt)
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// TravelSearch filters the catalogue. Zero values disable a filter.
type TravelSearch struct {
	Source        string
	Destination   string
	Type          TravelType
	DepartureDate time.Time
	Now           time.Time
}

type CreateTravelOptionInput struct {
	Type        TravelType
	Source      string
	Destination string
	DepartureAt time.Time
	ArrivalAt   time.Time
	Price       decimal.Decimal
	TotalSeats  int
	Operator    string
}

// InventoryDiscrepancy is a travel option whose counters disagree with its
// confirmed bookings.
type InventoryDiscrepancy struct {
	TravelOptionID int64 `json:"travel_option_id"`
	TotalSeats     int   `json:"total_seats"`
	AvailableSeats int   `json:"available_seats"`
	ConfirmedSeats int   `json:"confirmed_seats"`
}
