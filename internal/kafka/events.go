package kafka

import (
	"strconv"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingCancelled = "booking_cancelled"
)

const (
	AlertReleaseOverflow  = "release_exceeds_total"
	AlertAuditDiscrepancy = "audit_discrepancy"
)

type BookingEvent struct {
	ID             string          `json:"event_id"`
	Type           string          `json:"type"`
	BookingID      int64           `json:"booking_id"`
	UserID         int64           `json:"user_id"`
	TravelOptionID int64           `json:"travel_option_id"`
	Seats          int             `json:"number_of_seats"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Status         string          `json:"status"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *domain.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		ID:             uuid.NewString(),
		Type:           eventType,
		BookingID:      b.ID,
		UserID:         b.UserID,
		TravelOptionID: b.TravelOptionID,
		Seats:          b.Seats,
		TotalPrice:     b.TotalPrice,
		Status:         string(b.Status),
		OccurredAt:     at,
	}
}

func (e BookingEvent) Key() string {
	return strconv.FormatInt(e.BookingID, 10)
}

// InventoryAlert reports a broken seat-count invariant to operators.
type InventoryAlert struct {
	ID             string    `json:"alert_id"`
	Reason         string    `json:"reason"`
	TravelOptionID int64     `json:"travel_option_id"`
	BookingID      int64     `json:"booking_id,omitempty"`
	Requested      int       `json:"requested,omitempty"`
	Available      int       `json:"available"`
	Total          int       `json:"total"`
	Confirmed      int       `json:"confirmed,omitempty"`
	DetectedAt     time.Time `json:"detected_at"`
}

func NewReleaseAlert(bookingID int64, e *domain.InventoryCorruptionError, at time.Time) InventoryAlert {
	return InventoryAlert{
		ID:             uuid.NewString(),
		Reason:         AlertReleaseOverflow,
		TravelOptionID: e.TravelOptionID,
		BookingID:      bookingID,
		Requested:      e.Released,
		Available:      e.Available,
		Total:          e.Total,
		DetectedAt:     at,
	}
}

func NewAuditAlert(d domain.InventoryDiscrepancy, at time.Time) InventoryAlert {
	return InventoryAlert{
		ID:             uuid.NewString(),
		Reason:         AlertAuditDiscrepancy,
		TravelOptionID: d.TravelOptionID,
		Available:      d.AvailableSeats,
		Total:          d.TotalSeats,
		Confirmed:      d.ConfirmedSeats,
		DetectedAt:     at,
	}
}

func (a InventoryAlert) Key() string {
	return strconv.FormatInt(a.TravelOptionID, 10)
}
