package api

import (
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
)

type travelOptionResponse struct {
	ID             int64     `json:"travel_id"`
	Type           string    `json:"travel_type"`
	Source         string    `json:"source"`
	Destination    string    `json:"destination"`
	DepartureAt    time.Time `json:"departure_datetime"`
	ArrivalAt      time.Time `json:"arrival_datetime"`
	Duration       string    `json:"duration"`
	Price          string    `json:"price"`
	AvailableSeats int       `json:"available_seats"`
	TotalSeats     int       `json:"total_seats"`
	Operator       string    `json:"operator,omitempty"`
}

type bookingResponse struct {
	ID             int64     `json:"booking_id"`
	TravelOptionID int64     `json:"travel_option_id"`
	Seats          int       `json:"number_of_seats"`
	TotalPrice     string    `json:"total_price"`
	Status         string    `json:"status"`
	PassengerNames []string  `json:"passenger_names"`
	BookingDate    time.Time `json:"booking_date"`
}

type bookingDetailsResponse struct {
	bookingResponse
	TravelOption travelOptionResponse `json:"travel_option"`
	CanCancel    bool                 `json:"can_cancel"`
}

type userResponse struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsStaff     bool   `json:"is_staff"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Address     string `json:"address,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
}

func toTravelOptionResponse(t domain.TravelOption) travelOptionResponse {
	return travelOptionResponse{
		ID:             t.ID,
		Type:           string(t.Type),
		Source:         t.Source,
		Destination:    t.Destination,
		DepartureAt:    t.DepartureAt,
		ArrivalAt:      t.ArrivalAt,
		Duration:       t.Duration(),
		Price:          t.Price.StringFixed(2),
		AvailableSeats: t.AvailableSeats,
		TotalSeats:     t.TotalSeats,
		Operator:       t.Operator,
	}
}

func toBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		ID:             b.ID,
		TravelOptionID: b.TravelOptionID,
		Seats:          b.Seats,
		TotalPrice:     b.TotalPrice.StringFixed(2),
		Status:         string(b.Status),
		PassengerNames: b.PassengerNames,
		BookingDate:    b.BookingDate,
	}
}

func toUserResponse(u *domain.User) userResponse {
	resp := userResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsStaff:     u.IsStaff,
		PhoneNumber: u.Profile.PhoneNumber,
		Address:     u.Profile.Address,
	}
	if u.Profile.DateOfBirth != nil {
		resp.DateOfBirth = u.Profile.DateOfBirth.Format(time.DateOnly)
	}
	return resp
}
