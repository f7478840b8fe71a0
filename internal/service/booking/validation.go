package booking

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Domenick1991/travelbooking/internal/domain"
)

const (
	minNameLength = 2
	maxNameLength = 100
)

var passengerNamePattern = regexp.MustCompile(`^[a-zA-Z\s.]+$`)

// ValidateCreateBooking checks the request shape without touching storage.
// It returns the trimmed passenger names when the input is valid.
func ValidateCreateBooking(input CreateBookingInput, maxSeats int) ([]string, error) {
	var errs domain.ValidationErrors

	if input.TravelOptionID <= 0 {
		errs.Add("travel_option_id", "travel option is required")
	}

	if input.Seats < 1 || input.Seats > maxSeats {
		errs.Add("number_of_seats", fmt.Sprintf("number of seats must be between 1 and %d", maxSeats))
	}

	names := make([]string, 0, len(input.PassengerNames))
	for i, raw := range input.PassengerNames {
		field := fmt.Sprintf("passenger_names[%d]", i)
		name := strings.TrimSpace(raw)
		switch {
		case name == "":
			errs.Add(field, "passenger name cannot be empty")
		case utf8.RuneCountInString(name) < minNameLength:
			errs.Add(field, fmt.Sprintf("passenger name must be at least %d characters", minNameLength))
		case utf8.RuneCountInString(name) > maxNameLength:
			errs.Add(field, fmt.Sprintf("passenger name must be at most %d characters", maxNameLength))
		case !passengerNamePattern.MatchString(name):
			errs.Add(field, "passenger name can only contain letters, spaces, and periods")
		}
		names = append(names, name)
	}

	if len(input.PassengerNames) != input.Seats && !errs.Has("number_of_seats") {
		errs.Add("passenger_names", fmt.Sprintf("please provide exactly %d passenger names, one per seat", input.Seats))
	}

	if !input.TermsAccepted {
		errs.Add("terms_accepted", "you must accept the terms and conditions")
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}
	return names, nil
}
