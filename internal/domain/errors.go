package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTravelOptionNotFound = errors.New("travel option not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrUserNotFound         = errors.New("user not found")
)

var (
	ErrInsufficientInventory    = errors.New("not enough seats available")
	ErrTravelOptionDeparted     = errors.New("travel option is no longer available")
	ErrCancellationWindowClosed = errors.New("booking can no longer be cancelled")
	ErrCancellationNotConfirmed = errors.New("booking cancellation was not confirmed")
	ErrUsernameTaken            = errors.New("username already exists")
	ErrEmailTaken               = errors.New("email already exists")
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

var (
	ErrValidation          = errors.New("validation error")
	ErrInventoryCorruption = errors.New("inventory corruption")
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationErrors collects per-field problems. It matches ErrValidation
// under errors.Is.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ErrValidation.Error()
	}
	messages := make([]string, 0, len(v))
	for _, e := range v {
		messages = append(messages, e.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// Has reports whether field already carries an error.
func (v ValidationErrors) Has(field string) bool {
	for _, e := range v {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Err returns nil when nothing was collected.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

type InsufficientInventoryError struct {
	TravelOptionID int64
	Requested      int
	Available      int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("travel option %d: requested %d seats, %d available", e.TravelOptionID, e.Requested, e.Available)
}

func (e *InsufficientInventoryError) Unwrap() error { return ErrInsufficientInventory }

type InventoryCorruptionError struct {
	TravelOptionID int64
	Released       int
	Available      int
	Total          int
}

func (e *InventoryCorruptionError) Error() string {
	return fmt.Sprintf("inventory corruption on travel option %d: releasing %d seats onto %d/%d",
		e.TravelOptionID, e.Released, e.Available, e.Total)
}

func (e *InventoryCorruptionError) Unwrap() error { return ErrInventoryCorruption }
