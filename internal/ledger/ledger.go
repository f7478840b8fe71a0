// Package ledger owns the per-trip seat counters. Every change happens under
// the travel option's row lock inside the caller's transaction, so concurrent
// reservations on one trip serialize while different trips proceed in
// parallel.
package ledger

import (
	"context"
	"fmt"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"github.com/sirupsen/logrus"
)

type Ledger struct {
	log logrus.FieldLogger
}

func New(log logrus.FieldLogger) *Ledger {
	return &Ledger{log: log}
}

// Reserve takes n seats from the travel option and returns the locked,
// updated row. Availability is re-read under the lock; any value the caller
// saw earlier is only a hint.
func (l *Ledger) Reserve(ctx context.Context, tx repository.Tx, travelID int64, n int) (*domain.TravelOption, error) {
	if n < 1 {
		return nil, fmt.Errorf("reserve %d seats: %w", n, domain.ErrValidation)
	}

	opt, err := tx.TravelOptions().GetForUpdate(ctx, travelID)
	if err != nil {
		return nil, err
	}

	if n > opt.AvailableSeats {
		return nil, &domain.InsufficientInventoryError{
			TravelOptionID: travelID,
			Requested:      n,
			Available:      opt.AvailableSeats,
		}
	}

	if err := tx.TravelOptions().SetAvailableSeats(ctx, travelID, opt.AvailableSeats-n); err != nil {
		return nil, fmt.Errorf("reserve seats on travel option %d: %w", travelID, err)
	}
	opt.AvailableSeats -= n
	return opt, nil
}

// Release returns n seats. A release that would push the counter above the
// total leaves the row untouched and reports InventoryCorruption.
func (l *Ledger) Release(ctx context.Context, tx repository.Tx, travelID int64, n int) (*domain.TravelOption, error) {
	if n < 1 {
		return nil, fmt.Errorf("release %d seats: %w", n, domain.ErrValidation)
	}

	opt, err := tx.TravelOptions().GetForUpdate(ctx, travelID)
	if err != nil {
		return nil, err
	}

	if opt.AvailableSeats+n > opt.TotalSeats {
		corruption := &domain.InventoryCorruptionError{
			TravelOptionID: travelID,
			Released:       n,
			Available:      opt.AvailableSeats,
			Total:          opt.TotalSeats,
		}
		l.log.WithFields(logrus.Fields{
			"travel_option_id": travelID,
			"released":         n,
			"available_seats":  opt.AvailableSeats,
			"total_seats":      opt.TotalSeats,
		}).Error("inventory corruption: release exceeds total seats")
		return nil, corruption
	}

	if err := tx.TravelOptions().SetAvailableSeats(ctx, travelID, opt.AvailableSeats+n); err != nil {
		return nil, fmt.Errorf("release seats on travel option %d: %w", travelID, err)
	}
	opt.AvailableSeats += n
	return opt, nil
}
