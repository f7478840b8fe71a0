package memory

import (
	"context"
	"fmt"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/repository"
)

type tx struct {
	s    *Store
	held map[string]struct{}

	travelOptions map[int64]domain.TravelOption
	bookings      map[int64]domain.Booking
}

func newTx(s *Store) *tx {
	return &tx{
		s:             s,
		held:          make(map[string]struct{}),
		travelOptions: make(map[int64]domain.TravelOption),
		bookings:      make(map[int64]domain.Booking),
	}
}

func (t *tx) TravelOptions() repository.TxTravelOptions { return txTravelOptions{t} }

func (t *tx) Bookings() repository.TxBookings { return txBookings{t} }

func (t *tx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	if err := t.s.lock(ctx, key); err != nil {
		return err
	}
	t.held[key] = struct{}{}
	return nil
}

func (t *tx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	now := t.s.clock.Now()
	for id, opt := range t.travelOptions {
		opt.UpdatedAt = now
		t.s.travelOptions[id] = opt
	}
	for id, b := range t.bookings {
		b.UpdatedAt = now
		t.s.bookings[id] = b
	}
}

func (t *tx) release() {
	for key := range t.held {
		t.s.unlock(key)
	}
	t.held = nil
}

// travelOption returns the staged row if any, otherwise the committed one.
func (t *tx) travelOption(id int64) (domain.TravelOption, bool) {
	if opt, ok := t.travelOptions[id]; ok {
		return opt, true
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	opt, ok := t.s.travelOptions[id]
	return opt, ok
}

func (t *tx) booking(id int64) (domain.Booking, bool) {
	if b, ok := t.bookings[id]; ok {
		return b, true
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	b, ok := t.s.bookings[id]
	return b, ok
}

type txTravelOptions struct{ t *tx }

func (r txTravelOptions) GetForUpdate(ctx context.Context, id int64) (*domain.TravelOption, error) {
	if err := r.t.lock(ctx, travelKey(id)); err != nil {
		return nil, err
	}
	opt, ok := r.t.travelOption(id)
	if !ok {
		return nil, domain.ErrTravelOptionNotFound
	}
	return &opt, nil
}

// SetAvailableSeats enforces the same bounds as the database check constraint.
func (r txTravelOptions) SetAvailableSeats(ctx context.Context, id int64, seats int) error {
	opt, ok := r.t.travelOption(id)
	if !ok {
		return domain.ErrTravelOptionNotFound
	}
	if seats < 0 || seats > opt.TotalSeats {
		return fmt.Errorf("available seats %d outside [0, %d] for travel option %d", seats, opt.TotalSeats, id)
	}
	opt.AvailableSeats = seats
	r.t.travelOptions[id] = opt
	return nil
}

type txBookings struct{ t *tx }

func (r txBookings) Create(ctx context.Context, b *domain.Booking) error {
	s := r.t.s
	s.mu.Lock()
	s.nextBookingID++
	b.ID = s.nextBookingID
	now := s.clock.Now()
	s.mu.Unlock()

	b.CreatedAt = now
	b.UpdatedAt = now
	stored := *b
	stored.PassengerNames = append([]string(nil), b.PassengerNames...)
	r.t.bookings[b.ID] = stored
	return nil
}

func (r txBookings) GetForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	if err := r.t.lock(ctx, bookingKey(id)); err != nil {
		return nil, err
	}
	b, ok := r.t.booking(id)
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r txBookings) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	b, ok := r.t.booking(id)
	if !ok {
		return domain.ErrBookingNotFound
	}
	b.Status = status
	r.t.bookings[id] = b
	return nil
}

func travelKey(id int64) string  { return fmt.Sprintf("travel_option:%d", id) }
func bookingKey(id int64) string { return fmt.Sprintf("booking:%d", id) }
