// Package memory is an in-process implementation of the repositories. Reads
// outside a transaction see committed data only. Rows fetched with
// GetForUpdate stay locked until the owning transaction ends, and writes are
// applied atomically on commit.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"github.com/facebookgo/clock"
)

type Store struct {
	mu    sync.Mutex
	clock clock.Clock

	travelOptions map[int64]domain.TravelOption
	bookings      map[int64]domain.Booking
	users         map[int64]domain.User

	nextTravelID  int64
	nextBookingID int64
	nextUserID    int64

	locksMu sync.Mutex
	locks   map[string]*rowLock
}

// rowLock is dropped from the map once nobody holds or waits for it.
type rowLock struct {
	ch   chan struct{}
	refs int
}

type Option func(*Store)

func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		clock:         clock.New(),
		travelOptions: make(map[int64]domain.TravelOption),
		bookings:      make(map[int64]domain.Booking),
		users:         make(map[int64]domain.User),
		locks:         make(map[string]*rowLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) TravelOptions() *TravelOptionRepository { return &TravelOptionRepository{s: s} }

func (s *Store) Bookings() *BookingRepository { return &BookingRepository{s: s} }

func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	tx := newTx(s)
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx.commit()
	return nil
}

// Discrepancies lists travel options whose counters disagree with their
// confirmed bookings.
func (s *Store) Discrepancies(ctx context.Context) ([]domain.InventoryDiscrepancy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	confirmed := make(map[int64]int)
	for _, b := range s.bookings {
		if b.Status == domain.BookingStatusConfirmed {
			confirmed[b.TravelOptionID] += b.Seats
		}
	}

	out := make([]domain.InventoryDiscrepancy, 0)
	for _, t := range s.travelOptions {
		held := confirmed[t.ID]
		if t.AvailableSeats < 0 || t.AvailableSeats > t.TotalSeats || t.AvailableSeats+held != t.TotalSeats {
			out = append(out, domain.InventoryDiscrepancy{
				TravelOptionID: t.ID,
				TotalSeats:     t.TotalSeats,
				AvailableSeats: t.AvailableSeats,
				ConfirmedSeats: held,
			})
		}
	}
	sortDiscrepancies(out)
	return out, nil
}

// lock blocks until the row lock for key is acquired or ctx is done.
func (s *Store) lock(ctx context.Context, key string) error {
	s.locksMu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &rowLock{ch: make(chan struct{}, 1)}
		s.locks[key] = l
	}
	l.refs++
	s.locksMu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		s.drop(key, l)
		return fmt.Errorf("lock %s: %w", key, ctx.Err())
	}
}

func (s *Store) unlock(key string) {
	s.locksMu.Lock()
	l := s.locks[key]
	s.locksMu.Unlock()
	<-l.ch
	s.drop(key, l)
}

func (s *Store) drop(key string, l *rowLock) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, key)
	}
}

var _ repository.Transactor = (*Store)(nil)
