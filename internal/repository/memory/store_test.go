package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOption(t *testing.T, s *Store, opt domain.TravelOption) domain.TravelOption {
	t.Helper()
	require.NoError(t, s.TravelOptions().Create(context.Background(), &opt))
	return opt
}

func newOption(source, destination string, departure time.Time, seats int) domain.TravelOption {
	return domain.TravelOption{
		Type:           domain.TravelTypeFlight,
		Source:         source,
		Destination:    destination,
		DepartureAt:    departure,
		ArrivalAt:      departure.Add(2 * time.Hour),
		Price:          decimal.RequireFromString("5000.00"),
		AvailableSeats: seats,
		TotalSeats:     seats,
		Operator:       "SkyJet",
	}
}

func TestWithinTx_CommitAppliesWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	opt := seedOption(t, s, newOption("Delhi", "Mumbai", time.Now().Add(48*time.Hour), 100))

	var bookingID int64
	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.TravelOptions().GetForUpdate(ctx, opt.ID)
		if err != nil {
			return err
		}
		if err := tx.TravelOptions().SetAvailableSeats(ctx, opt.ID, locked.AvailableSeats-2); err != nil {
			return err
		}
		b := &domain.Booking{UserID: 1, TravelOptionID: opt.ID, Seats: 2, Status: domain.BookingStatusConfirmed,
			PassengerNames: []string{"Ann Lee", "Bo Lee"}}
		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}
		bookingID = b.ID
		return nil
	})
	require.NoError(t, err)

	got, err := s.TravelOptions().GetByID(ctx, opt.ID)
	require.NoError(t, err)
	assert.Equal(t, 98, got.AvailableSeats)

	b, err := s.Bookings().GetByID(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann Lee", "Bo Lee"}, b.PassengerNames)
}

func TestWithinTx_ErrorDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	opt := seedOption(t, s, newOption("Delhi", "Mumbai", time.Now().Add(48*time.Hour), 10))
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.TravelOptions().GetForUpdate(ctx, opt.ID); err != nil {
			return err
		}
		if err := tx.TravelOptions().SetAvailableSeats(ctx, opt.ID, 3); err != nil {
			return err
		}
		if err := tx.Bookings().Create(ctx, &domain.Booking{UserID: 1, TravelOptionID: opt.ID, Seats: 7}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.TravelOptions().GetByID(ctx, opt.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.AvailableSeats)

	list, err := s.Bookings().ListByUser(ctx, 1, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWithinTx_PanicReleasesLocks(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	opt := seedOption(t, s, newOption("Delhi", "Mumbai", time.Now().Add(48*time.Hour), 10))

	assert.Panics(t, func() {
		_ = s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			_, _ = tx.TravelOptions().GetForUpdate(ctx, opt.ID)
			panic("boom")
		})
	})

	timeout, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	err := s.WithinTx(timeout, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.TravelOptions().GetForUpdate(ctx, opt.ID)
		return err
	})
	assert.NoError(t, err)
}

func TestGetForUpdate_BlocksUntilOwnerCommits(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	opt := seedOption(t, s, newOption("Delhi", "Mumbai", time.Now().Add(48*time.Hour), 10))

	locked := make(chan struct{})
	proceed := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if _, err := tx.TravelOptions().GetForUpdate(ctx, opt.ID); err != nil {
				return err
			}
			close(locked)
			<-proceed
			return tx.TravelOptions().SetAvailableSeats(ctx, opt.ID, 4)
		})
	}()
	<-locked

	timeout, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := s.WithinTx(timeout, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.TravelOptions().GetForUpdate(ctx, opt.ID)
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(proceed)
	require.NoError(t, <-done)

	err = s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		got, err := tx.TravelOptions().GetForUpdate(ctx, opt.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, 4, got.AvailableSeats)
		return nil
	})
	assert.NoError(t, err)
}

func lockCount(s *Store) int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

func TestRowLocks_DroppedWhenIdle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	opt := seedOption(t, s, newOption("Delhi", "Mumbai", time.Now().Add(48*time.Hour), 10))

	for i := 0; i < 5; i++ {
		err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if _, err := tx.TravelOptions().GetForUpdate(ctx, opt.ID); err != nil {
				return err
			}
			b := &domain.Booking{UserID: 1, TravelOptionID: opt.ID, Seats: 1, Status: domain.BookingStatusConfirmed}
			if err := tx.Bookings().Create(ctx, b); err != nil {
				return err
			}
			_, err := tx.Bookings().GetForUpdate(ctx, b.ID)
			return err
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 0, lockCount(s))

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			_, err := tx.TravelOptions().GetForUpdate(ctx, opt.ID)
			close(held)
			<-release
			return err
		})
	}()
	<-held

	timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := s.WithinTx(timeout, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.TravelOptions().GetForUpdate(ctx, opt.ID)
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, lockCount(s))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 0, lockCount(s))
}

func TestSetAvailableSeats_RejectsOutOfBounds(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	opt := seedOption(t, s, newOption("Delhi", "Mumbai", time.Now().Add(48*time.Hour), 10))

	for _, seats := range []int{-1, 11} {
		err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return tx.TravelOptions().SetAvailableSeats(ctx, opt.ID, seats)
		})
		assert.Error(t, err, "seats=%d", seats)
	}
}

func TestGetForUpdate_Missing(t *testing.T) {
	s := NewStore()
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.TravelOptions().GetForUpdate(ctx, 42)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrTravelOptionNotFound)

	err = s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.Bookings().GetForUpdate(ctx, 42)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestSearch_Filters(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()
	mock.Add(1000 * time.Hour)
	now := mock.Now()
	s := NewStore(WithClock(mock))

	day := now.Add(72 * time.Hour).UTC()
	early := seedOption(t, s, newOption("New Delhi", "Mumbai", day, 5))
	late := seedOption(t, s, newOption("Delhi", "Mumbai", day.Add(time.Hour), 5))
	seedOption(t, s, newOption("Delhi", "Pune", day, 0))
	seedOption(t, s, newOption("Delhi", "Mumbai", now.Add(-time.Hour), 5))
	train := newOption("Delhi", "Mumbai", day.Add(48*time.Hour), 5)
	train.Type = domain.TravelTypeTrain
	train = seedOption(t, s, train)

	got, err := s.TravelOptions().Search(ctx, domain.TravelSearch{Source: "delhi", Destination: "MUM", Now: now})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{early.ID, late.ID, train.ID}, []int64{got[0].ID, got[1].ID, got[2].ID})

	got, err = s.TravelOptions().Search(ctx, domain.TravelSearch{Type: domain.TravelTypeTrain, Now: now})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, train.ID, got[0].ID)

	got, err = s.TravelOptions().Search(ctx, domain.TravelSearch{DepartureDate: day, Now: now})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCities(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	dep := time.Now().Add(24 * time.Hour)
	seedOption(t, s, newOption("Mumbai", "Delhi", dep, 5))
	seedOption(t, s, newOption("Delhi", "Mumbai", dep, 5))
	seedOption(t, s, newOption("Madurai", "Mysore", dep, 5))

	got, err := s.TravelOptions().Cities(ctx, "m", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Madurai", "Mumbai", "Mysore"}, got)

	got, err = s.TravelOptions().Cities(ctx, "m", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Madurai", "Mumbai"}, got)
}

func TestUsers_Uniqueness(t *testing.T) {
	ctx := context.Background()
	users := NewStore().Users()

	alice := &domain.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, users.Create(ctx, alice))

	assert.ErrorIs(t, users.Create(ctx, &domain.User{Username: "alice", Email: "other@example.com"}), domain.ErrUsernameTaken)
	assert.ErrorIs(t, users.Create(ctx, &domain.User{Username: "bob", Email: "ALICE@example.com"}), domain.ErrEmailTaken)

	bob := &domain.User{Username: "bob", Email: "bob@example.com"}
	require.NoError(t, users.Create(ctx, bob))

	taken, err := users.EmailTaken(ctx, "alice@example.com", bob.ID)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = users.EmailTaken(ctx, "alice@example.com", alice.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	bob.Email = "alice@example.com"
	assert.ErrorIs(t, users.Update(ctx, bob), domain.ErrEmailTaken)
}

func TestDiscrepancies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	healthy := seedOption(t, s, newOption("Delhi", "Mumbai", time.Now().Add(24*time.Hour), 10))
	broken := seedOption(t, s, newOption("Delhi", "Goa", time.Now().Add(24*time.Hour), 10))

	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.TravelOptions().SetAvailableSeats(ctx, healthy.ID, 8); err != nil {
			return err
		}
		if err := tx.Bookings().Create(ctx, &domain.Booking{TravelOptionID: healthy.ID, Seats: 2, Status: domain.BookingStatusConfirmed}); err != nil {
			return err
		}
		return tx.TravelOptions().SetAvailableSeats(ctx, broken.ID, 7)
	})
	require.NoError(t, err)

	got, err := s.Discrepancies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.InventoryDiscrepancy{
		{TravelOptionID: broken.ID, TotalSeats: 10, AvailableSeats: 7, ConfirmedSeats: 0},
	}, got)
}
